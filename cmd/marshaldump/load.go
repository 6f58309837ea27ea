package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	marshal "github.com/savannstm/marshal-rs"
)

var (
	loadBinary  bool
	loadIvarPfx string
	loadPretty  bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Decode a Marshal stream and print its value tree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var opts []marshal.Option
		if loadBinary {
			opts = append(opts, marshal.WithStringMode(marshal.StringBinary))
		}
		if loadIvarPfx != "" {
			opts = append(opts, marshal.WithInstanceVarPrefix(loadIvarPfx))
		}

		v, err := marshal.Load(data, opts...)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		if loadPretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadBinary, "binary", false, "surface every string as a bytes object instead of decoded text")
	loadCmd.Flags().StringVar(&loadIvarPfx, "ivar-prefix", "", fmt.Sprintf("instance-variable key prefix (default %q)", "__symbol__"))
	loadCmd.Flags().BoolVar(&loadPretty, "pretty", false, "indent the JSON output")
}
