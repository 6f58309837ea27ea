package main

import (
	"bytes"
	"os"

	orderedjson "github.com/nspcc-dev/go-ordered-json"
	"github.com/spf13/cobra"

	marshal "github.com/savannstm/marshal-rs"
)

var dumpIvarPfx string

var dumpCmd = &cobra.Command{
	Use:   "dump <file.json>",
	Short: "Encode a JSON value tree into a Marshal stream on stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var v interface{}
		dec := orderedjson.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return err
		}

		var opts []marshal.Option
		if dumpIvarPfx != "" {
			opts = append(opts, marshal.WithInstanceVarPrefix(dumpIvarPfx))
		}

		out, err := marshal.Dump(v, opts...)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpIvarPfx, "ivar-prefix", "", "instance-variable key prefix used to recognize ivar keys")
}
