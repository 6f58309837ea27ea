package marshal

import "github.com/sirupsen/logrus"

// StringMode selects how a raw byte string is surfaced by Load
// (spec.md section 4.1). StringBinary applies even to a string that
// carries an encoding ivar.
type StringMode int

const (
	// StringUTF8 surfaces valid UTF-8 byte strings as JSON strings,
	// falling back to the bytes object form otherwise. Default.
	StringUTF8 StringMode = iota
	// StringBinary always surfaces raw byte strings as the bytes
	// object form, regardless of their content.
	StringBinary
)

// Options configures a single Load or Dump call. The zero value is
// the default configuration described in spec.md section 6.3: the
// way pe.Options configures a single pe.Open/pe.New call, Options
// here is plain data with no global state and no persistence across
// calls.
type Options struct {
	// StringMode chooses how unencoded byte strings are surfaced by
	// Load. Ignored by Dump.
	StringMode StringMode

	// InstanceVarPrefix replaces the default "__symbol__" prefix used
	// both to rename ivar keys on Load and to recognize them on Dump.
	InstanceVarPrefix string

	// Logger receives diagnostic messages emitted while loading or
	// dumping. A nil Logger discards them.
	Logger *logrus.Logger
}

func (o Options) instanceVarPrefix() string {
	if o.InstanceVarPrefix != "" {
		return o.InstanceVarPrefix
	}
	return SymbolPrefix
}

func (o Options) helper() *logHelper {
	return newLogHelper(o.Logger)
}

// Option mutates an Options value, the way pe.Option does for
// pe.Options (github.com/saferwall/pe's functional-option pattern
// over NewBytes/New).
type Option func(*Options)

// WithStringMode overrides the default StringUTF8 behavior.
func WithStringMode(m StringMode) Option {
	return func(o *Options) { o.StringMode = m }
}

// WithInstanceVarPrefix overrides the default "__symbol__" ivar-key
// prefix.
func WithInstanceVarPrefix(prefix string) Option {
	return func(o *Options) { o.InstanceVarPrefix = prefix }
}

// WithLogger attaches a logger to receive diagnostic messages.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
