package marshal

import (
	"bytes"
	"math"
	"strconv"
)

// readFloatToken reads a byte string per readByteString and decodes
// its ASCII text into a float64, per spec.md section 3.1 ("Float").
// "inf", "-inf" and "nan" denote the corresponding IEEE values. Any
// trailing NUL byte followed by mantissa-fixup bytes is accepted and
// discarded (spec.md section 9, Open Question) rather than
// interpreted.
func readFloatToken(c *cursor) (float64, error) {
	start := c.offset
	raw, err := readByteString(c)
	if err != nil {
		return 0, err
	}

	text := raw
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		text = raw[:i]
	}

	switch string(text) {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan":
		return math.NaN(), nil
	}

	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return 0, newLoadError(BadFloat, start, "malformed float token %q", string(text))
	}
	return f, nil
}

// writeFloatToken emits f as the canonical decimal byte string, or one
// of the "inf"/"-inf"/"nan" tokens for non-finite values. No trailing
// mantissa-fixup bytes are ever emitted (spec.md section 2 "Non-goals").
func writeFloatToken(e *emitter, f float64) {
	var text string
	switch {
	case math.IsInf(f, 1):
		text = "inf"
	case math.IsInf(f, -1):
		text = "-inf"
	case math.IsNaN(f):
		text = "nan"
	default:
		text = strconv.FormatFloat(f, 'g', -1, 64)
	}
	writeByteString(e, []byte(text))
}
