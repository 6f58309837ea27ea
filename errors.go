package marshal

import "fmt"

// ErrorKind is the closed set of ways a Load or Dump call can fail
// (spec.md section 7).
type ErrorKind int

// The complete error taxonomy from spec.md section 7. Every LoadError
// and DumpError carries one of these kinds; ErrCyclicValue, returned
// by Dump for a reference cycle, carries none.
const (
	UnsupportedVersion ErrorKind = iota
	UnexpectedEOF
	UnknownTag
	BadSymbolLink
	BadObjectLink
	BadInteger
	BadFloat
	BadBigInt
	BadEncoding
	MalformedSentinel
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case UnexpectedEOF:
		return "UnexpectedEOF"
	case UnknownTag:
		return "UnknownTag"
	case BadSymbolLink:
		return "BadSymbolLink"
	case BadObjectLink:
		return "BadObjectLink"
	case BadInteger:
		return "BadInteger"
	case BadFloat:
		return "BadFloat"
	case BadBigInt:
		return "BadBigInt"
	case BadEncoding:
		return "BadEncoding"
	case MalformedSentinel:
		return "MalformedSentinel"
	default:
		return "Unknown"
	}
}

// LoadError is returned by Load and everything it calls. It always
// carries the byte offset at which the problem was detected (spec.md
// section 7: "All errors include the byte offset... where detected").
type LoadError struct {
	Kind    ErrorKind
	Offset  int
	Message string
}

func (e *LoadError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Offset, e.Message)
}

func newLoadError(kind ErrorKind, offset int, format string, args ...interface{}) *LoadError {
	return &LoadError{Kind: kind, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// DumpError is returned by Dump. Since the dumper walks a tree rather
// than a byte stream, it reports a JSON path instead of an offset
// (spec.md section 7).
type DumpError struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *DumpError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s at %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

func newDumpError(kind ErrorKind, path string, format string, args ...interface{}) *DumpError {
	return &DumpError{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)}
}

// ErrCyclicValue is returned by Dump when the input tree contains a
// reference cycle (spec.md section 9: dump "should detect a cycle...
// and fail with a dedicated error rather than stack-overflow").
type ErrCyclicValue struct {
	Path string
}

func (e *ErrCyclicValue) Error() string {
	return fmt.Sprintf("cyclic value detected at %s: dump does not support reference cycles", e.Path)
}
