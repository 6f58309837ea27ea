package marshal

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	orderedjson "github.com/nspcc-dev/go-ordered-json"
)

// scenarios mirrors the worked examples of spec.md section 8.2: exact
// byte fixtures that must load to a known value tree and dump back to
// the same bytes.
func TestScenarioNil(t *testing.T) {
	raw := []byte{4, 8, '0'}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != nil {
		t.Fatalf("got %#v, want nil", v)
	}
	out, err := Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioSmallPositiveInt(t *testing.T) {
	raw := []byte{4, 8, 'i', 6}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != int64(1) {
		t.Fatalf("got %#v, want int64(1)", v)
	}
	out, err := Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioInternedSymbolArray(t *testing.T) {
	raw := []byte{4, 8, '[', 7, ':', 6, 'a', ';', 0}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Tree{Symbol("a"), Symbol("a")}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
	out, err := Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioEncodedString(t *testing.T) {
	raw := []byte{4, 8, 'I', '"', 6, 'h', 6, ':', 6, 'E', 'T'}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != "h" {
		t.Fatalf("got %#v, want \"h\"", v)
	}
	out, err := Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioBytesMode(t *testing.T) {
	raw := []byte{4, 8, 'I', '"', 6, 'h', 6, ':', 6, 'E', 'T'}
	v, err := Load(raw, WithStringMode(StringBinary))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Bytes([]byte("h"))
	got, ok := v.(*orderedjson.OrderedMap)
	if !ok {
		t.Fatalf("got %#v, want *orderedjson.OrderedMap", v)
	}
	gotBytes, ok := AsBytes(got)
	if !ok {
		t.Fatalf("not a bytes node: %#v", got)
	}
	wantBytes, _ := AsBytes(want)
	if diff := cmp.Diff(wantBytes, gotBytes); diff != "" {
		t.Errorf("bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestScenarioHashWithIntegerKey(t *testing.T) {
	raw := []byte{4, 8, '{', 6, 'i', 6, '0'}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, ok := v.(*orderedjson.OrderedMap)
	if !ok {
		t.Fatalf("got %#v, want *orderedjson.OrderedMap", v)
	}
	got, ok := h.Get(StringifyIntegerKey(1))
	if !ok {
		t.Fatalf("missing key %q", StringifyIntegerKey(1))
	}
	if got != nil {
		t.Fatalf("got %#v, want nil", got)
	}

	out, err := Dump(v)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderTolerance(t *testing.T) {
	_, err := Load([]byte{3, 8, '0'})
	le, ok := err.(*LoadError)
	if !ok || le.Kind != UnsupportedVersion {
		t.Fatalf("got %v, want UnsupportedVersion", err)
	}

	out, err := Dump(nil)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if out[0] != 4 || out[1] != 8 {
		t.Errorf("header = %v, want {4,8,...}", out[:2])
	}
}

func TestSymbolInterningOnDump(t *testing.T) {
	arr := []Tree{Symbol("x"), Symbol("x"), Symbol("x")}
	out, err := Dump(arr)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	count := 0
	for _, b := range out {
		if b == ':' {
			count++
		}
	}
	if count != 1 {
		t.Errorf("got %d new-symbol tags, want 1", count)
	}
}

func TestLinkResolutionOutOfRange(t *testing.T) {
	raw := []byte{4, 8, ';', 0}
	_, err := Load(raw)
	le, ok := err.(*LoadError)
	if !ok || le.Kind != BadSymbolLink {
		t.Fatalf("got %v, want BadSymbolLink", err)
	}
}

func TestCyclicArrayLoad(t *testing.T) {
	// [self] encoded as: array of length 1 whose single element is an
	// object-link back to slot 0 (the array itself).
	raw := []byte{4, 8, '[', 6, '@', 0}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	arr, ok := v.([]Tree)
	if !ok || len(arr) != 1 {
		t.Fatalf("got %#v, want a 1-element array", v)
	}
	inner, ok := arr[0].([]Tree)
	if !ok {
		t.Fatalf("element 0 is %T, want []Tree", arr[0])
	}
	if len(inner) != 1 {
		t.Fatalf("cyclic element has length %d, want 1", len(inner))
	}
}

func TestDumpCyclicArrayFails(t *testing.T) {
	arr := make([]Tree, 1)
	arr[0] = arr
	_, err := Dump(arr)
	if _, ok := err.(*ErrCyclicValue); !ok {
		t.Fatalf("got %v (%T), want *ErrCyclicValue", err, err)
	}
}

func TestDumpStability(t *testing.T) {
	h := NewObject()
	h.Set("a", int64(1))
	h.Set(SymbolPrefix+"b", Symbol("c"))
	first, err := Dump(h)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	second, err := Dump(h)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("dump is not stable (-first +second):\n%s", diff)
	}
}

func TestBadEncodingSurfaces(t *testing.T) {
	// I-wrapped string with an "encoding" ivar naming something bogus.
	raw := []byte{
		4, 8, 'I', '"', 6, 'h', 6,
		':', 13, 'e', 'n', 'c', 'o', 'd', 'i', 'n', 'g',
		'"', 10, 'B', 'o', 'g', 'u', 's',
	}
	_, err := Load(raw)
	le, ok := err.(*LoadError)
	if !ok || le.Kind != BadEncoding {
		t.Fatalf("got %v, want BadEncoding", err)
	}
}

func TestBigIntRoundTrip(t *testing.T) {
	big := BigInt("123456789012345678901234567890")
	out, err := Dump(big)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	v, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := v.(*orderedjson.OrderedMap)
	if !ok {
		t.Fatalf("got %#v, want *orderedjson.OrderedMap", v)
	}
	s, ok := AsBigInt(got)
	if !ok || s != "123456789012345678901234567890" {
		t.Errorf("got %v, want 123456789012345678901234567890", s)
	}
}

func TestDumpJSONNumberAsFixnum(t *testing.T) {
	out, err := Dump(json.Number("1"))
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	want := []byte{4, 8, 'i', 6}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpJSONNumberAsBignum(t *testing.T) {
	out, err := Dump(json.Number("123456789012345678901234567890"))
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	v, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o, ok := v.(*orderedjson.OrderedMap)
	if !ok {
		t.Fatalf("got %#v, want *orderedjson.OrderedMap", v)
	}
	s, ok := AsBigInt(o)
	if !ok || s != "123456789012345678901234567890" {
		t.Errorf("got %v, want 123456789012345678901234567890", s)
	}
}

func TestDumpJSONNumberAsFloat(t *testing.T) {
	out, err := Dump(json.Number("1.5"))
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	v, err := Load(out)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != 1.5 {
		t.Fatalf("got %#v, want 1.5", v)
	}
}

func TestObjectWithIvars(t *testing.T) {
	// An instance of class "Point" with ivars @x=1, @y=2.
	raw := []byte{
		4, 8, 'o',
		':', 10, 'P', 'o', 'i', 'n', 't',
		7,
		':', 7, '@', 'x', 'i', 6,
		':', 7, '@', 'y', 'i', 7,
	}
	v, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	o, ok := v.(*orderedjson.OrderedMap)
	if !ok {
		t.Fatalf("got %#v, want *orderedjson.OrderedMap", v)
	}
	class, _ := o.Get(ClassKey)
	if class != Symbol("Point") {
		t.Errorf("class = %v, want %q", class, Symbol("Point"))
	}
	x, _ := o.Get(IVarKey(SymbolPrefix, "@x"))
	if x != int64(1) {
		t.Errorf("x = %v, want 1", x)
	}

	out, err := Dump(o)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if diff := cmp.Diff(raw, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
