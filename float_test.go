package marshal

import (
	"math"
	"testing"
)

func TestFloatRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 3.14159, -2.5, 1e100, -1e-100}
	for _, v := range values {
		e := newEmitter()
		writeFloatToken(e, v)
		c := newCursor(e.bytes())
		got, err := readFloatToken(c)
		if err != nil {
			t.Fatalf("round trip %v: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %v: got %v", v, got)
		}
	}
}

func TestFloatSpecialTokens(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"inf", math.Inf(1)},
		{"-inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		e := newEmitter()
		writeByteString(e, []byte(tt.text))
		c := newCursor(e.bytes())
		got, err := readFloatToken(c)
		if err != nil {
			t.Fatalf("%s: %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.text, got, tt.want)
		}
	}

	e := newEmitter()
	writeByteString(e, []byte("nan"))
	c := newCursor(e.bytes())
	got, err := readFloatToken(c)
	if err != nil {
		t.Fatalf("nan: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("nan: got %v", got)
	}
}

func TestFloatTrailingMantissaBytesDiscarded(t *testing.T) {
	// "1.5\0" followed by extra mantissa-fixup bytes: accepted and
	// discarded per spec.md section 9.
	raw := append([]byte("1.5"), 0, 0xAB, 0xCD)
	e := newEmitter()
	writeByteString(e, raw)
	c := newCursor(e.bytes())
	got, err := readFloatToken(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.5 {
		t.Errorf("got %v, want 1.5", got)
	}
}
