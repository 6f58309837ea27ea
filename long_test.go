package marshal

import "testing"

func TestReadSignedLong(t *testing.T) {
	tests := []struct {
		in  []byte
		out int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x06}, 1},
		{[]byte{0x7F}, 122},
		{[]byte{0xFA}, -1}, // -6 as int8 -> -1
		{[]byte{0x80}, -123},
		{[]byte{0x01, 0x7B}, 123},
		{[]byte{0xFF, 0x84}, -124},
		{[]byte{0x02, 0xE8, 0x03}, 1000},
	}

	for _, tt := range tests {
		c := newCursor(tt.in)
		got, err := readSignedLong(c)
		if err != nil {
			t.Fatalf("readSignedLong(%v): unexpected error: %v", tt.in, err)
		}
		if got != tt.out {
			t.Errorf("readSignedLong(%v) = %d, want %d", tt.in, got, tt.out)
		}
	}
}

func TestSignedLongRoundTrip(t *testing.T) {
	values := []int32{
		0, 1, -1, 122, -123, 123, -124, 1000, -1000,
		1 << 20, -(1 << 20), 1<<31 - 1, -(1 << 31),
	}
	for _, v := range values {
		e := newEmitter()
		writeSignedLong(e, v)
		c := newCursor(e.bytes())
		got, err := readSignedLong(c)
		if err != nil {
			t.Fatalf("round trip %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
		if c.Len() != 0 {
			t.Errorf("round trip %d: %d unread bytes remain", v, c.Len())
		}
	}
}
