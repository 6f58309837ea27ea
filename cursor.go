package marshal

// cursor reads sequentially through an immutable byte slice, tracking
// the current offset for error reporting (spec.md section 7: "All
// errors include the byte offset... where detected"). Boundary
// checked the way pe.File's ReadUint8/16/32/64 helpers are: a read
// that would run past the end of the buffer returns an
// UnexpectedEOF-kind *LoadError rather than panicking.
type cursor struct {
	data   []byte
	offset int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

func (c *cursor) Len() int { return len(c.data) - c.offset }

// peekByte returns the next byte without advancing the cursor, and
// reports false at end of input. Used by the 'e' (extended) and 'I'
// (ivar-wrapped) tag handlers, which must look one tag ahead before
// deciding how to parse it.
func (c *cursor) peekByte() (byte, bool) {
	if c.offset >= len(c.data) {
		return 0, false
	}
	return c.data[c.offset], true
}

func (c *cursor) readByte() (byte, error) {
	if c.offset >= len(c.data) {
		return 0, newLoadError(UnexpectedEOF, c.offset, "expected a tag byte")
	}
	b := c.data[c.offset]
	c.offset++
	return b, nil
}

func (c *cursor) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, newLoadError(BadInteger, c.offset, "negative length %d", n)
	}
	if c.offset+n > len(c.data) {
		return nil, newLoadError(UnexpectedEOF, c.offset, "expected %d more bytes", n)
	}
	b := c.data[c.offset : c.offset+n]
	c.offset += n
	return b, nil
}
