package marshal

// readByteString reads a signed-long length prefix followed by that
// many raw bytes (spec.md section 3.1, "Byte string").
func readByteString(c *cursor) ([]byte, error) {
	n, err := readSignedLong(c)
	if err != nil {
		return nil, err
	}
	return c.readN(int(n))
}

// writeByteString writes b as a signed-long length followed by its
// bytes.
func writeByteString(e *emitter, b []byte) {
	writeSignedLong(e, int32(len(b)))
	e.writeBytes(b)
}
