package marshal

import "bytes"

// emitter accumulates the bytes of an outgoing Marshal stream.
type emitter struct {
	buf bytes.Buffer
}

func newEmitter() *emitter {
	return &emitter{}
}

func (e *emitter) writeByte(b byte) {
	e.buf.WriteByte(b)
}

func (e *emitter) writeBytes(b []byte) {
	e.buf.Write(b)
}

func (e *emitter) bytes() []byte {
	return e.buf.Bytes()
}
