package marshal

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// OpenFile memory-maps the file at name and decodes it as a Marshal
// stream, the way pe.New memory-maps a PE image rather than reading
// it into a heap buffer. The mapping is released before OpenFile
// returns; Load only needs the bytes for the duration of the call.
func OpenFile(name string, opts ...Option) (Tree, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer data.Unmap()

	return Load([]byte(data), opts...)
}
