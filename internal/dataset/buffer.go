package dataset

import (
	"fmt"
	"io"
)

// Buffer is an in-memory io.WriteSeeker. The WAV encoder seeks back to
// patch chunk sizes after writing samples, so artifacts that are encoded
// into memory before being handed to storage need more than a plain
// bytes.Buffer.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer creates an empty seekable buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Write writes p at the current position, growing the buffer as needed.
func (b *Buffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("dataset: invalid seek whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("dataset: negative seek position %d", pos)
	}
	b.pos = int(pos)
	return pos, nil
}

// Bytes returns the written contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}
