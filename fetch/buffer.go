package fetch

// Buffer is the receive buffer of a reader. It is sized before any read of a step is issued
// and keeps its capacity across steps.
type Buffer struct {
	data []byte
}

// Reserve makes at least required bytes addressable. Contents are not preserved when
// the buffer grows.
func (b *Buffer) Reserve(required uint64) {
	if uint64(cap(b.data)) < required {
		b.data = make([]byte, required)
	}
	b.data = b.data[:required]
}

// Region returns length bytes at offset.
func (b *Buffer) Region(offset, length uint64) []byte {
	return b.data[offset : offset+length : offset+length]
}

// Len is the size required by the current step.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap is the allocated size.
func (b *Buffer) Cap() int {
	return cap(b.data)
}
