package hash

// Size of the digest in bytes.
const Size = 32

// Hash32 is a blake3 digest.
type Hash32 [Size]byte

// Sum computes blake3 digest of all chunks using a pooled hasher.
func Sum(chunks ...[]byte) Hash32 {
	h := GetHasher()
	defer PutHasher(h)
	h.Reset()
	for _, chunk := range chunks {
		h.Write(chunk)
	}
	var rst Hash32
	h.Sum(rst[:0])
	return rst
}

// ShortString returns first 5 bytes in hex.
func (h Hash32) ShortString() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 10)
	for i, b := range h[:5] {
		buf[i*2] = hextable[b>>4]
		buf[i*2+1] = hextable[b&0x0f]
	}
	return string(buf)
}
