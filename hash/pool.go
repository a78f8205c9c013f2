// Package hash provides pooled blake3 hashing used to fingerprint pattern documents.
package hash

import (
	"sync"

	"github.com/zeebo/blake3"
)

var pool = &sync.Pool{
	New: func() any {
		return blake3.New()
	},
}

// GetHasher returns a hasher from the pool. Callers must Reset it before use
// and return it with PutHasher.
func GetHasher() *blake3.Hasher {
	return pool.Get().(*blake3.Hasher)
}

// PutHasher returns the hasher back to the pool.
func PutHasher(hasher *blake3.Hasher) {
	pool.Put(hasher)
}
