package statemap

import (
	"unsafe"

	"github.com/OneOfOne/xxhash"

	"github.com/hupe1980/statemap/bitvector"
)

// Hasher computes the base hash of a key. Implementations must be
// referentially transparent: the same key must always produce the same
// hash for the lifetime of a map, since every probe sequence and every
// rehash is derived from it. Cryptographic strength is not required.
type Hasher interface {
	Hash(key *bitvector.BitVector) uint64
}

// XXHasher hashes a key's words with xxhash64. It is the default hasher:
// fast on the multi-word keys produced by compact state encodings and
// well distributed in the low bits the probe sequence consumes.
type XXHasher struct {
	// Seed perturbs the hash. Two maps with different seeds place the same
	// keys in unrelated bucket sequences, which matters when sharding by
	// hash on top of this map.
	Seed uint64
}

// Hash implements Hasher.
func (h XXHasher) Hash(key *bitvector.BitVector) uint64 {
	words := key.Words()
	if len(words) == 0 {
		return xxhash.Checksum64S(nil, h.Seed)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*8) //nolint:gosec // zero-copy word view, read-only
	return xxhash.Checksum64S(data, h.Seed)
}

// HasherFunc adapts a plain function to the Hasher interface.
type HasherFunc func(key *bitvector.BitVector) uint64

// Hash implements Hasher.
func (f HasherFunc) Hash(key *bitvector.BitVector) uint64 {
	return f(key)
}
