package statemap

import (
	"iter"

	"github.com/hupe1980/statemap/bitvector"
)

// All returns a forward, restartable iteration over the occupied buckets
// in increasing bucket-index order, yielding each stored key (as an
// independent copy) with its value.
//
// Iterating and mutating must not be interleaved: an insertion may trigger
// a resize that relocates every bucket, invalidating the in-flight
// sequence. Range fully, or break and restart, before mutating again.
func (m *Map[V]) All() iter.Seq2[*bitvector.BitVector, V] {
	return func(yield func(*bitvector.BitVector, V) bool) {
		it := m.occupied.bits.Iterator()
		for it.HasNext() {
			bucket := uint64(it.Next())
			if !yield(m.buckets.read(bucket), m.values[bucket]) {
				return
			}
		}
	}
}

// OccupiedBuckets returns a forward, restartable iteration over the
// occupied bucket indices in increasing order. Useful for callers that
// treat bucket indices as dense state ids and fetch content positionally
// via BucketAndValue.
func (m *Map[V]) OccupiedBuckets() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := m.occupied.bits.Iterator()
		for it.HasNext() {
			if !yield(uint64(it.Next())) {
				return
			}
		}
	}
}
