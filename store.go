package statemap

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/statemap/bitvector"
)

// bucketStore is the flat bit-packed array holding every key slot
// contiguously: numberOfBuckets fixed-width slots of bucketWords uint64
// words each. Unoccupied slots hold whatever bits were last written there
// and carry no key semantics; the occupancy tracker is the sole authority
// on which slots are live.
type bucketStore struct {
	words       []uint64
	bucketWords int
}

func newBucketStore(numberOfBuckets uint64, bucketWords int) bucketStore {
	return bucketStore{
		words:       make([]uint64, numberOfBuckets*uint64(bucketWords)),
		bucketWords: bucketWords,
	}
}

// slot returns the backing words of the given bucket. The slice aliases
// the store; callers must not retain it across a resize.
func (s bucketStore) slot(bucket uint64) []uint64 {
	off := bucket * uint64(s.bucketWords)
	return s.words[off : off+uint64(s.bucketWords)]
}

// read copies the bucket's bits into a fresh key.
func (s bucketStore) read(bucket uint64) *bitvector.BitVector {
	slot := s.slot(bucket)
	words := make([]uint64, len(slot))
	copy(words, slot)
	return bitvector.FromWords(words)
}

// write overwrites the bucket's bits with the key. The whole slot is
// replaced; there is no partial write.
func (s bucketStore) write(bucket uint64, key *bitvector.BitVector) {
	copy(s.slot(bucket), key.Words())
}

// matches reports whether the bucket's bits equal the key, without
// allocating.
func (s bucketStore) matches(bucket uint64, key *bitvector.BitVector) bool {
	slot := s.slot(bucket)
	for i, w := range key.Words() {
		if slot[i] != w {
			return false
		}
	}
	return true
}

// occupancy tracks which buckets currently hold a key: one logical bit per
// bucket, never cleared (the map does not support deletion). The roaring
// bitmap gives ascending iteration over occupied buckets for free, which
// drives the map iterator and the rehash loop.
type occupancy struct {
	bits *roaring.Bitmap
}

func newOccupancy() occupancy {
	return occupancy{bits: roaring.New()}
}

func (o occupancy) isOccupied(bucket uint64) bool {
	return o.bits.Contains(uint32(bucket))
}

func (o occupancy) setOccupied(bucket uint64) {
	o.bits.Add(uint32(bucket))
}
