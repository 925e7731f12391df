package bitvector

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"
)

const (
	// WordBits is the number of bits per storage word. Key lengths handled
	// by this package are always a multiple of WordBits.
	WordBits = 64

	wordShift = 6
	wordMask  = WordBits - 1
)

// BitVector is a fixed-capacity ordered sequence of bits backed by uint64
// words. Bit 0 lives in the least significant bit of word 0. The length is
// fixed at construction and never changes.
//
// A BitVector is not safe for concurrent mutation; callers that share one
// across goroutines must synchronize externally.
type BitVector struct {
	length uint64
	words  []uint64
}

// New creates a zeroed bit vector of the given length in bits. The length
// must be a multiple of WordBits.
func New(length uint64) *BitVector {
	if length%WordBits != 0 {
		panic(fmt.Sprintf("bitvector: length %d is not a multiple of %d", length, WordBits))
	}
	return &BitVector{
		length: length,
		words:  make([]uint64, length/WordBits),
	}
}

// FromWords creates a bit vector that takes ownership of the given words.
func FromWords(words []uint64) *BitVector {
	return &BitVector{
		length: uint64(len(words)) * WordBits,
		words:  words,
	}
}

// FromUint64 creates a bit vector of the given length whose lowest 64 bits
// hold value.
func FromUint64(length uint64, value uint64) *BitVector {
	v := New(length)
	if len(v.words) > 0 {
		v.words[0] = value
	}
	return v
}

// Len returns the length of the vector in bits.
func (v *BitVector) Len() uint64 {
	return v.length
}

// Words exposes the backing words. The slice is shared with the vector;
// callers must treat it as read-only unless they own the vector.
func (v *BitVector) Words() []uint64 {
	return v.words
}

// Get returns the bit at index i.
func (v *BitVector) Get(i uint64) bool {
	v.boundsCheck(i)
	return v.words[i>>wordShift]&(1<<(i&wordMask)) != 0
}

// Set sets the bit at index i.
func (v *BitVector) Set(i uint64) {
	v.boundsCheck(i)
	v.words[i>>wordShift] |= 1 << (i & wordMask)
}

// Clear clears the bit at index i.
func (v *BitVector) Clear(i uint64) {
	v.boundsCheck(i)
	v.words[i>>wordShift] &^= 1 << (i & wordMask)
}

// SetFromUint64 assigns the numBits lowest bits of value to the bit range
// [offset, offset+numBits). numBits must be at most 64 and the range must
// lie within the vector. This is the slice assignment used by state
// encoders that pack variable values into a compact state.
func (v *BitVector) SetFromUint64(offset, numBits uint64, value uint64) {
	if numBits == 0 {
		return
	}
	if numBits > WordBits {
		panic(fmt.Sprintf("bitvector: cannot assign %d bits from a uint64", numBits))
	}
	if offset+numBits > v.length {
		panic(fmt.Sprintf("bitvector: range [%d, %d) out of bounds for length %d", offset, offset+numBits, v.length))
	}
	if numBits < WordBits {
		value &= (1 << numBits) - 1
	}

	wordIdx := offset >> wordShift
	bitIdx := offset & wordMask

	lowBits := WordBits - bitIdx
	if numBits <= lowBits {
		mask := uint64(1)<<numBits - 1
		if numBits == WordBits {
			mask = ^uint64(0)
		}
		v.words[wordIdx] = v.words[wordIdx]&^(mask<<bitIdx) | value<<bitIdx
		return
	}

	// The range straddles a word boundary.
	v.words[wordIdx] = v.words[wordIdx]&(1<<bitIdx-1) | value<<bitIdx
	highBits := numBits - lowBits
	highMask := uint64(1)<<highBits - 1
	v.words[wordIdx+1] = v.words[wordIdx+1]&^highMask | value>>lowBits
}

// Uint64At returns the numBits bits starting at offset as a uint64. numBits
// must be at most 64 and the range must lie within the vector.
func (v *BitVector) Uint64At(offset, numBits uint64) uint64 {
	if numBits == 0 {
		return 0
	}
	if numBits > WordBits {
		panic(fmt.Sprintf("bitvector: cannot extract %d bits into a uint64", numBits))
	}
	if offset+numBits > v.length {
		panic(fmt.Sprintf("bitvector: range [%d, %d) out of bounds for length %d", offset, offset+numBits, v.length))
	}

	wordIdx := offset >> wordShift
	bitIdx := offset & wordMask

	result := v.words[wordIdx] >> bitIdx
	lowBits := WordBits - bitIdx
	if numBits > lowBits {
		result |= v.words[wordIdx+1] << lowBits
	}
	if numBits < WordBits {
		result &= 1<<numBits - 1
	}
	return result
}

// CopyFrom overwrites this vector with the contents of other. Both vectors
// must have the same length.
func (v *BitVector) CopyFrom(other *BitVector) {
	if v.length != other.length {
		panic(fmt.Sprintf("bitvector: cannot copy %d bits into a vector of length %d", other.length, v.length))
	}
	copy(v.words, other.words)
}

// Clone returns an independent copy of the vector.
func (v *BitVector) Clone() *BitVector {
	words := make([]uint64, len(v.words))
	copy(words, v.words)
	return &BitVector{length: v.length, words: words}
}

// Equal reports whether both vectors have identical length and bit content.
func (v *BitVector) Equal(other *BitVector) bool {
	if v.length != other.length {
		return false
	}
	for i, w := range v.words {
		if w != other.words[i] {
			return false
		}
	}
	return true
}

// Count returns the number of set bits.
func (v *BitVector) Count() int {
	count := 0
	for _, w := range v.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// AppendBytes appends the vector's words to dst in little-endian order and
// returns the extended slice. The encoding is the canonical byte form used
// for hashing and persistence.
func (v *BitVector) AppendBytes(dst []byte) []byte {
	for _, w := range v.words {
		dst = binary.LittleEndian.AppendUint64(dst, w)
	}
	return dst
}

// Bytes returns the canonical little-endian byte encoding of the vector.
func (v *BitVector) Bytes() []byte {
	return v.AppendBytes(make([]byte, 0, len(v.words)*8))
}

// String renders the vector as a bit string, index 0 first.
func (v *BitVector) String() string {
	var sb strings.Builder
	sb.Grow(int(v.length))
	for i := uint64(0); i < v.length; i++ {
		if v.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (v *BitVector) boundsCheck(i uint64) {
	if i >= v.length {
		panic(fmt.Sprintf("bitvector: index %d out of bounds for length %d", i, v.length))
	}
}
