package statemap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/statemap/bitvector"
)

// RawState is the serializable state of a map: everything needed to
// reconstruct it bit-for-bit. It exists for the snapshot package; the
// slices and bitmap alias the live map, so treat a RawState as a read-only,
// short-lived view.
type RawState[V any] struct {
	BucketSize  uint64
	GrowthTable []uint64
	LoadFactor  float64
	Cursor      int
	Elements    uint64
	BucketWords []uint64
	Occupied    *roaring.Bitmap
	Values      []V
}

// RawState exposes the map's internal state for serialization.
func (m *Map[V]) RawState() RawState[V] {
	return RawState[V]{
		BucketSize:  m.bucketSize,
		GrowthTable: m.policy.Sizes,
		LoadFactor:  m.policy.LoadFactor,
		Cursor:      m.cursor,
		Elements:    m.numberOfElements,
		BucketWords: m.buckets.words,
		Occupied:    m.occupied.bits,
		Values:      m.values,
	}
}

// FromRawState reconstructs a map from a previously captured RawState,
// taking ownership of its slices and bitmap. The map must be given the
// same hasher it was built with (via WithHasher or WithSeed); probe
// sequences of existing entries are derived from it.
func FromRawState[V any](state RawState[V], optFns ...Option) (*Map[V], error) {
	if state.BucketSize == 0 || state.BucketSize%bitvector.WordBits != 0 {
		return nil, fmt.Errorf("statemap: bucket size %d is not a positive multiple of %d", state.BucketSize, bitvector.WordBits)
	}

	o := applyOptions(optFns)
	o.policy = GrowthPolicy{Sizes: state.GrowthTable, LoadFactor: state.LoadFactor}
	if err := o.policy.validate(); err != nil {
		return nil, fmt.Errorf("statemap: invalid growth policy: %w", err)
	}
	if state.Cursor < 0 || state.Cursor >= len(state.GrowthTable) {
		return nil, fmt.Errorf("statemap: cursor %d out of range for growth table of %d entries", state.Cursor, len(state.GrowthTable))
	}

	numberOfBuckets := state.GrowthTable[state.Cursor]
	bucketWords := int(state.BucketSize / bitvector.WordBits)
	if uint64(len(state.BucketWords)) != numberOfBuckets*uint64(bucketWords) {
		return nil, fmt.Errorf("statemap: bucket store holds %d words, want %d", len(state.BucketWords), numberOfBuckets*uint64(bucketWords))
	}
	if uint64(len(state.Values)) != numberOfBuckets {
		return nil, fmt.Errorf("statemap: value store holds %d values, want %d", len(state.Values), numberOfBuckets)
	}
	if state.Occupied == nil {
		return nil, fmt.Errorf("statemap: missing occupancy bitmap")
	}
	if card := state.Occupied.GetCardinality(); card != state.Elements {
		return nil, fmt.Errorf("statemap: occupancy bitmap holds %d buckets, want %d elements", card, state.Elements)
	}
	if !state.Occupied.IsEmpty() && uint64(state.Occupied.Maximum()) >= numberOfBuckets {
		return nil, fmt.Errorf("statemap: occupied bucket %d out of range for capacity %d", state.Occupied.Maximum(), numberOfBuckets)
	}

	m := &Map[V]{
		bucketSize:       state.BucketSize,
		bucketWords:      bucketWords,
		policy:           o.policy,
		cursor:           state.Cursor,
		numberOfBuckets:  numberOfBuckets,
		buckets:          bucketStore{words: state.BucketWords, bucketWords: bucketWords},
		occupied:         occupancy{bits: state.Occupied},
		values:           state.Values,
		numberOfElements: state.Elements,
		hasher:           o.hasher,
		logger:           o.logger,
		metrics:          o.metrics,
	}
	if o.trackStats {
		m.stats = &Stats{}
	}
	return m, nil
}
