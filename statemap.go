package statemap

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hupe1980/statemap/bitvector"
)

// Map is a fixed-bucket-size open-addressing hash map whose keys are bit
// vectors of a fixed length (a multiple of 64) and whose values are an
// arbitrary payload type. It interns compact binary state encodings during
// state-space exploration: millions of insert-or-lookup operations with one
// flat allocation per storage, no per-entry pointers, and a stable dense
// bucket index usable as a state id between resizes.
//
// The map supports insertion, lookup, in-place update and bulk value
// remapping, but no deletion. It is single-writer by contract: concurrent
// use requires external synchronization or hash-based sharding across
// independent instances (see the sharded package).
type Map[V any] struct {
	bucketSize  uint64
	bucketWords int

	policy GrowthPolicy
	cursor int

	numberOfBuckets uint64
	buckets         bucketStore
	occupied        occupancy
	values          []V

	numberOfElements uint64

	hasher  Hasher
	logger  *Logger
	metrics MetricsCollector
	stats   *Stats
}

// Stats holds the optional per-instance probe counters. Enable collection
// with WithStats; on a map created without it, Stats() returns zeroes.
type Stats struct {
	Insertions      uint64
	InsertionProbes uint64
	Finds           uint64
	FindProbes      uint64
	Resizes         uint64
}

// New creates a map for keys of bucketSize bits. bucketSize must be a
// positive multiple of 64. The zero configuration starts at 1024 buckets
// with the default growth policy, xxhash hashing, no logging and no
// metrics.
func New[V any](bucketSize uint64, optFns ...Option) (*Map[V], error) {
	if bucketSize == 0 || bucketSize%bitvector.WordBits != 0 {
		return nil, fmt.Errorf("statemap: bucket size %d is not a positive multiple of %d", bucketSize, bitvector.WordBits)
	}

	o := applyOptions(optFns)
	if err := o.policy.validate(); err != nil {
		return nil, fmt.Errorf("statemap: invalid growth policy: %w", err)
	}

	m := &Map[V]{
		bucketSize:  bucketSize,
		bucketWords: int(bucketSize / bitvector.WordBits),
		policy:      o.policy,
		cursor:      o.policy.initialCursor(o.initialCapacity),
		hasher:      o.hasher,
		logger:      o.logger,
		metrics:     o.metrics,
	}
	if o.trackStats {
		m.stats = &Stats{}
	}

	m.numberOfBuckets = m.policy.Sizes[m.cursor]
	m.buckets = newBucketStore(m.numberOfBuckets, m.bucketWords)
	m.occupied = newOccupancy()
	m.values = make([]V, m.numberOfBuckets)

	return m, nil
}

// MustNew is New, panicking on configuration errors. Convenient at
// initialization time where a bad bucket size is a programming error.
func MustNew[V any](bucketSize uint64, optFns ...Option) *Map[V] {
	m, err := New[V](bucketSize, optFns...)
	if err != nil {
		panic(err)
	}
	return m
}

// Len returns the number of key-value pairs stored.
func (m *Map[V]) Len() uint64 {
	return m.numberOfElements
}

// Cap returns the current number of buckets.
func (m *Map[V]) Cap() uint64 {
	return m.numberOfBuckets
}

// BucketSize returns the configured key length in bits.
func (m *Map[V]) BucketSize() uint64 {
	return m.bucketSize
}

// LoadFactor returns the configured load factor.
func (m *Map[V]) LoadFactor() float64 {
	return m.policy.LoadFactor
}

// Stats returns a copy of the probe counters collected so far.
func (m *Map[V]) Stats() Stats {
	if m.stats == nil {
		return Stats{}
	}
	return *m.stats
}

// FindOrAdd returns the stored value if key is already present; otherwise
// it inserts (key, value) and returns value. An existing entry is never
// mutated: the first insertion wins.
func (m *Map[V]) FindOrAdd(key *bitvector.BitVector, value V) V {
	v, _ := m.FindOrAddAndGetBucket(key, value)
	return v
}

// FindOrAddAndGetBucket is FindOrAdd returning additionally the bucket
// index holding the key. The index is a stable dense handle for the key
// until the next resize relocates every bucket.
func (m *Map[V]) FindOrAddAndGetBucket(key *bitvector.BitVector, value V) (V, uint64) {
	m.checkKey(key)
	start := time.Now()

	found, bucket := m.locateForInsert(key)
	if !found {
		m.claim(bucket, key, value)
	}
	m.metrics.RecordFindOrAdd(time.Since(start), found)

	return m.values[bucket], bucket
}

// SetOrAdd inserts (key, value) if key is absent and overwrites the stored
// value in place if it is present.
func (m *Map[V]) SetOrAdd(key *bitvector.BitVector, value V) {
	m.SetOrAddAndGetBucket(key, value)
}

// SetOrAddAndGetBucket is SetOrAdd returning the bucket index holding the
// key.
func (m *Map[V]) SetOrAddAndGetBucket(key *bitvector.BitVector, value V) uint64 {
	m.checkKey(key)
	start := time.Now()

	found, bucket := m.locateForInsert(key)
	if !found {
		m.claim(bucket, key, value)
	} else {
		m.values[bucket] = value
	}
	m.metrics.RecordSetOrAdd(time.Since(start), found)

	return bucket
}

// Contains reports whether key is present.
func (m *Map[V]) Contains(key *bitvector.BitVector) bool {
	m.checkKey(key)
	start := time.Now()

	found, _ := m.findBucket(key)
	m.metrics.RecordLookup(time.Since(start), found)

	return found
}

// Value returns the value stored for key. Calling Value for an absent key
// is a precondition violation and panics with a *KeyNotFoundError; callers
// that cannot rule out absence must check Contains first or use FindOrAdd.
func (m *Map[V]) Value(key *bitvector.BitVector) V {
	m.checkKey(key)
	start := time.Now()

	found, bucket := m.findBucket(key)
	m.metrics.RecordLookup(time.Since(start), found)
	if !found {
		panic(&KeyNotFoundError{Key: hex.EncodeToString(key.Bytes())})
	}

	return m.values[bucket]
}

// BucketAndValue returns the key bits and value stored at the given bucket
// index. The index must be below Cap(); out-of-range access panics with a
// *BucketRangeError. For an unoccupied bucket the returned key is whatever
// bits are physically present and carries no key semantics; callers for
// whom occupancy matters must iterate with All instead.
func (m *Map[V]) BucketAndValue(bucket uint64) (*bitvector.BitVector, V) {
	if bucket >= m.numberOfBuckets {
		panic(&BucketRangeError{Bucket: bucket, Capacity: m.numberOfBuckets})
	}
	return m.buckets.read(bucket), m.values[bucket]
}

// Remap applies transform to every stored value in place, in unspecified
// bucket order. Keys and occupancy are untouched.
func (m *Map[V]) Remap(transform func(V) V) {
	it := m.occupied.bits.Iterator()
	for it.HasNext() {
		bucket := uint64(it.Next())
		m.values[bucket] = transform(m.values[bucket])
	}
}

// checkKey validates the key length precondition. A mismatch is a caller
// bug, not a recoverable condition, and panics with a *KeyLengthError.
func (m *Map[V]) checkKey(key *bitvector.BitVector) {
	if key.Len() != m.bucketSize {
		panic(&KeyLengthError{Expected: m.bucketSize, Actual: key.Len()})
	}
}

// findBucket walks the probe sequence looking for key. It returns whether
// the key was found and the bucket holding it. An unoccupied candidate
// terminates the walk: the key cannot be stored past a free slot.
func (m *Map[V]) findBucket(key *bitvector.BitVector) (bool, uint64) {
	probes := uint64(0)
	seq := makeProbeSeq(m.hasher.Hash(key), m.numberOfBuckets)
	for ; !seq.exhausted(); seq = seq.next() {
		probes++
		bucket := seq.bucket()
		if !m.occupied.isOccupied(bucket) {
			m.countFind(probes)
			return false, bucket
		}
		if m.buckets.matches(bucket, key) {
			m.countFind(probes)
			return true, bucket
		}
	}
	m.countFind(probes)
	return false, 0
}

// findBucketToInsert walks the probe sequence for an insertion: it reports
// the key's bucket if present, a free bucket to claim otherwise, or that
// the whole cycle was exhausted without either (table full at the current
// size tier).
func (m *Map[V]) findBucketToInsert(key *bitvector.BitVector) (probeOutcome, uint64) {
	probes := uint64(0)
	seq := makeProbeSeq(m.hasher.Hash(key), m.numberOfBuckets)
	for ; !seq.exhausted(); seq = seq.next() {
		probes++
		bucket := seq.bucket()
		if !m.occupied.isOccupied(bucket) {
			m.countInsertion(probes)
			return probeFree, bucket
		}
		if m.buckets.matches(bucket, key) {
			m.countInsertion(probes)
			return probeFound, bucket
		}
	}
	m.countInsertion(probes)
	return probeFull, 0
}

// locateForInsert resolves the bucket for an inserting operation. It grows
// proactively when one more element would exceed the load factor, and
// grows again if a full probe cycle finds neither the key nor a free slot.
// The second case is unreachable with a load factor below 1 but remains
// the safety net that makes insertion total.
func (m *Map[V]) locateForInsert(key *bitvector.BitVector) (bool, uint64) {
	if m.policy.shouldGrow(m.numberOfElements, m.numberOfBuckets) {
		m.increaseSize()
	}
	for {
		outcome, bucket := m.findBucketToInsert(key)
		switch outcome {
		case probeFound:
			return true, bucket
		case probeFree:
			return false, bucket
		default:
			m.increaseSize()
		}
	}
}

// claim stores (key, value) into a free bucket.
func (m *Map[V]) claim(bucket uint64, key *bitvector.BitVector, value V) {
	m.buckets.write(bucket, key)
	m.occupied.setOccupied(bucket)
	m.values[bucket] = value
	m.numberOfElements++
}

// increaseSize moves to the next size tier and rehashes every entry into
// it. The new storages are built completely before they replace the old
// ones, so a failed attempt leaves the map untouched. Exhausting the
// growth table is a configuration error and panics with a
// *TableExhaustedError.
func (m *Map[V]) increaseSize() {
	start := time.Now()
	oldCapacity := m.numberOfBuckets

	for {
		if m.cursor+1 >= len(m.policy.Sizes) {
			panic(&TableExhaustedError{Elements: m.numberOfElements, Capacity: m.numberOfBuckets})
		}
		if m.rehashInto(m.cursor + 1) {
			break
		}
		// The tier could not hold every entry (possible only at load
		// factor 1); skip to the next one.
		m.cursor++
	}

	if m.stats != nil {
		m.stats.Resizes++
	}
	elapsed := time.Since(start)
	m.metrics.RecordResize(oldCapacity, m.numberOfBuckets, elapsed)
	m.logger.LogResize(oldCapacity, m.numberOfBuckets, m.numberOfElements, elapsed)
}

// rehashInto reinserts every entry into fresh storages of the size at the
// given cursor, via the same probe algorithm against the larger table. It
// reports false if some entry found no bucket, leaving the map unchanged.
func (m *Map[V]) rehashInto(cursor int) bool {
	newSize := m.policy.Sizes[cursor]
	newBuckets := newBucketStore(newSize, m.bucketWords)
	newOccupied := newOccupancy()
	newValues := make([]V, newSize)

	it := m.occupied.bits.Iterator()
	for it.HasNext() {
		oldBucket := uint64(it.Next())
		key := bitvector.FromWords(m.buckets.slot(oldBucket))

		placed := false
		for seq := makeProbeSeq(m.hasher.Hash(key), newSize); !seq.exhausted(); seq = seq.next() {
			bucket := seq.bucket()
			if newOccupied.isOccupied(bucket) {
				continue
			}
			newBuckets.write(bucket, key)
			newOccupied.setOccupied(bucket)
			newValues[bucket] = m.values[oldBucket]
			placed = true
			break
		}
		if !placed {
			return false
		}
	}

	m.cursor = cursor
	m.numberOfBuckets = newSize
	m.buckets = newBuckets
	m.occupied = newOccupied
	m.values = newValues
	return true
}

func (m *Map[V]) countFind(probes uint64) {
	if m.stats != nil {
		m.stats.Finds++
		m.stats.FindProbes += probes
	}
}

func (m *Map[V]) countInsertion(probes uint64) {
	if m.stats != nil {
		m.stats.Insertions++
		m.stats.InsertionProbes += probes
	}
}
