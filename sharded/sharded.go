package sharded

import (
	"fmt"
	"iter"
	"math/bits"
	"sync"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/bitvector"
	"golang.org/x/sync/errgroup"
)

const (
	shardBits  = 8
	bucketBits = 56
	bucketMask = (1 << bucketBits) - 1

	// MaxShards is the largest supported shard count, bounded by the
	// handle encoding.
	MaxShards = 1 << shardBits
)

// routingSeed perturbs the shard-routing hash so routing stays
// decorrelated from intra-shard probing, which the shards drive with
// their own seeds.
const routingSeed = 0x9E3779B97F4A7C15

// Handle identifies an entry across shards: the shard index lives in the
// high 8 bits, the bucket within that shard in the low 56. Entries never
// move between shards, so a handle stays valid until its own shard
// resizes.
type Handle uint64

// NewHandle packs a shard index and bucket into a Handle.
func NewHandle(shard int, bucket uint64) Handle {
	return Handle(uint64(shard)<<bucketBits | bucket&bucketMask)
}

// Shard extracts the shard index.
func (h Handle) Shard() int {
	return int(h >> bucketBits)
}

// Bucket extracts the bucket within the shard.
func (h Handle) Bucket() uint64 {
	return uint64(h) & bucketMask
}

// HandleRangeError is the panic value for a handle whose shard index is
// out of range.
type HandleRangeError struct {
	Handle Handle
	Shards int
}

// Error implements the error interface.
func (e *HandleRangeError) Error() string {
	return fmt.Sprintf("sharded: handle shard %d out of range (shards: %d)", e.Handle.Shard(), e.Shards)
}

// Map partitions keys across independent state maps by hash, giving
// multiple explorers write parallelism without violating the single-writer
// contract of the core map: each shard has its own mutex and its own map.
//
// The shard is chosen from the top bits of a routing hash while intra-shard
// probing consumes the low bits of per-shard hashes with distinct seeds, so
// neither level skews the other.
type Map[V any] struct {
	shards     []*shard[V]
	router     statemap.XXHasher
	shardShift uint
	bucketSize uint64
}

type shard[V any] struct {
	mu sync.Mutex
	m  *statemap.Map[V]
}

// New creates a sharded map with numShards independent shards. numShards
// must be a power of two between 1 and MaxShards. The options apply to
// every shard; each shard additionally gets its own hash seed unless the
// options override the hasher.
func New[V any](bucketSize uint64, numShards int, optFns ...statemap.Option) (*Map[V], error) {
	if numShards < 1 || numShards > MaxShards {
		return nil, fmt.Errorf("sharded: shard count %d outside [1, %d]", numShards, MaxShards)
	}
	if numShards&(numShards-1) != 0 {
		return nil, fmt.Errorf("sharded: shard count %d is not a power of two", numShards)
	}

	shards := make([]*shard[V], numShards)
	for i := range shards {
		opts := append([]statemap.Option{statemap.WithSeed(shardSeed(i))}, optFns...)
		m, err := statemap.New[V](bucketSize, opts...)
		if err != nil {
			return nil, fmt.Errorf("sharded: shard %d: %w", i, err)
		}
		shards[i] = &shard[V]{m: m}
	}

	return &Map[V]{
		shards:     shards,
		router:     statemap.XXHasher{Seed: routingSeed},
		shardShift: 64 - uint(bits.TrailingZeros(uint(numShards))),
		bucketSize: bucketSize,
	}, nil
}

// MustNew is like New but panics on invalid configuration.
func MustNew[V any](bucketSize uint64, numShards int, optFns ...statemap.Option) *Map[V] {
	m, err := New[V](bucketSize, numShards, optFns...)
	if err != nil {
		panic(err)
	}
	return m
}

func shardSeed(i int) uint64 {
	return uint64(i)*0xBF58476D1CE4E5B9 + 1
}

func (m *Map[V]) route(key *bitvector.BitVector) int {
	if m.shardShift == 64 {
		return 0
	}
	return int(m.router.Hash(key) >> m.shardShift)
}

// NumShards returns the shard count.
func (m *Map[V]) NumShards() int {
	return len(m.shards)
}

// BucketSize returns the key length in bits.
func (m *Map[V]) BucketSize() uint64 {
	return m.bucketSize
}

// Len returns the total number of entries across all shards.
func (m *Map[V]) Len() uint64 {
	var total uint64
	for _, s := range m.shards {
		s.mu.Lock()
		total += s.m.Len()
		s.mu.Unlock()
	}
	return total
}

// FindOrAdd inserts value under key if absent and returns the stored
// value.
func (m *Map[V]) FindOrAdd(key *bitvector.BitVector, value V) V {
	s := m.shards[m.route(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.FindOrAdd(key, value)
}

// FindOrAddAndGetHandle is FindOrAdd plus the entry's handle.
func (m *Map[V]) FindOrAddAndGetHandle(key *bitvector.BitVector, value V) (V, Handle) {
	idx := m.route(key)
	s := m.shards[idx]
	s.mu.Lock()
	defer s.mu.Unlock()
	v, bucket := s.m.FindOrAddAndGetBucket(key, value)
	return v, NewHandle(idx, bucket)
}

// SetOrAdd stores value under key, overwriting any previous value.
func (m *Map[V]) SetOrAdd(key *bitvector.BitVector, value V) {
	s := m.shards[m.route(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.SetOrAdd(key, value)
}

// SetOrAddAndGetHandle is SetOrAdd plus the entry's handle.
func (m *Map[V]) SetOrAddAndGetHandle(key *bitvector.BitVector, value V) Handle {
	idx := m.route(key)
	s := m.shards[idx]
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.m.SetOrAddAndGetBucket(key, value)
	return NewHandle(idx, bucket)
}

// Contains reports whether key is present.
func (m *Map[V]) Contains(key *bitvector.BitVector) bool {
	s := m.shards[m.route(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Contains(key)
}

// Value returns the value stored under key. It panics with
// *statemap.KeyNotFoundError if the key is absent.
func (m *Map[V]) Value(key *bitvector.BitVector) V {
	s := m.shards[m.route(key)]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Value(key)
}

// KeyAndValue returns the key and value stored at the given handle. It
// panics with *HandleRangeError if the handle's shard is out of range and
// with *statemap.BucketRangeError if its bucket is not occupied.
func (m *Map[V]) KeyAndValue(h Handle) (*bitvector.BitVector, V) {
	if h.Shard() >= len(m.shards) {
		panic(&HandleRangeError{Handle: h, Shards: len(m.shards)})
	}
	s := m.shards[h.Shard()]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.BucketAndValue(h.Bucket())
}

// Remap applies transform to every stored value, one goroutine per shard.
func (m *Map[V]) Remap(transform func(V) V) {
	var wg sync.WaitGroup
	for _, s := range m.shards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.mu.Lock()
			defer s.mu.Unlock()
			s.m.Remap(transform)
		}()
	}
	wg.Wait()
}

// All iterates over every entry, shard by shard. Each shard is locked
// only while its entries are yielded.
func (m *Map[V]) All() iter.Seq2[*bitvector.BitVector, V] {
	return func(yield func(*bitvector.BitVector, V) bool) {
		for _, s := range m.shards {
			if !m.iterateShard(s, yield) {
				return
			}
		}
	}
}

func (m *Map[V]) iterateShard(s *shard[V], yield func(*bitvector.BitVector, V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range s.m.All() {
		if !yield(key, value) {
			return false
		}
	}
	return true
}

// forEachShard runs fn for every shard concurrently and returns the first
// error.
func (m *Map[V]) forEachShard(fn func(i int, s *shard[V]) error) error {
	var g errgroup.Group
	for i, s := range m.shards {
		g.Go(func() error {
			return fn(i, s)
		})
	}
	return g.Wait()
}
