package statemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statemap/bitvector"
)

func key64(value uint64) *bitvector.BitVector {
	return bitvector.FromUint64(64, value)
}

func newSmallMap(t *testing.T, optFns ...Option) *Map[uint64] {
	t.Helper()
	opts := append([]Option{WithInitialCapacity(4)}, optFns...)
	m, err := New[uint64](64, opts...)
	require.NoError(t, err)
	require.Equal(t, uint64(4), m.Cap())
	return m
}

func TestNewValidation(t *testing.T) {
	_, err := New[int](0)
	assert.Error(t, err)

	_, err = New[int](100)
	assert.Error(t, err)

	_, err = New[int](64, WithLoadFactor(1.5))
	assert.Error(t, err)

	_, err = New[int](64, WithGrowthTable([]uint64{4, 6}))
	assert.Error(t, err, "non-power-of-two growth entries are rejected")

	_, err = New[int](64, WithGrowthTable([]uint64{8, 4}))
	assert.Error(t, err, "descending growth entries are rejected")

	m, err := New[int](192)
	require.NoError(t, err)
	assert.Equal(t, uint64(192), m.BucketSize())
	assert.Equal(t, uint64(1024), m.Cap())
}

func TestRoundTrip(t *testing.T) {
	m := MustNew[uint64](64)

	for i := uint64(0); i < 100; i++ {
		m.SetOrAdd(key64(i), i*10)
	}

	for i := uint64(0); i < 100; i++ {
		require.True(t, m.Contains(key64(i)))
		assert.Equal(t, i*10, m.Value(key64(i)))
	}
	assert.Equal(t, uint64(100), m.Len())
}

func TestFindOrAddFirstInsertionWins(t *testing.T) {
	m := MustNew[uint64](64)
	k := key64(7)

	first := m.FindOrAdd(k, 1)
	second := m.FindOrAdd(k, 2)

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(1), second)
	assert.Equal(t, uint64(1), m.Len())
}

func TestSetOrAddOverwritesInPlace(t *testing.T) {
	m := MustNew[uint64](64)
	k := key64(7)

	b1 := m.SetOrAddAndGetBucket(k, 1)
	b2 := m.SetOrAddAndGetBucket(k, 2)

	assert.Equal(t, b1, b2)
	assert.Equal(t, uint64(2), m.Value(k))
	assert.Equal(t, uint64(1), m.Len())
}

func TestNoFalseCollisions(t *testing.T) {
	m := newSmallMap(t)

	k1, k2 := key64(1), key64(2)
	_, b1 := m.FindOrAddAndGetBucket(k1, 10)
	_, b2 := m.FindOrAddAndGetBucket(k2, 20)
	require.NotEqual(t, b1, b2)

	got1, v1 := m.BucketAndValue(b1)
	got2, v2 := m.BucketAndValue(b2)
	assert.True(t, got1.Equal(k1))
	assert.True(t, got2.Equal(k2))
	assert.Equal(t, uint64(10), v1)
	assert.Equal(t, uint64(20), v2)
}

func TestLoadFactorRespected(t *testing.T) {
	m := MustNew[uint64](64, WithInitialCapacity(4))

	for i := uint64(0); i < 1000; i++ {
		m.FindOrAdd(key64(i), i)
		ratio := float64(m.Len()) / float64(m.Cap())
		require.LessOrEqual(t, ratio, m.LoadFactor(),
			"load factor violated after %d insertions (cap %d)", i+1, m.Cap())
	}
}

func TestGrowthBoundaryScenario(t *testing.T) {
	// Bucket size 64, initial capacity 4, load factor 0.75. Three keys land
	// exactly at the threshold without growth; the fourth forces a resize.
	m := newSmallMap(t)

	m.SetOrAdd(key64(0x1), 10)
	m.SetOrAdd(key64(0x2), 20)
	m.SetOrAdd(key64(0x3), 30)

	require.Equal(t, uint64(3), m.Len())
	require.Equal(t, uint64(4), m.Cap(), "3/4 is at the threshold, not beyond it")

	m.SetOrAdd(key64(0x4), 40)

	require.Equal(t, uint64(4), m.Len())
	require.Equal(t, uint64(8), m.Cap(), "fourth key must trigger growth to the next tier")

	assert.Equal(t, uint64(10), m.Value(key64(0x1)))
	assert.Equal(t, uint64(20), m.Value(key64(0x2)))
	assert.Equal(t, uint64(30), m.Value(key64(0x3)))
	assert.Equal(t, uint64(40), m.Value(key64(0x4)))
}

func TestResizePreservesMembership(t *testing.T) {
	m := newSmallMap(t, WithStats())

	const n = 10000
	for i := uint64(0); i < n; i++ {
		m.FindOrAdd(key64(i), i+1)
	}

	require.Greater(t, m.Stats().Resizes, uint64(3), "insertions must have forced several resizes")
	require.Equal(t, uint64(n), m.Len())

	for i := uint64(0); i < n; i++ {
		require.True(t, m.Contains(key64(i)), "key %d lost across resize", i)
		require.Equal(t, i+1, m.Value(key64(i)))
	}
}

func TestRemap(t *testing.T) {
	m := MustNew[uint64](64)
	m.SetOrAdd(key64(1), 1)
	m.SetOrAdd(key64(2), 2)

	m.Remap(func(v uint64) uint64 { return v * 100 })

	assert.Equal(t, uint64(100), m.Value(key64(1)))
	assert.Equal(t, uint64(200), m.Value(key64(2)))
	assert.Equal(t, uint64(2), m.Len())
	assert.True(t, m.Contains(key64(1)))
	assert.True(t, m.Contains(key64(2)))
}

func TestIterationCompleteness(t *testing.T) {
	m := MustNew[uint64](64, WithInitialCapacity(4))

	want := map[uint64]uint64{}
	for i := uint64(0); i < 500; i++ {
		v := i * 3
		m.SetOrAdd(key64(i), v)
		want[i] = v
	}

	got := map[uint64]uint64{}
	prev := int64(-1)
	for k, v := range m.All() {
		found, bucket := m.findBucket(k)
		require.True(t, found)
		require.Greater(t, int64(bucket), prev, "iteration must be in increasing bucket order")
		prev = int64(bucket)

		id := k.Uint64At(0, 64)
		_, dup := got[id]
		require.False(t, dup, "duplicate key %d during iteration", id)
		got[id] = v
	}
	assert.Equal(t, want, got)
}

func TestIterationIsRestartable(t *testing.T) {
	m := MustNew[uint64](64)
	for i := uint64(0); i < 10; i++ {
		m.SetOrAdd(key64(i), i)
	}

	count := 0
	for range m.All() {
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)

	count = 0
	for range m.All() {
		count++
	}
	assert.Equal(t, 10, count)
}

func TestOccupiedBuckets(t *testing.T) {
	m := MustNew[uint64](64)
	m.SetOrAdd(key64(1), 11)
	m.SetOrAdd(key64(2), 22)

	seen := 0
	for bucket := range m.OccupiedBuckets() {
		k, v := m.BucketAndValue(bucket)
		assert.Equal(t, v, m.Value(k))
		seen++
	}
	assert.Equal(t, 2, seen)
}

func TestPreconditionPanics(t *testing.T) {
	m := MustNew[uint64](64)

	assert.PanicsWithError(t,
		(&KeyLengthError{Expected: 64, Actual: 128}).Error(),
		func() { m.Contains(bitvector.New(128)) })

	assert.Panics(t, func() { m.Value(key64(99)) })

	assert.PanicsWithError(t,
		(&BucketRangeError{Bucket: 1 << 20, Capacity: m.Cap()}).Error(),
		func() { m.BucketAndValue(1 << 20) })
}

func TestGrowthTableExhaustion(t *testing.T) {
	m := MustNew[uint64](64, WithGrowthTable([]uint64{4, 8}))

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a capacity exhaustion panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrTableExhausted)
	}()

	for i := uint64(0); i < 100; i++ {
		m.SetOrAdd(key64(i), i)
	}
}

func TestStatsCollection(t *testing.T) {
	m := newSmallMap(t, WithStats())

	m.FindOrAdd(key64(1), 1)
	m.FindOrAdd(key64(1), 1)
	m.Contains(key64(1))
	m.Contains(key64(2))

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.Insertions)
	assert.GreaterOrEqual(t, stats.InsertionProbes, stats.Insertions)
	assert.Equal(t, uint64(2), stats.Finds)
	assert.GreaterOrEqual(t, stats.FindProbes, stats.Finds)

	// Disabled by default.
	m2 := MustNew[uint64](64)
	m2.FindOrAdd(key64(1), 1)
	assert.Equal(t, Stats{}, m2.Stats())
}

func TestCustomHasherIsUsed(t *testing.T) {
	calls := 0
	m := MustNew[uint64](64, WithHasher(HasherFunc(func(k *bitvector.BitVector) uint64 {
		calls++
		return k.Uint64At(0, 64)
	})))

	m.SetOrAdd(key64(1), 1)
	m.Contains(key64(1))

	assert.Greater(t, calls, 0)
}

func TestDegenerateHasherStillCorrect(t *testing.T) {
	// All keys collide; correctness must come from probing alone.
	m := MustNew[uint64](64,
		WithInitialCapacity(4),
		WithHasher(HasherFunc(func(*bitvector.BitVector) uint64 { return 42 })))

	const n = 200
	for i := uint64(0); i < n; i++ {
		m.FindOrAdd(key64(i), i)
	}

	require.Equal(t, uint64(n), m.Len())
	for i := uint64(0); i < n; i++ {
		require.Equal(t, i, m.Value(key64(i)))
	}
}

func TestMultiWordKeys(t *testing.T) {
	m := MustNew[string](256, WithInitialCapacity(4))

	a := bitvector.New(256)
	a.SetFromUint64(0, 64, 1)
	a.SetFromUint64(192, 64, 0xFFFFFFFFFFFFFFFF)

	b := bitvector.New(256)
	b.SetFromUint64(0, 64, 1)
	b.SetFromUint64(192, 64, 0xFFFFFFFFFFFFFFFE)

	m.SetOrAdd(a, "a")
	m.SetOrAdd(b, "b")

	assert.Equal(t, "a", m.Value(a))
	assert.Equal(t, "b", m.Value(b))
	assert.Equal(t, uint64(2), m.Len())
}

func TestMetricsCollector(t *testing.T) {
	mc := &BasicMetricsCollector{}
	m := MustNew[uint64](64, WithMetricsCollector(mc), WithInitialCapacity(4))

	for i := uint64(0); i < 10; i++ {
		m.FindOrAdd(key64(i), i)
	}
	m.FindOrAdd(key64(0), 0)
	m.Contains(key64(0))
	m.SetOrAdd(key64(0), 5)

	stats := mc.GetStats()
	assert.Equal(t, int64(11), stats.FindOrAddCount)
	assert.Equal(t, int64(1), stats.FindOrAddHits)
	assert.Equal(t, int64(1), stats.SetOrAddCount)
	assert.Equal(t, int64(1), stats.SetOrAddOverwrites)
	assert.Equal(t, int64(1), stats.LookupCount)
	assert.Greater(t, stats.ResizeCount, int64(0))
}

func TestRawStateRoundTrip(t *testing.T) {
	m := MustNew[uint64](128, WithInitialCapacity(4), WithSeed(99))

	for i := uint64(0); i < 50; i++ {
		k := bitvector.New(128)
		k.SetFromUint64(0, 64, i)
		k.SetFromUint64(64, 64, ^i)
		m.SetOrAdd(k, i)
	}

	restored, err := FromRawState(m.RawState(), WithSeed(99))
	require.NoError(t, err)
	require.Equal(t, m.Len(), restored.Len())
	require.Equal(t, m.Cap(), restored.Cap())

	for i := uint64(0); i < 50; i++ {
		k := bitvector.New(128)
		k.SetFromUint64(0, 64, i)
		k.SetFromUint64(64, 64, ^i)
		require.Equal(t, i, restored.Value(k))
	}

	// Restored maps keep working, including growth.
	for i := uint64(1000); i < 1200; i++ {
		k := bitvector.New(128)
		k.SetFromUint64(0, 64, i)
		restored.SetOrAdd(k, i)
	}
	assert.Equal(t, uint64(250), restored.Len())
}

func TestFromRawStateValidation(t *testing.T) {
	m := MustNew[uint64](64, WithInitialCapacity(4))
	m.SetOrAdd(key64(1), 1)

	state := m.RawState()
	state.Elements = 2

	_, err := FromRawState(state)
	assert.Error(t, err, "cardinality mismatch must be rejected")
}
