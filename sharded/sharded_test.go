package sharded

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/bitvector"
	"github.com/hupe1980/statemap/blobstore"
	"github.com/hupe1980/statemap/snapshot"
)

func key64(v uint64) *bitvector.BitVector {
	return bitvector.FromUint64(64, v)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name      string
		numShards int
		wantErr   bool
	}{
		{name: "one shard", numShards: 1},
		{name: "eight shards", numShards: 8},
		{name: "max shards", numShards: MaxShards},
		{name: "zero shards", numShards: 0, wantErr: true},
		{name: "not a power of two", numShards: 6, wantErr: true},
		{name: "too many shards", numShards: MaxShards * 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[uint64](64, tt.numShards)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	m := MustNew[uint64](64, 4)

	const n = 2000
	for i := uint64(0); i < n; i++ {
		got := m.FindOrAdd(key64(i), i)
		assert.Equal(t, i, got)
	}

	assert.Equal(t, uint64(n), m.Len())
	for i := uint64(0); i < n; i++ {
		require.True(t, m.Contains(key64(i)))
		require.Equal(t, i, m.Value(key64(i)))
	}
}

func TestHandleRoundTrip(t *testing.T) {
	m := MustNew[uint64](64, 8)

	handles := make(map[uint64]Handle)
	for i := uint64(0); i < 500; i++ {
		_, h := m.FindOrAddAndGetHandle(key64(i), i)
		handles[i] = h
	}

	for i, h := range handles {
		key, value := m.KeyAndValue(h)
		assert.True(t, key.Equal(key64(i)))
		assert.Equal(t, i, value)
	}
}

func TestHandlePacking(t *testing.T) {
	h := NewHandle(3, 12345)
	assert.Equal(t, 3, h.Shard())
	assert.Equal(t, uint64(12345), h.Bucket())
}

func TestHandleRangePanic(t *testing.T) {
	m := MustNew[uint64](64, 2)

	assert.PanicsWithError(t, "sharded: handle shard 7 out of range (shards: 2)", func() {
		m.KeyAndValue(NewHandle(7, 0))
	})
}

func TestSetOrAddOverwrites(t *testing.T) {
	m := MustNew[uint64](64, 4)

	h1 := m.SetOrAddAndGetHandle(key64(42), 1)
	h2 := m.SetOrAddAndGetHandle(key64(42), 2)

	assert.Equal(t, h1, h2)
	assert.Equal(t, uint64(2), m.Value(key64(42)))
	assert.Equal(t, uint64(1), m.Len())
}

func TestConcurrentWriters(t *testing.T) {
	m := MustNew[uint64](64, 8)

	const (
		workers = 8
		perWork = 1000
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < perWork; i++ {
				v := uint64(w)*perWork + i
				m.FindOrAdd(key64(v), v)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*perWork), m.Len())
	for v := uint64(0); v < workers*perWork; v++ {
		require.Equal(t, v, m.Value(key64(v)))
	}
}

func TestRemapParallel(t *testing.T) {
	m := MustNew[uint64](64, 4)

	for i := uint64(0); i < 1000; i++ {
		m.FindOrAdd(key64(i), i)
	}

	m.Remap(func(v uint64) uint64 { return v + 1 })

	for i := uint64(0); i < 1000; i++ {
		assert.Equal(t, i+1, m.Value(key64(i)))
	}
}

func TestAllVisitsEveryEntry(t *testing.T) {
	m := MustNew[uint64](64, 4)

	want := make(map[uint64]bool)
	for i := uint64(0); i < 300; i++ {
		m.FindOrAdd(key64(i), i)
		want[i] = true
	}

	seen := make(map[uint64]bool)
	for key, value := range m.All() {
		assert.Equal(t, value, key.Uint64At(0, 64))
		assert.False(t, seen[value], "duplicate entry %d", value)
		seen[value] = true
	}
	assert.Equal(t, want, seen)
}

func TestAllEarlyStop(t *testing.T) {
	m := MustNew[uint64](64, 4)
	for i := uint64(0); i < 100; i++ {
		m.FindOrAdd(key64(i), i)
	}

	count := 0
	for range m.All() {
		count++
		if count == 10 {
			break
		}
	}
	assert.Equal(t, 10, count)
}

func TestSaveLoadShards(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	m := MustNew[uint64](64, 4, statemap.WithInitialCapacity(8))
	for i := uint64(0); i < 1500; i++ {
		m.FindOrAdd(key64(i), i)
	}

	require.NoError(t, m.SaveShards(ctx, store, "run-1", snapshot.Uint64Codec{}))

	names, err := store.List(ctx, "run-1/")
	require.NoError(t, err)
	require.Len(t, names, 4)

	got, err := LoadShards[uint64](ctx, store, "run-1", snapshot.Uint64Codec{}, statemap.WithInitialCapacity(8))
	require.NoError(t, err)

	assert.Equal(t, m.Len(), got.Len())
	assert.Equal(t, m.NumShards(), got.NumShards())
	for i := uint64(0); i < 1500; i++ {
		require.Equal(t, i, got.Value(key64(i)))
	}
}

func TestLoadShardsMissing(t *testing.T) {
	store := blobstore.NewMemoryStore()

	_, err := LoadShards[uint64](context.Background(), store, "nope", snapshot.Uint64Codec{})
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
