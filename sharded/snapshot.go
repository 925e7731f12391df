package sharded

import (
	"context"
	"fmt"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/blobstore"
	"github.com/hupe1980/statemap/snapshot"
)

func shardName(prefix string, i int) string {
	return fmt.Sprintf("%s/shard-%03d.snap", prefix, i)
}

// SaveShards writes every shard as its own snapshot blob under prefix,
// one upload per shard in parallel. Shards are locked individually while
// they serialize, so other shards stay writable during the save.
func (m *Map[V]) SaveShards(ctx context.Context, store blobstore.BlobStore, prefix string, values snapshot.ValueCodec[V], optFns ...func(*snapshot.Options)) error {
	return m.forEachShard(func(i int, s *shard[V]) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := snapshot.Put(ctx, store, shardName(prefix, i), s.m, values, optFns...); err != nil {
			return fmt.Errorf("sharded: save shard %d: %w", i, err)
		}
		return nil
	})
}

// LoadShards restores a sharded map saved with SaveShards. The shard
// count is recovered from the blobs under prefix; mapOpts must match the
// options the shards were built with, minus the per-shard seeds, which
// LoadShards re-applies itself.
func LoadShards[V any](ctx context.Context, store blobstore.BlobStore, prefix string, values snapshot.ValueCodec[V], mapOpts ...statemap.Option) (*Map[V], error) {
	names, err := store.List(ctx, prefix+"/")
	if err != nil {
		return nil, err
	}
	numShards := len(names)
	if numShards == 0 {
		return nil, fmt.Errorf("sharded: no shard snapshots under %q: %w", prefix, blobstore.ErrNotFound)
	}
	if numShards > MaxShards || numShards&(numShards-1) != 0 {
		return nil, fmt.Errorf("sharded: found %d shard snapshots under %q, want a power of two", numShards, prefix)
	}

	shards := make([]*shard[V], numShards)
	var g errgroup.Group
	for i := range shards {
		g.Go(func() error {
			opts := append([]statemap.Option{statemap.WithSeed(shardSeed(i))}, mapOpts...)
			sm, err := snapshot.Get[V](ctx, store, shardName(prefix, i), values, opts...)
			if err != nil {
				return fmt.Errorf("sharded: load shard %d: %w", i, err)
			}
			shards[i] = &shard[V]{m: sm}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Map[V]{
		shards:     shards,
		router:     statemap.XXHasher{Seed: routingSeed},
		shardShift: 64 - uint(bits.TrailingZeros(uint(numShards))),
		bucketSize: shards[0].m.BucketSize(),
	}, nil
}
