// Package sharded partitions a state map across independent shards for
// concurrent exploration.
//
// A single statemap.Map is single-writer. When several workers explore a
// state space in parallel, the sanctioned pattern is to shard by key hash:
// each shard is a complete map with its own lock, writes route to exactly
// one shard, and handles carry the shard index so lookups by handle stay
// O(1).
//
//	m := sharded.MustNew[uint64](128, 8)
//	value, handle := m.FindOrAddAndGetHandle(key, nextID)
//	key2, value2 := m.KeyAndValue(handle)
//
// Saves and restores fan out shard-per-goroutine via SaveShards and
// LoadShards.
package sharded
