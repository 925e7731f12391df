// Package statemap provides a compact bit-vector-keyed hash map for
// explicit-state exploration.
//
// During large-scale state-space exploration, every discovered state is
// packed into a fixed-width bit vector and must be deduplicated against
// millions of earlier states. Map interns these encodings in a single flat
// bit-packed array with open addressing: no per-entry allocation, no
// pointer chasing, and a dense bucket index usable as a state id.
//
// # Quick Start
//
//	m := statemap.MustNew[uint64](128, statemap.WithInitialCapacity(1 << 20))
//
//	state := bitvector.New(128)
//	state.SetFromUint64(0, 32, pc)
//	state.SetFromUint64(32, 32, x)
//
//	id, bucket := m.FindOrAddAndGetBucket(state, nextID)
//	if id == nextID {
//	    nextID++ // state was new
//	}
//
//	for key, value := range m.All() {
//	    // occupied buckets in increasing order
//	}
//
// # Growth
//
// The map grows through an explicit, data-driven policy: an ascending
// table of power-of-two bucket counts plus a load factor (default 0.75).
// A resize rebuilds all storages at the next table entry and rehashes
// every entry; bucket indices are stable only between resizes.
//
// # Contract
//
// Keys must have exactly the configured bucket size in bits; entries are
// never deleted; precondition violations (wrong key length, out-of-range
// bucket, Value on an absent key) and growth-table exhaustion panic with
// typed values rather than returning degraded results.
//
// A Map is single-writer: it performs no internal locking. For concurrent
// exploration, shard by key hash across independent instances — the
// sharded subpackage implements that pattern.
//
// # Persistence
//
// The snapshot subpackage writes a map to a self-describing, checksummed,
// optionally compressed binary snapshot, locally or into a blob store
// (local disk, S3, MinIO).
package statemap
