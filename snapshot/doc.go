// Package snapshot persists state maps to durable storage and restores
// them.
//
// A snapshot is a single self-describing blob: a fixed 64-byte header, a
// compressed payload holding the map's growth table, bucket words,
// occupancy bitmap and values, and a CRC32 trailer covering everything
// before it. Zstd is the default payload codec; LZ4 and uncompressed are
// available via Options.
//
// Save to a file (atomic via rename) and load it back:
//
//	err := snapshot.SaveFile("states.snap", m, snapshot.Uint64Codec{})
//	m2, err := snapshot.LoadFile[uint64]("states.snap", snapshot.Uint64Codec{})
//
// Or stream to any blob store:
//
//	_, err := snapshot.Put(ctx, store, "run-1/states.snap", m, snapshot.Uint64Codec{})
//	m2, err := snapshot.Get[uint64](ctx, store, "run-1/states.snap", snapshot.Uint64Codec{})
//
// Snapshots capture the map's exact bucket layout, so a restored map
// probes identically to the original. That makes the hasher part of the
// format contract: restore with the same hasher (and seed) the map was
// built with, passing statemap options through LoadFile/Get when the
// defaults were overridden.
package snapshot
