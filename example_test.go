package statemap_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/bitvector"
)

// Example_internStates demonstrates the core exploration loop: interning
// compact state encodings and assigning dense ids.
func Example_internStates() {
	m, err := statemap.New[uint64](64)
	if err != nil {
		log.Fatal(err)
	}

	states := []uint64{7, 11, 7, 13, 11}

	var nextID uint64
	for _, s := range states {
		key := bitvector.FromUint64(64, s)
		id := m.FindOrAdd(key, nextID)
		if id == nextID {
			nextID++
		}
		fmt.Printf("state %d -> id %d\n", s, id)
	}
	fmt.Printf("unique states: %d\n", m.Len())
	// Output:
	// state 7 -> id 0
	// state 11 -> id 1
	// state 7 -> id 0
	// state 13 -> id 2
	// state 11 -> id 1
	// unique states: 3
}

// Example_bucketHandles demonstrates bucket handles: once a key is
// stored, its bucket index addresses it until the next resize.
func Example_bucketHandles() {
	m := statemap.MustNew[string](64)

	_, bucket := m.FindOrAddAndGetBucket(bitvector.FromUint64(64, 99), "initial")

	key, value := m.BucketAndValue(bucket)
	fmt.Printf("bucket holds key %d with value %q\n", key.Uint64At(0, 64), value)

	m.SetOrAdd(bitvector.FromUint64(64, 99), "updated")
	_, value = m.BucketAndValue(bucket)
	fmt.Printf("same bucket now holds %q\n", value)
	// Output:
	// bucket holds key 99 with value "initial"
	// same bucket now holds "updated"
}

// Example_remap demonstrates bulk value rewrites, e.g. renumbering state
// ids after dead states are dropped.
func Example_remap() {
	m := statemap.MustNew[uint64](64)
	for i := uint64(0); i < 3; i++ {
		m.FindOrAdd(bitvector.FromUint64(64, i), i)
	}

	m.Remap(func(id uint64) uint64 { return id * 10 })

	for key, id := range m.All() {
		fmt.Printf("state %d -> id %d\n", key.Uint64At(0, 64), id)
	}
	// Unordered output:
	// state 0 -> id 0
	// state 1 -> id 10
	// state 2 -> id 20
}
