package statemap

// probeSeq generates the deterministic collision-resolution sequence of
// candidate bucket indices for one key against one table size. It uses
// triangular-number quadratic probing: the i-th candidate is
//
//	(hash + i*(i+1)/2) mod numberOfBuckets
//
// computed incrementally by adding an ever-growing step. For a power-of-two
// table this sequence visits every bucket exactly once before repeating,
// so probing a non-full table always terminates at a match or a free slot,
// and probing a full table terminates after numberOfBuckets steps.
type probeSeq struct {
	mask    uint64
	current uint64
	step    uint64
}

// makeProbeSeq starts a probe sequence for the given base hash against a
// table of numberOfBuckets buckets. numberOfBuckets must be a power of two;
// the growth policy guarantees this.
func makeProbeSeq(hash, numberOfBuckets uint64) probeSeq {
	mask := numberOfBuckets - 1
	return probeSeq{
		mask:    mask,
		current: hash & mask,
	}
}

// bucket returns the current candidate bucket index.
func (s probeSeq) bucket() uint64 {
	return s.current
}

// next advances to the next candidate.
func (s probeSeq) next() probeSeq {
	s.step++
	s.current = (s.current + s.step) & s.mask
	return s
}

// exhausted reports whether the sequence has visited every bucket.
func (s probeSeq) exhausted() bool {
	return s.step > s.mask
}

// probeOutcome tags the result of walking a probe sequence during an
// insertion: the key was found in a bucket, a free bucket was claimed for
// it, or the whole cycle was walked without either (table full under the
// current size tier, the internal signal that triggers a resize).
type probeOutcome uint8

const (
	probeFound probeOutcome = iota
	probeFree
	probeFull
)
