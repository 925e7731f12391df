package statemap

import (
	"errors"
	"fmt"
)

// ErrTableExhausted is wrapped by the TableExhaustedError panic value raised
// when the growth policy has no further size to grow into. This is a
// configuration error: size the growth table generously for the expected
// state count.
var ErrTableExhausted = errors.New("growth table exhausted")

// KeyLengthError reports a key whose bit length does not match the map's
// configured bucket size. Passing such a key is a precondition violation,
// so the map panics with this value rather than returning it.
type KeyLengthError struct {
	Expected uint64
	Actual   uint64
}

func (e *KeyLengthError) Error() string {
	return fmt.Sprintf("statemap: key length %d does not match bucket size %d", e.Actual, e.Expected)
}

// KeyNotFoundError reports a Value call for an absent key. Callers that
// cannot rule out absence must use Contains or FindOrAdd instead; Value on
// an absent key is a precondition violation and panics with this value.
type KeyNotFoundError struct {
	Key string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("statemap: key %s not found", e.Key)
}

// BucketRangeError reports positional access to a bucket index outside
// [0, Cap()). The map panics with this value.
type BucketRangeError struct {
	Bucket   uint64
	Capacity uint64
}

func (e *BucketRangeError) Error() string {
	return fmt.Sprintf("statemap: bucket %d out of range for capacity %d", e.Bucket, e.Capacity)
}

// TableExhaustedError is the panic value raised when a resize is required
// but the growth table has no larger entry. It wraps ErrTableExhausted.
type TableExhaustedError struct {
	Elements uint64
	Capacity uint64
}

func (e *TableExhaustedError) Error() string {
	return fmt.Sprintf("statemap: cannot grow beyond %d buckets (%d elements): %v", e.Capacity, e.Elements, ErrTableExhausted)
}

func (e *TableExhaustedError) Unwrap() error { return ErrTableExhausted }
