package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// ValueCodec encodes and decodes the map's payload values. The snapshot
// writer length-prefixes every encoded value, so codecs need not be
// self-delimiting.
//
// Codec selection is a compatibility boundary: a snapshot written with one
// codec must be read back with the same one.
type ValueCodec[V any] interface {
	// Name is the codec's stable identifier, for diagnostics.
	Name() string
	// Append appends the encoding of v to dst and returns the extended
	// slice.
	Append(dst []byte, v V) ([]byte, error)
	// Decode decodes one value from data, which holds exactly one
	// encoding.
	Decode(data []byte) (V, error)
}

// Uint64Codec encodes uint64 values in little-endian. This is the codec
// for the dominant payload during exploration: dense state ids.
type Uint64Codec struct{}

// Name implements ValueCodec.
func (Uint64Codec) Name() string { return "uint64" }

// Append implements ValueCodec.
func (Uint64Codec) Append(dst []byte, v uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, v), nil
}

// Decode implements ValueCodec.
func (Uint64Codec) Decode(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("uint64 codec: got %d bytes, want 8", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

// BytesCodec stores byte-slice values verbatim.
type BytesCodec struct{}

// Name implements ValueCodec.
func (BytesCodec) Name() string { return "bytes" }

// Append implements ValueCodec.
func (BytesCodec) Append(dst []byte, v []byte) ([]byte, error) {
	return append(dst, v...), nil
}

// Decode implements ValueCodec.
func (BytesCodec) Decode(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// JSONCodec encodes values with encoding/json. Convenient for structured
// payloads where snapshot size is not the bottleneck.
type JSONCodec[V any] struct{}

// Name implements ValueCodec.
func (JSONCodec[V]) Name() string { return "json" }

// Append implements ValueCodec.
func (JSONCodec[V]) Append(dst []byte, v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

// Decode implements ValueCodec.
func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var v V
	err := json.Unmarshal(data, &v)
	return v, err
}
