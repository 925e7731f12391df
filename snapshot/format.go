package snapshot

import "errors"

const (
	// MagicNumber identifies statemap snapshot files (ASCII: "SMAP").
	MagicNumber = 0x534D4150
	// Version is the current file format version (v1.0.0).
	Version = 0x00010000

	headerSize  = 64
	trailerSize = 4 // CRC32
)

var (
	ErrInvalidMagic     = errors.New("snapshot: invalid magic number")
	ErrInvalidVersion   = errors.New("snapshot: unsupported version")
	ErrInvalidFormat    = errors.New("snapshot: malformed snapshot")
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
)

// Compression selects the codec applied to the snapshot payload.
type Compression uint8

const (
	// CompressionNone stores the payload verbatim.
	CompressionNone Compression = iota
	// CompressionLZ4 trades some ratio for very fast decompression.
	CompressionLZ4
	// CompressionZstd gives the best ratio at moderate speed.
	CompressionZstd
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// fileHeader is the 64-byte header at the start of every snapshot. The
// payload that follows is the (optionally compressed) serialization of the
// map's growth table, bucket words, occupancy bitmap and values; a CRC32
// trailer covers header and payload.
type fileHeader struct {
	Magic          uint32
	Version        uint32
	BucketSize     uint64 // key length in bits
	LoadFactorBits uint64 // math.Float64bits of the load factor
	Elements       uint64
	PayloadSize    uint64 // compressed payload bytes
	Cursor         uint32 // index into the growth table
	TableLen       uint32 // growth table entries
	Compression    uint8
	Padding        [7]byte
	Reserved       [8]byte
}
