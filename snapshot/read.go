package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/bitvector"
	"github.com/hupe1980/statemap/internal/mmap"
)

// Read reconstructs a map from a snapshot. The value codec must match the
// one used at write time, and mapOpts must supply the same hasher the map
// was built with (the default hasher round-trips without options).
func Read[V any](r io.Reader, values ValueCodec[V], mapOpts ...statemap.Option) (*statemap.Map[V], error) {
	var headerBytes [headerSize]byte
	if _, err := io.ReadFull(r, headerBytes[:]); err != nil {
		return nil, fmt.Errorf("%w: short header: %w", ErrInvalidFormat, err)
	}

	var header fileHeader
	if err := binary.Read(bytes.NewReader(headerBytes[:]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version {
		return nil, ErrInvalidVersion
	}

	payload := make([]byte, header.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: short payload: %w", ErrInvalidFormat, err)
	}
	var trailer [trailerSize]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("%w: missing checksum: %w", ErrInvalidFormat, err)
	}

	sum := crc32.Update(crc32.ChecksumIEEE(headerBytes[:]), crc32Table, payload)
	if sum != binary.LittleEndian.Uint32(trailer[:]) {
		return nil, ErrChecksumMismatch
	}

	state, err := decodePayload[V](header, payload, values)
	if err != nil {
		return nil, err
	}
	return statemap.FromRawState(state, mapOpts...)
}

// decodePayload parses the decompressed sections back into a raw map
// state: growth table, bucket words, occupancy bitmap, values.
func decodePayload[V any](header fileHeader, payload []byte, values ValueCodec[V]) (statemap.RawState[V], error) {
	var state statemap.RawState[V]

	if header.BucketSize == 0 || header.BucketSize%bitvector.WordBits != 0 {
		return state, fmt.Errorf("%w: bucket size %d", ErrInvalidFormat, header.BucketSize)
	}
	if header.TableLen == 0 || header.Cursor >= header.TableLen {
		return state, fmt.Errorf("%w: cursor %d outside growth table of %d entries", ErrInvalidFormat, header.Cursor, header.TableLen)
	}

	var (
		pr  io.Reader = bytes.NewReader(payload)
		err error
	)
	switch Compression(header.Compression) {
	case CompressionNone:
	case CompressionLZ4:
		pr = lz4.NewReader(pr)
	case CompressionZstd:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(pr)
		if err != nil {
			return state, err
		}
		defer dec.Close()
		pr = dec
	default:
		return state, fmt.Errorf("%w: compression %d", ErrInvalidFormat, header.Compression)
	}

	br := bufio.NewReader(pr)

	table := make([]uint64, header.TableLen)
	for i := range table {
		if table[i], err = readUint64(br); err != nil {
			return state, err
		}
	}

	numberOfBuckets := table[header.Cursor]
	bucketWords := header.BucketSize / bitvector.WordBits
	words := make([]uint64, numberOfBuckets*bucketWords)
	for i := range words {
		if words[i], err = readUint64(br); err != nil {
			return state, err
		}
	}

	occupiedLen, err := binary.ReadUvarint(br)
	if err != nil {
		return state, err
	}
	occupiedBytes := make([]byte, occupiedLen)
	if _, err := io.ReadFull(br, occupiedBytes); err != nil {
		return state, err
	}
	occupied := roaring.New()
	if _, err := occupied.FromBuffer(occupiedBytes); err != nil {
		return state, fmt.Errorf("%w: occupancy bitmap: %w", ErrInvalidFormat, err)
	}

	valueSlice := make([]V, numberOfBuckets)
	var scratch []byte
	it := occupied.Iterator()
	for it.HasNext() {
		bucket := it.Next()
		if uint64(bucket) >= numberOfBuckets {
			return state, fmt.Errorf("%w: occupied bucket %d beyond capacity %d", ErrInvalidFormat, bucket, numberOfBuckets)
		}
		n, err := binary.ReadUvarint(br)
		if err != nil {
			return state, err
		}
		if uint64(cap(scratch)) < n {
			scratch = make([]byte, n)
		}
		scratch = scratch[:n]
		if _, err := io.ReadFull(br, scratch); err != nil {
			return state, err
		}
		v, err := values.Decode(scratch)
		if err != nil {
			return state, fmt.Errorf("snapshot: decode value at bucket %d with codec %s: %w", bucket, values.Name(), err)
		}
		valueSlice[bucket] = v
	}

	state = statemap.RawState[V]{
		BucketSize:  header.BucketSize,
		GrowthTable: table,
		LoadFactor:  math.Float64frombits(header.LoadFactorBits),
		Cursor:      int(header.Cursor),
		Elements:    header.Elements,
		BucketWords: words,
		Occupied:    occupied,
		Values:      valueSlice,
	}
	return state, nil
}

// LoadFile reads a snapshot from path. The file is memory-mapped and read
// sequentially; on platforms without mmap support it falls back to a plain
// read.
func LoadFile[V any](path string, values ValueCodec[V], mapOpts ...statemap.Option) (*statemap.Map[V], error) {
	mapping, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer mapping.Close()
	mapping.AdviseSequential()

	return Read[V](bytes.NewReader(mapping.Bytes()), values, mapOpts...)
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
