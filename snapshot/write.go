package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/statemap"
	"github.com/hupe1980/statemap/resource"
)

// Options configures snapshot writing and reading.
type Options struct {
	// Compression selects the payload codec. Default: CompressionZstd.
	Compression Compression

	// Controller, if set, throttles snapshot IO and bounds concurrent
	// snapshot jobs for the blob-store helpers.
	Controller *resource.Controller

	// Logger receives snapshot save events. Default: no logging.
	Logger *statemap.Logger
}

func applyOptions(optFns []func(*Options)) Options {
	o := Options{
		Compression: CompressionZstd,
		Logger:      statemap.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Write serializes the map to w as a self-describing, checksummed snapshot
// and returns the number of bytes written. The value codec must match the
// one used when reading the snapshot back.
func Write[V any](w io.Writer, m *statemap.Map[V], values ValueCodec[V], optFns ...func(*Options)) (int64, error) {
	o := applyOptions(optFns)
	return write(context.Background(), w, m, values, o)
}

func write[V any](ctx context.Context, w io.Writer, m *statemap.Map[V], values ValueCodec[V], o Options) (int64, error) {
	state := m.RawState()

	payload, err := encodePayload(state, values, o.Compression)
	if err != nil {
		return 0, err
	}

	header := fileHeader{
		Magic:          MagicNumber,
		Version:        Version,
		BucketSize:     state.BucketSize,
		LoadFactorBits: math.Float64bits(state.LoadFactor),
		Elements:       state.Elements,
		PayloadSize:    uint64(payload.Len()),
		Cursor:         uint32(state.Cursor), //nolint:gosec // growth tables are tiny
		TableLen:       uint32(len(state.GrowthTable)),
		Compression:    uint8(o.Compression),
	}

	out := o.Controller.ThrottledWriter(ctx, w)
	cw := newChecksumWriter(out)
	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return 0, err
	}
	if _, err := cw.Write(payload.Bytes()); err != nil {
		return 0, err
	}
	if err := binary.Write(out, binary.LittleEndian, cw.Sum()); err != nil {
		return 0, err
	}

	return headerSize + int64(payload.Len()) + trailerSize, nil
}

// encodePayload serializes the map sections through the selected
// compression codec: growth table, bucket words, occupancy bitmap, then
// the values of occupied buckets in ascending bucket order.
func encodePayload[V any](state statemap.RawState[V], values ValueCodec[V], compression Compression) (*bytes.Buffer, error) {
	var payload bytes.Buffer

	var (
		pw     io.Writer = &payload
		finish func() error
	)
	switch compression {
	case CompressionNone:
	case CompressionLZ4:
		zw := lz4.NewWriter(&payload)
		pw, finish = zw, zw.Close
	case CompressionZstd:
		enc, err := zstd.NewWriter(&payload)
		if err != nil {
			return nil, err
		}
		pw, finish = enc, enc.Close
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrInvalidFormat, compression)
	}

	bw := bufio.NewWriter(pw)

	for _, size := range state.GrowthTable {
		if err := writeUint64(bw, size); err != nil {
			return nil, err
		}
	}
	for _, word := range state.BucketWords {
		if err := writeUint64(bw, word); err != nil {
			return nil, err
		}
	}

	occupied, err := state.Occupied.ToBytes()
	if err != nil {
		return nil, err
	}
	if err := writeUvarint(bw, uint64(len(occupied))); err != nil {
		return nil, err
	}
	if _, err := bw.Write(occupied); err != nil {
		return nil, err
	}

	var scratch []byte
	it := state.Occupied.Iterator()
	for it.HasNext() {
		bucket := it.Next()
		scratch, err = values.Append(scratch[:0], state.Values[bucket])
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode value at bucket %d with codec %s: %w", bucket, values.Name(), err)
		}
		if err := writeUvarint(bw, uint64(len(scratch))); err != nil {
			return nil, err
		}
		if _, err := bw.Write(scratch); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}
	if finish != nil {
		if err := finish(); err != nil {
			return nil, err
		}
	}
	return &payload, nil
}

// SaveFile writes the snapshot to path atomically: the bytes land in a
// temporary file in the same directory, are synced, and replace path via
// rename. A crash mid-save never leaves a truncated snapshot behind.
func SaveFile[V any](path string, m *statemap.Map[V], values ValueCodec[V], optFns ...func(*Options)) error {
	o := applyOptions(optFns)
	n, err := saveFile(path, m, values, o)
	o.Logger.LogSnapshotSave(path, n, err)
	return err
}

func saveFile[V any](path string, m *statemap.Map[V], values ValueCodec[V], o Options) (int64, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()

	n, err := write(context.Background(), tmp, m, values, o)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}
