package snapshot

import (
	"hash"
	"hash/crc32"
	"io"
)

// Snapshot integrity uses CRC32 (IEEE): fast, hardware-accelerated and
// good at catching storage corruption. It is not tamper-proof.

var crc32Table = crc32.MakeTable(crc32.IEEE)

// checksumWriter wraps an io.Writer and computes a running CRC32 of
// everything written through it.
type checksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	return &checksumWriter{
		w:    w,
		hash: crc32.New(crc32Table),
	}
}

func (cw *checksumWriter) Write(p []byte) (int, error) {
	// hash.Hash.Write never returns an error.
	cw.hash.Write(p)
	return cw.w.Write(p)
}

// Sum returns the checksum of everything written so far.
func (cw *checksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}
