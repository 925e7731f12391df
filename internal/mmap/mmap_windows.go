//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Mapping falls back to reading the whole file on platforms without a
// supported mmap implementation. Snapshot loads stay correct, just not
// zero-copy.

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func([]byte) error { return nil }, nil
}

func osAdviseSequential([]byte) error { return nil }
