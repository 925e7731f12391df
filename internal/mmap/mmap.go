// Package mmap provides read-only memory mapping of snapshot files, with a
// plain-read fallback on platforms without mapping support.
package mmap

import (
	"errors"
	"os"
)

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	data  []byte
	unmap func([]byte) error
	f     *os.File
}

// Open maps the file at path into memory as read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Mapping{f: f}, nil
	}
	if size < 0 {
		f.Close()
		return nil, errors.New("mmap: file size is negative")
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Mapping{data: data, unmap: unmap, f: f}, nil
}

// Bytes returns the mapped contents. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// AdviseSequential hints that the mapping will be read front to back.
// The hint is advisory; failures are ignored on a best-effort basis.
func (m *Mapping) AdviseSequential() {
	if len(m.data) > 0 {
		_ = osAdviseSequential(m.data)
	}
}

// Close unmaps the memory and closes the underlying file.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}
	var err error
	if m.data != nil && m.unmap != nil {
		err = m.unmap(m.data)
	}
	m.data = nil
	if m.f != nil {
		if closeErr := m.f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		m.f = nil
	}
	return err
}
