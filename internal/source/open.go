package source

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte header of a gzip member (RFC 1952).
var gzipMagic = []byte{0x1f, 0x8b}

// mapping holds a file's bytes, either mapped or read.
type mapping struct {
	data  []byte
	unmap func() error
}

// gzipped reports whether the bytes start a gzip member.
func (m *mapping) gzipped() bool {
	return bytes.HasPrefix(m.data, gzipMagic)
}

// release unmaps the bytes. It is safe to call more than once.
func (m *mapping) release() error {
	m.data = nil
	if m.unmap == nil {
		return nil
	}
	unmap := m.unmap
	m.unmap = nil
	return unmap()
}

func readFile(f *os.File) (*mapping, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &mapping{data: data}, nil
}

// File is an opened CSV file. Close releases the mapping and any decompressor.
type File struct {
	io.Reader
	closers []func() error
}

// Close releases everything held by the file, in reverse order of acquisition.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}

// Open opens a CSV file for chunked reading. Gzip-compressed files are detected
// by their magic bytes and decompressed on the fly.
func Open(path string) (*File, error) {
	m, err := mapFile(path)
	if err != nil {
		return nil, err
	}

	f := &File{
		Reader:  bytes.NewReader(m.data),
		closers: []func() error{m.release},
	}
	if !m.gzipped() {
		return f, nil
	}

	zr, err := gzip.NewReader(bytes.NewReader(m.data))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
	}
	f.Reader = zr
	f.closers = append(f.closers, zr.Close)
	return f, nil
}
