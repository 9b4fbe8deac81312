// Package source delivers CSV input to the tokenizer as a sequence of byte chunks.
//
// A Chunker wraps any blocking io.Reader and hands out chunks of at most a
// configured size. The tokenizer never sees more than one chunk at a time, so
// memory use is bounded by the chunk size plus the longest record, no matter how
// large the input is.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultChunkSize is the refill granularity used when none is configured (1 MiB).
const DefaultChunkSize = 1 << 20

// maxEmptyReads bounds the number of consecutive (0, nil) reads tolerated from
// a misbehaving reader before giving up with io.ErrNoProgress.
const maxEmptyReads = 100

// ErrUnsupportedInput is returned by FromInput for values that are neither a
// string, a byte slice nor an io.Reader.
var ErrUnsupportedInput = errors.New("input is neither a string, a byte slice nor an io.Reader")

// Chunker reads an io.Reader in chunks of a fixed maximum size.
type Chunker struct {
	r    io.Reader
	buf  []byte
	err  error
	size int
}

// NewChunker returns a Chunker reading from r in chunks of at most size bytes.
// A non-positive size selects DefaultChunkSize.
func NewChunker(r io.Reader, size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunker{
		r:    r,
		buf:  getChunk(size),
		size: size,
	}
}

// Size reports the configured chunk size.
func (c *Chunker) Size() int {
	return c.size
}

// Next returns the next chunk of input. The returned slice is only valid until
// the following call to Next or Release.
//
// Next returns io.EOF once the reader is exhausted. Any other read error is
// returned unchanged, after all bytes delivered alongside it have been handed out.
func (c *Chunker) Next() ([]byte, error) {
	if c.buf == nil {
		return nil, io.EOF
	}
	for empty := 0; ; empty++ {
		if c.err != nil {
			return nil, c.err
		}
		if empty >= maxEmptyReads {
			return nil, io.ErrNoProgress
		}

		n, err := c.r.Read(c.buf[:c.size])
		if err != nil {
			c.err = err
		}
		if n > 0 {
			return c.buf[:n], nil
		}
	}
}

// Release returns the chunk buffer to the shared pool. The Chunker must not be
// used afterwards.
func (c *Chunker) Release() {
	if c.buf == nil {
		return
	}
	putChunk(c.buf)
	c.buf = nil
}

// FromInput turns the supported input shapes into an io.Reader.
func FromInput(input any) (io.Reader, error) {
	switch v := input.(type) {
	case string:
		return strings.NewReader(v), nil
	case []byte:
		return bytes.NewReader(v), nil
	case io.Reader:
		return v, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrUnsupportedInput, input)
}
