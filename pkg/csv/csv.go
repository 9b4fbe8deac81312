// Package csv provides a streaming CSV codec: a parser that turns a byte
// source into typed, filtered rows, and a writer that turns rows back into
// quoted CSV text that parses to the same values.
//
// # Parsing
//
// Input is tokenized in fixed-size chunks; the chunk size never changes the
// result. Each record then runs through the row pipeline configured by
// Config: skip OffsetRows records, convert each column (string, int, float,
// bool or skip), substitute column defaults for empty values, apply the
// Only/Except filters to the converted values, and optionally reshape the row
// into a name-keyed map.
//
// Rows can be collected, streamed to a callback, or pulled with a Scanner.
// All three deliver identical rows in input order.
//
//	rows, err := csv.ParseString("a,1\nb,2\n", cfg)                       // collect
//	err := csv.Stream(r, cfg, func(row csv.Row) error { ...; return nil }) // callback
//	sc := csv.NewScanner(r, cfg)                                          // pull
//
// # Whitespace and blank lines
//
// Spaces and tabs around unquoted fields are trimmed (unless one of them is
// the separator), whitespace around a quoted field is ignored, and blank lines
// produce no row. Within a string column an unquoted empty field is nil and a
// quoted empty field ("") is the empty string, unless EmptyFields says otherwise.
//
// # Errors
//
// Malformed quoting aborts a strict parse with a *ParseError carrying the
// line and column. Invalid options are reported as *ConfigError before any
// input is read. Errors from the underlying reader are returned unchanged.
// Field conversion never fails: text that does not parse under a numeric
// column becomes nil, or the column default.
//
// # Thread Safety
//
// Every call owns its own buffers and state. A Config may be shared between
// concurrent calls; a Scanner or Writer may not.
package csv

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/shapestone/shape-csvcodec/internal/source"
)

// Parse reads all of r and returns the surviving rows in input order.
//
// For large inputs prefer Stream or a Scanner, which never hold more than one
// row at a time.
//
// Example:
//
//	cfg := csv.DefaultConfig()
//	cfg.Columns, _ = csv.ColumnsFromConversions("si")
//	rows, err := csv.Parse(file, cfg)
func Parse(r io.Reader, cfg Config) ([]Row, error) {
	return collect(NewScanner(r, cfg))
}

// ParseString parses CSV held in a string.
func ParseString(input string, cfg Config) ([]Row, error) {
	return Parse(strings.NewReader(input), cfg)
}

// ParseBytes parses CSV held in a byte slice.
func ParseBytes(input []byte, cfg Config) ([]Row, error) {
	return Parse(bytes.NewReader(input), cfg)
}

// ParseInput parses a string, a []byte or an io.Reader. Any other input is
// rejected with a *ConfigError matching ErrUnsupportedInput.
func ParseInput(input any, cfg Config) ([]Row, error) {
	r, err := readerFor(input)
	if err != nil {
		return nil, err
	}
	return Parse(r, cfg)
}

// Stream invokes fn once per surviving row, in input order. The next row is not
// read until fn returns.
//
// If fn returns ErrStop, Stream stops and returns nil. Any other error from fn
// stops the parse and is returned unchanged.
//
// Example:
//
//	err := csv.Stream(file, cfg, func(row csv.Row) error {
//	    if row.Values[0] == "END" {
//	        return csv.ErrStop
//	    }
//	    return process(row)
//	})
func Stream(r io.Reader, cfg Config, fn func(Row) error) error {
	return feed(NewScanner(r, cfg), fn)
}

// StreamInput is Stream for a string, a []byte or an io.Reader.
func StreamInput(input any, cfg Config, fn func(Row) error) error {
	r, err := readerFor(input)
	if err != nil {
		return err
	}
	return Stream(r, cfg, fn)
}

// ParseFile parses the file at path. Gzip-compressed files are detected by
// their magic bytes and decompressed transparently.
func ParseFile(path string, cfg Config) ([]Row, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, cfg)
}

// StreamFile is Stream over the file at path, see ParseFile.
func StreamFile(path string, cfg Config, fn func(Row) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f, err := source.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Stream(f, cfg, fn)
}

// collect accumulates every row of sc.
func collect(sc *Scanner) ([]Row, error) {
	defer sc.Close()

	rows := []Row{}
	for sc.Scan() {
		rows = append(rows, sc.Row())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// feed hands every row of sc to fn.
func feed(sc *Scanner, fn func(Row) error) error {
	defer sc.Close()

	for sc.Scan() {
		if err := fn(sc.Row()); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return sc.Err()
}

func readerFor(input any) (io.Reader, error) {
	r, err := source.FromInput(input)
	if err != nil {
		return nil, &ConfigError{Option: "input", Message: "expected string, []byte or io.Reader", Cause: err}
	}
	return r, nil
}
