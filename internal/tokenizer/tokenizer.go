// Package tokenizer turns a chunked byte stream into records of raw CSV fields.
//
// The tokenizer is a byte-level state machine. Its state survives chunk
// boundaries, so a record is tokenized identically no matter how the input was
// split by the underlying reader:
//
//	row-start   -> whitespace skipped, line breaks skipped (blank lines yield nothing)
//	field-start -> quote opens a quoted field, separator ends an empty field,
//	               line break ends the record, anything else starts an unquoted field
//	unquoted    -> separator / line break end the field; quotes are literal content;
//	               trailing whitespace is trimmed
//	quoted      -> everything is content until a quote
//	quote-seen  -> quote: escaped quote; separator / line break: end of field;
//	               whitespace: tolerated before the separator; anything else: malformed
//
// In strict mode malformed quoting aborts with a *ParseError. In lenient mode the
// offending quote is kept as content and scanning resumes inside the quoted field.
package tokenizer

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shapestone/shape-csvcodec/internal/source"
)

var (
	// ErrQuote indicates a quote inside a quoted field that is neither doubled nor
	// followed by the separator or a line break.
	ErrQuote = errors.New("extraneous or missing \" in quoted-field")

	// ErrUnterminatedQuote indicates input that ended inside a quoted field.
	ErrUnterminatedQuote = errors.New("unterminated quoted field")
)

// ParseError represents a parsing error with position information.
// It provides detailed context about where the error occurred in the CSV data.
type ParseError struct {
	// StartLine is the line where parsing started for this record (1-indexed).
	StartLine int
	// Line is the current line where the error occurred (1-indexed).
	Line int
	// Column is the byte column where the error occurred (1-indexed).
	Column int
	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message with position information.
func (e *ParseError) Error() string {
	if e.StartLine == e.Line {
		return fmt.Sprintf("parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error on line %d (started line %d), column %d: %v",
		e.Line, e.StartLine, e.Column, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options configures the tokenizer behavior.
type Options struct {
	// Comma is the field separator. Default: ','
	Comma byte
	// Quote opens and closes quoted fields. Default: '"'
	Quote byte
	// Lenient downgrades malformed quoting to best-effort recovery.
	Lenient bool
	// ChunkSize is the refill granularity. It never affects the output.
	ChunkSize int
	// OnWarning, if set, is told about every lenient-mode recovery.
	OnWarning func(line int, message string)
}

// DefaultOptions returns default tokenizer options.
func DefaultOptions() Options {
	return Options{
		Comma:     ',',
		Quote:     '"',
		ChunkSize: source.DefaultChunkSize,
	}
}

// Field is one raw field of a record.
type Field struct {
	// Data is the unescaped field content. It aliases tokenizer memory and is
	// only valid until the next call to Next.
	Data []byte
	// Quoted reports whether the field was written in quotes.
	Quoted bool
}

// Empty reports whether the field has no content.
func (f Field) Empty() bool {
	return len(f.Data) == 0
}

// Tokenizer produces records of raw fields from a byte stream.
type Tokenizer struct {
	chunker *source.Chunker
	opts    Options
	class   [256]byteClass

	chunk []byte
	pos   int
	eof   bool
	err   error

	state       state
	data        []byte
	bounds      []int
	quoted      []bool
	fieldStart  int
	fieldQuoted bool
	spaces      int
	fields      []Field

	line      int
	col       int
	startLine int
}

// New creates a tokenizer reading from r.
func New(r io.Reader, opts Options) *Tokenizer {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.Quote == 0 {
		opts.Quote = '"'
	}
	return &Tokenizer{
		chunker: source.NewChunker(r, opts.ChunkSize),
		opts:    opts,
		class:   classTable(opts.Comma, opts.Quote),
		data:    make([]byte, 0, 512),
		bounds:  make([]int, 0, 32),
		quoted:  make([]bool, 0, 16),
		fields:  make([]Field, 0, 16),
		line:    1,
	}
}

// Close releases the chunk buffer. The tokenizer must not be used afterwards.
func (t *Tokenizer) Close() {
	t.chunker.Release()
	t.chunk = nil
}

// Line returns the current 1-indexed input line.
func (t *Tokenizer) Line() int {
	return t.line
}

// Next returns the fields of the next record. It returns io.EOF when the input
// is exhausted. The returned slice and the field data are reused by the
// following call.
//
// Errors are sticky: once Next fails, it keeps returning the same error.
func (t *Tokenizer) Next() ([]Field, error) {
	if t.err != nil {
		return nil, t.err
	}

	t.data = t.data[:0]
	t.bounds = t.bounds[:0]
	t.quoted = t.quoted[:0]
	t.fieldStart = 0

	for {
		if t.pos >= len(t.chunk) {
			if t.eof {
				return t.finish()
			}
			chunk, err := t.chunker.Next()
			if err == io.EOF {
				t.eof = true
				continue
			}
			if err != nil {
				t.err = err
				return nil, err
			}
			t.chunk, t.pos = chunk, 0
		}

		done, err := t.scan()
		if err != nil {
			t.err = err
			return nil, err
		}
		if done {
			return t.record(), nil
		}
	}
}

// scan runs the state machine over the buffered chunk. It reports true as
// soon as a record is complete and false when the chunk is used up mid-record.
func (t *Tokenizer) scan() (bool, error) {
	for t.pos < len(t.chunk) {
		if t.state == stateQuoted {
			t.scanQuoted()
			continue
		}

		c := t.chunk[t.pos]
		t.pos++
		t.step(c)
		cls := t.class[c]

		switch t.state {
		case stateRowStart, stateFieldStart:
			switch cls {
			case classSpace:
			case classComma:
				t.beginRow()
				t.endField()
				t.state = stateFieldStart
			case classQuote:
				t.beginRow()
				t.fieldQuoted = true
				t.state = stateQuoted
			case classTerm:
				if t.state == stateRowStart {
					continue
				}
				t.endField()
				return true, nil
			default:
				t.beginRow()
				t.data = append(t.data, c)
				t.spaces = 0
				t.state = stateUnquoted
				t.scanPlain()
			}

		case stateUnquoted:
			switch cls {
			case classComma:
				t.trim(t.spaces)
				t.endField()
				t.state = stateFieldStart
			case classTerm:
				t.trim(t.spaces)
				t.endField()
				return true, nil
			case classSpace:
				t.data = append(t.data, c)
				t.spaces++
			default:
				// quotes are only significant at the start of a field
				t.data = append(t.data, c)
				t.spaces = 0
				t.scanPlain()
			}

		case stateQuoteSeen:
			switch cls {
			case classComma:
				t.trim(t.spaces + 1)
				t.endField()
				t.state = stateFieldStart
			case classTerm:
				t.trim(t.spaces + 1)
				t.endField()
				return true, nil
			case classSpace:
				t.data = append(t.data, c)
				t.spaces++
			case classQuote:
				if t.spaces == 0 {
					// doubled quote: the quote already buffered is the literal
					t.state = stateQuoted
					continue
				}
				if err := t.malformed(); err != nil {
					return false, err
				}
				t.data = append(t.data, c)
				t.spaces = 0
			default:
				if err := t.malformed(); err != nil {
					return false, err
				}
				t.data = append(t.data, c)
				t.spaces = 0
				t.state = stateQuoted
			}
		}
	}
	return false, nil
}

// scanQuoted consumes quoted content up to and including the next quote byte.
func (t *Tokenizer) scanQuoted() {
	rest := t.chunk[t.pos:]
	i := bytes.IndexByte(rest, t.opts.Quote)
	if i < 0 {
		t.data = append(t.data, rest...)
		t.stepAll(rest)
		t.pos = len(t.chunk)
		return
	}
	// the quote is buffered tentatively; it is dropped if it closes the field
	t.data = append(t.data, rest[:i+1]...)
	t.stepAll(rest[:i+1])
	t.pos += i + 1
	t.spaces = 0
	t.state = stateQuoteSeen
}

// scanPlain consumes a run of ordinary bytes inside an unquoted field.
func (t *Tokenizer) scanPlain() {
	end := t.pos
	for end < len(t.chunk) && t.class[t.chunk[end]] == classOther {
		end++
	}
	if end > t.pos {
		t.data = append(t.data, t.chunk[t.pos:end]...)
		t.col += end - t.pos
		t.pos = end
	}
}

// finish flushes the record pending at end of input.
func (t *Tokenizer) finish() ([]Field, error) {
	switch t.state {
	case stateRowStart:
		return nil, io.EOF
	case stateUnquoted:
		t.trim(t.spaces)
	case stateQuoteSeen:
		t.trim(t.spaces + 1)
	case stateQuoted:
		if !t.opts.Lenient {
			t.err = &ParseError{StartLine: t.startLine, Line: t.line, Column: t.col, Err: ErrUnterminatedQuote}
			return nil, t.err
		}
		t.warn("unterminated quoted field at end of input; keeping its content")
	}
	t.endField()
	return t.record(), nil
}

// malformed handles a quote that neither escapes nor closes the field.
func (t *Tokenizer) malformed() error {
	if !t.opts.Lenient {
		return &ParseError{StartLine: t.startLine, Line: t.line, Column: t.col, Err: ErrQuote}
	}
	t.warn(fmt.Sprintf("column %d: %v; treating the quote as content", t.col, ErrQuote))
	return nil
}

func (t *Tokenizer) warn(message string) {
	if t.opts.OnWarning != nil {
		t.opts.OnWarning(t.line, message)
	}
}

// beginRow records where the current record started.
func (t *Tokenizer) beginRow() {
	if t.state == stateRowStart {
		t.startLine = t.line
	}
}

// step advances the position counters over one consumed byte.
func (t *Tokenizer) step(c byte) {
	if c == '\n' {
		t.line++
		t.col = 0
		return
	}
	t.col++
}

func (t *Tokenizer) stepAll(b []byte) {
	n := bytes.Count(b, []byte{'\n'})
	if n == 0 {
		t.col += len(b)
		return
	}
	t.line += n
	t.col = len(b) - 1 - bytes.LastIndexByte(b, '\n')
}

// trim drops the last n buffered bytes of the current field.
func (t *Tokenizer) trim(n int) {
	t.data = t.data[:len(t.data)-n]
}

func (t *Tokenizer) endField() {
	t.bounds = append(t.bounds, t.fieldStart, len(t.data))
	t.quoted = append(t.quoted, t.fieldQuoted)
	t.fieldStart = len(t.data)
	t.fieldQuoted = false
	t.spaces = 0
}

// record materialises the completed fields and resets the machine for the next record.
func (t *Tokenizer) record() []Field {
	n := len(t.quoted)
	t.fields = t.fields[:0]
	for i := 0; i < n; i++ {
		start, end := t.bounds[2*i], t.bounds[2*i+1]
		t.fields = append(t.fields, Field{Data: t.data[start:end:end], Quoted: t.quoted[i]})
	}
	t.state = stateRowStart
	return t.fields
}
