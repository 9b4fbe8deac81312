package csv

import (
	"io"
	"iter"

	"github.com/shapestone/shape-csvcodec/internal/pipeline"
	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// Scanner provides a streaming interface for reading CSV rows one at a time.
// Input is read in chunks of Config.ChunkSize as rows are requested, so memory
// use is bounded by the largest record, not the input size. A slow consumer
// throttles the read: nothing is tokenized ahead of the current row.
//
// Example usage:
//
//	file, _ := os.Open("data.csv")
//	defer file.Close()
//
//	scanner := csv.NewScanner(file, csv.DefaultConfig())
//	defer scanner.Close()
//	for scanner.Scan() {
//	    row := scanner.Row()
//	    fmt.Println(row.Values)
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	tok      *tokenizer.Tokenizer
	pipe     *pipeline.Pipeline
	encoding string
	row      Row
	index    int
	err      error
	done     bool

	// pending is a record already read from tok that has not been through pipe.
	pending []tokenizer.Field
}

// NewScanner creates a Scanner that reads CSV from r.
//
// An invalid cfg is reported by Err after the first call to Scan, before
// any byte of r is read.
func NewScanner(r io.Reader, cfg Config) *Scanner {
	cfg, err := cfg.resolve()
	if err != nil {
		return failedScanner(err)
	}
	return newScanner(tokenizer.New(r, cfg.tokenizerOptions()), cfg)
}

func newScanner(tok *tokenizer.Tokenizer, cfg Config) *Scanner {
	return &Scanner{
		tok:      tok,
		pipe:     pipeline.New(cfg.pipelineConfig()),
		encoding: cfg.Encoding,
		index:    -1,
	}
}

func failedScanner(err error) *Scanner {
	return &Scanner{err: err, done: true, index: -1}
}

// Scan advances the scanner to the next row that survives the offset and the
// filters. It returns false when there are no more rows or an error occurs.
// After Scan returns false, the Err method will return any error that occurred.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}

	for {
		fields := s.pending
		s.pending = nil
		if fields == nil {
			var err error
			fields, err = s.tok.Next()
			if err != nil {
				if err != io.EOF {
					s.err = err
				}
				s.Close()
				return false
			}
		}

		res, ok := s.pipe.Process(fields)
		if !ok {
			continue
		}
		s.index++
		s.row = Row{Values: res.Values, Hash: res.Hash, Encoding: s.encoding}
		return true
	}
}

// Row returns the current row.
// This should only be called after Scan() returns true. The row is not reused
// by later calls and may be retained.
func (s *Scanner) Row() Row {
	return s.row
}

// Index returns the 0-based position of the current row among emitted rows.
func (s *Scanner) Index() int {
	return s.index
}

// Err returns the error, if any, that was encountered during scanning.
// It returns nil if no error occurred or at EOF.
func (s *Scanner) Err() error {
	return s.err
}

// Close releases the read buffer. It is called automatically when Scan
// returns false and is safe to call more than once.
func (s *Scanner) Close() {
	s.done = true
	if s.tok != nil {
		s.tok.Close()
		s.tok = nil
	}
}

// All returns an iterator over the remaining rows, keyed by row index.
// Breaking out of the loop closes the scanner. Check Err afterwards.
//
// Example:
//
//	sc := csv.NewScanner(r, cfg)
//	for i, row := range sc.All() {
//	    fmt.Println(i, row.Values)
//	}
//	if err := sc.Err(); err != nil {
//	    // handle error
//	}
func (s *Scanner) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		defer s.Close()
		for s.Scan() {
			if !yield(s.index, s.row) {
				return
			}
		}
	}
}
