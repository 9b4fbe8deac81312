package csv

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// DefaultSniffBytes is the sample size read by SniffReader when none is given.
const DefaultSniffBytes = 16 << 10

// sniffRecords bounds the number of sample records examined.
const sniffRecords = 32

// Dialect is the separator and header layout guessed from a sample.
type Dialect struct {
	Comma     byte
	HasHeader bool
}

// sniffCandidates are tried in order; earlier candidates win ties.
var sniffCandidates = []byte{',', '\t', ';', '|'}

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_ ]*$`)
	datePattern       = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})$`)
)

// Sniff guesses the dialect of sample, which should hold the first few lines
// of the input. The separator is the candidate (comma, tab, semicolon, pipe)
// that splits the sample records into the most columns, with a strong bonus
// for splitting every record into the same number. Quoted separators are not
// counted. A sample with no candidate yields a comma.
//
// Example:
//
//	d := csv.Sniff([]byte("name;qty\nbolt;3\n"))
//	// d.Comma == ';', d.HasHeader == true
func Sniff(sample []byte) Dialect {
	best := Dialect{Comma: ','}
	var bestRecords [][]string
	bestScore := 0

	for _, comma := range sniffCandidates {
		records := sampleRecords(sample, comma)
		if score := consistencyScore(records); score > bestScore {
			best.Comma = comma
			bestScore = score
			bestRecords = records
		}
	}
	if bestRecords == nil {
		bestRecords = sampleRecords(sample, best.Comma)
	}

	best.HasHeader = looksLikeHeader(bestRecords)
	return best
}

// SniffReader reads up to n bytes of r (DefaultSniffBytes if n <= 0), guesses
// the dialect, and returns a reader that yields the whole input, sample included.
func SniffReader(r io.Reader, n int) (Dialect, io.Reader, error) {
	if n <= 0 {
		n = DefaultSniffBytes
	}
	sample := make([]byte, n)
	m, err := io.ReadFull(r, sample)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Dialect{}, nil, err
	}
	sample = sample[:m]
	return Sniff(sample), io.MultiReader(bytes.NewReader(sample), r), nil
}

// Config returns cfg with the sniffed separator.
func (d Dialect) Config(cfg Config) Config {
	cfg.Comma = d.Comma
	return cfg
}

// Options returns opts with the sniffed separator and header mode.
func (d Dialect) Options(opts Options) Options {
	opts.ColumnSeparator = string(d.Comma)
	if d.HasHeader {
		opts.Header = HeaderUse
	} else {
		opts.Header = HeaderNone
	}
	return opts
}

// sampleRecords tokenizes sample leniently. A final record without a line
// terminator may be cut off, so it is dropped unless it is the only one.
func sampleRecords(sample []byte, comma byte) [][]string {
	tok := tokenizer.New(bytes.NewReader(sample), tokenizer.Options{
		Comma:     comma,
		Quote:     '"',
		Lenient:   true,
		ChunkSize: len(sample) + 1,
	})
	defer tok.Close()

	var records [][]string
	for len(records) < sniffRecords {
		fields, err := tok.Next()
		if err != nil {
			break
		}
		rec := make([]string, len(fields))
		for i, f := range fields {
			rec[i] = string(f.Data)
		}
		records = append(records, rec)
	}

	complete := len(sample) > 0 && (sample[len(sample)-1] == '\n' || sample[len(sample)-1] == '\r')
	if !complete && len(records) > 1 && len(records) < sniffRecords {
		records = records[:len(records)-1]
	}
	return records
}

// consistencyScore rewards many columns, ten times over when every record
// has the same width.
func consistencyScore(records [][]string) int {
	if len(records) == 0 || len(records[0]) < 2 {
		return 0
	}
	width := len(records[0])
	for _, rec := range records[1:] {
		if len(rec) != width {
			return width - 1
		}
	}
	return (width - 1) * 10
}

// looksLikeHeader compares the first record against the next: header cells
// read like names, data cells like numbers, dates or addresses.
func looksLikeHeader(records [][]string) bool {
	if len(records) < 2 {
		return false
	}

	headerScore, dataScore := 0, 0
	for i, cell := range records[0] {
		cell = strings.TrimSpace(cell)
		switch {
		case isLikelyData(cell):
			dataScore++
		case identifierPattern.MatchString(cell):
			headerScore++
			if i < len(records[1]) && isLikelyData(strings.TrimSpace(records[1][i])) {
				headerScore++
			}
		}
	}
	return headerScore > dataScore
}

func isLikelyData(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return strings.Contains(s, "@") || datePattern.MatchString(s)
}
