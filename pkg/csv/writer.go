package csv

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ColumnFormat configures one output column.
type ColumnFormat struct {
	// Name is the header cell. Unnamed columns get an empty header cell.
	Name string `yaml:"name" json:"name"`

	// Formatter is one of FormatDefault, FormatStrftime, FormatPrintf or
	// FormatBoolean. Ignored when Custom is set.
	Formatter string `yaml:"formatter" json:"formatter"`

	// Format is the strftime layout or printf format.
	Format string `yaml:"format" json:"format"`

	// Custom, if set, formats the column instead of Formatter.
	Custom Formatter `yaml:"-" json:"-"`
}

// WriterOptions configures CSV writing behavior.
type WriterOptions struct {
	// Comma is the field separator.
	// Default: ','
	Comma byte

	// Quote wraps fields that need quoting; embedded quotes are doubled.
	// Default: '"'
	Quote byte

	// RecordSeparator terminates every line. It may only hold CR and LF
	// bytes, the only record terminators the parser recognises.
	// Default: "\r\n"
	RecordSeparator string

	// Header writes the column names before the first row.
	// Default: false
	Header bool

	// Columns formats values by position. Values beyond the list use the
	// default formatter.
	Columns []ColumnFormat

	// Extra supplies named values to printf formats.
	Extra map[string]any
}

// DefaultWriterOptions returns the default writer configuration.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Comma:           ',',
		Quote:           '"',
		RecordSeparator: "\r\n",
	}
}

// Validate checks if the writer options are valid.
func (o WriterOptions) Validate() error {
	_, err := NewWriter(o)
	return err
}

// Writer renders rows as CSV text. Output parses back to the written values
// with a Config using the same Comma and Quote.
//
// A field is quoted when it contains the separator, the quote byte or a line
// break, when it starts or ends with a space or tab, and when it is the empty
// string. The last two cases go beyond the minimal rule of quoting only
// separators, quotes and terminators: the parser trims unquoted whitespace and
// reads an unquoted empty field as nil, so without them such values would not
// read back unchanged. Nil values are written as empty unquoted fields, so they
// read back as nil while "" reads back as "".
//
// A Writer holds no buffered output and may be reused, but not concurrently.
type Writer struct {
	opts    WriterOptions
	formats []Formatter
	special [256]bool
	buf     []byte
}

// NewWriter validates opts and compiles the column formatters.
//
// Example:
//
//	w, err := csv.NewWriter(csv.WriterOptions{
//	    Header: true,
//	    Columns: []csv.ColumnFormat{
//	        {Name: "ID"},
//	        {Name: "Date", Formatter: csv.FormatStrftime, Format: "%Y-%m-%d"},
//	        {Name: "Money", Formatter: csv.FormatPrintf, Format: "$%2.2f"},
//	    },
//	})
func NewWriter(opts WriterOptions) (*Writer, error) {
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	if opts.Quote == 0 {
		opts.Quote = '"'
	}
	if opts.RecordSeparator == "" {
		opts.RecordSeparator = "\r\n"
	}

	switch {
	case opts.Comma == '\r' || opts.Comma == '\n':
		return nil, &ConfigError{Option: "Comma", Message: "line terminators cannot separate fields"}
	case opts.Comma == opts.Quote:
		return nil, &ConfigError{Option: "Quote", Message: "quote byte same as separator"}
	case opts.Quote == '\r' || opts.Quote == '\n':
		return nil, &ConfigError{Option: "Quote", Message: "line terminators cannot quote fields"}
	case strings.Trim(opts.RecordSeparator, "\r\n") != "":
		return nil, &ConfigError{Option: "RecordSeparator", Message: fmt.Sprintf("%q is not made of CR and LF bytes", opts.RecordSeparator)}
	}

	w := &Writer{opts: opts, formats: make([]Formatter, len(opts.Columns))}
	for i, col := range opts.Columns {
		if col.Custom != nil {
			w.formats[i] = col.Custom
			continue
		}
		f, err := NewFormatter(col.Formatter, col.Format, opts.Extra)
		if err != nil {
			var cerr *ConfigError
			if errors.As(err, &cerr) {
				cerr.Option = fmt.Sprintf("Columns[%d].%s", i, cerr.Option)
			}
			return nil, err
		}
		w.formats[i] = f
	}

	for _, c := range []byte{opts.Comma, opts.Quote, '\r', '\n'} {
		w.special[c] = true
	}
	return w, nil
}

// GenerateHeader returns the header line, including the record separator.
func (w *Writer) GenerateHeader() string {
	b := make([]byte, 0, 16*len(w.opts.Columns))
	for i, col := range w.opts.Columns {
		if i > 0 {
			b = append(b, w.opts.Comma)
		}
		if col.Name != "" {
			b = w.appendField(b, col.Name)
		}
	}
	return string(append(b, w.opts.RecordSeparator...))
}

// GenerateRow formats and quotes one row, including the record separator.
func (w *Writer) GenerateRow(values []any) (string, error) {
	b, err := w.AppendRow(nil, values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AppendRow appends the formatted row, including the record separator, to dst.
func (w *Writer) AppendRow(dst []byte, values []any) ([]byte, error) {
	for i, v := range values {
		if i > 0 {
			dst = append(dst, w.opts.Comma)
		}
		if v == nil && i >= len(w.formats) {
			continue
		}

		var f Formatter = DefaultFormatter{}
		if i < len(w.formats) {
			f = w.formats[i]
		}
		text, err := f.Format(v)
		if err != nil {
			return dst, fmt.Errorf("csv: column %d: %w", i, err)
		}
		if text == "" && v == nil {
			continue
		}
		dst = w.appendField(dst, text)
	}
	return append(dst, w.opts.RecordSeparator...), nil
}

// Write pulls rows from next and writes them to dst, preceded by the header if
// enabled. next signals exhaustion by returning io.EOF or a nil row. Any other
// error from next or dst is returned unchanged. Each line is handed to dst in a
// single Write call.
//
// Example:
//
//	rows := [][]any{{1, "a"}, {2, "b"}}
//	err := w.Write(os.Stdout, func() ([]any, error) {
//	    if len(rows) == 0 {
//	        return nil, io.EOF
//	    }
//	    row := rows[0]
//	    rows = rows[1:]
//	    return row, nil
//	})
func (w *Writer) Write(dst io.Writer, next func() ([]any, error)) error {
	if w.opts.Header {
		if _, err := io.WriteString(dst, w.GenerateHeader()); err != nil {
			return err
		}
	}

	for {
		values, err := next()
		if err == io.EOF || (err == nil && values == nil) {
			return nil
		}
		if err != nil {
			return err
		}

		w.buf, err = w.AppendRow(w.buf[:0], values)
		if err != nil {
			return err
		}
		if _, err := dst.Write(w.buf); err != nil {
			return err
		}
	}
}

// WriteAll writes the header, if enabled, and every row to dst.
func (w *Writer) WriteAll(dst io.Writer, rows [][]any) error {
	i := 0
	return w.Write(dst, func() ([]any, error) {
		if i == len(rows) {
			return nil, io.EOF
		}
		i++
		if rows[i-1] == nil {
			return []any{}, nil
		}
		return rows[i-1], nil
	})
}

// appendField appends value to b, quoting and escaping it if needed.
// Quotes within quoted fields are escaped by doubling them.
func (w *Writer) appendField(b []byte, value string) []byte {
	if !w.needsQuoting(value) {
		return append(b, value...)
	}

	q := w.opts.Quote
	b = append(b, q)
	for i := 0; i < len(value); i++ {
		if value[i] == q {
			b = append(b, q)
		}
		b = append(b, value[i])
	}
	return append(b, q)
}

func (w *Writer) needsQuoting(value string) bool {
	if value == "" {
		return true
	}
	if isBlank(value[0]) || isBlank(value[len(value)-1]) {
		return true
	}
	for i := 0; i < len(value); i++ {
		if w.special[value[i]] {
			return true
		}
	}
	return false
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
