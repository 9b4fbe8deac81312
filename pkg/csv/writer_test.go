package csv_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapestone/shape-csvcodec/pkg/csv"
)

type symbol string

func (s symbol) String() string { return string(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func reportOptions() csv.WriterOptions {
	opts := csv.DefaultWriterOptions()
	opts.Header = true
	opts.Columns = []csv.ColumnFormat{
		{Name: "ID"},
		{Name: "Date", Formatter: csv.FormatStrftime, Format: "%Y-%m-%d"},
		{Name: "Money", Formatter: csv.FormatPrintf, Format: "$%2.2f"},
		{Name: "Banana IDDQD"},
		{Formatter: csv.FormatBoolean},
	}
	return opts
}

func reportRows() [][]any {
	return [][]any{
		{1, date(2012, 11, 11), 100.234, true, nil},
		{nil, date(1970, 1, 2), -0.1, symbol("nyancat"), 0},
		{3, date(2012, 12, 12), 0, "sepulka", "zoop"},
	}
}

const reportBody = "1,2012-11-11,$100.23,true,false\r\n" +
	",1970-01-02,$-0.10,nyancat,false\r\n" +
	"3,2012-12-12,$0.00,sepulka,true\r\n"

func TestWriter_GenerateHeader(t *testing.T) {
	w, err := csv.NewWriter(reportOptions())
	require.NoError(t, err)
	assert.Equal(t, "ID,Date,Money,Banana IDDQD,\r\n", w.GenerateHeader())
}

func TestWriter_GenerateRow(t *testing.T) {
	w, err := csv.NewWriter(reportOptions())
	require.NoError(t, err)

	line, err := w.GenerateRow(reportRows()[0])
	require.NoError(t, err)
	assert.Equal(t, "1,2012-11-11,$100.23,true,false\r\n", line)
}

func TestWriter_Write(t *testing.T) {
	tests := []struct {
		name   string
		header bool
		want   string
	}{
		{"with header", true, "ID,Date,Money,Banana IDDQD,\r\n" + reportBody},
		{"without header", false, reportBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := reportOptions()
			opts.Header = tt.header
			w, err := csv.NewWriter(opts)
			require.NoError(t, err)

			rows := reportRows()
			var buf bytes.Buffer
			err = w.Write(&buf, func() ([]any, error) {
				if len(rows) == 0 {
					return nil, nil
				}
				row := rows[0]
				rows = rows[1:]
				return row, nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_WriteAll(t *testing.T) {
	w, err := csv.NewWriter(reportOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.WriteAll(&buf, reportRows()))
	assert.Equal(t, "ID,Date,Money,Banana IDDQD,\r\n"+reportBody, buf.String())
}

func TestWriter_Quoting(t *testing.T) {
	w, err := csv.NewWriter(csv.DefaultWriterOptions())
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []any
		want string
	}{
		{"plain", []any{"a", "b"}, "a,b\r\n"},
		{"separator", []any{"a,b"}, "\"a,b\"\r\n"},
		{"quote", []any{`say "hi"`}, "\"say \"\"hi\"\"\"\r\n"},
		{"newline", []any{"x\ny"}, "\"x\ny\"\r\n"},
		{"carriage return", []any{"x\ry"}, "\"x\ry\"\r\n"},
		{"leading space", []any{" a"}, "\" a\"\r\n"},
		{"trailing tab", []any{"a\t"}, "\"a\t\"\r\n"},
		{"inner space", []any{"a b"}, "a b\r\n"},
		{"empty string", []any{"", "x"}, "\"\",x\r\n"},
		{"nil", []any{nil, "x", nil}, ",x,\r\n"},
		{"numbers", []any{42, int64(-7), 2.5, 1e21, float32(0.25)}, "42,-7,2.5,1e+21,0.25\r\n"},
		{"bool", []any{true, false}, "true,false\r\n"},
		{"only nil", []any{nil}, "\r\n"},
		{"empty row", []any{}, "\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.GenerateRow(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_CustomDialect(t *testing.T) {
	w, err := csv.NewWriter(csv.WriterOptions{
		Comma:           ';',
		Quote:           '\'',
		RecordSeparator: "\n",
		Header:          true,
		Columns:         []csv.ColumnFormat{{Name: "a;b"}, {Name: "c"}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, w.WriteAll(&buf, [][]any{{"it's", "x,y"}}))
	assert.Equal(t, "'a;b';c\n'it''s';x,y\n", buf.String())
}

func TestWriter_RecordSeparators(t *testing.T) {
	for _, sep := range []string{"\n", "\r", "\r\n", "\n\n"} {
		w, err := csv.NewWriter(csv.WriterOptions{RecordSeparator: sep})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, w.WriteAll(&buf, [][]any{{"a", "b"}, {"c", "d"}}))

		rows, err := csv.ParseString(buf.String(), csv.DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, [][]any{{"a", "b"}, {"c", "d"}}, values(rows), "%q", sep)
	}
}

func TestWriter_CustomFormatter(t *testing.T) {
	upper := csv.FormatterFunc(func(v any) (string, error) {
		s, _ := v.(string)
		return strings.ToUpper(s), nil
	})
	w, err := csv.NewWriter(csv.WriterOptions{
		Columns: []csv.ColumnFormat{{Formatter: "ignored", Custom: upper}},
	})
	require.NoError(t, err)

	line, err := w.GenerateRow([]any{"shout", "quiet"})
	require.NoError(t, err)
	assert.Equal(t, "SHOUT,quiet\r\n", line)
}

func TestNewWriter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		opts   csv.WriterOptions
		option string
	}{
		{"newline separator", csv.WriterOptions{Comma: '\n'}, "Comma"},
		{"quote equals separator", csv.WriterOptions{Comma: '|', Quote: '|'}, "Quote"},
		{"newline quote", csv.WriterOptions{Quote: '\r'}, "Quote"},
		{"separator in record separator", csv.WriterOptions{Comma: ';', RecordSeparator: ";\n"}, "RecordSeparator"},
		{"record separator without line break", csv.WriterOptions{RecordSeparator: "|"}, "RecordSeparator"},
		{"record separator with trailing text", csv.WriterOptions{RecordSeparator: "\n#"}, "RecordSeparator"},
		{"unknown formatter", csv.WriterOptions{Columns: []csv.ColumnFormat{{}, {Formatter: "money"}}}, "Columns[1].Formatter"},
		{"bad printf", csv.WriterOptions{Columns: []csv.ColumnFormat{{Formatter: csv.FormatPrintf, Format: "%q"}}}, "Columns[0].Format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := csv.NewWriter(tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, csv.ErrInvalidConfig)

			var cerr *csv.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.option, cerr.Option)
			assert.Error(t, tt.opts.Validate())
		})
	}
}

func TestWriter_FormatError(t *testing.T) {
	w, err := csv.NewWriter(csv.WriterOptions{
		Columns: []csv.ColumnFormat{{Formatter: csv.FormatStrftime}},
	})
	require.NoError(t, err)

	_, err = w.GenerateRow([]any{"not a time"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 0")
}

func TestWriter_SourceAndSinkErrors(t *testing.T) {
	w, err := csv.NewWriter(reportOptions())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = w.Write(io.Discard, func() ([]any, error) { return nil, boom })
	assert.Same(t, boom, err)

	err = w.Write(failingWriter{boom}, func() ([]any, error) { return nil, io.EOF })
	assert.Same(t, boom, err)
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriter_RoundTrip(t *testing.T) {
	w, err := csv.NewWriter(csv.DefaultWriterOptions())
	require.NoError(t, err)

	rows := [][]any{
		{"plain", "", nil, " padded ", "a,b", "q\"q", "multi\r\nline"},
		{"\t", "x", "y", "z", "", "", ""},
	}
	var buf bytes.Buffer
	require.NoError(t, w.WriteAll(&buf, rows))

	parsed, err := csv.ParseString(buf.String(), csv.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, rows, values(parsed))
}
