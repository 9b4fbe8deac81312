package csv_test

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shapestone/shape-csvcodec/pkg/csv"
)

// values flattens positional rows for comparison.
func values(rows []csv.Row) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values
	}
	return out
}

func columns(t *testing.T, conversions string) []csv.ColumnSpec {
	t.Helper()
	cols, err := csv.ColumnsFromConversions(conversions)
	require.NoError(t, err)
	return cols
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		cfg   func(*csv.Config)
		want  [][]any
	}{
		{
			name:  "plain strings",
			input: "a,b,c\nd,e,f\n",
			want:  [][]any{{"a", "b", "c"}, {"d", "e", "f"}},
		},
		{
			name:  "no trailing newline",
			input: "a,b\nc,d",
			want:  [][]any{{"a", "b"}, {"c", "d"}},
		},
		{
			name:  "empty input",
			input: "",
			want:  [][]any{},
		},
		{
			name:  "empty field forms",
			input: `,"",,   ,,` + "\n",
			want:  [][]any{{nil, "", nil, nil, nil, nil}},
		},
		{
			name:  "doubled quote",
			input: `""""` + "\n",
			want:  [][]any{{`"`}},
		},
		{
			name:  "embedded separators and line breaks",
			input: "\"a,b\",\"c\nd\",\"e\"\"f\"\n",
			want:  [][]any{{"a,b", "c\nd", `e"f`}},
		},
		{
			name:  "whitespace trimmed around unquoted fields",
			input: "  a  ,\tb\t, \" c \" \n",
			want:  [][]any{{"a", "b", " c "}},
		},
		{
			name:  "blank lines produce no row",
			input: "a\n\n   \n\r\nb\n",
			want:  [][]any{{"a"}, {"b"}},
		},
		{
			name:  "CR and CRLF terminators",
			input: "a,b\r\nc,d\re,f",
			want:  [][]any{{"a", "b"}, {"c", "d"}, {"e", "f"}},
		},
		{
			name:  "ragged rows",
			input: "a\nb,c,d\ne,f\n",
			want:  [][]any{{"a"}, {"b", "c", "d"}, {"e", "f"}},
		},
		{
			name:  "conversions",
			input: "x,42,3.5,t,skipped,7\n",
			cfg: func(c *csv.Config) {
				c.Columns, _ = csv.ColumnsFromConversions("sifb ")
			},
			want: [][]any{{"x", int64(42), 3.5, true, "7"}},
		},
		{
			name:  "typed empty fields are nil",
			input: "\"\",,\"\"\n",
			cfg: func(c *csv.Config) {
				c.Columns, _ = csv.ColumnsFromConversions("ifb")
			},
			want: [][]any{{nil, nil, nil}},
		},
		{
			name:  "bool falsy tokens",
			input: "0,f,F,false,FALSE,no,1,true\n",
			cfg: func(c *csv.Config) {
				c.Columns, _ = csv.ColumnsFromConversions("bbbbbbbb")
			},
			want: [][]any{{false, false, false, false, false, true, true, true}},
		},
		{
			name:  "custom separator and quote",
			input: "'a;b';c\n",
			cfg: func(c *csv.Config) {
				c.Comma = ';'
				c.Quote = '\''
			},
			want: [][]any{{"a;b", "c"}},
		},
		{
			name:  "tab separator keeps tabs significant",
			input: "a\t\tb\n",
			cfg: func(c *csv.Config) {
				c.Comma = '\t'
			},
			want: [][]any{{"a", nil, "b"}},
		},
		{
			name:  "empty policy nil",
			input: `"",` + "\n",
			cfg: func(c *csv.Config) {
				c.EmptyFields = csv.EmptyNil
			},
			want: [][]any{{nil, nil}},
		},
		{
			name:  "empty policy string",
			input: `"",` + "\n",
			cfg: func(c *csv.Config) {
				c.EmptyFields = csv.EmptyString
			},
			want: [][]any{{"", ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := csv.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			rows, err := csv.ParseString(tt.input, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(rows))
		})
	}
}

func TestParse_ChunkSizeInvariance(t *testing.T) {
	input := "id,name,note\n" +
		"1,\"Smith, J\",\"said \"\"hi\"\"\"\r\n" +
		"2,  spaced  ,\"multi\nline\"\n" +
		"\n" +
		"3,,\"\"\n" +
		"4,last,\"x\"  \n"

	cfg := csv.DefaultConfig()
	cfg.Columns = columns(t, "iss")
	want, err := csv.ParseString(input, cfg)
	require.NoError(t, err)
	require.Len(t, want, 5)

	for size := 1; size <= len(input)+1; size++ {
		cfg.ChunkSize = size
		got, err := csv.ParseString(input, cfg)
		require.NoError(t, err, "chunk size %d", size)
		assert.Equal(t, want, got, "chunk size %d", size)
	}
}

func TestParse_ShortReads(t *testing.T) {
	input := "a,\"b\nc\",d\n1,2,3\n"
	want, err := csv.ParseString(input, csv.DefaultConfig())
	require.NoError(t, err)

	readers := map[string]io.Reader{
		"one byte": iotest.OneByteReader(strings.NewReader(input)),
		"half":     iotest.HalfReader(strings.NewReader(input)),
		"data err": iotest.DataErrReader(strings.NewReader(input)),
	}
	for name, r := range readers {
		t.Run(name, func(t *testing.T) {
			got, err := csv.Parse(r, csv.DefaultConfig())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParse_IntegerColumn(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Columns = []csv.ColumnSpec{{Type: csv.TypeInt, Default: int64(-1)}}

	rows, err := csv.ParseString("42\n foo \n\"\"\n 7 \n", cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(42)}, {int64(-1)}, {int64(-1)}, {int64(7)}}, values(rows))
}

func TestParse_FloatColumn(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Columns = columns(t, "f")

	rows, err := csv.ParseString("1.5\n-2e3\n12\nNaN\nabc\n", cfg)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, 1.5, rows[0].Values[0])
	assert.Equal(t, -2000.0, rows[1].Values[0])
	assert.Equal(t, 12.0, rows[2].Values[0])
	assert.True(t, math.IsNaN(rows[3].Values[0].(float64)))
	assert.Nil(t, rows[4].Values[0])
}

func TestParse_Offset(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.OffsetRows = 2

	rows, err := csv.ParseString("h1\nh2\na\nb\n", cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a"}, {"b"}}, values(rows))

	cfg.OffsetRows = 10
	rows, err = csv.ParseString("a\nb\n", cfg)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParse_OffsetCountsFilteredRows(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.OffsetRows = 1
	cfg.Columns = []csv.ColumnSpec{{Only: []any{"keep"}}}

	rows, err := csv.ParseString("keep\ndrop\nkeep\n", cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"keep"}}, values(rows))
}

func TestParse_Filters(t *testing.T) {
	input := "apple,GBP,3\npear,USD,4\nplum,EUR,\nfig,GBP,9\n"

	tests := []struct {
		name string
		cols []csv.ColumnSpec
		want [][]any
	}{
		{
			name: "only",
			cols: []csv.ColumnSpec{{}, {Only: []any{"GBP"}}},
			want: [][]any{{"apple", "GBP", "3"}, {"fig", "GBP", "9"}},
		},
		{
			name: "except",
			cols: []csv.ColumnSpec{{}, {Except: []any{"GBP", "EUR"}}},
			want: [][]any{{"pear", "USD", "4"}},
		},
		{
			name: "on converted value",
			cols: []csv.ColumnSpec{{}, {}, {Type: csv.TypeInt, Only: []any{3, 9}}},
			want: [][]any{{"apple", "GBP", int64(3)}, {"fig", "GBP", int64(9)}},
		},
		{
			name: "integral float matches int",
			cols: []csv.ColumnSpec{{}, {}, {Type: csv.TypeInt, Only: []any{4.0}}},
			want: [][]any{{"pear", "USD", int64(4)}},
		},
		{
			name: "nil matches missing value",
			cols: []csv.ColumnSpec{{}, {}, {Type: csv.TypeInt, Only: []any{nil}}},
			want: [][]any{{"plum", "EUR", nil}},
		},
		{
			name: "after default",
			cols: []csv.ColumnSpec{{}, {}, {Type: csv.TypeInt, Default: int64(0), Except: []any{0}}},
			want: [][]any{{"apple", "GBP", int64(3)}, {"pear", "USD", int64(4)}, {"fig", "GBP", int64(9)}},
		},
		{
			name: "only and except together",
			cols: []csv.ColumnSpec{{Except: []any{"apple"}}, {Only: []any{"GBP"}}},
			want: [][]any{{"fig", "GBP", "9"}},
		},
		{
			name: "filter on skipped column is ignored",
			cols: []csv.ColumnSpec{{}, {Type: csv.TypeSkip, Only: []any{"nothing"}}},
			want: [][]any{{"apple", "3"}, {"pear", "4"}, {"plum", nil}, {"fig", "9"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := csv.DefaultConfig()
			cfg.Columns = tt.cols
			rows, err := csv.ParseString(input, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, values(rows))
		})
	}
}

func TestParse_FilterOnAbsentColumn(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Columns = []csv.ColumnSpec{{}, {Only: []any{"x"}}}

	// the second column is missing from the short row, so its filter is not evaluated
	rows, err := csv.ParseString("a,x\nb\nc,y\n", cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a", "x"}, {"b"}}, values(rows))
}

func TestParse_Defaults(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Columns = []csv.ColumnSpec{
		{Default: "n/a"},
		{Type: csv.TypeFloat, Default: 0.0},
		{Type: csv.TypeBool, Default: false},
	}

	rows, err := csv.ParseString(",,\n\"\",1.5,t\n", cfg)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"n/a", 0.0, false},
		{"n/a", 1.5, true},
	}, values(rows))
}

func TestParse_Hash(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.AsHash = true
	cfg.Columns = []csv.ColumnSpec{
		{Name: "name"},
		{Type: csv.TypeSkip, Name: "ignored"},
		{Type: csv.TypeInt, Name: "age"},
		{},
	}

	rows, err := csv.ParseString("ann,x,41,extra,more\nbob\n", cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].IsHash())
	assert.Nil(t, rows[0].Values)
	assert.Equal(t, map[string]any{"name": "ann", "age": int64(41)}, rows[0].Hash)
	assert.Equal(t, map[string]any{"name": "bob"}, rows[1].Hash)

	v, ok := rows[0].GetByName("age")
	assert.True(t, ok)
	assert.Equal(t, int64(41), v)
	_, ok = rows[0].GetByName("ignored")
	assert.False(t, ok)
}

func TestParse_ErrorsAbortStrict(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
		line   int
		column int
	}{
		{"stray quote", "a,b\n\"c\"d,e\n", csv.ErrQuote, 2, 4},
		{"unterminated", "a\n\"open\n", csv.ErrUnterminatedQuote, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := csv.ParseString(tt.input, csv.DefaultConfig())
			require.Error(t, err)
			assert.Nil(t, rows)
			assert.ErrorIs(t, err, tt.target)

			var perr *csv.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			if tt.target == csv.ErrQuote {
				assert.Equal(t, tt.column, perr.Column)
			}
		})
	}
}

func TestParse_Lenient(t *testing.T) {
	var warnings []int
	cfg := csv.DefaultConfig()
	cfg.Lenient = true
	cfg.OnWarning = func(line int, message string) {
		warnings = append(warnings, line)
	}

	rows, err := csv.ParseString("a,b\n\"c\"d,e\n", cfg)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []any{"a", "b"}, rows[0].Values)
	assert.NotEmpty(t, warnings)
}

func TestParse_ReaderErrorUnchanged(t *testing.T) {
	boom := errors.New("disk on fire")
	r := io.MultiReader(strings.NewReader("a,b\n"), iotest.ErrReader(boom))

	_, err := csv.Parse(r, csv.DefaultConfig())
	assert.Same(t, boom, err)
}

func TestParseInput(t *testing.T) {
	want := [][]any{{"a", "b"}}

	for name, input := range map[string]any{
		"string": "a,b\n",
		"bytes":  []byte("a,b\n"),
		"reader": strings.NewReader("a,b\n"),
	} {
		t.Run(name, func(t *testing.T) {
			rows, err := csv.ParseInput(input, csv.DefaultConfig())
			require.NoError(t, err)
			assert.Equal(t, want, values(rows))
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := csv.ParseInput(42, csv.DefaultConfig())
		assert.ErrorIs(t, err, csv.ErrInvalidConfig)
		assert.ErrorIs(t, err, csv.ErrUnsupportedInput)

		err = csv.StreamInput(3.14, csv.DefaultConfig(), func(csv.Row) error { return nil })
		assert.ErrorIs(t, err, csv.ErrUnsupportedInput)
	})
}

func TestParseBytes(t *testing.T) {
	rows, err := csv.ParseBytes([]byte("x,\"y\"\n"), csv.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"x", "y"}}, values(rows))
}

func TestParse_InvalidConfigReadsNothing(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Comma = '"'

	r := &countingReader{r: strings.NewReader("a,b\n")}
	_, err := csv.Parse(r, cfg)
	assert.ErrorIs(t, err, csv.ErrInvalidConfig)
	assert.Zero(t, r.n)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestParse_Encoding(t *testing.T) {
	cfg := csv.DefaultConfig()
	cfg.Encoding = "utf-8"

	rows, err := csv.ParseString("é\n", cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "UTF-8", rows[0].Encoding)
	assert.Equal(t, "é", rows[0].Values[0])

	cfg.Encoding = "klingon-8"
	_, err = csv.ParseString("a\n", cfg)
	var cerr *csv.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Encoding", cerr.Option)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	content := "id,amount\n1,10.5\n2,\n"

	plain := filepath.Join(dir, "plain.csv")
	require.NoError(t, os.WriteFile(plain, []byte(content), 0o600))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	compressed := filepath.Join(dir, "data.csv.gz")
	require.NoError(t, os.WriteFile(compressed, gz.Bytes(), 0o600))

	cfg := csv.DefaultConfig()
	cfg.OffsetRows = 1
	cfg.Columns = columns(t, "if")
	want := [][]any{{int64(1), 10.5}, {int64(2), nil}}

	for _, path := range []string{plain, compressed} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			rows, err := csv.ParseFile(path, cfg)
			require.NoError(t, err)
			assert.Equal(t, want, values(rows))

			var streamed [][]any
			err = csv.StreamFile(path, cfg, func(row csv.Row) error {
				streamed = append(streamed, row.Values)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, want, streamed)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := csv.ParseFile(filepath.Join(dir, "nope.csv"), cfg)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(empty, nil, 0o600))
		rows, err := csv.ParseFile(empty, csv.DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestRow_Accessors(t *testing.T) {
	row := csv.Row{Values: []any{"a", int64(2), nil}}

	assert.False(t, row.IsHash())
	assert.Equal(t, 3, row.Len())

	v, ok := row.Get(1)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)

	_, ok = row.Get(3)
	assert.False(t, ok)
	_, ok = row.Get(-1)
	assert.False(t, ok)

	s, ok := row.Text(0)
	assert.True(t, ok)
	assert.Equal(t, "a", s)
	_, ok = row.Text(1)
	assert.False(t, ok)
	_, ok = row.Text(2)
	assert.False(t, ok)

	_, ok = row.GetByName("a")
	assert.False(t, ok)

	hash := csv.Row{Hash: map[string]any{"k": "v"}}
	assert.True(t, hash.IsHash())
	assert.Equal(t, 1, hash.Len())
	_, ok = hash.Get(0)
	assert.False(t, ok)
}
