package csv

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// HeaderMode decides how the first line of named-column input is used.
type HeaderMode uint8

const (
	// HeaderUse takes column names from the first line, which is not emitted.
	HeaderUse HeaderMode = iota
	// HeaderSkip drops the first line and names columns "0", "1", ...
	HeaderSkip
	// HeaderNone names columns "0", "1", ... and treats the first line as data.
	HeaderNone
)

var headerModeNames = [...]string{HeaderUse: "use", HeaderSkip: "skip", HeaderNone: "none"}

// String returns the string representation of HeaderMode.
func (m HeaderMode) String() string {
	if int(m) < len(headerModeNames) {
		return headerModeNames[m]
	}
	return fmt.Sprintf("HeaderMode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m HeaderMode) MarshalText() ([]byte, error) {
	if int(m) >= len(headerModeNames) {
		return nil, fmt.Errorf("invalid header mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *HeaderMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "use", "true":
		*m = HeaderUse
	case "skip":
		*m = HeaderSkip
	case "none", "false":
		*m = HeaderNone
	default:
		return fmt.Errorf("unknown header mode %q", text)
	}
	return nil
}

// ColumnOptions configures a column by header name.
type ColumnOptions struct {
	// Type is the conversion. Default: TypeString
	Type ColumnType `yaml:"type" json:"type"`
	// Alias renames the column in hash rows. Default: the header name
	Alias string `yaml:"alias" json:"alias"`
	// Default replaces a nil or empty converted value.
	Default any `yaml:"default" json:"default"`
	// Match keeps only rows whose value is one of these.
	Match Values `yaml:"match" json:"match"`
	// NotMatch drops rows whose value is one of these.
	NotMatch Values `yaml:"not_match" json:"not_match"`
}

// Options is the named-column form of Config. Columns are addressed by
// header name (or by "0", "1", ... when the input has no header line) and
// compiled into a positional Config once the header is known.
type Options struct {
	// ColumnSeparator is the field separator; only its first byte is used.
	// Default: ","
	ColumnSeparator string `yaml:"column_separator" json:"column_separator"`
	// Quote is the quote character; only its first byte is used.
	// Default: "\""
	Quote string `yaml:"quote" json:"quote"`
	// OffsetRows skips data rows after the header line.
	OffsetRows int `yaml:"offset_rows" json:"offset_rows"`
	// Nostrict enables lenient recovery from malformed quoting.
	Nostrict bool `yaml:"nostrict" json:"nostrict"`
	// BufferSize is the read chunk size. Default: 1 MiB
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
	// EmptyFields is the empty field policy for string columns.
	EmptyFields EmptyFieldPolicy `yaml:"empty_fields" json:"empty_fields"`
	// Encoding is the declared character set attached to rows.
	Encoding string `yaml:"encoding" json:"encoding"`
	// Header selects how the first line is used. Default: HeaderUse
	Header HeaderMode `yaml:"header" json:"header"`
	// RowAsHash produces rows keyed by alias or header name.
	RowAsHash bool `yaml:"row_as_hash" json:"row_as_hash"`
	// OnlyListedColumns skips every column not named in Columns.
	OnlyListedColumns bool `yaml:"only_listed_columns" json:"only_listed_columns"`
	// Columns configures columns by header name.
	Columns map[string]ColumnOptions `yaml:"columns" json:"columns"`

	// OnWarning, if set, receives every lenient-mode recovery.
	OnWarning WarningHandler `yaml:"-" json:"-"`
}

// baseConfig carries over everything that does not depend on the header.
func (o Options) baseConfig() Config {
	cfg := DefaultConfig()
	if o.ColumnSeparator != "" {
		cfg.Comma = o.ColumnSeparator[0]
	}
	if o.Quote != "" {
		cfg.Quote = o.Quote[0]
	}
	if o.BufferSize != 0 {
		cfg.ChunkSize = o.BufferSize
	}
	cfg.OffsetRows = o.OffsetRows
	cfg.Lenient = o.Nostrict
	cfg.EmptyFields = o.EmptyFields
	cfg.Encoding = o.Encoding
	cfg.OnWarning = o.OnWarning
	return cfg
}

// checkColumns validates the per-column settings that do not depend on the
// header, so they fail before any input is read.
func (o Options) checkColumns() error {
	names := make([]string, 0, len(o.Columns))
	for name := range o.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if typ := o.Columns[name].Type; typ > TypeSkip {
			return &ConfigError{Option: fmt.Sprintf("Columns[%q].Type", name), Message: fmt.Sprintf("unknown column type %d", typ)}
		}
	}
	return nil
}

// Compile turns the named options into a positional Config for the given
// header cells. A listed column missing from the header is a ConfigError.
func (o Options) Compile(header []string) (Config, error) {
	if err := o.checkColumns(); err != nil {
		return Config{}, err
	}
	cfg := o.baseConfig()
	cfg.AsHash = o.RowAsHash
	cfg.Columns = make([]ColumnSpec, len(header))

	seen := make(map[string]bool, len(header))
	for i, name := range header {
		seen[name] = true
		co, listed := o.Columns[name]
		switch {
		case listed:
			alias := co.Alias
			if alias == "" {
				alias = name
			}
			cfg.Columns[i] = ColumnSpec{
				Type:    co.Type,
				Default: co.Default,
				Only:    co.Match,
				Except:  co.NotMatch,
				Name:    alias,
			}
		case o.OnlyListedColumns:
			cfg.Columns[i] = ColumnSpec{Type: TypeSkip}
		default:
			cfg.Columns[i] = ColumnSpec{Type: TypeString, Name: name}
		}
	}

	var missing []string
	for name := range o.Columns {
		if !seen[name] {
			missing = append(missing, strconv.Quote(name))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfg, &ConfigError{Option: "Columns", Message: "not in header: " + strings.Join(missing, ", ")}
	}
	return cfg, nil
}

// NewNamedScanner creates a Scanner for named-column options. The header line
// is read with the same tokenizer as the data, so quoted header cells work and
// no input is read twice. Configuration errors are reported by Err.
func NewNamedScanner(r io.Reader, opts Options) *Scanner {
	if opts.Header > HeaderNone {
		return failedScanner(&ConfigError{Option: "Header", Message: fmt.Sprintf("unknown mode %d", opts.Header)})
	}
	base, err := opts.baseConfig().resolve()
	if err != nil {
		return failedScanner(err)
	}
	if err := opts.checkColumns(); err != nil {
		return failedScanner(err)
	}

	tok := tokenizer.New(r, base.tokenizerOptions())
	first, err := tok.Next()
	if err == io.EOF {
		tok.Close()
		return &Scanner{done: true, index: -1}
	}
	if err != nil {
		tok.Close()
		return failedScanner(err)
	}

	var header []string
	if opts.Header == HeaderUse {
		header = make([]string, len(first))
		for i, f := range first {
			header[i] = string(f.Data)
		}
	} else {
		header = make([]string, len(first))
		for i := range first {
			header[i] = strconv.Itoa(i)
		}
	}

	cfg, err := opts.Compile(header)
	if err == nil {
		cfg, err = cfg.resolve()
	}
	if err != nil {
		tok.Close()
		return failedScanner(err)
	}

	sc := newScanner(tok, cfg)
	if opts.Header == HeaderNone {
		sc.pending = first
	}
	return sc
}

// ParseNamed parses r with named-column options and returns the surviving rows.
//
// Example:
//
//	rows, err := csv.ParseNamed(file, csv.Options{
//	    RowAsHash: true,
//	    Columns: map[string]csv.ColumnOptions{
//	        "b": {Type: csv.TypeInt, Alias: "B"},
//	    },
//	})
func ParseNamed(r io.Reader, opts Options) ([]Row, error) {
	return collect(NewNamedScanner(r, opts))
}

// StreamNamed is Stream with named-column options.
func StreamNamed(r io.Reader, opts Options, fn func(Row) error) error {
	return feed(NewNamedScanner(r, opts), fn)
}
