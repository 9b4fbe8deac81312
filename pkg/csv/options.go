// Package csv provides configurable options for CSV parsing and writing.
package csv

import (
	"fmt"

	"github.com/shapestone/shape-csvcodec/internal/pipeline"
	"github.com/shapestone/shape-csvcodec/internal/source"
	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// ColumnType selects the conversion applied to a column.
type ColumnType = pipeline.ColumnType

// Column types.
const (
	TypeString = pipeline.String
	TypeInt    = pipeline.Int
	TypeFloat  = pipeline.Float
	TypeBool   = pipeline.Bool
	TypeSkip   = pipeline.Skip
)

// EmptyFieldPolicy decides what an empty field in a string column resolves to.
type EmptyFieldPolicy = pipeline.EmptyPolicy

// Empty field policies.
const (
	// EmptyNilOrString resolves unquoted empty fields to nil and "" to the empty string.
	EmptyNilOrString = pipeline.EmptyNilOrString
	// EmptyNil resolves every empty field to nil.
	EmptyNil = pipeline.EmptyNil
	// EmptyString resolves every empty field to the empty string.
	EmptyString = pipeline.EmptyString
)

// DefaultChunkSize is the default read granularity (1 MiB).
const DefaultChunkSize = source.DefaultChunkSize

// ColumnSpec configures one input column, by position.
type ColumnSpec struct {
	// Type is the conversion. Default: TypeString
	Type ColumnType
	// Default replaces a nil or empty converted value when non-nil.
	Default any
	// Only keeps a row only if this column's converted value is one of these.
	Only []any
	// Except drops a row if this column's converted value is one of these.
	Except []any
	// Name keys the column in hash rows. Unnamed columns are left out of hash rows.
	Name string
}

// Config configures CSV parsing. It is read-only for the duration of a parse
// and may be shared between concurrent parses.
type Config struct {
	// Comma is the field separator.
	// It must not be \r, \n or the quote byte.
	// Default: ','
	Comma byte

	// Quote opens and closes quoted fields; doubled inside a quoted field it
	// stands for itself.
	// Default: '"'
	Quote byte

	// ChunkSize is the number of bytes requested from the source per read.
	// It never affects the parsed rows.
	// Default: DefaultChunkSize
	ChunkSize int

	// OffsetRows is the number of records skipped before the first emitted row.
	// Skipped records are counted before any filtering.
	// Default: 0
	OffsetRows int

	// Lenient downgrades malformed quoting from an error to best-effort recovery.
	// Recovered input may merge several physical records into one field.
	// Default: false (strict)
	Lenient bool

	// EmptyFields is the empty field policy for string columns.
	// Default: EmptyNilOrString
	EmptyFields EmptyFieldPolicy

	// Encoding is the declared character set attached to every row. It is
	// validated against the IANA registry; input bytes are never transcoded.
	// Default: "" (undeclared)
	Encoding string

	// Columns configures conversion, defaults and filters by position.
	// Columns beyond the list are unconstrained strings.
	Columns []ColumnSpec

	// AsHash produces name-keyed rows using the column names.
	// Default: false
	AsHash bool

	// OnWarning, if set, receives every lenient-mode recovery.
	OnWarning WarningHandler
}

// DefaultConfig returns the default parser configuration.
func DefaultConfig() Config {
	return Config{
		Comma:       ',',
		Quote:       '"',
		ChunkSize:   DefaultChunkSize,
		OffsetRows:  0,
		Lenient:     false,
		EmptyFields: EmptyNilOrString,
	}
}

// Validate checks if the configuration is valid.
// Zero Comma, Quote and ChunkSize are accepted and mean their defaults.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

// resolve fills in defaults, validates, and canonicalises the encoding name.
func (c Config) resolve() (Config, error) {
	if c.Comma == 0 {
		c.Comma = ','
	}
	if c.Quote == 0 {
		c.Quote = '"'
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}

	switch {
	case c.Comma == '\r' || c.Comma == '\n':
		return c, &ConfigError{Option: "Comma", Message: "line terminators cannot separate fields"}
	case c.Quote == '\r' || c.Quote == '\n':
		return c, &ConfigError{Option: "Quote", Message: "line terminators cannot quote fields"}
	case c.Comma == c.Quote:
		return c, &ConfigError{Option: "Quote", Message: "quote byte same as separator"}
	case c.ChunkSize < 0:
		return c, &ConfigError{Option: "ChunkSize", Message: fmt.Sprintf("must be positive, got %d", c.ChunkSize)}
	case c.OffsetRows < 0:
		return c, &ConfigError{Option: "OffsetRows", Message: fmt.Sprintf("must not be negative, got %d", c.OffsetRows)}
	case c.EmptyFields > EmptyString:
		return c, &ConfigError{Option: "EmptyFields", Message: fmt.Sprintf("unknown policy %d", c.EmptyFields)}
	}

	named := false
	for i, col := range c.Columns {
		if col.Type > TypeSkip {
			return c, &ConfigError{Option: fmt.Sprintf("Columns[%d].Type", i), Message: fmt.Sprintf("unknown column type %d", col.Type)}
		}
		if col.Name != "" && col.Type != TypeSkip {
			named = true
		}
	}
	if c.AsHash && !named {
		return c, &ConfigError{Option: "AsHash", Message: "hash rows need at least one named column"}
	}

	enc, err := canonicalEncoding(c.Encoding)
	if err != nil {
		return c, err
	}
	c.Encoding = enc
	return c, nil
}

func (c Config) tokenizerOptions() tokenizer.Options {
	return tokenizer.Options{
		Comma:     c.Comma,
		Quote:     c.Quote,
		Lenient:   c.Lenient,
		ChunkSize: c.ChunkSize,
		OnWarning: c.OnWarning,
	}
}

func (c Config) pipelineConfig() pipeline.Config {
	cols := make([]pipeline.Column, len(c.Columns))
	for i, spec := range c.Columns {
		cols[i] = pipeline.Column{
			Type:    spec.Type,
			Default: spec.Default,
			Only:    spec.Only,
			Except:  spec.Except,
			Name:    spec.Name,
		}
	}
	return pipeline.Config{
		Columns:    cols,
		Empty:      c.EmptyFields,
		OffsetRows: c.OffsetRows,
		AsHash:     c.AsHash,
	}
}

// ColumnsFromConversions builds column specs from a conversion string with one
// code per column: 's' string, 'i' int, 'f' float, 'b' bool, ' ' skip.
//
// Example:
//
//	cols, err := csv.ColumnsFromConversions("is f")
//	// int, string, skip, float
func ColumnsFromConversions(conversions string) ([]ColumnSpec, error) {
	cols := make([]ColumnSpec, len(conversions))
	for i := 0; i < len(conversions); i++ {
		typ, err := pipeline.ParseColumnType(conversions[i : i+1])
		if err != nil {
			return nil, &ConfigError{
				Option:  "conversions",
				Message: fmt.Sprintf("unknown type code %q at position %d", conversions[i], i),
			}
		}
		cols[i].Type = typ
	}
	return cols, nil
}

// ParseColumnType parses a type name such as "int" or a one-letter code such as "i".
func ParseColumnType(s string) (ColumnType, error) {
	typ, err := pipeline.ParseColumnType(s)
	if err != nil {
		return typ, &ConfigError{Option: "type", Message: err.Error()}
	}
	return typ, nil
}
