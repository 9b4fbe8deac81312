// Package csvarrow collects parsed CSV rows into Apache Arrow record batches.
//
// The Arrow schema follows the column specs of the parse configuration:
// int columns become int64, float columns float64, bool columns boolean and
// string columns utf8. Skip columns have no field. Every field is nullable.
//
//	mem := memory.NewGoAllocator()
//	err := csvarrow.Read(file, cfg, mem, 4096, func(rec arrow.Record) error {
//	    fmt.Println(rec.NumRows())
//	    return nil
//	})
package csvarrow

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/shapestone/shape-csvcodec/pkg/csv"
)

// DefaultBatchRows is the batch size used by Read when none is given.
const DefaultBatchRows = 8192

// ErrRowTooWide is returned for a positional row with more values than the schema has fields.
var ErrRowTooWide = errors.New("csvarrow: row has more values than the schema")

// Schema derives the Arrow schema of the rows produced by cfg.
func Schema(cfg csv.Config) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(cfg.Columns))
	for i, col := range cfg.Columns {
		if col.Type == csv.TypeSkip {
			continue
		}
		name := col.Name
		if name == "" {
			name = "column_" + strconv.Itoa(i)
		}
		fields = append(fields, arrow.Field{Name: name, Type: arrowType(col.Type), Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t csv.ColumnType) arrow.DataType {
	switch t {
	case csv.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case csv.TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case csv.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// Builder accumulates rows into an Arrow record.
// It is not safe for concurrent use.
type Builder struct {
	schema *arrow.Schema
	rb     *array.RecordBuilder
	rows   int
}

// NewBuilder creates a Builder for rows produced by cfg. It fails with a
// *csv.ConfigError if cfg is invalid or a column default cannot be stored in
// the column's Arrow type.
func NewBuilder(mem memory.Allocator, cfg csv.Config) (*Builder, error) {
	if err := CheckConfig(cfg); err != nil {
		return nil, err
	}
	schema := Schema(cfg)
	return &Builder{
		schema: schema,
		rb:     array.NewRecordBuilder(mem, schema),
	}, nil
}

// CheckConfig validates cfg and checks that every column default fits the
// Arrow type of its column.
func CheckConfig(cfg csv.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for i, col := range cfg.Columns {
		if col.Type == csv.TypeSkip || col.Default == nil || fits(col.Type, col.Default) {
			continue
		}
		return &csv.ConfigError{
			Option:  fmt.Sprintf("Columns[%d].Default", i),
			Message: fmt.Sprintf("%T cannot be stored in a %s field", col.Default, arrowType(col.Type)),
		}
	}
	return nil
}

// fits reports whether appendValue accepts v for a column of type t.
func fits(t csv.ColumnType, v any) bool {
	switch t {
	case csv.TypeInt:
		_, ok := asInt64(v)
		return ok
	case csv.TypeFloat:
		_, ok := asFloat64(v)
		return ok
	case csv.TypeBool:
		_, ok := v.(bool)
		return ok
	}
	return true
}

// Schema returns the record schema.
func (b *Builder) Schema() *arrow.Schema {
	return b.schema
}

// Len returns the number of rows appended since the last NewRecord.
func (b *Builder) Len() int {
	return b.rows
}

// Append adds one row. Positional rows fill fields in order and short rows are
// padded with nulls. Hash rows fill fields by name.
//
// On error the row may have been partially appended; the builder should be
// released rather than reused.
func (b *Builder) Append(row csv.Row) error {
	n := b.schema.NumFields()
	if !row.IsHash() && len(row.Values) > n {
		return fmt.Errorf("%w: %d values, %d fields", ErrRowTooWide, len(row.Values), n)
	}

	for i := 0; i < n; i++ {
		var v any
		if row.IsHash() {
			v = row.Hash[b.schema.Field(i).Name]
		} else if i < len(row.Values) {
			v = row.Values[i]
		}
		if err := appendValue(b.rb.Field(i), v); err != nil {
			return fmt.Errorf("csvarrow: field %q: %w", b.schema.Field(i).Name, err)
		}
	}
	b.rows++
	return nil
}

// NewRecord returns the rows appended so far as a record and resets the
// builder. The caller must Release the record.
func (b *Builder) NewRecord() arrow.Record {
	b.rows = 0
	return b.rb.NewRecord()
}

// Release frees the builder's buffers.
func (b *Builder) Release() {
	b.rb.Release()
}

func appendValue(fb array.Builder, v any) error {
	if v == nil {
		fb.AppendNull()
		return nil
	}

	switch fb := fb.(type) {
	case *array.Int64Builder:
		n, ok := asInt64(v)
		if !ok {
			return fmt.Errorf("cannot append %T to int64", v)
		}
		fb.Append(n)
	case *array.Float64Builder:
		f, ok := asFloat64(v)
		if !ok {
			return fmt.Errorf("cannot append %T to float64", v)
		}
		fb.Append(f)
	case *array.BooleanBuilder:
		t, ok := v.(bool)
		if !ok {
			return fmt.Errorf("cannot append %T to boolean", v)
		}
		fb.Append(t)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		fb.Append(s)
	default:
		return fmt.Errorf("unsupported builder %T", fb)
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint8:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	if n, ok := asInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

// Read parses r with cfg and hands fn one record per batchRows rows, plus a
// final shorter record. Records are released after fn returns; fn must Retain
// a record it keeps. If fn returns csv.ErrStop, Read stops and returns nil.
// Configuration errors, including defaults that do not fit their column,
// are returned before r is read.
func Read(r io.Reader, cfg csv.Config, mem memory.Allocator, batchRows int, fn func(arrow.Record) error) error {
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	b, err := NewBuilder(mem, cfg)
	if err != nil {
		return err
	}
	defer b.Release()

	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		return fn(rec)
	}

	err = csv.Stream(r, cfg, func(row csv.Row) error {
		if err := b.Append(row); err != nil {
			return err
		}
		if b.Len() == batchRows {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if b.Len() > 0 {
		if err := flush(); err != nil && !errors.Is(err, csv.ErrStop) {
			return err
		}
	}
	return nil
}
