// Package pipeline turns tokenized records into typed rows.
//
// For every record, in order:
//
//  1. the first OffsetRows records are dropped (before any filtering);
//  2. each field is converted according to its column type, Skip columns are dropped;
//  3. nil or empty values are replaced by the column default, if one is set;
//  4. the only/except filters are evaluated against the converted values;
//  5. the row is optionally reshaped into a name-keyed map.
//
// Fields beyond the configured columns are treated as unconstrained strings.
package pipeline

import (
	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// Column describes the handling of one input column.
type Column struct {
	Type ColumnType
	// Default replaces a nil or empty converted value when non-nil.
	Default any
	// Only, when non-empty, keeps a row only if the value is one of these.
	Only []any
	// Except, when non-empty, drops a row if the value is one of these.
	Except []any
	// Name keys the value in hash rows. Unnamed columns are left out of hash rows.
	Name string
}

// Config is the per-parse pipeline configuration. It is not modified by the pipeline.
type Config struct {
	Columns    []Column
	Empty      EmptyPolicy
	OffsetRows int
	AsHash     bool
}

// Result is one processed row.
type Result struct {
	// Values holds the surviving columns in input order. Nil for hash rows.
	Values []any
	// Hash holds the named columns. Nil unless the pipeline reshapes rows.
	Hash map[string]any
}

// Pipeline processes records one at a time. It is not safe for concurrent use.
type Pipeline struct {
	cfg    Config
	only   []*valueSet
	except []*valueSet
	seen   int
	width  int
}

// New builds a pipeline, indexing the filter value sets of every column.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		only:   make([]*valueSet, len(cfg.Columns)),
		except: make([]*valueSet, len(cfg.Columns)),
	}
	for i, c := range cfg.Columns {
		if c.Type == Skip {
			continue
		}
		if len(c.Only) > 0 {
			p.only[i] = newValueSet(c.Only)
		}
		if len(c.Except) > 0 {
			p.except[i] = newValueSet(c.Except)
		}
	}
	return p
}

// Seen returns the number of records handed to Process so far.
func (p *Pipeline) Seen() int {
	return p.seen
}

// Process converts one record. It reports false when the record is skipped by
// the offset or rejected by a filter. The returned row does not alias fields.
func (p *Pipeline) Process(fields []tokenizer.Field) (Result, bool) {
	p.seen++
	if p.seen <= p.cfg.OffsetRows {
		return Result{}, false
	}

	var res Result
	if p.cfg.AsHash {
		res.Hash = make(map[string]any, len(fields))
	} else {
		res.Values = make([]any, 0, max(len(fields), p.width))
	}

	for i, f := range fields {
		col := p.column(i)
		if col.Type == Skip {
			continue
		}

		v := Convert(f, col.Type, p.cfg.Empty)
		if col.Default != nil && isBlank(v) {
			v = col.Default
		}

		if i < len(p.only) && p.only[i] != nil && !p.only[i].Contains(v) {
			return Result{}, false
		}
		if i < len(p.except) && p.except[i] != nil && p.except[i].Contains(v) {
			return Result{}, false
		}

		if p.cfg.AsHash {
			if col.Name != "" {
				res.Hash[col.Name] = v
			}
			continue
		}
		res.Values = append(res.Values, v)
	}

	p.width = len(res.Values)
	return res, true
}

func (p *Pipeline) column(i int) Column {
	if i < len(p.cfg.Columns) {
		return p.cfg.Columns[i]
	}
	return Column{Type: String}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
