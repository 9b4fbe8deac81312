package csv

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Values is a filter value list. In YAML it may be written as a single
// scalar or as a sequence:
//
//	match: GBP
//	match: [GBP, EUR]
type Values []any

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []any
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
	case yaml.ScalarNode:
		var one any
		if err := node.Decode(&one); err != nil {
			return err
		}
		*v = Values{one}
	default:
		return fmt.Errorf("line %d: match values must be a scalar or a list", node.Line)
	}
	return nil
}

// LoadOptions decodes named-column options from YAML.
//
// Example document:
//
//	column_separator: ";"
//	header: use
//	row_as_hash: true
//	columns:
//	  price:
//	    type: float
//	    default: 0
//	  currency:
//	    match: [GBP, EUR]
func LoadOptions(data []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, &ConfigError{Option: "options", Message: "decoding YAML", Cause: err}
	}
	return opts, nil
}

// LoadOptionsFile reads named-column options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading options file: %w", err)
	}
	return LoadOptions(data)
}

// writerDocument is the YAML shape of WriterOptions, with the single-byte
// settings spelled as strings.
type writerDocument struct {
	Comma           string         `yaml:"comma"`
	Quote           string         `yaml:"quote"`
	RecordSeparator string         `yaml:"record_separator"`
	Header          bool           `yaml:"header"`
	Columns         []ColumnFormat `yaml:"columns"`
	Extra           map[string]any `yaml:"extra"`
}

// LoadWriterOptions decodes writer options from YAML.
//
// Example document:
//
//	header: true
//	columns:
//	  - name: ID
//	  - name: Date
//	    formatter: strftime
//	    format: "%Y-%m-%d"
//	  - name: Money
//	    formatter: printf
//	    format: "$%2.2f"
func LoadWriterOptions(data []byte) (WriterOptions, error) {
	var doc writerDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return WriterOptions{}, &ConfigError{Option: "writer options", Message: "decoding YAML", Cause: err}
	}

	opts := DefaultWriterOptions()
	if doc.Comma != "" {
		if len(doc.Comma) != 1 {
			return WriterOptions{}, &ConfigError{Option: "comma", Message: fmt.Sprintf("must be a single byte, got %q", doc.Comma)}
		}
		opts.Comma = doc.Comma[0]
	}
	if doc.Quote != "" {
		if len(doc.Quote) != 1 {
			return WriterOptions{}, &ConfigError{Option: "quote", Message: fmt.Sprintf("must be a single byte, got %q", doc.Quote)}
		}
		opts.Quote = doc.Quote[0]
	}
	if doc.RecordSeparator != "" {
		opts.RecordSeparator = doc.RecordSeparator
	}
	opts.Header = doc.Header
	opts.Columns = doc.Columns
	opts.Extra = doc.Extra
	return opts, opts.Validate()
}
