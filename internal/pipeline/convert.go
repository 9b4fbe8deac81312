package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
	"github.com/shapestone/shape-csvcodec/internal/truthy"
)

// ColumnType selects the conversion applied to a column's raw field.
type ColumnType uint8

const (
	// String passes the field text through.
	String ColumnType = iota
	// Int parses base-10 integers into int64.
	Int
	// Float parses decimal or exponent notation into float64.
	Float
	// Bool maps the falsy tokens to false and everything else to true.
	Bool
	// Skip consumes the column without emitting it.
	Skip
)

var columnTypeNames = [...]string{
	String: "string",
	Int:    "int",
	Float:  "float",
	Bool:   "bool",
	Skip:   "skip",
}

// String returns the lowercase type name.
func (t ColumnType) String() string {
	if int(t) < len(columnTypeNames) {
		return columnTypeNames[t]
	}
	return fmt.Sprintf("ColumnType(%d)", uint8(t))
}

// ParseColumnType accepts the long names ("string", "int", "integer", "float", "bool",
// "boolean", "skip") and the one-letter conversion codes ('s', 'i', 'f', 'b', ' ').
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(s) {
	case "", "s", "string", "str":
		return String, nil
	case "i", "int", "integer":
		return Int, nil
	case "f", "float":
		return Float, nil
	case "b", "bool", "boolean":
		return Bool, nil
	case " ", "skip":
		return Skip, nil
	}
	return String, fmt.Errorf("unknown column type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	if int(t) >= len(columnTypeNames) {
		return nil, fmt.Errorf("invalid column type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(text []byte) error {
	v, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// EmptyPolicy decides what an empty field resolves to.
type EmptyPolicy uint8

const (
	// EmptyNilOrString resolves unquoted empty fields to nil and "" to the empty string.
	EmptyNilOrString EmptyPolicy = iota
	// EmptyNil resolves every empty field to nil.
	EmptyNil
	// EmptyString resolves every empty field to the empty string.
	EmptyString
)

var emptyPolicyNames = [...]string{
	EmptyNilOrString: "nil_or_string",
	EmptyNil:         "nil",
	EmptyString:      "string",
}

func (p EmptyPolicy) String() string {
	if int(p) < len(emptyPolicyNames) {
		return emptyPolicyNames[p]
	}
	return fmt.Sprintf("EmptyPolicy(%d)", uint8(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p EmptyPolicy) MarshalText() ([]byte, error) {
	if int(p) >= len(emptyPolicyNames) {
		return nil, fmt.Errorf("invalid empty field policy %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *EmptyPolicy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "nil_or_string", "default":
		*p = EmptyNilOrString
	case "nil", "always_nil":
		*p = EmptyNil
	case "string", "always_string":
		*p = EmptyString
	default:
		return fmt.Errorf("unknown empty field policy %q", text)
	}
	return nil
}

// resolveEmpty applies the empty-field policy to a field with no content.
func resolveEmpty(f tokenizer.Field, policy EmptyPolicy) any {
	switch policy {
	case EmptyNil:
		return nil
	case EmptyString:
		return ""
	default:
		if f.Quoted {
			return ""
		}
		return nil
	}
}

// Convert turns a raw field into a typed value. It never fails: text that does
// not parse under a numeric type resolves to nil. Typed columns resolve empty
// fields to nil regardless of the policy.
func Convert(f tokenizer.Field, typ ColumnType, policy EmptyPolicy) any {
	if f.Empty() {
		if typ == String {
			return resolveEmpty(f, policy)
		}
		return nil
	}

	switch typ {
	case Int:
		n, err := strconv.ParseInt(strings.TrimSpace(string(f.Data)), 10, 64)
		if err != nil {
			return nil
		}
		return n
	case Float:
		x, err := strconv.ParseFloat(strings.TrimSpace(string(f.Data)), 64)
		if err != nil {
			return nil
		}
		return x
	case Bool:
		return !truthy.Text(string(f.Data))
	default:
		return string(f.Data)
	}
}
