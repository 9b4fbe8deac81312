package csv

import (
	"encoding"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shapestone/shape-csvcodec/internal/truthy"
)

// Formatter is the interface for value formatters.
// Formatters turn a typed value into the text of one CSV field, before quoting.
type Formatter interface {
	// Format renders value as field text.
	Format(value any) (string, error)
}

// FormatterFunc is a function adapter for the Formatter interface.
type FormatterFunc func(value any) (string, error)

// Format implements Formatter.
func (f FormatterFunc) Format(value any) (string, error) {
	return f(value)
}

// Formatter kinds accepted by ColumnFormat.Formatter.
const (
	FormatDefault  = ""
	FormatStrftime = "strftime"
	FormatPrintf   = "printf"
	FormatBoolean  = "boolean"
)

// DefaultFormatter renders a value's natural text: nil is empty, numbers use
// the shortest representation that parses back to the same value.
type DefaultFormatter struct{}

// Format implements Formatter for DefaultFormatter.
func (DefaultFormatter) Format(value any) (string, error) {
	return defaultText(value), nil
}

// BooleanFormatter renders "false" for the falsy values (nil, false, numeric
// zero, and the strings "0", "f" and "false" in any case) and "true" otherwise.
// It uses the same rule as bool column parsing, so its output reads back unchanged.
type BooleanFormatter struct{}

// Format implements Formatter for BooleanFormatter.
func (BooleanFormatter) Format(value any) (string, error) {
	if truthy.Falsy(value) {
		return "false", nil
	}
	return "true", nil
}

// NewFormatter builds a formatter from its kind name and format string.
// extra supplies named values to printf formats.
func NewFormatter(kind, format string, extra map[string]any) (Formatter, error) {
	switch kind {
	case FormatDefault:
		return DefaultFormatter{}, nil
	case FormatStrftime:
		f, err := NewStrftimeFormatter(format)
		if err != nil {
			return nil, err
		}
		return f, nil
	case FormatPrintf:
		f, err := NewPrintfFormatter(format, extra)
		if err != nil {
			return nil, err
		}
		return f, nil
	case FormatBoolean:
		return BooleanFormatter{}, nil
	}
	return nil, &ConfigError{Option: "Formatter", Message: fmt.Sprintf("unknown formatter %q", kind)}
}

func defaultText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case time.Time:
		return defaultTimePattern.FormatString(v)
	case encoding.TextMarshaler:
		if b, err := v.MarshalText(); err == nil {
			return string(b)
		}
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}
	return fmt.Sprint(value)
}

// formatFloat uses plain notation for everyday magnitudes and exponent
// notation for very large or very small ones.
func formatFloat(f float64, bits int) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'e', -1, bits)
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}
