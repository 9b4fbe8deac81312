package csv

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PrintfFormatter fills a printf-style format with the field value.
//
// Every positional conversion (%d, %5.2f, %s, ...) receives the field value.
// Named references read from the extra values: %{name} inserts the value's
// text and %<name>5.2f formats it with the given conversion. The name "value"
// always refers to the field value. Numbers are coerced to the conversion's
// kind, so %.2f accepts integers and %d accepts floats (truncated).
//
// A nil field value renders as empty text.
type PrintfFormatter struct {
	parts []printfPart
	extra map[string]any
}

type printfPart struct {
	isText  bool
	literal string
	name    string // empty for the field value
	spec    string // Go format directive; empty for %{name}
	verb    byte
}

// NewPrintfFormatter compiles format. It fails on malformed directives and
// unsupported conversions.
func NewPrintfFormatter(format string, extra map[string]any) (*PrintfFormatter, error) {
	parts, err := compilePrintf(format)
	if err != nil {
		return nil, &ConfigError{Option: "Format", Message: err.Error()}
	}
	return &PrintfFormatter{parts: parts, extra: extra}, nil
}

// Format implements Formatter for PrintfFormatter.
func (f *PrintfFormatter) Format(value any) (string, error) {
	if value == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range f.parts {
		if p.isText {
			sb.WriteString(p.literal)
			continue
		}

		v := value
		if p.name != "" && p.name != "value" {
			x, ok := f.extra[p.name]
			if !ok {
				return "", fmt.Errorf("printf: no value named %q", p.name)
			}
			v = x
		}

		if p.spec == "" {
			sb.WriteString(defaultText(v))
			continue
		}
		arg, err := coerce(v, p.verb)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, p.spec, arg)
	}
	return sb.String(), nil
}

func compilePrintf(format string) ([]printfPart, error) {
	var parts []printfPart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, printfPart{isText: true, literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 == len(format) {
			return nil, fmt.Errorf("incomplete directive at end of %q", format)
		}
		if format[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}
		flush()

		var part printfPart
		j := i + 1
		switch format[j] {
		case '{':
			end := strings.IndexByte(format[j:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated %%{ in %q", format)
			}
			part.name = format[j+1 : j+end]
			parts = append(parts, part)
			i = j + end
			continue
		case '<':
			end := strings.IndexByte(format[j:], '>')
			if end < 0 {
				return nil, fmt.Errorf("unterminated %%< in %q", format)
			}
			part.name = format[j+1 : j+end]
			j += end + 1
		}

		// flags, width, precision, verb
		start := j
		for j < len(format) && strings.IndexByte("-+ #0", format[j]) >= 0 {
			j++
		}
		for j < len(format) && (isDigit(format[j]) || format[j] == '.') {
			j++
		}
		if j == len(format) {
			return nil, fmt.Errorf("missing conversion in %q", format)
		}
		verb, ok := goVerb(format[j])
		if !ok {
			return nil, fmt.Errorf("unsupported conversion %%%c in %q", format[j], format)
		}
		part.verb = verb
		part.spec = "%" + format[start:j] + string(verb)
		parts = append(parts, part)
		i = j
	}
	flush()
	return parts, nil
}

// goVerb maps a C conversion to the fmt verb that renders it.
func goVerb(c byte) (byte, bool) {
	switch c {
	case 'd', 'i', 'u':
		return 'd', true
	case 'f', 'F':
		return 'f', true
	case 'e', 'E', 'g', 'G', 'x', 'X', 'o', 'b', 's', 'c':
		return c, true
	}
	return 0, false
}

// coerce converts v to the argument kind expected by verb.
func coerce(v any, verb byte) (any, error) {
	switch verb {
	case 'f', 'e', 'E', 'g', 'G':
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case 'd', 'x', 'X', 'o', 'b', 'c':
		if n, ok := toInt(v); ok {
			return n, nil
		}
	case 's':
		return defaultText(v), nil
	}
	return nil, fmt.Errorf("printf: cannot format %T with %%%c", v, verb)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return int64(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
