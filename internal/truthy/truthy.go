// Package truthy holds the falsy-token set shared by boolean parsing and boolean formatting,
// so that a value written as "false" always reads back as false.
package truthy

import "strings"

// Falsy reports whether v is one of the falsy tokens: nil, false, a numeric zero,
// or (case-insensitively) the strings "f", "false" and "0". Everything else is true.
func Falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return Text(x)
	case []byte:
		return Text(string(x))
	case int:
		return x == 0
	case int8:
		return x == 0
	case int16:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case uint:
		return x == 0
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	}
	return false
}

// Text reports whether raw field text is a falsy token.
func Text(s string) bool {
	s = strings.TrimSpace(s)
	return s == "0" || strings.EqualFold(s, "f") || strings.EqualFold(s, "false")
}
