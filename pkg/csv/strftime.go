package csv

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

// DefaultTimeLayout is the strftime layout used when none is given.
const DefaultTimeLayout = "%Y-%m-%d %H:%M:%S %z"

// defaultTimePattern renders time.Time values under DefaultFormatter.
var defaultTimePattern = mustCompileStrftime(DefaultTimeLayout)

// strftimeOptions extends the POSIX set with %L (milliseconds), %N
// (nanoseconds), %s (Unix seconds) and %P (lower-case am/pm).
func strftimeOptions() []strftime.Option {
	return []strftime.Option{
		strftime.WithMilliseconds('L'),
		strftime.WithUnixSeconds('s'),
		strftime.WithSpecification('N', strftime.AppendFunc(appendNanoseconds)),
		strftime.WithSpecification('P', strftime.AppendFunc(appendLowerMeridiem)),
	}
}

// StrftimeFormatter renders time.Time values with a compiled strftime pattern.
type StrftimeFormatter struct {
	layout  string
	pattern *strftime.Strftime
}

// NewStrftimeFormatter compiles layout (DefaultTimeLayout if empty). Unknown
// conversions and a stray trailing '%' are configuration errors.
//
// Example:
//
//	f, err := csv.NewStrftimeFormatter("%d %b %Y")
//	text, _ := f.Format(time.Now()) // "03 Feb 2009"
func NewStrftimeFormatter(layout string) (*StrftimeFormatter, error) {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	p, err := strftime.New(layout, strftimeOptions()...)
	if err != nil {
		return nil, &ConfigError{Option: "Format", Message: fmt.Sprintf("strftime %q: %v", layout, err)}
	}
	return &StrftimeFormatter{layout: layout, pattern: p}, nil
}

// Layout returns the pattern the formatter was compiled from.
func (f *StrftimeFormatter) Layout() string {
	return f.layout
}

// Format implements Formatter for StrftimeFormatter. Nil renders as empty text.
func (f *StrftimeFormatter) Format(value any) (string, error) {
	switch t := value.(type) {
	case nil:
		return "", nil
	case time.Time:
		return f.pattern.FormatString(t), nil
	case *time.Time:
		if t == nil {
			return "", nil
		}
		return f.pattern.FormatString(*t), nil
	}
	return "", fmt.Errorf("strftime: cannot format %T", value)
}

func mustCompileStrftime(layout string) *strftime.Strftime {
	p, err := strftime.New(layout, strftimeOptions()...)
	if err != nil {
		panic(err)
	}
	return p
}

func appendNanoseconds(b []byte, t time.Time) []byte {
	ns := strconv.Itoa(t.Nanosecond())
	for i := len(ns); i < 9; i++ {
		b = append(b, '0')
	}
	return append(b, ns...)
}

func appendLowerMeridiem(b []byte, t time.Time) []byte {
	if t.Hour() < 12 {
		return append(b, "am"...)
	}
	return append(b, "pm"...)
}
