// Package csv provides error types and warning hooks for CSV parsing.
package csv

import (
	"errors"
	"log/slog"

	"github.com/shapestone/shape-csvcodec/internal/source"
	"github.com/shapestone/shape-csvcodec/internal/tokenizer"
)

// ParseError represents a parsing error with position information.
// It is returned for structurally invalid quoting in strict mode and aborts the parse.
type ParseError = tokenizer.ParseError

// Common parsing errors
var (
	// ErrQuote indicates a quote inside a quoted field that is neither doubled
	// nor followed by the separator or a line break.
	ErrQuote = tokenizer.ErrQuote

	// ErrUnterminatedQuote indicates input that ended inside a quoted field.
	ErrUnterminatedQuote = tokenizer.ErrUnterminatedQuote

	// ErrInvalidConfig is matched by every configuration error.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupportedInput indicates an input that is neither a string, a []byte
	// nor an io.Reader.
	ErrUnsupportedInput = source.ErrUnsupportedInput

	// ErrStop may be returned by a streaming callback to end the parse early.
	// Stream functions then return nil.
	ErrStop = errors.New("csv: stop")
)

// ConfigError reports an invalid option. It is raised before any input is read.
type ConfigError struct {
	// Option names the offending setting.
	Option string
	// Message describes the problem.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

func (e *ConfigError) Error() string {
	msg := "csv: invalid " + e.Option + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidConfig and the cause, so errors.Is matches both.
func (e *ConfigError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.Cause}
}

// WarningHandler is a callback function for logging warnings.
// It is told about every malformed-quoting recovery in lenient mode.
type WarningHandler func(line int, message string)

// SlogWarnings returns a WarningHandler that logs through logger at warn level.
// A nil logger uses slog.Default().
func SlogWarnings(logger *slog.Logger) WarningHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(line int, message string) {
		logger.Warn("csv: recovered from malformed input",
			slog.Int("line", line),
			slog.String("detail", message))
	}
}
