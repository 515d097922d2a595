package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for structured error reporting.
const (
	// Lexical errors abort tokenization.
	ErrCodeUnterminatedString = "LEX_UNTERMINATED_STRING"
	ErrCodeIllegalCharacter   = "LEX_ILLEGAL_CHARACTER"

	// Parse errors abort parsing.
	ErrCodeUnexpectedToken = "PARSE_UNEXPECTED_TOKEN"

	// Runtime errors abort the whole program run.
	ErrCodeUndefinedVariable = "RUNTIME_UNDEFINED_VARIABLE"
	ErrCodeStepNotFound      = "RUNTIME_STEP_NOT_FOUND"
	ErrCodeUnknownOperator   = "RUNTIME_UNKNOWN_OPERATOR"

	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeExecution          = "EXECUTION_ERROR"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeCommandUnavailable = "COMMAND_UNAVAILABLE"
)

const (
	lexPrefix     = "LEX_"
	parsePrefix   = "PARSE_"
	runtimePrefix = "RUNTIME_"
)

// Error is the structured error type for all stepflow operations.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Line    int            `json:"line,omitempty"`
	StepID  string         `json:"step_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Code)
	b.WriteString("] ")
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.StepID != "" {
		fmt.Fprintf(&b, "step %s: ", e.StepID)
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithLine attaches the source line the error was detected on.
func (e *Error) WithLine(line int) *Error {
	e.Line = line
	return e
}

// WithStep attaches a step ID to the error.
func (e *Error) WithStep(stepID string) *Error {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsLexError reports whether err is a tokenization failure.
func IsLexError(err error) bool {
	return strings.HasPrefix(CodeOf(err), lexPrefix)
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool {
	return strings.HasPrefix(CodeOf(err), parsePrefix)
}

// IsRuntimeError reports whether err aborted a program run.
func IsRuntimeError(err error) bool {
	return strings.HasPrefix(CodeOf(err), runtimePrefix)
}
