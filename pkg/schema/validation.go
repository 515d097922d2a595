package schema

import "fmt"

// Lint codes. These never change execution semantics; they flag programs whose
// run is likely to surprise the author.
const (
	LintDuplicateStepID    = "LINT_DUPLICATE_STEP_ID"
	LintUnknownCommand     = "LINT_UNKNOWN_COMMAND"
	LintForwardStepRef     = "LINT_FORWARD_STEP_REFERENCE"
	LintUndeclaredVariable = "LINT_UNDECLARED_VARIABLE"
	LintChainedComparison  = "LINT_CHAINED_COMPARISON"
	LintComparisonValue    = "LINT_COMPARISON_AS_VALUE"
)

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single validation problem with location context.
type ValidationIssue struct {
	Path     string             `json:"path"`
	Line     int                `json:"line,omitempty"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("%s line %d: %s: %s", i.Severity, i.Line, i.Path, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// ValidationResult aggregates all issues from the validation pipeline.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(path string, line int, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Line: line, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(path string, line int, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Line: line, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Promote turns every warning into an error. Used by strict checks.
func (r *ValidationResult) Promote() {
	for _, w := range r.Warnings {
		w.Severity = SeverityError
		r.Errors = append(r.Errors, w)
	}
	r.Warnings = nil
}

// ToError converts the result to an *Error if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}
