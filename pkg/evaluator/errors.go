package evaluator

import (
	"errors"
	"fmt"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
)

// RuntimeError is the single error type raised while evaluating expressions
// or executing statements. Code is one of the diagnostics.E* constants.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
}

func (e *RuntimeError) Error() string {
	if e.Span != nil && e.Span.StartLine > 0 {
		return fmt.Sprintf("line %d: %s", e.Span.StartLine, e.Message)
	}
	return e.Message
}

// Diagnostic converts the error for reporting.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

// Errorf builds a RuntimeError with a formatted message.
func Errorf(code string, span *ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: span}
}

// FromDiagnostic wraps a static diagnostic as a RuntimeError.
func FromDiagnostic(d diagnostics.Diagnostic) *RuntimeError {
	return &RuntimeError{Code: d.Code, Message: d.Message, Span: d.Span, Hint: d.Hint}
}

// HasCode reports whether err is a RuntimeError with the given code.
func HasCode(err error, code string) bool {
	var rtErr *RuntimeError
	return errors.As(err, &rtErr) && rtErr.Code == code
}
