// Package diagnostics defines the pseudocode diagnostic types for static and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/pseudo/pkg/ast"
)

// Diagnostic code constants.
const (
	EUnbound       = "E_UNBOUND"
	ENotArray      = "E_NOT_ARRAY"
	EIndex         = "E_INDEX"
	EType          = "E_TYPE"
	EDivZero       = "E_DIV_ZERO"
	EBlockMismatch = "E_BLOCK_MISMATCH"
	EUnterminated  = "E_UNTERMINATED"
	ESyntax        = "E_SYNTAX"
	ELex           = "E_LEX"
	EUnknownInstr  = "E_UNKNOWN_INSTR"
	EBudget        = "E_BUDGET"
	EInput         = "E_INPUT"
	EIO            = "E_IO"
	EConfig        = "E_CONFIG"
)

// Static reports whether code is detected before a program starts executing.
func Static(code string) bool {
	switch code {
	case EBlockMismatch, EUnterminated:
		return true
	}
	return false
}

// Diagnostic represents a static or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
