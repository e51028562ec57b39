// Package validator checks pseudocode programs without running them.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/engine"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/parser"
)

type openBlock struct {
	kind    engine.Kind
	line    int
	sawElse bool
}

type reference struct {
	name string
	span ast.Span
}

type validator struct {
	prog     *engine.Program
	diags    []diagnostics.Diagnostic
	stack    []*openBlock
	assigned map[string]bool
	refs     []reference
}

// Validate reports every static problem in prog: malformed or unknown
// statements, unparsable expressions, block structure errors and names
// that are read but never assigned anywhere.
func Validate(prog *engine.Program) []diagnostics.Diagnostic {
	v := &validator{
		prog:     prog,
		assigned: make(map[string]bool),
	}

	if _, err := engine.BuildBlockMap(prog); err != nil {
		v.addError(err, 0)
	}
	for i := 0; i < prog.Len(); i++ {
		v.validateLine(i)
	}
	v.validateUnclosed()
	v.validateReferences()

	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) addError(err error, line int) {
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		v.addDiag(diagnostics.ESyntax, err.Error(), v.span(line), "")
		return
	}
	span := rtErr.Span
	if span == nil {
		span = v.span(line)
	}
	v.addDiag(rtErr.Code, rtErr.Message, span, rtErr.Hint)
}

func (v *validator) span(line int) *ast.Span {
	span := ast.LineSpan(v.prog.File, line+1)
	span.StartCol = v.prog.Indent(line)
	span.EndCol = len(v.prog.Lines[line]) + 1
	return &span
}

func (v *validator) validateLine(i int) {
	st, err := engine.ParseStatement(v.prog.Text(i))
	if err != nil {
		var rtErr *evaluator.RuntimeError
		if errors.As(err, &rtErr) && rtErr.Code == diagnostics.EUnknownInstr {
			v.addDiag(diagnostics.EUnknownInstr, fmt.Sprintf("unknown instruction on line %d: %s", i+1, v.prog.Text(i)), v.span(i), rtErr.Hint)
		} else {
			v.addError(err, i)
		}
		// Keep the nesting in step even when the clause is malformed.
		// A bare while or for opens nothing.
		loop := st.Kind == engine.KindWhile || st.Kind == engine.KindFor
		if !loop || engine.OpensLoop(st.Text) {
			v.validateStructure(i, st.Kind)
		}
		return
	}

	v.validateStructure(i, st.Kind)

	switch st.Kind {
	case engine.KindRead:
		v.assigned[st.Var] = true
	case engine.KindSet:
		if st.Index != "" {
			v.expr(i, st.Index)
			v.refs = append(v.refs, reference{name: st.Var, span: *v.span(i)})
		} else {
			v.assigned[st.Var] = true
		}
		if !st.IsArray {
			v.expr(i, st.Expr)
		}
	case engine.KindIf, engine.KindElseIf, engine.KindWhile:
		v.expr(i, st.Cond)
	case engine.KindFor:
		v.assigned[st.Var] = true
		v.expr(i, st.Start)
		v.expr(i, st.End)
	case engine.KindDisplay:
		for _, arg := range st.Args {
			v.displayArg(i, arg)
		}
	}
}

// displayArg checks one display argument. Bare names and element accesses
// render a marker at run time instead of failing, so only their index
// expressions are checked.
func (v *validator) displayArg(line int, arg string) {
	switch {
	case arg == "":
		return
	case len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' && !strings.Contains(arg[1:len(arg)-1], `"`):
		return
	}
	expr, ok := v.parse(line, arg)
	if !ok {
		return
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return
	case *ast.IndexExpr:
		v.collect(e.Index)
		return
	}
	v.collect(expr)
}

func (v *validator) expr(line int, src string) {
	if expr, ok := v.parse(line, src); ok {
		v.collect(expr)
	}
}

func (v *validator) parse(line int, src string) (ast.Expr, bool) {
	col := strings.Index(v.prog.Lines[line], src) + 1
	if col <= 0 {
		col = v.prog.Indent(line)
	}
	expr, diags := parser.ParseAt(src, v.prog.File, line+1, col)
	if len(diags) > 0 {
		v.diags = append(v.diags, diags[0])
		return nil, false
	}
	return expr, true
}

func (v *validator) collect(expr ast.Expr) {
	ast.Walk(expr, func(e ast.Expr) bool {
		switch n := e.(type) {
		case *ast.Ident:
			v.refs = append(v.refs, reference{name: n.Name, span: n.Span})
		case *ast.IndexExpr:
			v.refs = append(v.refs, reference{name: n.Name, span: n.Span})
		}
		return true
	})
}

// validateStructure tracks if/while/for nesting. Loop pairing itself is
// reported by the block matcher; this catches if/else/endif misuse and
// loops that close across an open if.
func (v *validator) validateStructure(line int, kind engine.Kind) {
	switch kind {
	case engine.KindIf, engine.KindWhile, engine.KindFor:
		v.stack = append(v.stack, &openBlock{kind: kind, line: line})

	case engine.KindElseIf, engine.KindElse:
		top := v.top()
		if top == nil || top.kind != engine.KindIf {
			v.mismatch(line, kind, top)
			return
		}
		if top.sawElse {
			v.addDiag(diagnostics.ESyntax,
				fmt.Sprintf("'%s' after 'else' in the 'if' opened on line %d can never run", kind, top.line+1),
				v.span(line), "move the 'else' branch last")
		}
		if kind == engine.KindElse {
			top.sawElse = true
		}

	case engine.KindEndIf:
		top := v.top()
		if top == nil || top.kind != engine.KindIf {
			v.mismatch(line, kind, top)
			return
		}
		v.pop()

	case engine.KindEndWhile, engine.KindEndFor:
		want := engine.KindWhile
		if kind == engine.KindEndFor {
			want = engine.KindFor
		}
		top := v.top()
		if top != nil && top.kind == engine.KindIf {
			v.mismatch(line, kind, top)
			v.pop()
			top = v.top()
		}
		if top != nil && top.kind == want {
			v.pop()
		}
	}
}

func (v *validator) top() *openBlock {
	if len(v.stack) == 0 {
		return nil
	}
	return v.stack[len(v.stack)-1]
}

func (v *validator) pop() {
	v.stack = v.stack[:len(v.stack)-1]
}

func (v *validator) mismatch(line int, kind engine.Kind, top *openBlock) {
	msg := fmt.Sprintf("'%s' without matching 'if'", displayKind(kind))
	if kind == engine.KindEndWhile || kind == engine.KindEndFor {
		msg = fmt.Sprintf("'%s' closes the 'if' opened on line %d", kind, top.line+1)
	} else if top != nil {
		msg += fmt.Sprintf(" (innermost open block is '%s' on line %d)", top.kind, top.line+1)
	}
	v.addDiag(diagnostics.EBlockMismatch, msg, v.span(line), "")
}

func displayKind(k engine.Kind) string {
	if k == engine.KindElseIf {
		return "else if"
	}
	return k.String()
}

func (v *validator) validateUnclosed() {
	for _, b := range v.stack {
		if b.kind != engine.KindIf {
			continue // reported by the block matcher
		}
		v.addDiag(diagnostics.EUnterminated,
			fmt.Sprintf("'if' block opened on line %d is never closed", b.line+1),
			v.span(b.line), "add a matching 'endif'")
	}
}

// validateReferences reports names that no statement ever assigns. Such a
// read always fails when it is reached.
func (v *validator) validateReferences() {
	reported := make(map[string]bool)
	for _, ref := range v.refs {
		if v.assigned[ref.name] || reported[ref.name] {
			continue
		}
		reported[ref.name] = true
		span := ref.span
		v.addDiag(diagnostics.EUnbound,
			fmt.Sprintf("variable '%s' is never assigned", ref.name),
			&span, "assign it with 'set', 'read' or 'for' before using it")
	}
}
