// Package formatter implements the pseudocode source formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/engine"
	"github.com/thomasrohde/pseudo/pkg/parser"
)

const indent = "  "

// Options controls formatting.
type Options struct {
	// Canonical rewrites expressions with symbolic operators and minimal
	// parentheses (x gt 1 and y le 2 becomes x > 1 && y <= 2).
	Canonical bool
}

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr: 1, ast.OpAnd: 2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6, ast.OpMod: 6,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// All operators are left-associative: same precedence on the right keeps its parens.
	return childPrec == parentPrec && isRight
}

// Format re-indents a program by block depth and writes statement keywords
// in lower case. Lines that do not parse as statements are kept verbatim,
// only re-indented.
func Format(prog *engine.Program, opts Options) string {
	f := &formatter{opts: opts}
	lines := make([]string, 0, prog.Len())
	depth := 0

	for i := 0; i < prog.Len(); i++ {
		text := prog.Text(i)
		if text == "" {
			lines = append(lines, "")
			continue
		}
		st, err := engine.ParseStatement(text)
		if err == nil {
			text = f.statement(st)
		}

		branch := st.Kind == engine.KindElse || st.Kind == engine.KindElseIf
		if (st.Kind.Closes() || branch) && depth > 0 {
			depth--
		}
		lines = append(lines, strings.Repeat(indent, depth)+text)
		opens := st.Kind.Opens()
		if st.Kind == engine.KindWhile || st.Kind == engine.KindFor {
			opens = engine.OpensLoop(st.Text)
		}
		if opens || branch {
			depth++
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

type formatter struct {
	opts Options
}

func (f *formatter) statement(st engine.Statement) string {
	switch st.Kind {
	case engine.KindBegin, engine.KindEnd, engine.KindElse, engine.KindEndIf, engine.KindEndWhile, engine.KindEndFor:
		return st.Kind.String()
	case engine.KindPrompt:
		_, rest := splitKeyword(st.Text)
		return join("prompt", rest)
	case engine.KindRead:
		return "read " + st.Var
	case engine.KindDisplay:
		args := make([]string, len(st.Args))
		for i, arg := range st.Args {
			args[i] = f.displayArg(arg)
		}
		return join("display", strings.Join(args, ", "))
	case engine.KindSet:
		if st.IsArray {
			return "set " + st.Var + " to [" + strings.Join(st.Items, ", ") + "]"
		}
		target := st.Var
		if st.Index != "" {
			target += "[" + f.expr(st.Index) + "]"
		}
		return "set " + target + " to " + f.expr(st.Expr)
	case engine.KindIf:
		return "if " + f.expr(st.Cond) + " then"
	case engine.KindElseIf:
		return "else if " + f.expr(st.Cond) + " then"
	case engine.KindWhile:
		return "while " + f.expr(st.Cond) + " do"
	case engine.KindFor:
		return "for " + st.Var + " from " + f.expr(st.Start) + " to " + f.expr(st.End) + " do"
	}
	return st.Text
}

// expr returns src unchanged unless canonical output was requested and src
// parses.
func (f *formatter) expr(src string) string {
	if !f.opts.Canonical || src == "" {
		return src
	}
	expr, diags := parser.Parse(src, "")
	if len(diags) > 0 {
		return src
	}
	return FormatExpr(expr)
}

// displayArg rewrites a display argument like expr, except where dropping
// parentheses would turn an expression into a bare name or element access.
// Those render a marker on a failed lookup instead of raising an error.
func (f *formatter) displayArg(arg string) string {
	if !f.opts.Canonical || arg == "" {
		return arg
	}
	expr, diags := parser.Parse(arg, "")
	if len(diags) > 0 {
		return arg
	}
	var name, next string
	switch e := expr.(type) {
	case *ast.Ident:
		name = e.Name
	case *ast.IndexExpr:
		name, next = e.Name, "["
	default:
		return FormatExpr(expr)
	}
	rest, ok := strings.CutPrefix(arg, name)
	if !ok || (next == "" && rest != "") || !strings.HasPrefix(rest, next) {
		return arg
	}
	return FormatExpr(expr)
}

func splitKeyword(text string) (string, string) {
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i+1:])
}

func join(keyword, rest string) string {
	if rest == "" {
		return keyword
	}
	return keyword + " " + rest
}

// FormatExpr prints an expression with symbolic operators and only the
// parentheses precedence requires.
func FormatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.StrLiteral:
		return `"` + expr.Value + `"`
	case *ast.Ident:
		return expr.Name
	case *ast.IndexExpr:
		return expr.Name + "[" + FormatExpr(expr.Index) + "]"
	case *ast.BinaryExpr:
		leftStr := FormatExpr(expr.Left)
		rightStr := FormatExpr(expr.Right)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryExpr:
		operandStr := FormatExpr(expr.Operand)
		if _, isBin := expr.Operand.(*ast.BinaryExpr); isBin {
			return "-(" + operandStr + ")"
		}
		if _, isUn := expr.Operand.(*ast.UnaryExpr); isUn {
			return "-(" + operandStr + ")"
		}
		return "-" + operandStr
	}
	return ""
}

// formatFloatLiteral keeps a decimal point so the literal stays a float.
func formatFloatLiteral(value float64) string {
	raw := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}
