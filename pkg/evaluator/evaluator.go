package evaluator

import (
	"cmp"
	"math"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/parser"
)

// Evaluate parses source as an expression and evaluates it against env.
// Spans in errors are positioned at line/col of the enclosing statement.
func Evaluate(source string, env *Env, file string, line, col int) (Value, error) {
	expr, diags := parser.ParseAt(source, file, line, col)
	if len(diags) > 0 {
		return nil, FromDiagnostic(diags[0])
	}
	return Eval(expr, env)
}

// Eval evaluates an expression. Evaluation never mutates env.
func Eval(expr ast.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return NewInteger(e.Value), nil
	case *ast.FloatLiteral:
		return NewFloat(e.Value), nil
	case *ast.StrLiteral:
		return NewString(e.Value), nil
	case *ast.Ident:
		val, ok := env.Get(e.Name)
		if !ok {
			return nil, unboundError(e.Name, e.Span)
		}
		return val, nil
	case *ast.IndexExpr:
		return evalIndex(e, env)
	case *ast.UnaryExpr:
		return evalUnary(e, env)
	case *ast.BinaryExpr:
		return evalBinary(e, env)
	}
	span := expr.NodeSpan()
	return nil, Errorf(diagnostics.ESyntax, &span, "unsupported expression %s", expr.Kind())
}

func unboundError(name string, span ast.Span) *RuntimeError {
	err := Errorf(diagnostics.EUnbound, &span, "variable '%s' used before being defined", name)
	err.Hint = "assign it first with 'set " + name + " to ...' or 'read " + name + "'"
	return err
}

// LookupArray resolves name to a bound array.
func LookupArray(env *Env, name string, span ast.Span) (*Array, error) {
	val, ok := env.Get(name)
	if !ok {
		return nil, unboundError(name, span)
	}
	arr, ok := val.(*Array)
	if !ok {
		return nil, Errorf(diagnostics.ENotArray, &span, "'%s' is not an array (it is %s)", name, TypeName(val))
	}
	return arr, nil
}

// CheckIndex validates idx against arr and returns it as a slice position.
func CheckIndex(arr *Array, name string, idx Value, span ast.Span) (int, error) {
	n, ok := AsInt(idx)
	if !ok || n < 0 || n >= int64(arr.Len()) {
		return 0, Errorf(diagnostics.EIndex, &span, "index %s out of bounds for array '%s' of length %d", Format(idx), name, arr.Len())
	}
	return int(n), nil
}

func evalIndex(e *ast.IndexExpr, env *Env) (Value, error) {
	idx, err := Eval(e.Index, env)
	if err != nil {
		return nil, err
	}
	arr, err := LookupArray(env, e.Name, e.Span)
	if err != nil {
		return nil, err
	}
	i, err := CheckIndex(arr, e.Name, idx, e.Span)
	if err != nil {
		return nil, err
	}
	return arr.Items[i], nil
}

func evalUnary(e *ast.UnaryExpr, env *Env) (Value, error) {
	operand, err := Eval(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch n := operand.(type) {
	case Integer:
		if n.Value == math.MinInt64 {
			return NewFloat(-float64(n.Value)), nil
		}
		return NewInteger(-n.Value), nil
	case Float:
		return NewFloat(-n.Value), nil
	}
	span := e.Span
	return nil, Errorf(diagnostics.EType, &span, "unary '-' requires a number, got %s", TypeName(operand))
}

func evalBinary(e *ast.BinaryExpr, env *Env) (Value, error) {
	// Logical operators short-circuit.
	if e.Op == ast.OpAnd || e.Op == ast.OpOr {
		left, err := Eval(e.Left, env)
		if err != nil {
			return nil, err
		}
		l := Truthiness(left)
		if e.Op == ast.OpAnd && !l {
			return NewBoolean(false), nil
		}
		if e.Op == ast.OpOr && l {
			return NewBoolean(true), nil
		}
		right, err := Eval(e.Right, env)
		if err != nil {
			return nil, err
		}
		return NewBoolean(Truthiness(right)), nil
	}

	left, err := Eval(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := Eval(e.Right, env)
	if err != nil {
		return nil, err
	}
	return Apply(e.Op, left, right, e.Span)
}

// Apply evaluates a non-logical binary operator on two values.
func Apply(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		_, lStr := left.(String)
		_, rStr := right.(String)
		if lStr || rStr {
			return NewString(Format(left) + Format(right)), nil
		}
		return arithmetic(op, left, right, span)

	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return arithmetic(op, left, right, span)

	case ast.OpEqEq:
		return NewBoolean(Equal(left, right)), nil

	case ast.OpNeq:
		return NewBoolean(!Equal(left, right)), nil

	case ast.OpGt, ast.OpLt, ast.OpGtEq, ast.OpLtEq:
		return compare(op, left, right, span)
	}
	return nil, Errorf(diagnostics.ESyntax, &span, "unknown operator '%s'", string(op))
}

func arithmetic(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	if _, ok := toFloat(left); !ok {
		return nil, operandError(op, left, right, span)
	}
	if _, ok := toFloat(right); !ok {
		return nil, operandError(op, left, right, span)
	}

	li, lInt := left.(Integer)
	ri, rInt := right.(Integer)
	if lInt && rInt {
		return intArithmetic(op, li.Value, ri.Value, span)
	}

	l, _ := toFloat(left)
	r, _ := toFloat(right)
	switch op {
	case ast.OpAdd:
		return NewFloat(l + r), nil
	case ast.OpSub:
		return NewFloat(l - r), nil
	case ast.OpMul:
		return NewFloat(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return nil, Errorf(diagnostics.EDivZero, &span, "division by zero")
		}
		return NewFloat(l / r), nil
	case ast.OpMod:
		if r == 0 {
			return nil, Errorf(diagnostics.EDivZero, &span, "modulo by zero")
		}
		return NewFloat(math.Mod(l, r)), nil
	}
	return nil, Errorf(diagnostics.ESyntax, &span, "unknown operator '%s'", string(op))
}

// intArithmetic keeps integer results integral. Division that does not come
// out even produces a Float, and so does any result outside the int64 range.
func intArithmetic(op ast.BinaryOp, l, r int64, span ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		s := l + r
		if (l > 0 && r > 0 && s < 0) || (l < 0 && r < 0 && s >= 0) {
			return NewFloat(float64(l) + float64(r)), nil
		}
		return NewInteger(s), nil
	case ast.OpSub:
		d := l - r
		if (l >= 0 && r < 0 && d < 0) || (l < 0 && r > 0 && d >= 0) {
			return NewFloat(float64(l) - float64(r)), nil
		}
		return NewInteger(d), nil
	case ast.OpMul:
		if mulOverflows(l, r) {
			return NewFloat(float64(l) * float64(r)), nil
		}
		return NewInteger(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return nil, Errorf(diagnostics.EDivZero, &span, "division by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return NewFloat(-float64(l)), nil
		}
		if l%r == 0 {
			return NewInteger(l / r), nil
		}
		return NewFloat(float64(l) / float64(r)), nil
	case ast.OpMod:
		if r == 0 {
			return nil, Errorf(diagnostics.EDivZero, &span, "modulo by zero")
		}
		return NewInteger(l % r), nil
	}
	return nil, Errorf(diagnostics.ESyntax, &span, "unknown operator '%s'", string(op))
}

func mulOverflows(l, r int64) bool {
	if l == 0 || r == 0 {
		return false
	}
	if (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
		return true
	}
	return (l*r)/r != l
}

func operandError(op ast.BinaryOp, left, right Value, span ast.Span) *RuntimeError {
	return Errorf(diagnostics.EType, &span, "'%s' requires two numbers, got %s and %s", string(op), TypeName(left), TypeName(right))
}

func compare(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	if l, ok := toFloat(left); ok {
		if r, ok := toFloat(right); ok {
			li, lInt := left.(Integer)
			ri, rInt := right.(Integer)
			if lInt && rInt {
				return NewBoolean(ordered(op, cmp.Compare(li.Value, ri.Value))), nil
			}
			return NewBoolean(ordered(op, cmp.Compare(l, r))), nil
		}
	}
	if ls, ok := left.(String); ok {
		if rs, ok := right.(String); ok {
			return NewBoolean(ordered(op, cmp.Compare(ls.Value, rs.Value))), nil
		}
	}
	return nil, Errorf(diagnostics.EType, &span, "'%s' requires two numbers or two strings, got %s and %s", string(op), TypeName(left), TypeName(right))
}

func ordered(op ast.BinaryOp, c int) bool {
	switch op {
	case ast.OpGt:
		return c > 0
	case ast.OpLt:
		return c < 0
	case ast.OpGtEq:
		return c >= 0
	case ast.OpLtEq:
		return c <= 0
	}
	return false
}
