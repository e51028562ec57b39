package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/parser"
)

// LineReader supplies one line of input per read statement. It returns
// io.EOF when input is exhausted.
type LineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// LineWriter receives one line per prompt or display statement.
type LineWriter interface {
	WriteLine(line string) error
}

// Options configures an Engine.
type Options struct {
	Input    LineReader
	Output   LineWriter
	Trace    func(event TraceEvent)
	RunID    string
	MaxSteps int64 // 0 means unlimited
}

// Engine runs one program. It is single-use and not safe for concurrent use.
type Engine struct {
	prog   *Program
	opts   Options
	blocks BlockMap
	env    *evaluator.Env
	stack  ControlStack
	ip     int
	steps  int64
	stmts  map[int]Statement
	exprs  map[exprKey]ast.Expr
}

type exprKey struct {
	line int
	src  string
}

// New prepares prog for execution. The block map is built here, so loop
// mismatches are reported before any statement runs.
func New(prog *Program, opts Options) (*Engine, error) {
	blocks, err := BuildBlockMap(prog)
	if err != nil {
		return nil, err
	}
	return &Engine{
		prog:   prog,
		opts:   opts,
		blocks: blocks,
		env:    evaluator.NewEnv(),
		stmts:  make(map[int]Statement),
		exprs:  make(map[exprKey]ast.Expr),
	}, nil
}

// Env returns the variable environment.
func (e *Engine) Env() *evaluator.Env {
	return e.env
}

// Steps returns the number of statements executed so far.
func (e *Engine) Steps() int64 {
	return e.steps
}

// Blocks returns the precomputed block map.
func (e *Engine) Blocks() BlockMap {
	return e.blocks
}

// Run executes the program until it falls off the last line, reaches an
// end statement, fails, or ctx is done.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.emit(TraceRunStart, -1, map[string]any{"file": e.prog.File, "lines": e.prog.Len()})
	defer func() {
		data := map[string]any{"steps": e.steps, "ok": err == nil}
		if err != nil {
			data["error"] = err.Error()
		}
		e.emit(TraceRunEnd, -1, data)
	}()

	for e.ip < e.prog.Len() {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := e.statement(e.ip)
		if err != nil {
			return e.fail(err)
		}
		if st.Kind == KindBlank || st.Kind == KindComment {
			e.ip++
			continue
		}

		e.steps++
		if e.opts.MaxSteps > 0 && e.steps > e.opts.MaxSteps {
			return e.fail(evaluator.Errorf(diagnostics.EBudget, nil, "step budget exceeded (max %d)", e.opts.MaxSteps))
		}
		e.emit(TraceStmt, e.ip, map[string]any{"kind": st.Kind.String()})

		if st.Kind == KindEnd {
			return nil
		}
		if err := e.exec(ctx, st); err != nil {
			return e.fail(err)
		}
	}

	if top := e.stack.Top(); top != nil {
		line := frameLine(top)
		return e.failAt(line, evaluator.Errorf(diagnostics.EUnterminated, nil,
			"'%s' block opened on line %d is never closed", FrameKind(top), line+1))
	}
	return nil
}

func frameLine(f Frame) int {
	switch f := f.(type) {
	case *IfFrame:
		return f.Line
	case *WhileFrame:
		return f.Line
	case *ForFrame:
		return f.Line
	}
	return 0
}

// statement parses line i once and caches the result.
func (e *Engine) statement(i int) (Statement, error) {
	if st, ok := e.stmts[i]; ok {
		return st, nil
	}
	st, err := ParseStatement(e.prog.Text(i))
	if err != nil {
		return st, err
	}
	e.stmts[i] = st
	return st, nil
}

func (e *Engine) fail(err error) error {
	return e.failAt(e.ip, err)
}

// failAt stamps errors without a location with line and reports them.
func (e *Engine) failAt(line int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		rtErr = evaluator.Errorf(diagnostics.EIO, nil, "%v", err)
	}
	if rtErr.Span == nil && line >= 0 && line < e.prog.Len() {
		span := lineSpan(e.prog, line)
		rtErr.Span = &span
	}
	if rtErr.Code == diagnostics.EUnknownInstr && line < e.prog.Len() {
		rtErr.Message = fmt.Sprintf("unknown instruction on line %d: %s", line+1, e.prog.Text(line))
	}
	e.emit(TraceError, line, map[string]any{"code": rtErr.Code, "message": rtErr.Message})
	return rtErr
}

// eval evaluates an expression clause of line. Parsed expressions are cached
// so loop bodies are parsed once.
func (e *Engine) eval(line int, src string) (evaluator.Value, error) {
	key := exprKey{line: line, src: src}
	expr, ok := e.exprs[key]
	if !ok {
		col := strings.Index(e.prog.Lines[line], src) + 1
		if col <= 0 {
			col = e.prog.Indent(line)
		}
		var diags []diagnostics.Diagnostic
		expr, diags = parser.ParseAt(src, e.prog.File, line+1, col)
		if len(diags) > 0 {
			return nil, evaluator.FromDiagnostic(diags[0])
		}
		e.exprs[key] = expr
	}
	return evaluator.Eval(expr, e.env)
}

func (e *Engine) truth(line int, src string) (bool, error) {
	val, err := e.eval(line, src)
	if err != nil {
		return false, err
	}
	return evaluator.Truthiness(val), nil
}

func (e *Engine) write(text string) error {
	e.emit(TraceOutput, e.ip, map[string]any{"text": text})
	if e.opts.Output == nil {
		return nil
	}
	if err := e.opts.Output.WriteLine(text); err != nil {
		return evaluator.Errorf(diagnostics.EIO, nil, "writing output: %v", err)
	}
	return nil
}
