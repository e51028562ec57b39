package engine

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/lexer"
)

func (e *Engine) exec(ctx context.Context, st Statement) error {
	switch st.Kind {
	case KindBegin:
		e.ip++
		return nil
	case KindPrompt:
		if err := e.write(st.Message); err != nil {
			return err
		}
		e.ip++
		return nil
	case KindRead:
		return e.execRead(ctx, st)
	case KindDisplay:
		return e.execDisplay(st)
	case KindSet:
		return e.execSet(st)
	case KindIf:
		return e.execIf(st)
	case KindElseIf:
		return e.execElseIf(st)
	case KindElse:
		return e.execElse()
	case KindEndIf:
		if _, ok := e.stack.TopIf(); !ok {
			return e.mismatch("endif", "if")
		}
		e.stack.Pop()
		e.ip++
		return nil
	case KindWhile:
		return e.execWhile(st)
	case KindEndWhile:
		return e.execEndWhile()
	case KindFor:
		return e.execFor(st)
	case KindEndFor:
		return e.execEndFor()
	}
	return evaluator.Errorf(diagnostics.EUnknownInstr, nil, "unknown instruction: %s", st.Text)
}

func (e *Engine) mismatch(closer, opener string) error {
	if top := e.stack.Top(); top != nil {
		return evaluator.Errorf(diagnostics.EBlockMismatch, nil, "'%s' without matching '%s' (innermost open block is '%s' on line %d)",
			closer, opener, FrameKind(top), frameLine(top)+1)
	}
	return evaluator.Errorf(diagnostics.EBlockMismatch, nil, "'%s' without matching '%s'", closer, opener)
}

// --- I/O ---

func (e *Engine) execRead(ctx context.Context, st Statement) error {
	if e.opts.Input == nil {
		return evaluator.Errorf(diagnostics.EInput, nil, "no input available for 'read %s'", st.Var)
	}
	text, err := e.opts.Input.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return evaluator.Errorf(diagnostics.EInput, nil, "end of input while reading '%s'", st.Var)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return evaluator.Errorf(diagnostics.EInput, nil, "reading '%s': %v", st.Var, err)
	}

	var val evaluator.Value = evaluator.NewString(text)
	if n, ok := evaluator.ParseNumber(text); ok {
		val = n
	}
	e.env.Set(st.Var, val)
	e.emit(TraceInput, e.ip, map[string]any{"var": st.Var, "text": text, "type": evaluator.TypeName(val)})
	e.ip++
	return nil
}

var elementRe = regexp.MustCompile(`^([A-Za-z_]\w*)\[(.+)\]$`)

func (e *Engine) execDisplay(st Statement) error {
	pieces := make([]string, len(st.Args))
	for i, arg := range st.Args {
		text, err := e.render(arg)
		if err != nil {
			return err
		}
		pieces[i] = text
	}
	if err := e.write(strings.Join(pieces, " ")); err != nil {
		return err
	}
	e.ip++
	return nil
}

// render formats one display argument. Bare names and element accesses
// render a bracketed marker instead of failing when the lookup misses.
func (e *Engine) render(arg string) (string, error) {
	switch {
	case arg == "":
		return "", nil

	case isQuoted(arg):
		return arg[1 : len(arg)-1], nil

	case identRe.MatchString(arg) && !lexer.IsAlias(arg):
		val, ok := e.env.Get(arg)
		if !ok {
			return "[undefined: " + arg + "]", nil
		}
		return evaluator.Format(val), nil
	}

	if m := elementRe.FindStringSubmatch(arg); m != nil && matchBracket(arg[len(m[1]):]) == len(arg)-len(m[1])-1 {
		name, indexSrc := m[1], m[2]
		idx, err := e.eval(e.ip, indexSrc)
		if err != nil {
			return "", err
		}
		val, _ := e.env.Get(name)
		arr, ok := val.(*evaluator.Array)
		if !ok {
			return "[not array: " + name + "]", nil
		}
		i, ok := evaluator.AsInt(idx)
		if !ok || i < 0 || i >= int64(arr.Len()) {
			return "[out of bounds: " + name + "[" + evaluator.Format(idx) + "]]", nil
		}
		return evaluator.Format(arr.Items[i]), nil
	}

	val, err := e.eval(e.ip, arg)
	if err != nil {
		return "", err
	}
	return evaluator.Format(val), nil
}

// --- assignment ---

func (e *Engine) execSet(st Statement) error {
	switch {
	case st.IsArray:
		items := make([]evaluator.Value, len(st.Items))
		for i, raw := range st.Items {
			items[i] = literalItem(raw)
		}
		e.env.Set(st.Var, evaluator.NewArray(items))

	case st.Index != "":
		idx, err := e.eval(e.ip, st.Index)
		if err != nil {
			return err
		}
		val, err := e.eval(e.ip, st.Expr)
		if err != nil {
			return err
		}
		span := lineSpan(e.prog, e.ip)
		arr, err := evaluator.LookupArray(e.env, st.Var, span)
		if err != nil {
			return err
		}
		i, err := evaluator.CheckIndex(arr, st.Var, idx, span)
		if err != nil {
			return err
		}
		arr.Items[i] = val

	default:
		val, err := e.eval(e.ip, st.Expr)
		if err != nil {
			return err
		}
		e.env.Set(st.Var, val)
	}
	e.ip++
	return nil
}

// literalItem interprets one array literal element: a quoted string, a
// number, or else the raw text.
func literalItem(raw string) evaluator.Value {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return evaluator.NewString(raw[1 : len(raw)-1])
	}
	if n, ok := evaluator.ParseNumber(raw); ok {
		return n
	}
	return evaluator.NewString(raw)
}

// --- conditionals ---

func (e *Engine) execIf(st Statement) error {
	taken, err := e.truth(e.ip, st.Cond)
	if err != nil {
		return err
	}
	e.stack.Push(&IfFrame{Line: e.ip, EverTaken: taken, Active: taken})
	e.emit(TraceBranch, e.ip, map[string]any{"kind": "if", "taken": taken})
	e.ip++
	if !taken {
		e.skipBranch()
	}
	return nil
}

func (e *Engine) execElseIf(st Statement) error {
	frame, ok := e.stack.TopIf()
	if !ok {
		return e.mismatch("else if", "if")
	}
	if frame.EverTaken {
		frame.Active = false
	} else {
		taken, err := e.truth(e.ip, st.Cond)
		if err != nil {
			return err
		}
		frame.EverTaken, frame.Active = taken, taken
	}
	e.emit(TraceBranch, e.ip, map[string]any{"kind": "else_if", "taken": frame.Active})
	e.ip++
	if !frame.Active {
		e.skipBranch()
	}
	return nil
}

func (e *Engine) execElse() error {
	frame, ok := e.stack.TopIf()
	if !ok {
		return e.mismatch("else", "if")
	}
	frame.Active = !frame.EverTaken
	frame.EverTaken = true
	e.emit(TraceBranch, e.ip, map[string]any{"kind": "else", "taken": frame.Active})
	e.ip++
	if !frame.Active {
		e.skipBranch()
	}
	return nil
}

// skipBranch advances to the next else if, else or endif belonging to the
// current if, stepping over nested if constructs. The stopping line is
// left for the main loop to execute.
func (e *Engine) skipBranch() {
	depth := 0
	for ; e.ip < e.prog.Len(); e.ip++ {
		switch Classify(e.prog.Text(e.ip)) {
		case KindIf:
			depth++
		case KindEndIf:
			if depth == 0 {
				return
			}
			depth--
		case KindElseIf, KindElse:
			if depth == 0 {
				return
			}
		}
	}
}

// --- loops ---

func (e *Engine) execWhile(st Statement) error {
	ok, err := e.truth(e.ip, st.Cond)
	if err != nil {
		return err
	}
	if !ok {
		e.emit(TraceLoopExit, e.ip, map[string]any{"kind": "while"})
		e.ip = e.blocks[e.ip] + 1
		return nil
	}
	e.stack.Push(&WhileFrame{Line: e.ip, Cond: st.Cond})
	e.ip++
	return nil
}

func (e *Engine) execEndWhile() error {
	frame, ok := e.stack.TopWhile()
	if !ok {
		return e.mismatch("endwhile", "while")
	}
	again, err := e.truth(frame.Line, frame.Cond)
	if err != nil {
		return err
	}
	if again {
		e.emit(TraceLoopIter, frame.Line, map[string]any{"kind": "while"})
		e.ip = frame.Line + 1
		return nil
	}
	e.stack.Pop()
	e.emit(TraceLoopExit, frame.Line, map[string]any{"kind": "while"})
	e.ip++
	return nil
}

func (e *Engine) execFor(st Statement) error {
	start, err := e.forBound(st.Start, "start")
	if err != nil {
		return err
	}
	end, err := e.forBound(st.End, "end")
	if err != nil {
		return err
	}
	e.env.Set(st.Var, evaluator.NewInteger(start))

	if start > end {
		e.emit(TraceLoopExit, e.ip, map[string]any{"kind": "for", "var": st.Var, "iterations": 0})
		e.ip = e.blocks[e.ip] + 1
		return nil
	}
	e.stack.Push(&ForFrame{Line: e.ip, Var: st.Var, Current: start, End: end})
	e.ip++
	return nil
}

func (e *Engine) forBound(src, which string) (int64, error) {
	val, err := e.eval(e.ip, src)
	if err != nil {
		return 0, err
	}
	n, ok := evaluator.AsInt(val)
	if !ok {
		return 0, evaluator.Errorf(diagnostics.EType, nil, "'for' %s must be an integer, got %s %q", which, evaluator.TypeName(val), evaluator.Format(val))
	}
	return n, nil
}

func (e *Engine) execEndFor() error {
	frame, ok := e.stack.TopFor()
	if !ok {
		return e.mismatch("endfor", "for")
	}
	if frame.Current < frame.End {
		frame.Current++
		next := frame.Current
		e.env.Set(frame.Var, evaluator.NewInteger(next))
		e.emit(TraceLoopIter, frame.Line, map[string]any{"kind": "for", "var": frame.Var, "value": next})
		e.ip = frame.Line + 1
		return nil
	}
	e.stack.Pop()
	e.emit(TraceLoopExit, frame.Line, map[string]any{"kind": "for", "var": frame.Var})
	e.ip++
	return nil
}
