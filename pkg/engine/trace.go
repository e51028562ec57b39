package engine

import (
	"time"

	"github.com/thomasrohde/pseudo/pkg/ast"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart TraceEventType = "run_start"
	TraceRunEnd   TraceEventType = "run_end"
	TraceStmt     TraceEventType = "stmt"
	TraceBranch   TraceEventType = "branch"
	TraceLoopIter TraceEventType = "loop_iter"
	TraceLoopExit TraceEventType = "loop_exit"
	TraceInput    TraceEventType = "input"
	TraceOutput   TraceEventType = "output"
	TraceError    TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func (e *Engine) emit(event TraceEventType, line int, data map[string]any) {
	if e.opts.Trace == nil {
		return
	}
	var span *ast.Span
	if line >= 0 && line < e.prog.Len() {
		s := lineSpan(e.prog, line)
		span = &s
	}
	e.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     e.opts.RunID,
		Event:     event,
		Span:      span,
		Data:      data,
	})
}
