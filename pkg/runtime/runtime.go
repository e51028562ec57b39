// Package runtime provides the top-level pseudocode runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thomasrohde/pseudo/pkg/config"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/engine"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/formatter"
	"github.com/thomasrohde/pseudo/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	RunID string
	Env   *evaluator.Env
	Steps int64
}

// Runtime wires together the engine, its collaborators and tracing.
type Runtime struct {
	input    engine.LineReader
	output   engine.LineWriter
	trace    func(event engine.TraceEvent)
	runID    string
	maxSteps int64
	strict   bool
	logger   zerolog.Logger
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithInput sets the source of lines for read statements.
func WithInput(r engine.LineReader) Option {
	return func(rt *Runtime) {
		rt.input = r
	}
}

// WithOutput sets the destination of prompt and display lines.
func WithOutput(w engine.LineWriter) Option {
	return func(rt *Runtime) {
		rt.output = w
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		if id != "" {
			rt.runID = id
		}
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event engine.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxSteps limits the number of executed statements. Zero means unlimited.
func WithMaxSteps(n int64) Option {
	return func(rt *Runtime) {
		rt.maxSteps = n
	}
}

// WithConfig applies file-based settings. Options given after it win.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		if cfg != nil {
			rt.maxSteps = cfg.MaxSteps
		}
	}
}

// WithStrict makes Run reject programs with any static diagnostic.
func WithStrict() Option {
	return func(rt *Runtime) {
		rt.strict = true
	}
}

// WithLogger sets the debug logger.
func WithLogger(l zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// New creates a new Runtime with the given options.
// By default output is discarded, there is no input and each runtime gets a
// random run ID.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		runID:  uuid.NewString(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RunID returns the run ID stamped on trace events.
func (rt *Runtime) RunID() string {
	return rt.runID
}

// Run loads and executes a program. Loop pairing is checked before the first
// statement runs. On a runtime error the partial Result is returned with it.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	prog := engine.NewProgram(source, filename)
	rt.logger.Debug().Str("file", filename).Int("lines", prog.Len()).Str("run_id", rt.runID).Msg("program loaded")

	if rt.strict {
		if diags := validator.Validate(prog); len(diags) > 0 {
			return nil, &DiagnosticError{Diagnostics: diags}
		}
	}

	eng, err := engine.New(prog, engine.Options{
		Input:    rt.input,
		Output:   rt.output,
		Trace:    rt.trace,
		RunID:    rt.runID,
		MaxSteps: rt.maxSteps,
	})
	if err != nil {
		rt.logger.Debug().Err(err).Msg("block matching failed")
		return nil, err
	}
	rt.logger.Debug().Int("loops", len(eng.Blocks())).Msg("block map built")

	err = eng.Run(ctx)
	result := &Result{RunID: rt.runID, Env: eng.Env(), Steps: eng.Steps()}
	rt.logger.Debug().Int64("steps", result.Steps).Int("variables", result.Env.Len()).Err(err).Msg("run finished")
	return result, err
}

// Check validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	return validator.Validate(engine.NewProgram(source, filename))
}

// Format re-indents a program; canonical also rewrites its expressions.
func (rt *Runtime) Format(source, filename string, canonical bool) string {
	return formatter.Format(engine.NewProgram(source, filename), formatter.Options{Canonical: canonical})
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Exit codes returned by the pseudo command.
const (
	ExitOK      = 0
	ExitUsage   = 1
	ExitStatic  = 2
	ExitBudget  = 3
	ExitRuntime = 4
)

// ExitCode maps a Run error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var diagErr *DiagnosticError
	if errors.As(err, &diagErr) {
		return ExitStatic
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitRuntime
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		return ExitUsage
	}
	switch {
	case diagnostics.Static(rtErr.Code):
		return ExitStatic
	case rtErr.Code == diagnostics.EBudget:
		return ExitBudget
	case rtErr.Code == diagnostics.EIO || rtErr.Code == diagnostics.EConfig:
		return ExitUsage
	}
	return ExitRuntime
}
