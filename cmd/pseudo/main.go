// Command pseudo is the pseudocode interpreter CLI entry point.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/pseudo/pkg/config"
	"github.com/thomasrohde/pseudo/pkg/console"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/engine"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/help"
	"github.com/thomasrohde/pseudo/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pseudo <command> [options]")
		fmt.Fprintln(os.Stderr, "commands: run, check, fmt, trace, help, config")
		os.Exit(runtime.ExitUsage)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "trace":
		os.Exit(cmdTrace(os.Args[2:], os.Stdout))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		os.Exit(runtime.ExitUsage)
	}
}

func cmdRun(args []string) int {
	var file, tracePath, runID string
	pretty := false
	verbose := false
	dumpVars := false
	strict := false
	maxSteps := int64(-1)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--verbose", "-v":
			verbose = true
		case "--dump-vars":
			dumpVars = true
		case "--strict":
			strict = true
		case "--trace":
			if i+1 < len(args) {
				i++
				tracePath = args[i]
			}
		case "--run-id":
			if i+1 < len(args) {
				i++
				runID = args[i]
			}
		case "--max-steps":
			if i+1 < len(args) {
				i++
				n, err := strconv.ParseInt(args[i], 10, 64)
				if err != nil || n < 0 {
					fmt.Fprintf(os.Stderr, "error: --max-steps needs a non-negative integer, got %q\n", args[i])
					return runtime.ExitUsage
				}
				maxSteps = n
			}
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: pseudo run <file> [--pretty] [--trace <out.jsonl>] [--max-steps N] [--run-id ID] [--dump-vars] [--strict] [--verbose]")
		return runtime.ExitUsage
	}

	cfg, cfgSource, code := loadConfig(pretty)
	if code != 0 {
		return code
	}
	pretty = pretty || cfg.Pretty || console.IsTerminal(os.Stderr)
	logger := newLogger(cfg, verbose)
	logger.Debug().Str("source", cfgSource).Msg("config loaded")

	if file == "-" {
		fmt.Fprintln(os.Stderr, "error: the program cannot be read from stdin; stdin is used by 'read'")
		return runtime.ExitUsage
	}
	source, filename, code := readSource(file, pretty)
	if code != 0 {
		return code
	}

	input := console.NewStdin(cfg.InputPrompt, cfg.HistoryFile)
	defer input.Close()

	opts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithInput(input),
		runtime.WithOutput(console.NewWriter(os.Stdout)),
		runtime.WithRunID(runID),
		runtime.WithLogger(logger),
	}
	if maxSteps >= 0 {
		opts = append(opts, runtime.WithMaxSteps(maxSteps))
	}
	if strict {
		opts = append(opts, runtime.WithStrict())
	}

	if tracePath != "" {
		traceFile, err := os.Create(tracePath)
		if err != nil {
			printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot create trace file: %s", tracePath), nil, ""), pretty)
			return runtime.ExitUsage
		}
		defer traceFile.Close()
		traceWriter := bufio.NewWriter(traceFile)
		defer traceWriter.Flush()
		enc := json.NewEncoder(traceWriter)
		opts = append(opts, runtime.WithTrace(func(ev engine.TraceEvent) {
			if err := enc.Encode(ev); err != nil {
				logger.Debug().Err(err).Msg("trace write failed")
			}
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := runtime.New(opts...)
	result, execErr := rt.Run(ctx, source, filename)

	if dumpVars && result != nil {
		data, err := evaluator.EnvToJSON(result.Env)
		if err == nil {
			fmt.Fprintln(os.Stderr, string(data))
		}
	}

	if execErr != nil {
		var diagErr *runtime.DiagnosticError
		var rtErr *evaluator.RuntimeError
		switch {
		case errors.As(execErr, &diagErr):
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, pretty))
		case errors.As(execErr, &rtErr):
			printDiag(rtErr.Diagnostic(), pretty)
		case errors.Is(execErr, context.Canceled):
			fmt.Fprintln(os.Stderr, "interrupted")
		default:
			fmt.Fprintln(os.Stderr, execErr.Error())
		}
		return runtime.ExitCode(execErr)
	}
	return runtime.ExitOK
}

func cmdCheck(args []string) int {
	var file string
	pretty := false

	for _, arg := range args {
		switch arg {
		case "--pretty":
			pretty = true
		default:
			if !strings.HasPrefix(arg, "-") || arg == "-" {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: pseudo check <file> [--pretty]")
		return runtime.ExitUsage
	}

	source, filename, code := readSource(file, pretty)
	if code != 0 {
		return code
	}

	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return runtime.ExitStatic
	}

	if pretty {
		fmt.Println("No errors found.")
	} else {
		fmt.Println("[]")
	}
	return runtime.ExitOK
}

func cmdFmt(args []string) int {
	var file string
	write := false
	canonical := false

	for _, arg := range args {
		switch arg {
		case "--write", "-w":
			write = true
		case "--canonical":
			canonical = true
		default:
			if !strings.HasPrefix(arg, "-") || arg == "-" {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: pseudo fmt <file> [--write] [--canonical]")
		return runtime.ExitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(os.Stderr, "error: --write cannot be used with stdin")
		return runtime.ExitUsage
	}

	source, filename, code := readSource(file, false)
	if code != 0 {
		return code
	}
	formatted := runtime.New().Format(source, filename, canonical)

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing file: %s\n", err)
			return runtime.ExitUsage
		}
		return runtime.ExitOK
	}
	fmt.Print(formatted)
	return runtime.ExitOK
}

func cmdTrace(args []string, out io.Writer) int {
	var file string
	textOutput := false

	for _, arg := range args {
		switch arg {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: pseudo trace <file.jsonl> [--json|--text]")
		return runtime.ExitUsage
	}

	f, err := os.Open(file)
	if err != nil {
		printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), false)
		return runtime.ExitUsage
	}
	defer f.Close()

	summary := computeTraceSummary(f)
	if textOutput {
		printTraceSummaryText(out, summary)
		return runtime.ExitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(out, string(b))
	return runtime.ExitOK
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if topic == "" {
		fmt.Print(help.QUICKREF)
		return runtime.ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runtime.ExitUsage
	}
	fmt.Print(content)
	return runtime.ExitOK
}

func cmdConfig(args []string) int {
	showPath := false
	for _, arg := range args {
		if arg == "--path" {
			showPath = true
		}
	}

	cfg, source, code := loadConfig(false)
	if code != 0 {
		return code
	}
	if showPath {
		fmt.Println(source)
		return runtime.ExitOK
	}
	data, err := cfg.YAML()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return runtime.ExitUsage
	}
	fmt.Printf("# source: %s\n", source)
	fmt.Print(string(data))
	return runtime.ExitOK
}

func loadConfig(pretty bool) (*config.Config, string, int) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	cfg, source, err := config.Load(cwd)
	if err != nil {
		printDiag(diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, "fix or remove the file"), pretty)
		return nil, "", runtime.ExitUsage
	}
	return cfg, source, 0
}

func newLogger(cfg *config.Config, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose || cfg.LogLevel == "debug" {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: !console.IsTerminal(os.Stderr)}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func printDiag(d diagnostics.Diagnostic, pretty bool) {
	fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(d, pretty))
}

// TraceSummary aggregates the events of one trace file.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	Statements     int            `json:"statements"`
	StatementKinds map[string]int `json:"statementKinds"`
	Branches       int            `json:"branches"`
	LoopIterations int            `json:"loopIterations"`
	Inputs         int            `json:"inputs"`
	Outputs        int            `json:"outputs"`
	Errors         []string       `json:"errors,omitempty"`
	Completed      bool           `json:"completed"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		StatementKinds: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch engine.TraceEventType(event.Event) {
		case engine.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case engine.TraceRunEnd:
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.Completed = ok
			}
		case engine.TraceStmt:
			summary.Statements++
			if kind, ok := event.Data["kind"].(string); ok {
				summary.StatementKinds[kind]++
			}
		case engine.TraceBranch:
			summary.Branches++
		case engine.TraceLoopIter:
			summary.LoopIterations++
		case engine.TraceInput:
			summary.Inputs++
		case engine.TraceOutput:
			summary.Outputs++
		case engine.TraceError:
			if code, ok := event.Data["code"].(string); ok {
				summary.Errors = append(summary.Errors, code)
			}
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	kinds := make([]string, 0, len(s.StatementKinds))
	for kind := range s.StatementKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.StatementKinds[kind])
	}
	fmt.Fprintf(w, "Branches: %d\n", s.Branches)
	fmt.Fprintf(w, "Loop iterations: %d\n", s.LoopIterations)
	fmt.Fprintf(w, "Input/output: %d/%d\n", s.Inputs, s.Outputs)
	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "Errors: %s\n", strings.Join(s.Errors, ", "))
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading stdin: %s\n", err)
			return "", "", runtime.ExitUsage
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), pretty)
		return "", "", runtime.ExitUsage
	}
	return string(source), file, 0
}
