package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/pseudo/pkg/engine"
)

const sampleTrace = `{"ts":"2026-01-02T10:00:00.000Z","runId":"r1","event":"run_start","data":{"file":"a.pseudo","lines":3}}
{"ts":"2026-01-02T10:00:00.001Z","runId":"r1","event":"stmt","data":{"kind":"set"}}
{"ts":"2026-01-02T10:00:00.001Z","runId":"r1","event":"stmt","data":{"kind":"while"}}
{"ts":"2026-01-02T10:00:00.001Z","runId":"r1","event":"loop_iter","data":{"kind":"while"}}
not json
{"ts":"2026-01-02T10:00:00.002Z","runId":"r1","event":"stmt","data":{"kind":"display"}}
{"ts":"2026-01-02T10:00:00.002Z","runId":"r1","event":"output","data":{"text":"1"}}

{"ts":"2026-01-02T10:00:00.003Z","runId":"r1","event":"error","data":{"code":"E_DIV_ZERO","message":"division by zero"}}
{"ts":"2026-01-02T10:00:00.004Z","runId":"r1","event":"run_end","data":{"steps":3,"ok":false}}
`

func TestComputeTraceSummary(t *testing.T) {
	s := computeTraceSummary(strings.NewReader(sampleTrace))
	if s.RunID != "r1" {
		t.Errorf("RunID = %q", s.RunID)
	}
	if s.TotalEvents != 8 {
		t.Errorf("TotalEvents = %d, want 8", s.TotalEvents)
	}
	if s.Statements != 3 || s.StatementKinds["while"] != 1 {
		t.Errorf("statements = %d %v", s.Statements, s.StatementKinds)
	}
	if s.LoopIterations != 1 || s.Outputs != 1 || s.Inputs != 0 {
		t.Errorf("iterations=%d outputs=%d inputs=%d", s.LoopIterations, s.Outputs, s.Inputs)
	}
	if len(s.Errors) != 1 || s.Errors[0] != "E_DIV_ZERO" {
		t.Errorf("Errors = %v", s.Errors)
	}
	if s.Completed {
		t.Error("run_end ok=false should not count as completed")
	}
	if s.DurationMs != 4 {
		t.Errorf("DurationMs = %v, want 4", s.DurationMs)
	}
}

func TestComputeTraceSummary_RoundTripsEngineEvents(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	prog := engine.NewProgram("set x to 1\ndisplay x", "t.pseudo")
	eng, err := engine.New(prog, engine.Options{
		RunID: "abc",
		Trace: func(ev engine.TraceEvent) { _ = enc.Encode(ev) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := computeTraceSummary(&buf)
	if s.RunID != "abc" || !s.Completed {
		t.Errorf("summary = %+v", s)
	}
	if s.Statements != 2 || s.StatementKinds["set"] != 1 || s.StatementKinds["display"] != 1 {
		t.Errorf("statements = %d %v", s.Statements, s.StatementKinds)
	}
}

func TestCmdTrace_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte(sampleTrace), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := cmdTrace([]string{path, "--text"}, &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"Run: r1", "Statements: 3", "  display: 1", "Errors: E_DIV_ZERO"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCmdTrace_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	if err := os.WriteFile(path, []byte(sampleTrace), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if code := cmdTrace([]string{path}, &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var s TraceSummary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if s.Statements != 3 {
		t.Errorf("Statements = %d", s.Statements)
	}
}

func TestCmdTrace_MissingFile(t *testing.T) {
	var out bytes.Buffer
	if code := cmdTrace([]string{filepath.Join(t.TempDir(), "nope.jsonl")}, &out); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
