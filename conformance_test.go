package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/thomasrohde/pseudo/internal/testutil"
	"github.com/thomasrohde/pseudo/pkg/console"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
	"github.com/thomasrohde/pseudo/pkg/runtime"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("listing scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatalf("no scenarios found under %s", testutil.ScenariosDir)
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			source, filename, err := testutil.ReadProgramFile(dir, scenario.Cmd)
			if err != nil {
				t.Fatalf("failed to read program file: %v", err)
			}

			pretty := testutil.HasFlag(scenario.Cmd, "--pretty")
			switch scenario.Cmd[0] {
			case "run":
				runRunScenario(t, source, filename, scenario, pretty)
			case "check":
				runCheckScenario(t, source, filename, scenario, pretty)
			case "fmt":
				runFmtScenario(t, source, filename, scenario)
			default:
				t.Skipf("unsupported command: %s", scenario.Cmd[0])
			}
		})
	}
}

func runRunScenario(t *testing.T, source, filename string, scenario *testutil.Scenario, pretty bool) {
	t.Helper()

	var stdout bytes.Buffer
	opts := []runtime.Option{
		runtime.WithRunID("test"),
		runtime.WithInput(console.NewReader(strings.NewReader(scenario.Stdin))),
		runtime.WithOutput(console.NewWriter(&stdout)),
	}
	if raw := testutil.Flag(scenario.Cmd, "--max-steps"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			t.Fatalf("bad --max-steps in scenario: %v", err)
		}
		opts = append(opts, runtime.WithMaxSteps(n))
	}
	if testutil.HasFlag(scenario.Cmd, "--strict") {
		opts = append(opts, runtime.WithStrict())
	}

	result, execErr := runtime.New(opts...).Run(context.Background(), source, filename)

	if got := runtime.ExitCode(execErr); got != scenario.Expect.ExitCode {
		t.Errorf("exit code: got %d, want %d (error: %v)", got, scenario.Expect.ExitCode, execErr)
	}
	checkStdout(t, stdout.String(), scenario)

	var diags []diagnostics.Diagnostic
	var diagErr *runtime.DiagnosticError
	var rtErr *evaluator.RuntimeError
	switch {
	case errors.As(execErr, &diagErr):
		diags = diagErr.Diagnostics
	case errors.As(execErr, &rtErr):
		diags = []diagnostics.Diagnostic{rtErr.Diagnostic()}
	case execErr != nil:
		t.Fatalf("unexpected error type %T: %v", execErr, execErr)
	}
	if len(diags) > 0 {
		checkStderrExpectations(t, diagnostics.FormatDiagnostics(diags, pretty), diags, scenario)
	} else if scenario.Expect.StderrContains != "" {
		t.Errorf("expected stderr containing %q, got no error", scenario.Expect.StderrContains)
	}

	if result != nil {
		checkVars(t, result.Env, scenario)
	} else if len(scenario.Expect.Vars) > 0 {
		t.Errorf("expected variables but the program never ran")
	}
}

func runCheckScenario(t *testing.T, source, filename string, scenario *testutil.Scenario, pretty bool) {
	t.Helper()

	diags := runtime.New().Check(source, filename)
	exit := runtime.ExitOK
	if len(diags) > 0 {
		exit = runtime.ExitStatic
	}
	if scenario.Expect.ExitCode != exit {
		t.Errorf("exit code: got %d, want %d (diagnostics: %v)", exit, scenario.Expect.ExitCode, diags)
	}
	if len(diags) > 0 {
		checkStderrExpectations(t, diagnostics.FormatDiagnostics(diags, pretty), diags, scenario)
		return
	}
	stdout := "[]\n"
	if pretty {
		stdout = "No errors found.\n"
	}
	checkStdout(t, stdout, scenario)
}

func runFmtScenario(t *testing.T, source, filename string, scenario *testutil.Scenario) {
	t.Helper()

	canonical := testutil.HasFlag(scenario.Cmd, "--canonical")
	formatted := runtime.New().Format(source, filename, canonical)
	checkStdout(t, formatted, scenario)

	// Formatting is idempotent.
	if again := runtime.New().Format(formatted, filename, canonical); again != formatted {
		t.Errorf("formatting is not idempotent:\n first: %q\nsecond: %q", formatted, again)
	}
}

func checkStdout(t *testing.T, stdout string, scenario *testutil.Scenario) {
	t.Helper()

	if want := scenario.Expect.StdoutText; want != nil && stdout != *want {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", stdout, *want)
	}
	if want := scenario.Expect.StdoutContains; want != "" && !strings.Contains(stdout, want) {
		t.Errorf("stdout should contain %q, got: %q", want, stdout)
	}
}

func checkVars(t *testing.T, env *evaluator.Env, scenario *testutil.Scenario) {
	t.Helper()

	for name, raw := range scenario.Expect.Vars {
		want, ok := evaluator.ValueFromJSON(raw)
		if !ok {
			t.Fatalf("scenario value for %s is not representable: %s", name, raw)
		}
		got, bound := env.Get(name)
		if !bound {
			t.Errorf("variable %s is unbound, want %s", name, raw)
			continue
		}
		if !evaluator.Equal(got, want) || evaluator.TypeName(got) != evaluator.TypeName(want) {
			t.Errorf("variable %s = %s (%s), want %s", name, evaluator.ValueToJSONString(got), evaluator.TypeName(got), raw)
		}
	}
	for _, name := range scenario.Expect.Unbound {
		if env.Has(name) {
			t.Errorf("variable %s should be unbound", name)
		}
	}
}

func checkStderrExpectations(t *testing.T, stderrOutput string, diags []diagnostics.Diagnostic, scenario *testutil.Scenario) {
	t.Helper()

	if scenario.Expect.StderrContains != "" {
		if !strings.Contains(stderrOutput, scenario.Expect.StderrContains) {
			t.Errorf("stderr should contain '%s', got: %s", scenario.Expect.StderrContains, stderrOutput)
		}
	}

	if scenario.Expect.StderrJSONSubset == nil {
		return
	}
	var expectedSubset []map[string]any
	if err := json.Unmarshal(scenario.Expect.StderrJSONSubset, &expectedSubset); err != nil {
		t.Fatalf("failed to parse expected stderr JSON subset: %v", err)
	}

	diagsJSON, _ := json.Marshal(diags)
	var actualDiags []map[string]any
	if err := json.Unmarshal(diagsJSON, &actualDiags); err != nil {
		t.Fatalf("failed to parse actual diagnostics: %v", err)
	}

	for _, expected := range expectedSubset {
		found := false
		for _, actual := range actualDiags {
			if isSubset(expected, actual) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("stderr JSON subset not found: %v\nactual: %s", expected, diagsJSON)
		}
	}
}

// isSubset checks if expected is a subset of actual (for JSON comparison).
func isSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !isSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !isSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case nil:
		return actual == nil

	default:
		return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
	}
}
