package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFlags(t *testing.T) {
	args := []string{"run", "p.pseudo", "--max-steps", "50", "--strict"}
	if got := Flag(args, "--max-steps"); got != "50" {
		t.Errorf("Flag(--max-steps) = %q", got)
	}
	if got := Flag(args, "--strict"); got != "" {
		t.Errorf("Flag without value = %q", got)
	}
	if !HasFlag(args, "--strict") || HasFlag(args, "--pretty") {
		t.Error("HasFlag mismatch")
	}
}

func TestListAndLoadScenarios(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b", "a"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		body := `{"cmd":["run","program.pseudo"],"stdin":"1\n","expect":{"exitCode":0,"stdoutText":"","vars":{"x":1}}}`
		if err := os.WriteFile(filepath.Join(dir, "scenario.json"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "program.pseudo"), []byte("read x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	dirs, err := ListScenarios(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 || filepath.Base(dirs[0]) != "a" {
		t.Fatalf("ListScenarios = %v", dirs)
	}

	s, err := LoadScenario(dirs[0])
	if err != nil {
		t.Fatal(err)
	}
	if s.Stdin != "1\n" || s.Expect.StdoutText == nil || *s.Expect.StdoutText != "" {
		t.Errorf("scenario = %+v", s)
	}
	if string(s.Expect.Vars["x"]) != "1" {
		t.Errorf("vars = %v", s.Expect.Vars)
	}

	src, name, err := ReadProgramFile(dirs[0], s.Cmd)
	if err != nil || src != "read x\n" || name != "program.pseudo" {
		t.Errorf("ReadProgramFile = %q %q %v", src, name, err)
	}
}
