package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/pseudo/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, source, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if source != config.SourceDefault {
		t.Errorf("source = %q, want %q", source, config.SourceDefault)
	}
	if cfg.InputPrompt != "> " || cfg.LogLevel != "info" || cfg.MaxSteps != 0 || cfg.Pretty {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_ProjectBeatsUser(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	project := t.TempDir()

	writeFile(t, filepath.Join(home, ".pseudo", "config.yaml"), "max_steps: 10\n")
	writeFile(t, filepath.Join(project, config.ProjectFile), "max_steps: 99\npretty: true\n")

	cfg, source, err := config.Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if source != filepath.Join(project, config.ProjectFile) {
		t.Errorf("source = %q", source)
	}
	if cfg.MaxSteps != 99 || !cfg.Pretty {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.InputPrompt != "> " {
		t.Errorf("omitted fields should keep defaults, got prompt %q", cfg.InputPrompt)
	}
}

func TestLoad_UserFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".pseudo", "config.yaml"), "input_prompt: \"? \"\nlog_level: debug\n")

	cfg, source, err := config.Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(source, filepath.Join(".pseudo", "config.yaml")) {
		t.Errorf("source = %q", source)
	}
	if cfg.InputPrompt != "? " || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		contain string
	}{
		{"unknown-field", "max_step: 3\n", "max_step"},
		{"bad-type", "max_steps: lots\n", "parse"},
		{"negative-steps", "max_steps: -1\n", "max_steps"},
		{"bad-level", "log_level: loud\n", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			writeFile(t, path, tt.content)
			_, err := config.LoadFile(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Errorf("error %q should mention %q", err, tt.contain)
			}
		})
	}
}

func TestLoad_MalformedProjectIsAnError(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, filepath.Join(project, config.ProjectFile), "pretty: [\n")
	if _, _, err := config.Load(project); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	writeFile(t, path, "")
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.InputPrompt != "> " {
		t.Errorf("empty file should yield defaults, got %+v", cfg)
	}
}

func TestYAML(t *testing.T) {
	cfg := config.Default()
	cfg.MaxSteps = 500
	data, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"max_steps: 500", "input_prompt:", "pretty: false", "log_level: info"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "history_file") {
		t.Errorf("empty history_file should be omitted:\n%s", out)
	}
}
