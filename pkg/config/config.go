// Package config loads interpreter settings from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectFile is looked up in the working directory.
	ProjectFile = ".pseudo.yaml"
	// SourceDefault names the built-in settings in Load's source result.
	SourceDefault = "default"
)

// Config holds the settings a run can be tuned with. CLI flags take
// precedence over every field.
type Config struct {
	MaxSteps    int64  `yaml:"max_steps"`
	InputPrompt string `yaml:"input_prompt"`
	Pretty      bool   `yaml:"pretty"`
	LogLevel    string `yaml:"log_level"`
	HistoryFile string `yaml:"history_file,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		InputPrompt: "> ",
		LogLevel:    "info",
	}
}

// UserFile returns the path of the per-user config file.
func UserFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pseudo", "config.yaml"), nil
}

// Load finds the effective configuration.
// Precedence: project (.pseudo.yaml) → user (~/.pseudo/config.yaml) → defaults.
// The second result names the file used, or SourceDefault. A file that
// exists but does not parse is an error rather than skipped.
func Load(projectDir string) (*Config, string, error) {
	paths := []string{filepath.Join(projectDir, ProjectFile)}
	if userPath, err := UserFile(); err == nil {
		paths = append(paths, userPath)
	}

	for _, path := range paths {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return Default(), SourceDefault, nil
}

// LoadFile reads one config file. Fields left out keep their defaults;
// unknown fields are rejected.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	// An empty file decodes as io.EOF and leaves the defaults in place.
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be >= 0, got %d", c.MaxSteps)
	}
	switch c.LogLevel {
	case "info", "debug":
	default:
		return fmt.Errorf("log_level must be \"info\" or \"debug\", got %q", c.LogLevel)
	}
	return nil
}

// YAML renders the configuration with two-space indentation.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: encoder close: %w", err)
	}
	return buf.Bytes(), nil
}
