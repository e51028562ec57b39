// Package engine executes pseudocode programs line by line. It owns the
// block map, the control stack and the statement handlers.
package engine

import "strings"

// Program is the immutable, indexed sequence of source lines.
type Program struct {
	File  string
	Lines []string
}

// NewProgram splits source into lines. Carriage returns and trailing
// whitespace are dropped; blank lines keep their index.
func NewProgram(source, file string) *Program {
	raw := strings.Split(source, "\n")
	if n := len(raw); n > 1 && raw[n-1] == "" {
		raw = raw[:n-1]
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return &Program{File: file, Lines: lines}
}

// Len returns the number of lines.
func (p *Program) Len() int {
	return len(p.Lines)
}

// Text returns line i without leading or trailing whitespace.
func (p *Program) Text(i int) string {
	return strings.TrimSpace(p.Lines[i])
}

// Indent returns the column (1-based) of the first non-blank character on line i.
func (p *Program) Indent(i int) int {
	line := p.Lines[i]
	return len(line) - len(strings.TrimLeft(line, " \t")) + 1
}
