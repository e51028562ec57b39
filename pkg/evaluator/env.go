package evaluator

import "sort"

// Env maps variable names to values for one program run.
// A name that was never assigned is absent; reading it is always an error.
type Env struct {
	bindings map[string]Value
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{
		bindings: make(map[string]Value),
	}
}

// Get looks up a variable by name.
func (e *Env) Get(name string) (Value, bool) {
	val, ok := e.bindings[name]
	return val, ok
}

// Set binds or rebinds a variable, replacing any previous value and type.
func (e *Env) Set(name string, val Value) {
	e.bindings[name] = val
}

// Has checks whether a variable is bound.
func (e *Env) Has(name string) bool {
	_, ok := e.bindings[name]
	return ok
}

// Len returns the number of bound variables.
func (e *Env) Len() int {
	return len(e.bindings)
}

// Names returns the bound variable names in sorted order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
