package parser_test

import (
	"testing"

	"github.com/thomasrohde/pseudo/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; it should return diagnostics for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`1 + 2 * 3`,
		`(a + b) * c`,
		`x gt 3 and y lt 4 or z equals 0`,
		`number Mod 2`,
		`a[i + 1]`,
		`a[b[c[0]]]`,
		`-x * -y`,
		`"s" + 1`,
		`((((`,
		`))))`,
		`a[`,
		`]`,
		``,
		`1 +`,
		`-`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Parse panicked on input %q: %v", input, r)
			}
		}()
		expr, diags := parser.Parse(input, "fuzz.pseudo")
		if expr == nil && len(diags) == 0 {
			t.Fatalf("Parse returned neither an expression nor diagnostics for %q", input)
		}
	})
}
