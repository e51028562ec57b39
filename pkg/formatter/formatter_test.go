package formatter_test

import (
	"testing"

	"github.com/thomasrohde/pseudo/pkg/engine"
	"github.com/thomasrohde/pseudo/pkg/formatter"
	"github.com/thomasrohde/pseudo/pkg/parser"
)

func format(src string, canonical bool) string {
	return formatter.Format(engine.NewProgram(src, "test.pseudo"), formatter.Options{Canonical: canonical})
}

func TestFormat_Indentation(t *testing.T) {
	src := `BEGIN
SET total TO 0
FOR i FROM 1 TO 3 DO
IF i MOD 2 equals 0 THEN
Display "even", i
ELSE IF i equals 1 then
  # first
display "one"
Else
display "odd"
EndIf
ENDFOR

while total lt 2
set total to total + 1
endwhile
End`

	want := `begin
set total to 0
for i from 1 to 3 do
  if i MOD 2 equals 0 then
    display "even", i
  else if i equals 1 then
    # first
    display "one"
  else
    display "odd"
  endif
endfor

while total lt 2 do
  set total to total + 1
endwhile
end
`
	if got := format(src, false); got != want {
		t.Errorf("Format mismatch.\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_Idempotent(t *testing.T) {
	src := "set a to [1,2,  \"x\"]\nwhile a[0] lt 3 do\nset a[0] to a[0]+1\nendwhile\n"
	once := format(src, false)
	if twice := format(once, false); twice != once {
		t.Errorf("not idempotent:\n%s\nvs\n%s", once, twice)
	}
}

func TestFormat_KeepsUnparsableLines(t *testing.T) {
	got := format("if 1 then\nfrobnicate   all\nendif", false)
	want := "if 1 then\n  frobnicate   all\nendif\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormat_StrayCloserDoesNotUnderflow(t *testing.T) {
	got := format("endif\ndisplay 1", false)
	if got != "endif\ndisplay 1\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormat_Canonical(t *testing.T) {
	src := "if x gt 1 and (y le 2 or z equals 3) then\nset n to (a + b) * (c mod 2)\ndisplay \"v\", -(x + 1), a[i - 1]\nendif"
	want := "if x > 1 && (y <= 2 || z == 3) then\n  set n to (a + b) * (c % 2)\n  display \"v\", -(x + 1), a[i - 1]\nendif\n"
	if got := format(src, true); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormat_CanonicalKeepsDisplayLookups(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"display (x), (a[9])", "display (x), (a[9])\n"},
		{"display (x + 1), a[ (i) ], y", "display x + 1, a[i], y\n"},
		{"display ((n))", "display ((n))\n"},
	}
	for _, tt := range tests {
		if got := format(tt.src, true); got != tt.want {
			t.Errorf("format(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestFormat_BareLoopKeywordDoesNotIndent(t *testing.T) {
	if got := format("while\ndisplay 1", false); got != "while\ndisplay 1\n" {
		t.Errorf("got %q", got)
	}
}

func TestFormatExpr(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "1 + 2 * 3"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"a - (b - c)", "a - (b - c)"},
		{"(a - b) - c", "a - b - c"},
		{"3.0 / 2", "3.0 / 2"},
		{"x <> 1", "x != 1"},
		{"x -ge 1", "x >= 1"},
		{"a or b and c", "a || b && c"},
		{"(a or b) and c", "(a || b) && c"},
		{"--x", "-(-x)"},
	}
	for _, tt := range tests {
		expr, diags := parser.Parse(tt.input, "t")
		if len(diags) > 0 {
			t.Fatalf("parse %q: %v", tt.input, diags)
		}
		if got := formatter.FormatExpr(expr); got != tt.expected {
			t.Errorf("FormatExpr(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
