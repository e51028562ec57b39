// Package help holds the quick reference and topic pages printed by
// `pseudo help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Version is the language version shown in the quick reference.
const Version = "v0.1"

// QUICKREF is printed by `pseudo help` with no topic.
const QUICKREF = `pseudo ` + Version + ` - line-oriented pseudocode interpreter

USAGE
  pseudo run   <file> [--trace out.jsonl] [--max-steps N] [--dump-vars] [--strict]
  pseudo check <file> [--pretty]
  pseudo fmt   <file> [--write] [--canonical]
  pseudo trace <out.jsonl> [--json]
  pseudo config [--path]
  pseudo help  [topic]

A program is a text file with one statement per line:

  begin
    prompt "How many?"
    read n
    for i from 1 to n do
      display "line", i
    endfor
  end

TOPICS (pseudo help <topic>, prefixes accepted)
  statements   every statement form
  expressions  operators, aliases and precedence
  types        integers, floats, strings, booleans and arrays
  loops        while and for semantics
  diagnostics  error codes and exit codes
  trace        NDJSON trace events
  config       .pseudo.yaml settings
  examples     complete programs
`

// Topics maps topic names to their pages.
var Topics = map[string]string{
	"statements":  statementsText,
	"expressions": expressionsText,
	"types":       typesText,
	"loops":       loopsText,
	"diagnostics": diagnosticsText,
	"trace":       traceText,
	"config":      configText,
	"examples":    examplesText,
}

// TopicList is the display order of Topics.
var TopicList = []string{
	"statements", "expressions", "types", "loops",
	"diagnostics", "trace", "config", "examples",
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}

	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		if q != "" {
			if ranks := fuzzy.RankFindFold(q, TopicList); len(ranks) > 0 {
				sort.Sort(ranks)
				return "", "", fmt.Errorf("unknown help topic %q (did you mean %q?)", query, ranks[0].Target)
			}
		}
		return "", "", fmt.Errorf("unknown help topic %q (available: %s)", query, strings.Join(TopicList, ", "))
	}
	sort.Strings(matches)
	return "", "", fmt.Errorf("ambiguous help topic %q (matches: %s)", query, strings.Join(matches, ", "))
}

const statementsText = `STATEMENTS

Keywords are case-insensitive. Leading whitespace is ignored.
Lines starting with # or // are comments.

  begin / end              optional markers; 'end' stops the program
  prompt "text"            print text (quotes are stripped)
  read x                   read one input line into x; numbers become numbers
  display a, "b", c[i]     print comma-separated items joined by one space
  set x to expr            assign
  set a to [1, 2, "x"]     create an array
  set a[i] to expr         assign one element; a must already be an array
  if cond then             conditional block
  else if cond then
  else
  endif
  while cond [do]          loop while cond is truthy
  endwhile
  for i from a to b do     counted loop, inclusive, step 1
  endfor

display prints markers instead of failing for bare names:
  [undefined: x]  [not array: x]  [out of bounds: x[i]]
`

const expressionsText = `EXPRESSIONS

Precedence, loosest first:
  ||  or
  &&  and
  ==  !=  equals
  >  <  >=  <=  gt  lt  ge  le  -gt  -lt  -ge  -le
  +  -
  *  /  %  mod            (mod is case-insensitive)
  unary -
  literals, names, a[i], ( expr )

Word aliases other than mod are case-sensitive: GT is an ordinary name.
&& and || short-circuit.
+ concatenates when either side is a string.
`

const typesText = `TYPES

  integer   42, -7           digits without a decimal point
  float     2.5, 10.0        digits with a decimal point
  string    "hello"          double-quoted, no escapes
  boolean   true / false     produced by comparisons and logic
  array     [1, "a", 2.5]    zero-based, shared by reference

Integer / integer stays an integer when exact, otherwise a float.
Falsy values: false, 0, 0.0 and "". Everything else is truthy.
Arrays display as their elements joined by commas.
`

const loopsText = `LOOPS

while cond do ... endwhile
  cond is evaluated before every iteration.

for i from a to b do ... endfor
  a and b are evaluated once and must be whole numbers.
  The body runs for a, a+1, ..., b. When a > b it does not run.
  i stays bound after the loop.

Loops and ifs must nest properly; 'endwhile' cannot close an 'if'.
`

const diagnosticsText = `DIAGNOSTICS

  E_UNBOUND          variable read before assignment
  E_NOT_ARRAY        indexing a value that is not an array
  E_INDEX            index out of bounds or not a whole number
  E_TYPE             operator applied to unsupported operand types
  E_DIV_ZERO         division or modulo by zero
  E_BLOCK_MISMATCH   closer without its opener
  E_UNTERMINATED     opener without its closer
  E_SYNTAX           malformed statement or expression
  E_LEX              invalid character or unterminated string
  E_UNKNOWN_INSTR    line that is not a statement
  E_BUDGET           --max-steps exceeded
  E_INPUT            read with no input left
  E_IO               output could not be written
  E_CONFIG           config file could not be read or parsed

Exit codes: 0 ok, 1 usage/io/config, 2 static error, 3 budget, 4 runtime error.
`

const traceText = `TRACE

pseudo run prog.pseudo --trace out.jsonl writes one JSON object per line:

  {"ts":"...","runId":"...","event":"stmt","span":{...},"data":{...}}

Events: run_start, stmt, branch, loop_iter, loop_exit, input, output,
error, run_end.

pseudo trace out.jsonl prints a summary (--json for machine output).
`

const configText = `CONFIG

Settings are read from ./.pseudo.yaml, then ~/.pseudo/config.yaml.
The first file found wins; unknown keys are rejected.

  max_steps: 100000      0 means unlimited
  input_prompt: "> "     shown before read on a terminal
  pretty: true           human-readable diagnostics
  log_level: info        info or debug
  history_file: ~/.pseudo_history

pseudo config prints the effective settings and where they came from.
`

const examplesText = `EXAMPLES

Sum of 1..n:

  prompt "n?"
  read n
  set total to 0
  for i from 1 to n do
    set total to total + i
  endfor
  display "sum", total

Even or odd:

  read number
  if number mod 2 equals 0 then
    display number, "is even"
  else
    display number, "is odd"
  endif

Reverse an array:

  set a to [1, 2, 3]
  set i to 2
  while i >= 0 do
    display a[i]
    set i to i - 1
  endwhile
`
