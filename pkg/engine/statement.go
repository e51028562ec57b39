package engine

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
)

// Kind identifies the statement on a line by its leading keyword.
type Kind int

const (
	KindBlank Kind = iota
	KindComment
	KindBegin
	KindEnd
	KindPrompt
	KindRead
	KindDisplay
	KindSet
	KindIf
	KindElseIf
	KindElse
	KindEndIf
	KindWhile
	KindEndWhile
	KindFor
	KindEndFor
	KindUnknown
)

var kindNames = [...]string{
	KindBlank:    "blank",
	KindComment:  "comment",
	KindBegin:    "begin",
	KindEnd:      "end",
	KindPrompt:   "prompt",
	KindRead:     "read",
	KindDisplay:  "display",
	KindSet:      "set",
	KindIf:       "if",
	KindElseIf:   "else_if",
	KindElse:     "else",
	KindEndIf:    "endif",
	KindWhile:    "while",
	KindEndWhile: "endwhile",
	KindFor:      "for",
	KindEndFor:   "endfor",
	KindUnknown:  "unknown",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Opens reports whether k begins a block.
func (k Kind) Opens() bool {
	return k == KindIf || k == KindWhile || k == KindFor
}

// Closes reports whether k ends a block.
func (k Kind) Closes() bool {
	return k == KindEndIf || k == KindEndWhile || k == KindEndFor
}

// Statement is one classified line with its clauses split out. Expression
// clauses are kept as source text and parsed on evaluation.
type Statement struct {
	Kind Kind
	Text string

	Message string   // prompt
	Var     string   // read, set, for
	Cond    string   // if, else if, while
	Index   string   // set with an element target
	Expr    string   // set value
	Items   []string // set with an array literal
	IsArray bool     // set with an array literal
	Start   string   // for
	End     string   // for
	Args    []string // display
}

// splitKeyword separates the first word of text from the rest.
func splitKeyword(text string) (string, string) {
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return strings.ToLower(text), ""
	}
	return strings.ToLower(text[:i]), strings.TrimSpace(text[i+1:])
}

// OpensLoop reports whether text starts a while or for block. A bare
// keyword with no clause is still classified as a loop but opens nothing.
func OpensLoop(text string) bool {
	switch Classify(text) {
	case KindWhile, KindFor:
		_, rest := splitKeyword(text)
		return rest != ""
	}
	return false
}

// Classify returns the statement kind of a trimmed line. Keywords are
// case-insensitive.
func Classify(text string) Kind {
	if text == "" {
		return KindBlank
	}
	if strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
		return KindComment
	}

	word, rest := splitKeyword(text)
	switch word {
	case "begin":
		if rest == "" {
			return KindBegin
		}
	case "end":
		if rest == "" {
			return KindEnd
		}
	case "prompt":
		return KindPrompt
	case "read":
		return KindRead
	case "display":
		return KindDisplay
	case "set":
		return KindSet
	case "if":
		return KindIf
	case "else":
		if rest == "" {
			return KindElse
		}
		if next, _ := splitKeyword(rest); next == "if" {
			return KindElseIf
		}
	case "endif":
		if rest == "" {
			return KindEndIf
		}
	case "while":
		return KindWhile
	case "endwhile":
		if rest == "" {
			return KindEndWhile
		}
	case "for":
		return KindFor
	case "endfor":
		if rest == "" {
			return KindEndFor
		}
	}
	return KindUnknown
}

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	thenRe     = regexp.MustCompile(`(?i)^(.+?)\s+then$`)
	whileRe    = regexp.MustCompile(`(?i)^(.+?)(?:\s+(?:do|then))?$`)
	forRe      = regexp.MustCompile(`(?i)^([A-Za-z_]\w*)\s+from\s+(.+?)\s+to\s+(.+?)\s+do$`)
	setToRe    = regexp.MustCompile(`(?i)^\s+to\s+(.+)$`)
	arrayLitRe = regexp.MustCompile(`^\[(.*)\]$`)
)

// ParseStatement classifies text and splits its clauses. Malformed clauses
// of a recognized keyword are E_SYNTAX; lines matching no keyword are
// E_UNKNOWN_INSTR.
func ParseStatement(text string) (Statement, error) {
	text = strings.TrimSpace(text)
	st := Statement{Kind: Classify(text), Text: text}
	_, rest := splitKeyword(text)

	switch st.Kind {
	case KindPrompt:
		st.Message = unquote(rest)

	case KindRead:
		if !identRe.MatchString(rest) {
			return st, syntaxError("'read' expects a variable name", "read <name>")
		}
		st.Var = rest

	case KindDisplay:
		st.Args = SplitArgs(rest)

	case KindSet:
		if err := parseSet(&st, rest); err != nil {
			return st, err
		}

	case KindIf:
		m := thenRe.FindStringSubmatch(rest)
		if m == nil {
			return st, syntaxError("invalid 'if' statement", "if <condition> then")
		}
		st.Cond = strings.TrimSpace(m[1])

	case KindElseIf:
		_, cond := splitKeyword(rest)
		m := thenRe.FindStringSubmatch(cond)
		if m == nil {
			return st, syntaxError("invalid 'else if' statement", "else if <condition> then")
		}
		st.Cond = strings.TrimSpace(m[1])

	case KindWhile:
		m := whileRe.FindStringSubmatch(rest)
		if m == nil || isClauseKeyword(m[1]) {
			return st, syntaxError("invalid 'while' statement", "while <condition> do")
		}
		st.Cond = strings.TrimSpace(m[1])

	case KindFor:
		m := forRe.FindStringSubmatch(rest)
		if m == nil {
			return st, syntaxError("invalid 'for' statement", "for <name> from <start> to <end> do")
		}
		st.Var, st.Start, st.End = m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])

	case KindUnknown:
		err := evaluator.Errorf(diagnostics.EUnknownInstr, nil, "unknown instruction: %s", text)
		word, _ := splitKeyword(text)
		if kw := SuggestKeyword(word); kw != "" {
			err.Hint = "did you mean '" + kw + "'?"
		}
		return st, err
	}
	return st, nil
}

// keywords is the statement vocabulary in suggestion order.
var keywords = []string{
	"if", "set", "read", "display", "prompt", "while", "for",
	"else", "endif", "endwhile", "endfor", "begin", "end",
}

// SuggestKeyword returns the statement keyword closest to word, or "" when
// none is within two edits.
func SuggestKeyword(word string) string {
	word = strings.ToLower(word)
	best, bestDist := "", 3
	for _, kw := range keywords {
		d := fuzzy.LevenshteinDistance(word, kw)
		if d < bestDist && d < len(word) {
			best, bestDist = kw, d
		}
	}
	return best
}

func isClauseKeyword(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "do" || s == "then"
}

// parseSet handles the three assignment forms:
//
//	set name to [item, item, ...]
//	set name[index] to expr
//	set name to expr
func parseSet(st *Statement, rest string) error {
	usage := "set <name> to <expression>"
	name := leadingIdent(rest)
	if name == "" {
		return syntaxError("invalid 'set' statement", usage)
	}
	tail := rest[len(name):]

	if strings.HasPrefix(tail, "[") {
		end := matchBracket(tail)
		if end < 0 {
			return syntaxError("unclosed '[' in 'set' target", "set <name>[<index>] to <expression>")
		}
		st.Index = strings.TrimSpace(tail[1:end])
		if st.Index == "" {
			return syntaxError("missing index in 'set' target", "set <name>[<index>] to <expression>")
		}
		tail = tail[end+1:]
	}

	m := setToRe.FindStringSubmatch(tail)
	if m == nil {
		return syntaxError("invalid 'set' statement", usage)
	}
	st.Var = name
	value := strings.TrimSpace(m[1])

	if st.Index == "" {
		if lit := arrayLitRe.FindStringSubmatch(value); lit != nil {
			st.IsArray = true
			if strings.TrimSpace(lit[1]) != "" {
				st.Items = SplitArgs(lit[1])
			}
			return nil
		}
	}
	st.Expr = value
	return nil
}

func leadingIdent(s string) string {
	for i, r := range s {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if isLetter || (isDigit && i > 0) {
			continue
		}
		return s[:i]
	}
	return s
}

// matchBracket returns the index of the ']' closing the '[' at s[0],
// ignoring brackets inside string literals, or -1.
func matchBracket(s string) int {
	depth := 0
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// SplitArgs splits a comma-separated list at top level. Commas inside
// double quotes or square brackets do not split. An empty list yields no
// arguments.
func SplitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	var current strings.Builder
	inQuotes := false
	depth := 0
	for _, ch := range s {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case ch == '[':
			depth++
		case ch == ']':
			depth--
		case ch == ',' && depth == 0:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteRune(ch)
	}
	return append(args, strings.TrimSpace(current.String()))
}

// unquote strips one pair of surrounding double quotes, if present.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// isQuoted reports whether s is exactly one double-quoted string literal.
func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' && !strings.Contains(s[1:len(s)-1], `"`)
}

func syntaxError(msg, usage string) *evaluator.RuntimeError {
	err := evaluator.Errorf(diagnostics.ESyntax, nil, "%s", msg)
	err.Hint = "expected: " + usage
	return err
}
