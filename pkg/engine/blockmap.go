package engine

import (
	"github.com/thomasrohde/pseudo/pkg/ast"
	"github.com/thomasrohde/pseudo/pkg/diagnostics"
	"github.com/thomasrohde/pseudo/pkg/evaluator"
)

// BlockMap pairs the index of every while/for line with the index of its
// endwhile/endfor line.
type BlockMap map[int]int

type opener struct {
	kind Kind
	line int
}

// BuildBlockMap matches loop openers and closers across the whole program.
// if/endif pairs are not tracked; the control stack checks them as they run.
func BuildBlockMap(prog *Program) (BlockMap, error) {
	blocks := make(BlockMap)
	var stack []opener

	for i := 0; i < prog.Len(); i++ {
		kind := Classify(prog.Text(i))
		switch kind {
		case KindWhile, KindFor:
			if OpensLoop(prog.Text(i)) {
				stack = append(stack, opener{kind: kind, line: i})
			}

		case KindEndWhile, KindEndFor:
			want := KindWhile
			if kind == KindEndFor {
				want = KindFor
			}
			if len(stack) == 0 {
				return nil, blockError(prog, i, diagnostics.EBlockMismatch, "'%s' without matching '%s'", kind, want)
			}
			top := stack[len(stack)-1]
			if top.kind != want {
				return nil, blockError(prog, i, diagnostics.EBlockMismatch,
					"'%s' closes the '%s' opened on line %d", kind, top.kind, top.line+1)
			}
			stack = stack[:len(stack)-1]
			blocks[top.line] = i
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		closer := "endwhile"
		if top.kind == KindFor {
			closer = "endfor"
		}
		return nil, blockError(prog, top.line, diagnostics.EUnterminated, "'%s' block missing '%s'", top.kind, closer)
	}
	return blocks, nil
}

func blockError(prog *Program, line int, code, format string, args ...any) *evaluator.RuntimeError {
	span := lineSpan(prog, line)
	return evaluator.Errorf(code, &span, format, args...)
}

func lineSpan(prog *Program, line int) ast.Span {
	span := ast.LineSpan(prog.File, line+1)
	span.StartCol = prog.Indent(line)
	span.EndCol = len(prog.Lines[line]) + 1
	return span
}
