package engine

// Frame is one open if/while/for construct on the control stack.
type Frame interface {
	frame() Kind
}

// IfFrame tracks an if/else if/else chain. EverTaken becomes true once any
// branch has run; Active says whether the current branch runs.
type IfFrame struct {
	Line      int
	EverTaken bool
	Active    bool
}

// WhileFrame remembers where the loop starts and the condition to re-check.
type WhileFrame struct {
	Line int
	Cond string
}

// ForFrame holds the loop variable and its integer bounds.
type ForFrame struct {
	Line    int
	Var     string
	Current int64
	End     int64
}

func (*IfFrame) frame() Kind    { return KindIf }
func (*WhileFrame) frame() Kind { return KindWhile }
func (*ForFrame) frame() Kind   { return KindFor }

// FrameKind returns the opener kind of f.
func FrameKind(f Frame) Kind {
	return f.frame()
}

// ControlStack is the stack of open constructs.
type ControlStack struct {
	frames []Frame
}

// Push adds f on top.
func (s *ControlStack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Top returns the innermost frame, or nil when the stack is empty.
func (s *ControlStack) Top() Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Pop removes the innermost frame.
func (s *ControlStack) Pop() Frame {
	top := s.Top()
	if top != nil {
		s.frames = s.frames[:len(s.frames)-1]
	}
	return top
}

// Len returns the nesting depth.
func (s *ControlStack) Len() int {
	return len(s.frames)
}

// TopIf returns the innermost frame if it is an IfFrame.
func (s *ControlStack) TopIf() (*IfFrame, bool) {
	f, ok := s.Top().(*IfFrame)
	return f, ok
}

// TopWhile returns the innermost frame if it is a WhileFrame.
func (s *ControlStack) TopWhile() (*WhileFrame, bool) {
	f, ok := s.Top().(*WhileFrame)
	return f, ok
}

// TopFor returns the innermost frame if it is a ForFrame.
func (s *ControlStack) TopFor() (*ForFrame, bool) {
	f, ok := s.Top().(*ForFrame)
	return f, ok
}
