// Package console provides the line-based input and output collaborators
// used by read, prompt and display.
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// DefaultPrompt is shown by the terminal reader before each read.
const DefaultPrompt = "> "

// Input is a closable source of input lines.
type Input interface {
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewStdin returns an interactive line editor when stdin is a terminal and a
// plain line reader otherwise.
func NewStdin(prompt, historyFile string) Input {
	if IsTerminal(os.Stdin) {
		return NewTerminalReader(prompt, historyFile)
	}
	return NewReader(os.Stdin)
}

// Reader reads newline-terminated lines from a stream.
type Reader struct {
	sc      *bufio.Scanner
	pending chan readResult
}

type readResult struct {
	line string
	err  error
}

// NewReader wraps r. Lines may be terminated by "\n" or "\r\n".
func NewReader(r io.Reader) *Reader {
	return &Reader{sc: bufio.NewScanner(r)}
}

// ReadLine returns the next line without its terminator, or io.EOF. If ctx
// is done first the pending line is kept for the next call.
func (r *Reader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.pending == nil {
		r.pending = make(chan readResult, 1)
		go r.scan(r.pending)
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-r.pending:
		r.pending = nil
		return res.line, res.err
	}
}

func (r *Reader) scan(out chan<- readResult) {
	if r.sc.Scan() {
		out <- readResult{line: strings.TrimSuffix(r.sc.Text(), "\r")}
		return
	}
	err := r.sc.Err()
	if err == nil {
		err = io.EOF
	}
	out <- readResult{err: err}
}

// Close is a no-op; the underlying stream belongs to the caller.
func (r *Reader) Close() error {
	return nil
}

// TerminalReader reads lines with an interactive editor and keeps history.
type TerminalReader struct {
	state       *liner.State
	prompt      string
	historyFile string
}

// NewTerminalReader starts a line editor. History is loaded from
// historyFile when it is set.
func NewTerminalReader(prompt, historyFile string) *TerminalReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
	}
	return &TerminalReader{state: state, prompt: prompt, historyFile: historyFile}
}

// ReadLine prompts for one line. Ctrl-C is reported as context.Canceled.
func (t *TerminalReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := t.state.Prompt(t.prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", context.Canceled
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		t.state.AppendHistory(line)
	}
	return line, nil
}

// Close saves history and restores the terminal.
func (t *TerminalReader) Close() error {
	if t.historyFile != "" {
		if f, err := os.Create(t.historyFile); err == nil {
			_, _ = t.state.WriteHistory(f)
			_ = f.Close()
		}
	}
	return t.state.Close()
}

// Writer emits one line per call.
type Writer struct {
	w     io.Writer
	lines int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes line followed by a newline.
func (w *Writer) WriteLine(line string) error {
	if _, err := io.WriteString(w.w, line+"\n"); err != nil {
		return err
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written.
func (w *Writer) Lines() int {
	return w.lines
}
