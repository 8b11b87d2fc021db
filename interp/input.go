package interp

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// LineReader supplies program input one line at a time.
// ReadLine returns io.EOF once input is exhausted.
type LineReader interface {
	ReadLine() (string, error)
}

// A Prompter is a LineReader that displays the text written so far on the
// line being read. When the input source is a Prompter the Runner holds back
// an unterminated last output line and hands it over as the prompt.
type Prompter interface {
	LineReader
	PromptLine(prompt string) (string, error)
}

// NewLineReader returns a LineReader over r.
func NewLineReader(r io.Reader) LineReader {
	return &scanReader{s: bufio.NewScanner(r)}
}

type scanReader struct {
	s *bufio.Scanner
}

func (sr *scanReader) ReadLine() (string, error) {
	if sr.s.Scan() {
		return sr.s.Text(), nil
	}
	if err := sr.s.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// TerminalReader reads lines interactively with line editing and history.
type TerminalReader struct {
	state  *liner.State
	prompt string
}

// NewTerminalReader takes control of the terminal. Close must be called to restore it.
func NewTerminalReader(prompt string) *TerminalReader {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	return &TerminalReader{state: st, prompt: prompt}
}

func (tr *TerminalReader) ReadLine() (string, error) {
	return tr.PromptLine(tr.prompt)
}

// PromptLine reads a line after displaying prompt. liner redraws the whole
// line on every keystroke, so text already on it must come through prompt.
func (tr *TerminalReader) PromptLine(prompt string) (string, error) {
	line, err := tr.state.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		tr.state.AppendHistory(line)
	}
	return line, nil
}

// Close restores the terminal.
func (tr *TerminalReader) Close() error {
	return tr.state.Close()
}

// tokenizer splits input lines into whitespace separated tokens for read and readln.
type tokenizer struct {
	lr      LineReader
	pending []string // unconsumed tokens of the last line read.
	// prompt, if set, returns the prompt for the next line of a Prompter.
	prompt func() string
}

// next returns the next token, reading lines as needed.
func (tz *tokenizer) next() (string, error) {
	for len(tz.pending) == 0 {
		if err := tz.fill(); err != nil {
			return "", err
		}
	}
	tok := tz.pending[0]
	tz.pending = tz.pending[1:]
	return tok, nil
}

// rest returns the unconsumed tokens of the current line, reading a new
// line first when none are left.
func (tz *tokenizer) rest() ([]string, error) {
	for len(tz.pending) == 0 {
		if err := tz.fill(); err != nil {
			return nil, err
		}
	}
	toks := tz.pending
	tz.pending = nil
	return toks, nil
}

func (tz *tokenizer) fill() error {
	if tz.lr == nil {
		return io.EOF
	}
	var line string
	var err error
	if p, ok := tz.lr.(Prompter); ok && tz.prompt != nil {
		line, err = p.PromptLine(tz.prompt())
	} else {
		line, err = tz.lr.ReadLine()
	}
	if err != nil {
		return err
	}
	tz.pending = strings.Fields(line)
	return nil
}

// skipLine discards the remainder of the current line.
func (tz *tokenizer) skipLine() { tz.pending = nil }
