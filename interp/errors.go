package interp

import (
	"errors"

	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
)

// Kinds of runtime errors. A *RuntimeError matches its kind with errors.Is.
var (
	ErrUnresolved    = errors.New("unresolved identifier")
	ErrIndexRange    = errors.New("index out of range")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrDepthExceeded = errors.New("frame depth exceeded")
	ErrInput         = errors.New("bad input")
	ErrDivideByZero  = intrinsic.ErrDivideByZero
)

// RuntimeError is a fatal error raised while executing a program.
type RuntimeError struct {
	Kind error
	Pos  int // byte offset of the node being executed, -1 if unknown.
	Msg  string
	Err  error // underlying cause, if any.
	// Stack names the callables active when the error was raised, innermost first.
	Stack []string
}

func (e *RuntimeError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuntimeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
