// Package interp executes symbolized programs by walking their syntax tree.
package interp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/edwingeng/deque"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
)

// signal is the control flow outcome of executing a statement.
type signal uint8

const (
	sigNone signal = iota
	sigBreak
	sigContinue
	sigExit
)

// frame is the run time copy of one scope's symbol table.
type frame struct {
	scope ast.ScopeID
	syms  map[string]*symbol.Symbol
}

// activation is one running callable. blocks holds its live block frames,
// outermost first.
type activation struct {
	name   string
	fn     *ast.FuncDecl // nil for the main block.
	blocks []*frame
	// exit holds the value given to exit(expr) once the callable terminates with it.
	exit *symbol.Value
}

func (a *activation) top() *frame { return a.blocks[len(a.blocks)-1] }

// Runner executes one program. A Runner is not safe for concurrent use.
type Runner struct {
	cfg  Config
	info *symbol.Info
	fmtr intrinsic.Formatter
	log  *slog.Logger
	out  *bufio.Writer
	in   tokenizer
	// tail is output after the last newline, held back while the input
	// is a Prompter.
	tail     []byte
	holdTail bool

	global *frame
	// frames holds the live frames of each scope, indexed by ScopeID.
	frames [][]*frame
	calls  deque.Deque // of *activation
}

// NewRunner returns a Runner for a program symbolized without errors.
// Program output is written to out and input read from in, which may be nil.
func NewRunner(info *symbol.Info, out io.Writer, in LineReader, cfg Config) (*Runner, error) {
	if info == nil || info.Program() == nil {
		return nil, errors.New("interp: nil program")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    cfg,
		info:   info,
		fmtr:   cfg.Formatter(),
		log:    cfg.logger(),
		out:    bufio.NewWriter(out),
		in:     tokenizer{lr: in},
		frames: make([][]*frame, info.NumScopes()),
		calls:  deque.NewDeque(),
	}
	if _, ok := in.(Prompter); ok {
		r.holdTail = true
		r.in.prompt = r.takeTail
	}
	return r, nil
}

// emit writes program output. While holdTail is set the text after the last
// newline stays in r.tail.
func (r *Runner) emit(b []byte) error {
	if !r.holdTail {
		_, err := r.out.Write(b)
		return err
	}
	r.tail = append(r.tail, b...)
	i := bytes.LastIndexByte(r.tail, '\n')
	if i < 0 {
		return nil
	}
	_, err := r.out.Write(r.tail[:i+1])
	r.tail = append(r.tail[:0], r.tail[i+1:]...)
	return err
}

// takeTail returns and clears the held back output.
func (r *Runner) takeTail() string {
	s := string(r.tail)
	r.tail = r.tail[:0]
	return s
}

// Run executes the program: global declarations first, then the main block.
// Output written before a runtime error is kept.
func (r *Runner) Run() (err error) {
	defer func() {
		if _, werr := r.out.Write(r.tail); err == nil {
			err = werr
		}
		r.tail = r.tail[:0]
		if ferr := r.out.Flush(); err == nil {
			err = ferr
		}
	}()
	prog := r.info.Program()
	r.global, err = r.pushFrame(prog.Scope)
	if err != nil {
		return err
	}
	defer r.popFrame(r.global)

	globals := &activation{name: "<global>"}
	for _, n := range prog.Nodes {
		if vd, ok := n.(*ast.VarDecl); ok {
			if err := r.declareAll(globals, r.global, vd); err != nil {
				return err
			}
		}
	}
	main := prog.Main()
	if main == nil {
		return nil
	}
	act := &activation{name: symbol.EntryName}
	r.calls.PushBack(act)
	defer r.calls.PopBack()
	_, err = r.execBlock(act, main)
	return r.traceback(err)
}

// CallDepth returns the number of active callables including the main block.
func (r *Runner) CallDepth() int { return r.calls.Len() }

// traceback records the active callables on a runtime error that has none yet.
func (r *Runner) traceback(err error) error {
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Stack != nil {
		return err
	}
	rerr.Stack = make([]string, r.calls.Len())
	r.calls.Range(func(i int, v deque.Elem) bool {
		rerr.Stack[len(rerr.Stack)-1-i] = v.(*activation).name
		return true
	})
	return err
}

func (r *Runner) pushFrame(scope ast.ScopeID) (*frame, error) {
	if n := len(r.frames[scope]); n >= r.cfg.MaxDepth {
		return nil, &RuntimeError{Kind: ErrDepthExceeded, Pos: -1,
			Msg: fmt.Sprintf("scope %d has %d live frames", scope, n)}
	}
	t := r.info.Table(scope)
	f := &frame{scope: scope, syms: make(map[string]*symbol.Symbol, len(t.Symbols()))}
	for _, sym := range t.Symbols() {
		c := sym.Copy()
		zero(c)
		f.syms[sym.Name()] = c
	}
	r.frames[scope] = append(r.frames[scope], f)
	r.log.Debug("push frame", slog.Int("scope", int(scope)), slog.Int("depth", len(r.frames[scope])))
	return f, nil
}

func (r *Runner) popFrame(f *frame) {
	stack := r.frames[f.scope]
	if len(stack) == 0 || stack[len(stack)-1] != f {
		panic("interp: frame popped out of order")
	}
	r.frames[f.scope] = stack[:len(stack)-1]
	r.log.Debug("pop frame", slog.Int("scope", int(f.scope)), slog.Int("depth", len(stack)-1))
}

// lookup resolves name in the block frames of act, innermost first, then in
// the global frame.
func (r *Runner) lookup(act *activation, id *ast.Ident) (*symbol.Symbol, error) {
	for i := len(act.blocks) - 1; i >= 0; i-- {
		if sym := act.blocks[i].syms[id.Name]; sym != nil {
			return sym, nil
		}
	}
	if sym := r.global.syms[id.Name]; sym != nil && sym.Kind() != symbol.KindEntry {
		return sym, nil
	}
	return nil, &RuntimeError{Kind: ErrUnresolved, Pos: id.Pos(), Msg: id.Name}
}

// execBlock runs blk in a fresh frame pushed onto act.
func (r *Runner) execBlock(act *activation, blk *ast.Block) (signal, error) {
	f, err := r.pushFrame(blk.Scope)
	if err != nil {
		return sigNone, err
	}
	defer r.popFrame(f)
	act.blocks = append(act.blocks, f)
	defer func() { act.blocks = act.blocks[:len(act.blocks)-1] }()
	if blk.Decls != nil {
		if err := r.declareAll(act, f, blk.Decls); err != nil {
			return sigNone, err
		}
	}
	return r.execStmts(act, blk.Stmts)
}

func (r *Runner) execStmts(act *activation, stmts []ast.Statement) (signal, error) {
	for _, stmt := range stmts {
		sig, err := r.exec(act, stmt)
		if err != nil || sig != sigNone {
			return sig, err
		}
	}
	return sigNone, nil
}

func (r *Runner) exec(act *activation, stmt ast.Statement) (signal, error) {
	switch s := stmt.(type) {
	case *ast.AssignStmt:
		return sigNone, r.assign(act, s)
	case *ast.CallStmt:
		_, err := r.call(act, s.Call, true)
		return sigNone, err
	case *ast.VarDecl:
		return sigNone, r.declareAll(act, act.top(), s)
	case *ast.IfStmt:
		return r.execIf(act, s)
	case *ast.WhileStmt:
		return r.execWhile(act, s)
	case *ast.ForStmt:
		return r.execFor(act, s)
	case *ast.RepeatStmt:
		return r.execRepeat(act, s)
	case *ast.BreakStmt:
		return sigBreak, nil
	case *ast.ContinueStmt:
		return sigContinue, nil
	case *ast.ExitStmt:
		if s.Value != nil && act.fn != nil && !act.fn.IsProcedure() {
			v, err := r.eval(act, s.Value)
			if err != nil {
				return sigNone, err
			}
			v, err = r.convert(v, symbol.TypeFromToken(act.fn.Result), s.Value)
			if err != nil {
				return sigNone, err
			}
			act.exit = &v
		}
		return sigExit, nil
	case *ast.Block:
		return r.execBlock(act, s)
	}
	return sigNone, fmt.Errorf("interp: unexpected statement %T", stmt)
}

func (r *Runner) condition(act *activation, x ast.Expression) (bool, error) {
	v, err := r.eval(act, x)
	if err != nil {
		return false, err
	}
	if err := scalar(v, x); err != nil {
		return false, err
	}
	return v.Truth(), nil
}

func (r *Runner) execIf(act *activation, s *ast.IfStmt) (signal, error) {
	ok, err := r.condition(act, s.Cond)
	if err != nil {
		return sigNone, err
	}
	switch {
	case ok:
		return r.execBlock(act, s.Then)
	case s.Else != nil:
		return r.execBlock(act, s.Else)
	}
	return sigNone, nil
}

// loopBody runs one iteration and reports whether the loop must stop and
// which signal to propagate.
func (r *Runner) loopBody(act *activation, body *ast.Block) (stop bool, sig signal, err error) {
	sig, err = r.execBlock(act, body)
	switch {
	case err != nil:
		return true, sigNone, err
	case sig == sigBreak:
		return true, sigNone, nil
	case sig == sigExit:
		return true, sigExit, nil
	}
	return false, sigNone, nil
}

func (r *Runner) execWhile(act *activation, s *ast.WhileStmt) (signal, error) {
	for {
		ok, err := r.condition(act, s.Cond)
		if err != nil || !ok {
			return sigNone, err
		}
		if stop, sig, err := r.loopBody(act, s.Body); stop {
			return sig, err
		}
	}
}

func (r *Runner) execRepeat(act *activation, s *ast.RepeatStmt) (signal, error) {
	for {
		if stop, sig, err := r.loopBody(act, s.Body); stop {
			return sig, err
		}
		done, err := r.condition(act, s.Cond)
		if err != nil || done {
			return sigNone, err
		}
	}
}

// execFor runs a counting loop. The bound is evaluated before every iteration
// and the variable steps after the body, including after continue. A loop
// reaching the largest (or smallest) value of the variable's type ends there.
func (r *Runner) execFor(act *activation, s *ast.ForStmt) (signal, error) {
	if err := r.assign(act, s.Init); err != nil {
		return sigNone, err
	}
	v, err := r.lookup(act, s.Var())
	if err != nil {
		return sigNone, err
	}
	if !v.Type().IsOrdinal() || v.IsAggregate() {
		return sigNone, &RuntimeError{Kind: ErrTypeMismatch, Pos: s.Pos(),
			Msg: "for loop variable " + v.Name() + " is not ordinal"}
	}
	step := int64(1)
	if s.Down {
		step = -1
	}
	for {
		bound, err := r.eval(act, s.Bound)
		if err != nil {
			return sigNone, err
		}
		if err := scalar(bound, s.Bound); err != nil {
			return sigNone, err
		}
		cur := v.Value.AsInt()
		if !s.Down && cur > bound.AsInt() || s.Down && cur < bound.AsInt() {
			return sigNone, nil
		}
		if stop, sig, err := r.loopBody(act, s.Body); stop {
			return sig, err
		}
		cur = v.Value.AsInt()
		n := cur + step
		next, _ := symbol.IntValue(n).Convert(v.Type())
		if (n > cur) != (step > 0) || next.AsInt() != n {
			// The variable cannot step past the limit of its type.
			return sigNone, nil
		}
		v.Value = next
	}
}
