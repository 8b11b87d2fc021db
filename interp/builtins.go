package interp

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
)

func (r *Runner) builtin(act *activation, c *ast.CallExpr, stmt bool) (symbol.Value, error) {
	name := c.Name.Name
	args := c.Args.Args
	nargs := func(lo, hi int) error {
		if n := len(args); n < lo || n > hi {
			if lo == hi {
				return mismatch(c, "%s expects %d arguments, got %d", name, lo, n)
			}
			return mismatch(c, "%s expects %d to %d arguments, got %d", name, lo, hi, n)
		}
		return nil
	}
	if result := symbol.BuiltinResult(name); result == symbol.TypeNone && !stmt {
		return symbol.Value{}, mismatch(c, "procedure %s used as a value", name)
	}

	switch name {
	case symbol.BuiltinWrite, symbol.BuiltinWriteln:
		return symbol.Value{}, r.write(act, args, name == symbol.BuiltinWriteln)

	case symbol.BuiltinRead, symbol.BuiltinReadln:
		return symbol.Value{}, r.read(act, args, name == symbol.BuiltinReadln)

	case symbol.BuiltinLength:
		if err := nargs(1, 1); err != nil {
			return symbol.Value{}, err
		}
		v, err := r.eval(act, args[0])
		if err != nil {
			return v, err
		}
		switch {
		case isText(v):
			return symbol.IntValue(int64(len(v.Text()))), nil
		case v.IsRef():
			return symbol.IntValue(int64(v.Elems.Len())), nil
		}
		return symbol.Value{}, mismatch(args[0], "length of %s", v.Type)

	case symbol.BuiltinChr:
		if err := nargs(1, 1); err != nil {
			return symbol.Value{}, err
		}
		n, err := r.ordinal(act, args[0])
		if err != nil {
			return symbol.Value{}, err
		}
		ch, ok := intrinsic.Chr(n)
		if !ok {
			return symbol.Value{}, outOfRange(args[0], "chr(%d)", n)
		}
		return symbol.CharValue(ch), nil

	case symbol.BuiltinOrd:
		if err := nargs(1, 1); err != nil {
			return symbol.Value{}, err
		}
		v, err := r.eval(act, args[0])
		if err != nil {
			return v, err
		}
		if err := scalar(v, args[0]); err != nil {
			return v, err
		}
		switch v.Type {
		case symbol.TypeInteger, symbol.TypeBoolean:
			return symbol.IntValue(v.Int), nil
		}
		if ch, ok := v.Convert(symbol.TypeChar); ok {
			return symbol.IntValue(intrinsic.Ord(byte(ch.Int))), nil
		}
		return symbol.Value{}, mismatch(args[0], "ord of %s", v.Type)

	case symbol.BuiltinInc, symbol.BuiltinDec:
		if err := nargs(1, 2); err != nil {
			return symbol.Value{}, err
		}
		return symbol.Value{}, r.step(act, args, name == symbol.BuiltinDec)

	case symbol.BuiltinConcat:
		if len(args) == 0 {
			return symbol.Value{}, mismatch(c, "concat expects at least 1 argument")
		}
		var sb strings.Builder
		for _, a := range args {
			v, err := r.eval(act, a)
			if err != nil {
				return v, err
			}
			if !isText(v) {
				return symbol.Value{}, mismatch(a, "concat of %s", v.Type)
			}
			sb.WriteString(v.Text())
		}
		joined := symbol.StringValue(sb.String())
		if stmt {
			// concat(s, t) as a statement appends to s.
			if err := r.store(act, args[0], joined); err != nil {
				return symbol.Value{}, err
			}
		}
		return joined, nil

	case symbol.BuiltinInsert:
		if err := nargs(3, 3); err != nil {
			return symbol.Value{}, err
		}
		return symbol.Value{}, r.insert(act, args)
	}
	return symbol.Value{}, &RuntimeError{Kind: ErrUnresolved, Pos: c.Pos(), Msg: name}
}

func (r *Runner) write(act *activation, args []ast.Expression, newline bool) error {
	var buf []byte
	for _, a := range args {
		x, width, prec := a, 0, -1
		if f, ok := a.(*ast.Formatted); ok {
			var err error
			x = f.X
			if width, err = r.ordinal(act, f.Width); err != nil {
				return err
			}
			if f.Precision != nil {
				if prec, err = r.size(act, f.Precision); err != nil {
					return err
				}
			}
		}
		v, err := r.eval(act, x)
		if err != nil {
			return err
		}
		buf, err = r.render(buf, v, width, prec, x)
		if err != nil {
			return err
		}
	}
	if newline {
		buf = append(buf, '\n')
	}
	return r.emit(buf)
}

// render appends the text of v. Strings and character arrays print their
// characters, other arrays their elements one after another.
func (r *Runner) render(dst []byte, v symbol.Value, width, prec int, at ast.Node) ([]byte, error) {
	if v.IsRef() {
		if isText(v) {
			return r.fmtr.AppendValue(dst, v.Text(), width, -1), nil
		}
		for _, e := range v.Elems.Values() {
			dst, _ = r.render(dst, e, 0, prec, at)
		}
		return dst, nil
	}
	var value any
	switch v.Type {
	case symbol.TypeInteger:
		value = v.Int
	case symbol.TypeReal:
		value = v.Real
	case symbol.TypeChar:
		value = byte(v.Int)
	case symbol.TypeBoolean:
		value = v.Truth()
	case symbol.TypeString:
		value = v.Str
	default:
		return dst, mismatch(at, "expression has no value")
	}
	return r.fmtr.AppendValue(dst, value, width, prec), nil
}

func (r *Runner) read(act *activation, args []ast.Expression, line bool) error {
	// Pending output is visible before blocking on input.
	if err := r.out.Flush(); err != nil {
		return err
	}
	for _, a := range args {
		if err := r.readInto(act, a); err != nil {
			return err
		}
	}
	if line {
		if len(args) == 0 && len(r.in.pending) == 0 {
			if err := r.in.fill(); err != nil && !errors.Is(err, io.EOF) {
				return &RuntimeError{Kind: ErrInput, Pos: -1, Err: err}
			}
		}
		r.in.skipLine()
	}
	return nil
}

// readInto reads one token into a variable or element. A whole array takes
// the remaining tokens of the current line starting at its first index.
func (r *Runner) readInto(act *activation, target ast.Expression) error {
	var typ symbol.Type
	switch t := target.(type) {
	case *ast.Ident:
		sym, err := r.lookup(act, t)
		if err != nil {
			return err
		}
		if sym.Array() != nil {
			toks, err := r.in.rest()
			if err != nil {
				return inputError(target, err)
			}
			for k, tok := range toks {
				v, err := r.parseToken(tok, sym.Elems.Type(), target)
				if err != nil {
					return err
				}
				if !sym.Elems.Set(sym.Elems.Lo()+k, v) {
					return outOfRange(target, "input does not fit in %s", sym.Name())
				}
			}
			return nil
		}
		if sym.Type() == symbol.TypeString {
			tok, err := r.in.next()
			if err != nil {
				return inputError(target, err)
			}
			// Characters are appended; those past a sized string's capacity are dropped.
			for i := 0; i < len(tok); i++ {
				if !sym.Elems.Append(symbol.CharValue(tok[i])) {
					break
				}
			}
			return nil
		}
		typ = sym.Type()
	case *ast.IndexExpr:
		sym, err := r.lookup(act, t.Array)
		if err != nil {
			return err
		}
		if sym.Elems == nil {
			return mismatch(t, "%s is not indexable", sym.Name())
		}
		typ = sym.Elems.Type()
	default:
		return mismatch(target, "cannot read into %s", ast.PrettyPrint(target))
	}
	tok, err := r.in.next()
	if err != nil {
		return inputError(target, err)
	}
	v, err := r.parseToken(tok, typ, target)
	if err != nil {
		return err
	}
	return r.store(act, target, v)
}

func inputError(at ast.Node, err error) error {
	if errors.Is(err, io.EOF) {
		return &RuntimeError{Kind: ErrInput, Pos: at.Pos(), Msg: "unexpected end of input", Err: err}
	}
	return &RuntimeError{Kind: ErrInput, Pos: at.Pos(), Err: err}
}

func (r *Runner) parseToken(tok string, typ symbol.Type, at ast.Node) (symbol.Value, error) {
	var err error
	switch typ {
	case symbol.TypeInteger:
		var n int64
		if n, err = strconv.ParseInt(tok, 10, 64); err == nil {
			return symbol.IntValue(n), nil
		}
	case symbol.TypeReal:
		var f float64
		if f, err = strconv.ParseFloat(tok, 64); err == nil {
			return symbol.RealValue(f), nil
		}
	case symbol.TypeChar:
		return symbol.CharValue(tok[0]), nil
	case symbol.TypeBoolean:
		switch tok {
		case r.cfg.TrueToken, "true":
			return symbol.BoolValue(true), nil
		case r.cfg.FalseToken, "false":
			return symbol.BoolValue(false), nil
		}
	case symbol.TypeString:
		return symbol.StringValue(tok), nil
	}
	return symbol.Value{}, &RuntimeError{Kind: ErrInput, Pos: at.Pos(),
		Msg: fmt.Sprintf("%q is not a valid %s", tok, typ), Err: err}
}

// step implements inc and dec.
func (r *Runner) step(act *activation, args []ast.Expression, down bool) error {
	cur, err := r.eval(act, args[0])
	if err != nil {
		return err
	}
	if err := scalar(cur, args[0]); err != nil {
		return err
	}
	delta := symbol.IntValue(1)
	if len(args) == 2 {
		if delta, err = r.eval(act, args[1]); err != nil {
			return err
		}
		if err := scalar(delta, args[1]); err != nil {
			return err
		}
	}
	if cur.Type == symbol.TypeString || delta.Type == symbol.TypeString {
		return mismatch(args[0], "inc or dec of string")
	}
	var next symbol.Value
	switch {
	case cur.Type == symbol.TypeReal && down:
		next = symbol.RealValue(cur.Real - delta.AsReal())
	case cur.Type == symbol.TypeReal:
		next = symbol.RealValue(cur.Real + delta.AsReal())
	case down:
		next = symbol.IntValue(cur.AsInt() - delta.AsInt())
	default:
		next = symbol.IntValue(cur.AsInt() + delta.AsInt())
	}
	return r.store(act, args[0], next)
}

// insert implements insert(source, dest, index): source is inserted into the
// string variable dest before the 1-based index.
func (r *Runner) insert(act *activation, args []ast.Expression) error {
	src, err := r.eval(act, args[0])
	if err != nil {
		return err
	}
	if !isText(src) {
		return mismatch(args[0], "insert of %s", src.Type)
	}
	id, ok := args[1].(*ast.Ident)
	if !ok {
		return mismatch(args[1], "insert destination must be a string variable")
	}
	dst, err := r.lookup(act, id)
	if err != nil {
		return err
	}
	if dst.Type() != symbol.TypeString || dst.Array() != nil {
		return mismatch(args[1], "insert destination %s is not a string", dst.Name())
	}
	at, err := r.ordinal(act, args[2])
	if err != nil {
		return err
	}
	if !dst.Elems.Insert(src.Text(), at) {
		return outOfRange(args[2], "insert at %d into %q", at, dst.Elems.Text())
	}
	return nil
}
