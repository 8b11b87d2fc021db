package interp

import (
	"fmt"
	"log/slog"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

func mismatch(at ast.Node, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: ErrTypeMismatch, Pos: at.Pos(), Msg: fmt.Sprintf(format, args...)}
}

func outOfRange(at ast.Node, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: ErrIndexRange, Pos: at.Pos(), Msg: fmt.Sprintf(format, args...)}
}

// isText reports whether v holds a string, a character or a character array.
func isText(v symbol.Value) bool {
	if v.IsRef() {
		return v.Elems.Type() == symbol.TypeChar
	}
	return v.Type == symbol.TypeString || v.Type == symbol.TypeChar
}

// scalar rejects references to whole arrays. Strings are scalars.
func scalar(v symbol.Value, at ast.Node) error {
	if v.IsRef() && v.Type != symbol.TypeString {
		return mismatch(at, "array used as a value")
	}
	if v.Type == symbol.TypeNone {
		return mismatch(at, "expression has no value")
	}
	return nil
}

func (r *Runner) convert(v symbol.Value, t symbol.Type, at ast.Node) (symbol.Value, error) {
	if err := scalar(v, at); err != nil {
		return v, err
	}
	c, ok := v.Convert(t)
	if !ok {
		return v, mismatch(at, "cannot use %s value as %s", v.Type, t)
	}
	return c, nil
}

// zero gives a fresh frame symbol its initial storage. Arrays and sized
// strings are allocated by their declaration.
func zero(sym *symbol.Symbol) {
	switch sym.Kind() {
	case symbol.KindVar, symbol.KindParam, symbol.KindResult:
	default:
		return
	}
	if _, ok := sym.DeclNode().(*ast.ArrayDecl); ok {
		return
	}
	if sym.Type() == symbol.TypeString {
		sym.Elems = symbol.NewString("", -1)
		sym.Value = symbol.Value{Type: symbol.TypeString, Elems: sym.Elems}
		return
	}
	sym.Value = symbol.Zero(sym.Type())
}

func (r *Runner) declareAll(act *activation, f *frame, vd *ast.VarDecl) error {
	for _, d := range vd.Decls {
		name, _, ok := ast.DeclName(d)
		if !ok {
			return fmt.Errorf("interp: unexpected declaration %T", d)
		}
		sym := f.syms[name.Name]
		if sym == nil {
			return &RuntimeError{Kind: ErrUnresolved, Pos: name.Pos(), Msg: name.Name}
		}
		if err := r.declare(act, sym, d); err != nil {
			return err
		}
	}
	return nil
}

// declare initialises the storage of sym from its declaration. Sizes and
// initializers are evaluated in act.
func (r *Runner) declare(act *activation, sym *symbol.Symbol, d ast.Statement) error {
	a, ok := d.(*ast.ArrayDecl)
	if !ok {
		zero(sym)
		return nil
	}
	typ := sym.Type()
	var elems *symbol.Elements
	switch {
	case sym.Array() == nil:
		capacity := -1
		if a.Size != nil {
			n, err := r.size(act, a.Size)
			if err != nil {
				return err
			}
			capacity = n
		}
		elems = symbol.NewString("", capacity)
	case a.Range != nil:
		n := int(a.Range.Len())
		elems = symbol.NewElements(typ, int(a.Range.Lo), n, false)
		elems.Fill(n)
	case a.Size != nil:
		n, err := r.size(act, a.Size)
		if err != nil {
			return err
		}
		elems = symbol.NewElements(typ, 0, n, false)
		elems.Fill(n)
	default:
		elems = symbol.NewElements(typ, 0, -1, true)
	}
	sym.Elems = elems
	sym.Value = symbol.Value{Type: typ, Elems: elems}
	if a.Elems == nil {
		return nil
	}

	if sym.Array() == nil {
		// Initializers of a sized string are its characters.
		text := ""
		for _, e := range a.Elems.Elems {
			v, err := r.eval(act, e)
			if err != nil {
				return err
			}
			if !isText(v) {
				return mismatch(e, "string initializer must be text")
			}
			text += v.Text()
		}
		if !elems.SetText(text) {
			return outOfRange(a.Elems, "initializer of %s exceeds %d characters", sym.Name(), elems.Capacity())
		}
		return nil
	}
	for i, e := range a.Elems.Elems {
		v, err := r.eval(act, e)
		if err != nil {
			return err
		}
		v, err = r.convert(v, elems.Type(), e)
		if err != nil {
			return err
		}
		if !elems.Set(elems.Lo()+i, v) {
			return outOfRange(e, "too many initializers for %s", sym.Name())
		}
	}
	return nil
}

func (r *Runner) size(act *activation, x ast.Expression) (int, error) {
	n, err := r.ordinal(act, x)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, outOfRange(x, "negative size %d", n)
	}
	return n, nil
}

// ordinal evaluates x as an integer index or size.
func (r *Runner) ordinal(act *activation, x ast.Expression) (int, error) {
	v, err := r.eval(act, x)
	if err != nil {
		return 0, err
	}
	if err := scalar(v, x); err != nil {
		return 0, err
	}
	if !v.Type.IsOrdinal() {
		return 0, mismatch(x, "%s used as an index", v.Type)
	}
	return int(v.AsInt()), nil
}

func (r *Runner) eval(act *activation, x ast.Expression) (symbol.Value, error) {
	switch x := x.(type) {
	case *ast.IntLit:
		return symbol.IntValue(x.Value), nil
	case *ast.RealLit:
		return symbol.RealValue(x.Value), nil
	case *ast.CharLit:
		return symbol.CharValue(x.Value), nil
	case *ast.StringLit:
		return symbol.StringValue(x.Value), nil
	case *ast.BoolLit:
		return symbol.BoolValue(x.Value), nil
	case *ast.Ident:
		sym, err := r.lookup(act, x)
		if err != nil {
			return symbol.Value{}, err
		}
		if sym.Kind().IsCallable() {
			// A callable named without arguments is called.
			return r.callSymbol(act, sym, &ast.CallExpr{Name: x, Args: &ast.ArgList{}, Position: ast.Pos(x.Pos(), x.End())}, false)
		}
		return sym.Value, nil
	case *ast.IndexExpr:
		sym, err := r.lookup(act, x.Array)
		if err != nil {
			return symbol.Value{}, err
		}
		if sym.Elems == nil {
			return symbol.Value{}, mismatch(x, "%s is not indexable", sym.Name())
		}
		i, err := r.ordinal(act, x.Index)
		if err != nil {
			return symbol.Value{}, err
		}
		v, ok := sym.Elems.Get(i)
		if !ok {
			return symbol.Value{}, outOfRange(x, "%s[%d]", sym.Name(), i)
		}
		return v, nil
	case *ast.Formatted:
		return r.eval(act, x.X)
	case *ast.UnaryExpr:
		v, err := r.eval(act, x.X)
		if err != nil {
			return v, err
		}
		if err := scalar(v, x); err != nil {
			return v, err
		}
		if v.Type == symbol.TypeString {
			return v, mismatch(x, "operator %s on string", x.Op)
		}
		switch {
		case x.Op == token.NOT:
			return symbol.BoolValue(!v.Truth()), nil
		case v.Type == symbol.TypeReal:
			return symbol.RealValue(-v.Real), nil
		}
		return symbol.IntValue(-v.AsInt()), nil
	case *ast.BinaryExpr:
		return r.evalBinary(act, x)
	case *ast.CallExpr:
		return r.call(act, x, false)
	}
	return symbol.Value{}, fmt.Errorf("interp: unexpected expression %T", x)
}

func (r *Runner) evalBinary(act *activation, x *ast.BinaryExpr) (symbol.Value, error) {
	if x.Op.IsLogical() {
		a, err := r.condition(act, x.X)
		if err != nil {
			return symbol.Value{}, err
		}
		if x.Op == token.AND && !a || x.Op == token.OR && a {
			return symbol.BoolValue(a), nil
		}
		b, err := r.condition(act, x.Y)
		return symbol.BoolValue(b), err
	}
	a, err := r.eval(act, x.X)
	if err != nil {
		return a, err
	}
	b, err := r.eval(act, x.Y)
	if err != nil {
		return b, err
	}
	return binaryOp(x, a, b)
}

func binaryOp(x *ast.BinaryExpr, a, b symbol.Value) (symbol.Value, error) {
	if err := scalar(a, x.X); err != nil {
		return a, err
	}
	if err := scalar(b, x.Y); err != nil {
		return b, err
	}
	op := x.Op
	str := a.Type == symbol.TypeString || b.Type == symbol.TypeString
	if op.IsRelational() {
		var c int
		switch {
		case str && isText(a) && isText(b):
			c = intrinsic.Compare(a.Text(), b.Text())
		case str:
			return symbol.Value{}, mismatch(x, "cannot compare %s with %s", a.Type, b.Type)
		case a.Type == symbol.TypeReal || b.Type == symbol.TypeReal:
			c = intrinsic.Compare(a.AsReal(), b.AsReal())
		default:
			c = intrinsic.Compare(a.AsInt(), b.AsInt())
		}
		return symbol.BoolValue(relation(op, c)), nil
	}

	switch symbol.BinaryType(op, a.Type, b.Type) {
	case symbol.TypeString:
		return symbol.StringValue(a.Text() + b.Text()), nil
	case symbol.TypeBoolean:
		return symbol.BoolValue(a.Truth() != b.Truth()), nil
	case symbol.TypeReal:
		if str {
			break
		}
		p, q := a.AsReal(), b.AsReal()
		switch op {
		case token.Plus:
			return symbol.RealValue(p + q), nil
		case token.Minus:
			return symbol.RealValue(p - q), nil
		case token.Asterisk:
			return symbol.RealValue(p * q), nil
		case token.Slash:
			return symbol.RealValue(p / q), nil
		}
	case symbol.TypeInteger:
		if str {
			break
		}
		p, q := a.AsInt(), b.AsInt()
		switch op {
		case token.Plus:
			return symbol.IntValue(p + q), nil
		case token.Minus:
			return symbol.IntValue(p - q), nil
		case token.Asterisk:
			return symbol.IntValue(p * q), nil
		case token.XOR:
			return symbol.IntValue(p ^ q), nil
		case token.DIV, token.MOD:
			f := intrinsic.Div[int64]
			if op == token.MOD {
				f = intrinsic.Mod[int64]
			}
			v, err := f(p, q)
			if err != nil {
				return symbol.Value{}, &RuntimeError{Kind: ErrDivideByZero, Pos: x.Pos()}
			}
			return symbol.IntValue(v), nil
		}
	}
	return symbol.Value{}, mismatch(x, "operator %s on %s and %s", op, a.Type, b.Type)
}

func relation(op token.Token, c int) bool {
	switch op {
	case token.Equals:
		return c == 0
	case token.NotEquals:
		return c != 0
	case token.Less:
		return c < 0
	case token.Greater:
		return c > 0
	case token.LessEq:
		return c <= 0
	}
	return c >= 0
}

func (r *Runner) assign(act *activation, s *ast.AssignStmt) error {
	v, err := r.eval(act, s.Value)
	if err != nil {
		return err
	}
	return r.store(act, s.Target, v)
}

// store writes v to a variable or array element.
func (r *Runner) store(act *activation, target ast.Expression, v symbol.Value) error {
	switch t := target.(type) {
	case *ast.Ident:
		sym, err := r.lookup(act, t)
		if err != nil {
			return err
		}
		switch {
		case sym.Kind().IsCallable():
			return mismatch(t, "cannot assign to %s %s", sym.Kind(), sym.Name())
		case sym.Array() != nil:
			return mismatch(t, "cannot assign to array %s", sym.Name())
		case sym.Type() == symbol.TypeString:
			if !isText(v) {
				return mismatch(t, "cannot assign %s to string %s", v.Type, sym.Name())
			}
			// Text beyond a sized string's capacity is dropped.
			sym.Elems.SetText(v.Text())
			return nil
		}
		c, err := r.convert(v, sym.Type(), t)
		if err != nil {
			return err
		}
		sym.Value = c
		return nil
	case *ast.IndexExpr:
		sym, err := r.lookup(act, t.Array)
		if err != nil {
			return err
		}
		if sym.Elems == nil {
			return mismatch(t, "%s is not indexable", sym.Name())
		}
		i, err := r.ordinal(act, t.Index)
		if err != nil {
			return err
		}
		c, err := r.convert(v, sym.Elems.Type(), t)
		if err != nil {
			return err
		}
		if !sym.Elems.Set(i, c) {
			return outOfRange(t, "%s[%d]", sym.Name(), i)
		}
		return nil
	}
	return mismatch(target, "cannot assign to %s", ast.PrettyPrint(target))
}

// call runs a built-in or user callable. stmt is set when the result is discarded.
func (r *Runner) call(act *activation, c *ast.CallExpr, stmt bool) (symbol.Value, error) {
	name := c.Name.Name
	if symbol.IsBuiltin(name) {
		return r.builtin(act, c, stmt)
	}
	sym := r.global.syms[name]
	if sym == nil || !sym.Kind().IsCallable() {
		return symbol.Value{}, &RuntimeError{Kind: ErrUnresolved, Pos: c.Pos(), Msg: name}
	}
	return r.callSymbol(act, sym, c, stmt)
}

func (r *Runner) callSymbol(act *activation, sym *symbol.Symbol, c *ast.CallExpr, stmt bool) (symbol.Value, error) {
	fn := sym.Func()
	if got, want := len(c.Args.Args), len(fn.Params.Params); got != want {
		return symbol.Value{}, mismatch(c, "%s expects %d arguments, got %d", fn.Name.Name, want, got)
	}
	if fn.IsProcedure() && !stmt {
		return symbol.Value{}, mismatch(c, "procedure %s used as a value", fn.Name.Name)
	}
	// Arguments are evaluated in the caller before the callee frame exists.
	args := make([]symbol.Value, len(c.Args.Args))
	for i, a := range c.Args.Args {
		v, err := r.eval(act, a)
		if err != nil {
			return v, err
		}
		args[i] = v
	}
	return r.invoke(fn, args, c)
}

// invoke executes fn with evaluated arguments in a new activation.
func (r *Runner) invoke(fn *ast.FuncDecl, args []symbol.Value, at ast.Node) (_ symbol.Value, err error) {
	act := &activation{name: fn.Name.Name, fn: fn}
	r.calls.PushBack(act)
	defer r.calls.PopBack()
	defer func() { err = r.traceback(err) }()
	r.log.Debug("call", slog.String("name", act.name), slog.Int("calls", r.calls.Len()))

	f, err := r.pushFrame(fn.Body.Scope)
	if err != nil {
		return symbol.Value{}, err
	}
	defer r.popFrame(f)
	act.blocks = []*frame{f}
	for i, p := range fn.Params.Params {
		name, _, _ := ast.DeclName(p)
		if err := r.bind(f.syms[name.Name], args[i], at); err != nil {
			return symbol.Value{}, err
		}
	}
	if fn.Body.Decls != nil {
		if err := r.declareAll(act, f, fn.Body.Decls); err != nil {
			return symbol.Value{}, err
		}
	}
	if _, err := r.execStmts(act, fn.Body.Stmts); err != nil {
		return symbol.Value{}, err
	}
	switch {
	case fn.IsProcedure():
		return symbol.Value{}, nil
	case act.exit != nil:
		return *act.exit, nil
	}
	res := f.syms[fn.Name.Name]
	if res.Type() == symbol.TypeString {
		return symbol.StringValue(res.Value.Text()), nil
	}
	return res.Value, nil
}

// bind stores an argument in a parameter. Arrays and strings passed by
// variable share their storage with the caller.
func (r *Runner) bind(param *symbol.Symbol, v symbol.Value, at ast.Node) error {
	if !param.IsAggregate() {
		c, err := r.convert(v, param.Type(), at)
		param.Value = c
		return err
	}
	want := param.Type()
	if param.Array() == nil {
		want = symbol.TypeChar
	}
	switch {
	case v.IsRef():
		if v.Elems.Type() != want {
			return mismatch(at, "cannot pass %s elements as %s", v.Elems.Type(), want)
		}
		param.Elems = v.Elems
	case want == symbol.TypeChar && isText(v):
		param.Elems = symbol.NewString(v.Text(), -1)
	default:
		return mismatch(at, "cannot pass %s value as %s", v.Type, param.Name())
	}
	param.Value = symbol.Value{Type: param.Type(), Elems: param.Elems}
	return nil
}
