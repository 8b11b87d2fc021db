package symbol

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
)

// Error is a static error found by [Symbolize].
type Error struct {
	Pos  int    // byte offset of the offending node.
	Name string // identifier involved, if any.
	Msg  string
}

func (e *Error) Error() string {
	if e.Name == "" {
		return e.Msg
	}
	return e.Name + ": " + e.Msg
}

// Symbolize builds the symbol tables of prog and checks it for static errors:
// redeclarations, undeclared identifiers and callables, misplaced break and
// continue, and declarations of reserved names. Declarations are visible in
// their whole block regardless of position. The returned Info is complete even
// when an error is returned. Symbolize does not modify prog.
func Symbolize(prog *ast.Program) (*Info, error) {
	dc := &declarationCollector{
		info:  &Info{program: prog},
		names: make(map[*ast.Ident]bool),
	}
	ast.Walk(dc, prog)
	dc.resolve()
	sort.SliceStable(dc.errs, func(i, j int) bool {
		return dc.errs[i].(*Error).Pos < dc.errs[j].(*Error).Pos
	})
	return dc.info, errors.Join(dc.errs...)
}

// declarationCollector registers declarations while walking and records uses
// for resolution once every table is complete.
type declarationCollector struct {
	info   *Info
	errs   []error
	nodes  []ast.Node    // nodes entered and not yet exited.
	scopes []ast.ScopeID // scopes entered and not yet exited.
	// names marks identifiers in declaration or callee position.
	names map[*ast.Ident]bool
	uses  []use
	calls []use
}

type use struct {
	scope  ast.ScopeID
	ident  *ast.Ident
	assign bool // ident is an assignment target.
	args   int  // argument count of a call.
}

func (dc *declarationCollector) addError(n ast.Node, name, format string, args ...any) {
	dc.errs = append(dc.errs, &Error{Pos: n.Pos(), Name: name, Msg: fmt.Sprintf(format, args...)})
}

func (dc *declarationCollector) current() *Table {
	return dc.info.Table(dc.scopes[len(dc.scopes)-1])
}

func (dc *declarationCollector) parentNode() ast.Node {
	if len(dc.nodes) == 0 {
		return nil
	}
	return dc.nodes[len(dc.nodes)-1]
}

func (dc *declarationCollector) enterScope(n ast.Scoped) *Table {
	parent := ast.NoScope
	if len(dc.scopes) > 0 {
		parent = dc.scopes[len(dc.scopes)-1]
	}
	t := newTable(n, parent)
	dc.info.set(t)
	dc.scopes = append(dc.scopes, t.scope)
	return t
}

func (dc *declarationCollector) define(t *Table, sym *Symbol, at ast.Node) {
	if IsReserved(sym.name) && sym.kind != KindEntry {
		dc.addError(at, sym.name, "cannot declare reserved name")
		return
	}
	if err := t.Define(sym); err != nil {
		dc.addError(at, sym.name, "already declared in this scope")
	}
}

// Visit implements the ast.Visitor interface.
func (dc *declarationCollector) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		// Exiting a node.
		exited := dc.nodes[len(dc.nodes)-1]
		dc.nodes = dc.nodes[:len(dc.nodes)-1]
		if s, ok := exited.(ast.Scoped); ok && !isArrayDecl(s) {
			dc.scopes = dc.scopes[:len(dc.scopes)-1]
		}
		return nil
	}
	parent := dc.parentNode()
	dc.visit(node, parent)
	dc.nodes = append(dc.nodes, node)
	return dc
}

func isArrayDecl(n ast.Node) bool {
	_, ok := n.(*ast.ArrayDecl)
	return ok
}

func (dc *declarationCollector) visit(node, parent ast.Node) {
	switch n := node.(type) {
	case *ast.Program:
		dc.enterScope(n)

	case *ast.FuncDecl:
		dc.names[n.Name] = true
		kind, typ := KindFunc, TypeFromToken(n.Result)
		if n.IsProcedure() {
			kind = KindProc
		}
		dc.define(dc.current(), NewSymbol(n.Name.Name, typ, kind, n), n)

	case *ast.ParamList:
		dc.enterScope(n)

	case *ast.Block:
		if n.IsMain {
			dc.define(dc.info.Global(), NewSymbol(EntryName, TypeNone, KindEntry, n), n)
		}
		t := dc.enterScope(n)
		if fn, ok := parent.(*ast.FuncDecl); ok && fn.Body == n {
			// Body of a callable: parameters and the result variable live here too.
			for _, p := range dc.info.Table(fn.Params.Scope).Symbols() {
				param := p.Copy()
				dc.define(t, param, p.declNode)
			}
			if !fn.IsProcedure() {
				dc.define(t, NewSymbol(fn.Name.Name, TypeFromToken(fn.Result), KindResult, fn), fn)
			}
		}

	case *ast.Decl:
		dc.names[n.Name] = true
		kind := KindVar
		if _, ok := parent.(*ast.ParamList); ok {
			kind = KindParam
		}
		dc.define(dc.current(), NewSymbol(n.Name.Name, TypeFromToken(n.Type), kind, n), n)

	case *ast.ArrayDecl:
		dc.names[n.Name] = true
		kind := KindArray
		if _, ok := parent.(*ast.ParamList); ok {
			kind = KindParam
		}
		if n.Range != nil && n.Range.Lo > n.Range.Hi {
			dc.addError(n, n.Name.Name, "array range %d..%d is empty", n.Range.Lo, n.Range.Hi)
		}
		if n.Range != nil && n.Elems != nil && int64(len(n.Elems.Elems)) > n.Range.Len() {
			dc.addError(n.Elems, n.Name.Name, "too many initializers for array[%d..%d]", n.Range.Lo, n.Range.Hi)
		}
		dc.define(dc.current(), NewSymbol(n.Name.Name, TypeFromToken(n.Elem), kind, n), n)
		// Element template table. Its size expression and initializers
		// resolve in the enclosing scope so it is not pushed.
		parentScope := dc.scopes[len(dc.scopes)-1]
		dc.info.set(newTable(n, parentScope))

	case *ast.CallExpr:
		dc.names[n.Name] = true
		dc.calls = append(dc.calls, use{scope: dc.scopes[len(dc.scopes)-1], ident: n.Name, args: len(n.Args.Args)})

	case *ast.AssignStmt:
		if id, ok := n.Target.(*ast.Ident); ok {
			dc.names[id] = true
			dc.uses = append(dc.uses, use{scope: dc.scopes[len(dc.scopes)-1], ident: id, assign: true})
		}

	case *ast.Ident:
		if !dc.names[n] {
			dc.uses = append(dc.uses, use{scope: dc.scopes[len(dc.scopes)-1], ident: n})
		}

	case *ast.BreakStmt:
		if !dc.inLoop() {
			dc.addError(n, "", "break outside of loop")
		}

	case *ast.ContinueStmt:
		if !dc.inLoop() {
			dc.addError(n, "", "continue outside of loop")
		}
	}
}

// inLoop reports whether the node being visited is inside a loop body of the
// current callable.
func (dc *declarationCollector) inLoop() bool {
	for i := len(dc.nodes) - 1; i >= 0; i-- {
		switch dc.nodes[i].(type) {
		case *ast.WhileStmt, *ast.ForStmt, *ast.RepeatStmt:
			return true
		case *ast.FuncDecl:
			return false
		}
	}
	return false
}

// resolve checks recorded uses now that all declarations are known.
func (dc *declarationCollector) resolve() {
	for _, u := range dc.uses {
		sym := dc.info.Lookup(u.scope, u.ident.Name)
		switch {
		case sym == nil:
			dc.addError(u.ident, u.ident.Name, "undeclared identifier")
		case sym.kind == KindEntry:
			dc.addError(u.ident, u.ident.Name, "cannot reference the entry point")
		case u.assign && sym.kind.IsCallable():
			dc.addError(u.ident, u.ident.Name, "cannot assign to %s outside of its body", sym.kind)
		}
	}
	for _, c := range dc.calls {
		name := c.ident.Name
		if IsBuiltin(name) {
			continue
		}
		sym := dc.info.Global().Lookup(name)
		switch {
		case sym == nil:
			dc.addError(c.ident, name, "undeclared procedure or function")
		case !sym.kind.IsCallable():
			dc.addError(c.ident, name, "%s is not callable", sym.kind)
		default:
			fn := sym.Func()
			if got, want := c.args, len(fn.Params.Params); got != want {
				dc.addError(c.ident, name, "expected %d arguments, got %d", want, got)
			}
		}
	}
}
