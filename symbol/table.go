package symbol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
)

// Table is the symbol table of one scope. Symbols keep their insertion order.
type Table struct {
	scope   ast.ScopeID
	parent  ast.ScopeID
	node    ast.Scoped
	symbols map[string]*Symbol
	order   []*Symbol
}

func newTable(node ast.Scoped, parent ast.ScopeID) *Table {
	return &Table{
		scope:   node.ScopeID(),
		parent:  parent,
		node:    node,
		symbols: make(map[string]*Symbol),
	}
}

// Scope returns the ScopeID of the table.
func (t *Table) Scope() ast.ScopeID { return t.scope }

// Parent returns the ScopeID of the enclosing table, [ast.NoScope] for the program table.
func (t *Table) Parent() ast.ScopeID { return t.parent }

// Node returns the node that introduced the scope.
func (t *Table) Node() ast.Scoped { return t.node }

// Lookup searches for a symbol only in this table.
func (t *Table) Lookup(name string) *Symbol {
	return t.symbols[name]
}

// Symbols returns the symbols in declaration order. Callers must not modify it.
func (t *Table) Symbols() []*Symbol {
	return t.order
}

// Define adds a symbol to this table
func (t *Table) Define(sym *Symbol) error {
	if _, ok := t.symbols[sym.name]; ok {
		return fmt.Errorf("symbol %s already defined in scope", sym.name)
	}
	sym.scope = t.scope
	t.symbols[sym.name] = sym
	t.order = append(t.order, sym)
	return nil
}

// Info holds the symbol tables of a program, addressed by ScopeID.
type Info struct {
	program *ast.Program
	tables  []*Table
}

// Program returns the program the tables were built from.
func (in *Info) Program() *ast.Program { return in.program }

// NumScopes returns one past the largest ScopeID with a table.
func (in *Info) NumScopes() int { return len(in.tables) }

// Table returns the table of scope id or nil.
func (in *Info) Table(id ast.ScopeID) *Table {
	if id < 0 || int(id) >= len(in.tables) {
		return nil
	}
	return in.tables[id]
}

// Global returns the program table.
func (in *Info) Global() *Table {
	return in.Table(in.program.Scope)
}

// Lookup searches for a symbol in scope and its enclosing scopes.
func (in *Info) Lookup(scope ast.ScopeID, name string) *Symbol {
	for t := in.Table(scope); t != nil; t = in.Table(t.parent) {
		if sym := t.symbols[name]; sym != nil {
			return sym
		}
	}
	return nil
}

// Callable returns the function or procedure symbol called name.
func (in *Info) Callable(name string) *Symbol {
	sym := in.Global().Lookup(name)
	if sym == nil || !sym.kind.IsCallable() {
		return nil
	}
	return sym
}

func (in *Info) set(t *Table) {
	for int(t.scope) >= len(in.tables) {
		in.tables = append(in.tables, nil)
	}
	in.tables[t.scope] = t
}

// Dump writes a deterministic listing of every table in ScopeID order.
func (in *Info) Dump(w io.Writer) error {
	var buf bytes.Buffer
	for _, t := range in.tables {
		if t == nil {
			continue
		}
		fmt.Fprintf(&buf, "scope %d %s parent=%d\n", t.scope, scopeKind(t.node), t.parent)
		for _, sym := range t.order {
			fmt.Fprintf(&buf, "  %-12s %-9s %s", sym.name, sym.kind, sym.typ)
			if a := sym.Array(); a != nil {
				switch {
				case a.Open:
					buf.WriteString(" array of")
				case a.Range != nil:
					fmt.Fprintf(&buf, " array[%d..%d]", a.Range.Lo, a.Range.Hi)
				default:
					buf.WriteString(" array[" + ast.PrettyPrint(a.Size) + "]")
				}
			}
			buf.WriteByte('\n')
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Fingerprint returns a digest of [Info.Dump].
func (in *Info) Fingerprint() []byte {
	h := blake3.New()
	in.Dump(h)
	return h.Sum(nil)
}

func scopeKind(n ast.Scoped) string {
	switch n := n.(type) {
	case *ast.Program:
		return "program"
	case *ast.ParamList:
		return "params"
	case *ast.ArrayDecl:
		return "array " + n.Name.Name
	case *ast.Block:
		if n.IsMain {
			return "main"
		}
		return "block"
	}
	return "scope"
}
