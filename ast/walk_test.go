package ast

import (
	"testing"

	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// countVisitor counts how many times Visit is called
type countVisitor struct {
	count int
}

func (v *countVisitor) Visit(node Node) Visitor {
	if node != nil {
		v.count++
	}
	return v
}

func ident(name string) *Ident { return &Ident{Name: name} }

// factorialProgram builds the tree for:
//
//	function fact(n: integer): integer;
//	begin
//	  if n <= 1 then begin fact := 1; end else begin fact := n * fact(n - 1); end;
//	end;
//	begin writeln(fact(5)); end.
func factorialProgram() *Program {
	call := &CallExpr{Name: ident("fact"), Args: &ArgList{Args: []Expression{
		&BinaryExpr{Op: token.Minus, X: ident("n"), Y: &IntLit{Value: 1, Raw: "1"}},
	}}}
	fn := &FuncDecl{
		Result: token.INTEGER,
		Name:   ident("fact"),
		Params: &ParamList{Scope: 1, Params: []Statement{&Decl{Type: token.INTEGER, Name: ident("n")}}},
		Body: &Block{Scope: 2, Stmts: []Statement{
			&IfStmt{
				Cond: &BinaryExpr{Op: token.LessEq, X: ident("n"), Y: &IntLit{Value: 1, Raw: "1"}},
				Then: &Block{Scope: 3, Stmts: []Statement{
					&AssignStmt{Target: ident("fact"), Value: &IntLit{Value: 1, Raw: "1"}},
				}},
				Else: &Block{Scope: 4, Stmts: []Statement{
					&AssignStmt{Target: ident("fact"), Value: &BinaryExpr{Op: token.Asterisk, X: ident("n"), Y: call}},
				}},
			},
		}},
	}
	main := &Block{Scope: 5, IsMain: true, Stmts: []Statement{
		&CallStmt{Call: &CallExpr{Name: ident("writeln"), Args: &ArgList{Args: []Expression{
			&CallExpr{Name: ident("fact"), Args: &ArgList{Args: []Expression{&IntLit{Value: 5, Raw: "5"}}}},
		}}}},
	}}
	return &Program{Scope: 0, Nodes: []Statement{fn, main}}
}

func TestWalkSingleNode(t *testing.T) {
	v := &countVisitor{}
	Walk(v, &BreakStmt{})
	if v.count != 1 {
		t.Errorf("Expected 1 visit, got %d", v.count)
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	v := &countVisitor{}
	Walk(v, factorialProgram())
	// Program, FuncDecl, Ident(fact), ParamList, Decl, Ident(n), Block, IfStmt,
	// BinaryExpr, Ident, IntLit, Block, AssignStmt, Ident, IntLit, Block,
	// AssignStmt, Ident, BinaryExpr, Ident, CallExpr, Ident, ArgList,
	// BinaryExpr, Ident, IntLit, Block(main), CallStmt, CallExpr, Ident,
	// ArgList, CallExpr, Ident, ArgList, IntLit.
	const want = 35
	if v.count != want {
		t.Errorf("Expected %d visits, got %d", want, v.count)
	}
}

func TestWalkNilTerminates(t *testing.T) {
	var enters, leaves int
	Inspect(factorialProgram(), func(n Node) bool {
		if n == nil {
			leaves++
		} else {
			enters++
		}
		return true
	})
	if enters != leaves {
		t.Errorf("every visited node must be followed by a nil visit: %d enters, %d leaves", enters, leaves)
	}
}

func TestInspectPrune(t *testing.T) {
	var idents int
	Inspect(factorialProgram(), func(n Node) bool {
		switch n.(type) {
		case *FuncDecl:
			return false // Skip function bodies.
		case *Ident:
			idents++
		}
		return true
	})
	// writeln and fact inside main.
	if idents != 2 {
		t.Errorf("Expected 2 identifiers outside functions, got %d", idents)
	}
}

func TestWalkScopedNodes(t *testing.T) {
	var scopes []ScopeID
	Inspect(factorialProgram(), func(n Node) bool {
		if s, ok := n.(Scoped); ok {
			scopes = append(scopes, s.ScopeID())
		}
		return true
	})
	want := []ScopeID{0, 1, 2, 3, 4, 5}
	if len(scopes) != len(want) {
		t.Fatalf("Expected scopes %v, got %v", want, scopes)
	}
	for i := range want {
		if scopes[i] != want[i] {
			t.Errorf("scope %d: expected %d, got %d", i, want[i], scopes[i])
		}
	}
}

func TestProgramMain(t *testing.T) {
	prog := factorialProgram()
	main := prog.Main()
	if main == nil || !main.IsMain || main.Scope != 5 {
		t.Fatalf("Main returned wrong block: %+v", main)
	}
	if (&Program{}).Main() != nil {
		t.Error("empty program should have no main block")
	}
}
