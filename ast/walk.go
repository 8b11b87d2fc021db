package ast

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children
// of node with the visitor w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order: It starts by calling
// v.Visit(node); node must not be nil. If the visitor w returned by
// v.Visit(node) is not nil, Walk is invoked recursively with visitor
// w for each of the non-nil children of node, followed by a call of
// w.Visit(nil).
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, unit := range n.Nodes {
			Walk(v, unit)
		}

	// Declarations
	case *VarDecl:
		for _, d := range n.Decls {
			Walk(v, d)
		}

	case *Decl:
		Walk(v, n.Name)

	case *ArrayDecl:
		Walk(v, n.Name)
		if n.Size != nil {
			Walk(v, n.Size)
		}
		if n.Elems != nil {
			Walk(v, n.Elems)
		}

	case *ElemList:
		walkExprs(v, n.Elems)

	case *FuncDecl:
		Walk(v, n.Name)
		if n.Params != nil {
			Walk(v, n.Params)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}

	case *ParamList:
		for _, p := range n.Params {
			Walk(v, p)
		}

	// Statements
	case *Block:
		if n.Decls != nil {
			Walk(v, n.Decls)
		}
		for _, stmt := range n.Stmts {
			Walk(v, stmt)
		}

	case *AssignStmt:
		Walk(v, n.Target)
		Walk(v, n.Value)

	case *IfStmt:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}

	case *WhileStmt:
		Walk(v, n.Cond)
		Walk(v, n.Body)

	case *ForStmt:
		Walk(v, n.Init)
		Walk(v, n.Bound)
		Walk(v, n.Body)

	case *RepeatStmt:
		Walk(v, n.Body)
		Walk(v, n.Cond)

	case *ExitStmt:
		if n.Value != nil {
			Walk(v, n.Value)
		}

	case *CallStmt:
		Walk(v, n.Call)

	case *BreakStmt, *ContinueStmt:
		// No children.

	// Expressions
	case *Ident, *IntLit, *RealLit, *CharLit, *StringLit, *BoolLit:
		// Leaves.

	case *IndexExpr:
		Walk(v, n.Array)
		Walk(v, n.Index)

	case *UnaryExpr:
		Walk(v, n.X)

	case *BinaryExpr:
		Walk(v, n.X)
		Walk(v, n.Y)

	case *Formatted:
		Walk(v, n.X)
		if n.Width != nil {
			Walk(v, n.Width)
		}
		if n.Precision != nil {
			Walk(v, n.Precision)
		}

	case *CallExpr:
		Walk(v, n.Name)
		if n.Args != nil {
			Walk(v, n.Args)
		}

	case *ArgList:
		walkExprs(v, n.Args)
	}

	v.Visit(nil)
}

func walkExprs(v Visitor, list []Expression) {
	for _, x := range list {
		Walk(v, x)
	}
}

// Inspect traverses an AST in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the non-nil children of node, followed by a
// call of f(nil).
//
// Inspect is a convenience wrapper around Walk that allows using a
// simple function instead of implementing the Visitor interface.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}
