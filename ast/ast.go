package ast

import (
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// ScopeID identifies a scope-introducing node. IDs are handed out by the parser in
// increasing order starting at 0 for the [Program] root and address the symbol table
// arena and the runtime frame stacks.
type ScopeID int32

// NoScope is the zero value for nodes that were not built by the parser.
const NoScope ScopeID = -1

type Node interface {
	Pos() int // position of first character belonging to the node in file.
	End() int // position of first character immediately after the node in file.
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// Scoped is implemented by nodes that introduce a scope: [Program], [Block],
// [ArrayDecl] and [ParamList].
type Scoped interface {
	Node
	ScopeID() ScopeID
}

// Position is embedded in every node and records its source span in bytes.
type Position struct {
	start, end int
}

// Pos returns a Position spanning [start, end).
func Pos(start, end int) Position { return Position{start: start, end: end} }

func (p Position) Pos() int { return p.start }
func (p Position) End() int { return p.end }

// Program represents the root node of a source file.
// Nodes holds global [VarDecl]s, [FuncDecl]s and the main [Block] in source order.
type Program struct {
	Scope ScopeID
	Nodes []Statement
	Position
}

func (p *Program) ScopeID() ScopeID { return p.Scope }

// Main returns the entry point block or nil if the program has none.
func (p *Program) Main() *Block {
	for _, n := range p.Nodes {
		if b, ok := n.(*Block); ok && b.IsMain {
			return b
		}
	}
	return nil
}

// ==================== EXPRESSIONS ====================

// Ident is a reference to a named entity.
type Ident struct {
	Name string
	Position
}

// IntLit is an integer literal such as 42.
type IntLit struct {
	Value int64
	Raw   string
	Position
}

// RealLit is a real literal such as 3.14.
type RealLit struct {
	Value float64
	Raw   string
	Position
}

// CharLit is a single-quoted one character literal such as 'a'.
type CharLit struct {
	Value byte
	Position
}

// StringLit is a single-quoted literal of any length other than one.
type StringLit struct {
	Value string
	Position
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	Position
}

// IndexExpr is an array or string element access: Array[Index].
type IndexExpr struct {
	Array *Ident
	Index Expression
	Position
}

// UnaryExpr is a prefix operation: -X or not X.
type UnaryExpr struct {
	Op token.Token
	X  Expression
	Position
}

// BinaryExpr is an infix operation: X Op Y.
type BinaryExpr struct {
	Op token.Token
	X  Expression
	Y  Expression
	Position
}

// Formatted attaches rounding metadata to X, written as X:Width:Precision in
// write arguments. Precision is nil when only a width was given.
type Formatted struct {
	X         Expression
	Width     Expression
	Precision Expression
	Position
}

// CallExpr is a function or procedure invocation.
type CallExpr struct {
	Name *Ident
	Args *ArgList
	Position
}

// ArgList holds call arguments in order.
type ArgList struct {
	Args []Expression
	Position
}

func (*Ident) expressionNode()      {}
func (*IntLit) expressionNode()     {}
func (*RealLit) expressionNode()    {}
func (*CharLit) expressionNode()    {}
func (*StringLit) expressionNode()  {}
func (*BoolLit) expressionNode()    {}
func (*IndexExpr) expressionNode()  {}
func (*UnaryExpr) expressionNode()  {}
func (*BinaryExpr) expressionNode() {}
func (*Formatted) expressionNode()  {}
func (*CallExpr) expressionNode()   {}

// ==================== DECLARATIONS ====================

// Decl declares a single scalar or string variable.
type Decl struct {
	Type token.Token
	Name *Ident
	Position
}

// Range is an inclusive array index range Lo..Hi.
type Range struct {
	Lo, Hi int64
}

// Len returns the number of indices in the range.
func (r Range) Len() int64 { return r.Hi - r.Lo + 1 }

// ArrayDecl declares an array of Elem. Exactly one of Size, Range or Open describes its shape:
//
//	a: array[1..5] of integer    Range
//	s: string[10]                Size
//	a: array of integer          Open (parameters only)
type ArrayDecl struct {
	Scope ScopeID
	Elem  token.Token
	Name  *Ident
	Size  Expression
	Range *Range
	Open  bool
	Elems *ElemList // optional initializer
	Position
}

func (a *ArrayDecl) ScopeID() ScopeID { return a.Scope }

// ElemList is an array initializer list.
type ElemList struct {
	Elems []Expression
	Position
}

// VarDecl groups the declarations of one var section or var statement.
// Decls holds *Decl and *ArrayDecl nodes.
type VarDecl struct {
	Decls []Statement
	Position
}

// FuncDecl is a function or procedure definition. Result is [token.Undefined] for procedures.
type FuncDecl struct {
	Result token.Token
	Name   *Ident
	Params *ParamList
	Body   *Block
	Position
}

// IsProcedure reports whether the definition has no return type.
func (f *FuncDecl) IsProcedure() bool { return f.Result == token.Undefined }

// ParamList holds the formal parameters (*Decl or open *ArrayDecl) of a FuncDecl.
type ParamList struct {
	Scope  ScopeID
	Params []Statement
	Position
}

func (p *ParamList) ScopeID() ScopeID { return p.Scope }

// ==================== STATEMENTS ====================

// Block is a statement sequence with its own scope.
// IsMain marks the program's entry point.
type Block struct {
	Scope  ScopeID
	Decls  *VarDecl
	IsMain bool
	Stmts  []Statement
	Position
}

func (b *Block) ScopeID() ScopeID { return b.Scope }

// AssignStmt is Target := Value where Target is an *Ident or *IndexExpr.
type AssignStmt struct {
	Target Expression
	Value  Expression
	Position
}

// IfStmt is if Cond then Then [else Else].
type IfStmt struct {
	Cond Expression
	Then *Block
	Else *Block
	Position
}

// WhileStmt is while Cond do Body.
type WhileStmt struct {
	Cond Expression
	Body *Block
	Position
}

// ForStmt is for Init to|downto Bound do Body.
type ForStmt struct {
	Init  *AssignStmt
	Bound Expression
	Down  bool
	Body  *Block
	Position
}

// Var returns the induction variable.
func (f *ForStmt) Var() *Ident { return f.Init.Target.(*Ident) }

// RepeatStmt is repeat Body until Cond.
type RepeatStmt struct {
	Body *Block
	Cond Expression
	Position
}

type BreakStmt struct {
	Position
}

type ContinueStmt struct {
	Position
}

// ExitStmt leaves the current callable, optionally carrying a result Value.
type ExitStmt struct {
	Value Expression
	Position
}

// CallStmt is a procedure call used as a statement.
type CallStmt struct {
	Call *CallExpr
	Position
}

func (*Program) statementNode()      {}
func (*Decl) statementNode()         {}
func (*ArrayDecl) statementNode()    {}
func (*VarDecl) statementNode()      {}
func (*FuncDecl) statementNode()     {}
func (*Block) statementNode()        {}
func (*AssignStmt) statementNode()   {}
func (*IfStmt) statementNode()       {}
func (*WhileStmt) statementNode()    {}
func (*ForStmt) statementNode()      {}
func (*RepeatStmt) statementNode()   {}
func (*BreakStmt) statementNode()    {}
func (*ContinueStmt) statementNode() {}
func (*ExitStmt) statementNode()     {}
func (*CallStmt) statementNode()     {}

// DeclName returns the declared identifier of a *Decl or *ArrayDecl and its type token.
func DeclName(stmt Statement) (name *Ident, typ token.Token, ok bool) {
	switch d := stmt.(type) {
	case *Decl:
		return d.Name, d.Type, true
	case *ArrayDecl:
		return d.Name, d.Elem, true
	}
	return nil, token.Undefined, false
}
