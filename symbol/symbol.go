// Package symbol provides the symbol tables built from a parsed program and
// the storage cells the interpreter keeps in them at run time.
package symbol

import (
	"math"
	"strconv"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// Type is a declared scalar type. Arrays are described by their element Type.
type Type uint8

const (
	TypeNone Type = iota // procedures, entry point
	TypeInteger
	TypeReal
	TypeChar
	TypeBoolean
	TypeString
)

// TypeFromToken maps a type keyword to its Type.
func TypeFromToken(tok token.Token) Type {
	switch tok {
	case token.INTEGER:
		return TypeInteger
	case token.REAL:
		return TypeReal
	case token.CHAR:
		return TypeChar
	case token.BOOLEAN:
		return TypeBoolean
	case token.STRING:
		return TypeString
	}
	return TypeNone
}

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeChar:
		return "char"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	}
	return "none"
}

// IsOrdinal reports whether values of t are stored in [Value.Int].
func (t Type) IsOrdinal() bool {
	return t == TypeInteger || t == TypeChar || t == TypeBoolean
}

// Kind classifies what a symbol names.
type Kind uint8

const (
	KindVar    Kind = iota // scalar or string variable
	KindArray              // array variable
	KindParam              // formal parameter
	KindFunc               // function
	KindProc               // procedure
	KindResult             // result variable of a function, named after it
	KindEntry              // the main block
)

func (k Kind) String() string {
	switch k {
	case KindVar:
		return "var"
	case KindArray:
		return "array"
	case KindParam:
		return "param"
	case KindFunc:
		return "function"
	case KindProc:
		return "procedure"
	case KindResult:
		return "result"
	case KindEntry:
		return "entry"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsCallable reports whether the symbol names a function or procedure.
func (k Kind) IsCallable() bool { return k == KindFunc || k == KindProc }

// Symbol represents a declared entity. Static fields are set once by
// [Symbolize]. Value and Elems are the run time storage of a frame copy.
type Symbol struct {
	name     string
	typ      Type
	kind     Kind
	scope    ast.ScopeID
	declNode ast.Node

	// Value is the scalar contents. For aggregates it references Elems.
	Value Value
	// Elems holds array elements or string characters, keyed by index.
	Elems *Elements
}

// NewSymbol creates a new symbol with the given name, type and kind.
func NewSymbol(name string, typ Type, kind Kind, decl ast.Node) *Symbol {
	return &Symbol{
		name:     name,
		typ:      typ,
		kind:     kind,
		declNode: decl,
		scope:    ast.NoScope,
	}
}

// Name returns the symbol name
func (s *Symbol) Name() string { return s.name }

// Type returns the declared type. For arrays this is the element type.
func (s *Symbol) Type() Type { return s.typ }

// Kind returns the symbol kind
func (s *Symbol) Kind() Kind { return s.kind }

// Scope returns the scope where this symbol is defined
func (s *Symbol) Scope() ast.ScopeID { return s.scope }

// DeclNode returns the AST node where this symbol was declared
func (s *Symbol) DeclNode() ast.Node { return s.declNode }

// Array returns the array declaration of the symbol or nil if it is not an array.
func (s *Symbol) Array() *ast.ArrayDecl {
	a, _ := s.declNode.(*ast.ArrayDecl)
	if a == nil || a.Elem == token.STRING && !a.Open && a.Range == nil {
		// string[n] is a string with a capacity, not an array of strings.
		return nil
	}
	return a
}

// IsAggregate reports whether the symbol stores its contents in an element table.
func (s *Symbol) IsAggregate() bool {
	return s.typ == TypeString || s.Array() != nil
}

// Func returns the function or procedure declaration of a callable symbol.
func (s *Symbol) Func() *ast.FuncDecl {
	f, _ := s.declNode.(*ast.FuncDecl)
	return f
}

// Copy returns a symbol with the same static metadata and empty storage.
func (s *Symbol) Copy() *Symbol {
	return &Symbol{
		name:     s.name,
		typ:      s.typ,
		kind:     s.kind,
		scope:    s.scope,
		declNode: s.declNode,
	}
}

// Value is a run time value tagged with its static type.
type Value struct {
	Type Type
	Int  int64 // integer, char code and boolean (0 or 1) values.
	Real float64
	Str  string
	// Elems is set when the value refers to an array or string storage.
	Elems *Elements
}

func IntValue(v int64) Value     { return Value{Type: TypeInteger, Int: v} }
func RealValue(v float64) Value  { return Value{Type: TypeReal, Real: v} }
func CharValue(c byte) Value     { return Value{Type: TypeChar, Int: int64(c)} }
func StringValue(s string) Value { return Value{Type: TypeString, Str: s} }

func BoolValue(b bool) Value {
	return Value{Type: TypeBoolean, Int: intrinsic.Ordinal[int64](b)}
}

// Zero returns the zero value of t.
func Zero(t Type) Value { return Value{Type: t} }

// IsRef reports whether v refers to aggregate storage.
func (v Value) IsRef() bool { return v.Elems != nil }

// AsInt returns v as an integer. Reals are truncated.
func (v Value) AsInt() int64 {
	if v.Type == TypeReal {
		return int64(v.Real)
	}
	return v.Int
}

// AsReal returns v as a real.
func (v Value) AsReal() float64 {
	if v.Type == TypeReal {
		return v.Real
	}
	return float64(v.Int)
}

// Truth returns the boolean interpretation of v: nonzero is true.
func (v Value) Truth() bool {
	if v.Type == TypeReal {
		return v.Real != 0
	}
	return intrinsic.Truth(v.Int)
}

// Text returns the contents of a string or char value.
func (v Value) Text() string {
	switch {
	case v.Elems != nil:
		return v.Elems.Text()
	case v.Type == TypeChar:
		return string([]byte{byte(v.Int)})
	}
	return v.Str
}

// Convert converts v to type t following C assignment rules. Conversions
// between strings and numbers are not possible and return false.
func (v Value) Convert(t Type) (Value, bool) {
	if v.Type == t && v.Elems == nil {
		return v, true
	}
	switch t {
	case TypeInteger:
		if v.Type == TypeString {
			return Value{}, false
		}
		if v.Type == TypeReal {
			if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
				return Value{}, false
			}
		}
		return IntValue(v.AsInt()), true
	case TypeReal:
		if v.Type == TypeString {
			return Value{}, false
		}
		return RealValue(v.AsReal()), true
	case TypeChar:
		if v.Type == TypeString {
			s := v.Text()
			if len(s) != 1 {
				return Value{}, false
			}
			return CharValue(s[0]), true
		}
		return CharValue(byte(v.AsInt())), true
	case TypeBoolean:
		if v.Type == TypeString {
			return Value{}, false
		}
		return BoolValue(v.Truth()), true
	case TypeString:
		if v.Type != TypeString && v.Type != TypeChar {
			return Value{}, false
		}
		return StringValue(v.Text()), true
	}
	return Value{}, false
}
