package symbol

import (
	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// TypeOf returns the static type of x evaluated in scope. It consults the
// symbol tables only and returns TypeNone for expressions without a value.
func (in *Info) TypeOf(scope ast.ScopeID, x ast.Expression) Type {
	switch x := x.(type) {
	case *ast.IntLit:
		return TypeInteger
	case *ast.RealLit:
		return TypeReal
	case *ast.CharLit:
		return TypeChar
	case *ast.StringLit:
		return TypeString
	case *ast.BoolLit:
		return TypeBoolean
	case *ast.Ident:
		if sym := in.Lookup(scope, x.Name); sym != nil {
			return sym.typ
		}
	case *ast.IndexExpr:
		sym := in.Lookup(scope, x.Array.Name)
		if sym == nil {
			return TypeNone
		}
		if sym.typ == TypeString && sym.Array() == nil {
			return TypeChar
		}
		return sym.typ
	case *ast.Formatted:
		return in.TypeOf(scope, x.X)
	case *ast.UnaryExpr:
		t := in.TypeOf(scope, x.X)
		if x.Op == token.Minus && t == TypeChar {
			return TypeInteger
		}
		return t
	case *ast.BinaryExpr:
		return BinaryType(x.Op, in.TypeOf(scope, x.X), in.TypeOf(scope, x.Y))
	case *ast.CallExpr:
		if IsBuiltin(x.Name.Name) {
			return BuiltinResult(x.Name.Name)
		}
		if sym := in.Callable(x.Name.Name); sym != nil {
			return sym.typ
		}
	}
	return TypeNone
}

// BinaryType returns the result type of applying op to operands of type a and b.
func BinaryType(op token.Token, a, b Type) Type {
	switch {
	case op.IsRelational(), op.IsLogical():
		return TypeBoolean
	case op == token.XOR:
		if a == TypeBoolean && b == TypeBoolean {
			return TypeBoolean
		}
		return TypeInteger
	case op == token.Slash:
		return TypeReal
	case op == token.DIV, op == token.MOD:
		return TypeInteger
	case op == token.Plus && isText(a) && isText(b) && (a == TypeString || b == TypeString):
		return TypeString
	case a == TypeReal || b == TypeReal:
		return TypeReal
	}
	return TypeInteger
}

func isText(t Type) bool { return t == TypeString || t == TypeChar }
