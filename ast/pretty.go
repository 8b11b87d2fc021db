package ast

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// PrettyPrint generates formatted source code from an AST node.
// Nested binary expressions are always parenthesized so the output
// parses back into an equivalent tree.
func PrettyPrint(node Node) string {
	var buf bytes.Buffer
	pp(&buf, node, 0)
	return buf.String()
}

func pp(buf *bytes.Buffer, node Node, indent int) {
	if node == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		for i, unit := range n.Nodes {
			if i > 0 {
				buf.WriteString("\n")
			}
			pp(buf, unit, indent)
		}

	case *VarDecl:
		writeIndent(buf, indent)
		buf.WriteString("var\n")
		for _, d := range n.Decls {
			writeIndent(buf, indent+1)
			pp(buf, d, 0)
			buf.WriteString(";\n")
		}

	case *Decl:
		fmt.Fprintf(buf, "%s: %s", n.Name.Name, n.Type)

	case *ArrayDecl:
		buf.WriteString(n.Name.Name)
		buf.WriteString(": ")
		switch {
		case n.Open:
			fmt.Fprintf(buf, "array of %s", n.Elem)
		case n.Range != nil:
			fmt.Fprintf(buf, "array[%d..%d] of %s", n.Range.Lo, n.Range.Hi, n.Elem)
		default:
			buf.WriteString(n.Elem.String())
			buf.WriteByte('[')
			pp(buf, n.Size, 0)
			buf.WriteByte(']')
		}
		if n.Elems != nil {
			buf.WriteString(" = ")
			pp(buf, n.Elems, 0)
		}

	case *ElemList:
		buf.WriteByte('(')
		ppList(buf, n.Elems)
		buf.WriteByte(')')

	case *FuncDecl:
		writeIndent(buf, indent)
		if n.IsProcedure() {
			buf.WriteString("procedure ")
		} else {
			buf.WriteString("function ")
		}
		buf.WriteString(n.Name.Name)
		buf.WriteByte('(')
		if n.Params != nil {
			for i, p := range n.Params.Params {
				if i > 0 {
					buf.WriteString("; ")
				}
				pp(buf, p, 0)
			}
		}
		buf.WriteByte(')')
		if !n.IsProcedure() {
			buf.WriteString(": ")
			buf.WriteString(n.Result.String())
		}
		buf.WriteString(";\n")
		ppBody(buf, n.Body, indent)
		buf.WriteString(";\n")

	case *Block:
		ppBody(buf, n, indent)
		if n.IsMain {
			buf.WriteString(".\n")
		} else {
			buf.WriteString(";\n")
		}

	case *AssignStmt:
		writeIndent(buf, indent)
		pp(buf, n.Target, 0)
		buf.WriteString(" := ")
		pp(buf, n.Value, 0)
		buf.WriteString(";\n")

	case *IfStmt:
		writeIndent(buf, indent)
		ppIf(buf, n, indent)

	case *WhileStmt:
		writeIndent(buf, indent)
		buf.WriteString("while ")
		pp(buf, n.Cond, 0)
		buf.WriteString(" do\n")
		ppBody(buf, n.Body, indent)
		buf.WriteString(";\n")

	case *ForStmt:
		writeIndent(buf, indent)
		buf.WriteString("for ")
		pp(buf, n.Init.Target, 0)
		buf.WriteString(" := ")
		pp(buf, n.Init.Value, 0)
		if n.Down {
			buf.WriteString(" downto ")
		} else {
			buf.WriteString(" to ")
		}
		pp(buf, n.Bound, 0)
		buf.WriteString(" do\n")
		ppBody(buf, n.Body, indent)
		buf.WriteString(";\n")

	case *RepeatStmt:
		writeIndent(buf, indent)
		buf.WriteString("repeat\n")
		ppStmts(buf, n.Body, indent+1)
		writeIndent(buf, indent)
		buf.WriteString("until ")
		pp(buf, n.Cond, 0)
		buf.WriteString(";\n")

	case *BreakStmt:
		writeIndent(buf, indent)
		buf.WriteString("break;\n")

	case *ContinueStmt:
		writeIndent(buf, indent)
		buf.WriteString("continue;\n")

	case *ExitStmt:
		writeIndent(buf, indent)
		buf.WriteString("exit")
		if n.Value != nil {
			buf.WriteByte('(')
			pp(buf, n.Value, 0)
			buf.WriteByte(')')
		}
		buf.WriteString(";\n")

	case *CallStmt:
		writeIndent(buf, indent)
		pp(buf, n.Call, 0)
		buf.WriteString(";\n")

	// Expression printing
	case *Ident:
		buf.WriteString(n.Name)
	case *IntLit:
		if n.Raw != "" {
			buf.WriteString(n.Raw)
		} else {
			fmt.Fprintf(buf, "%d", n.Value)
		}
	case *RealLit:
		if n.Raw != "" {
			buf.WriteString(n.Raw)
		} else {
			fmt.Fprintf(buf, "%g", n.Value)
		}
	case *CharLit:
		buf.WriteString(Quote(string(n.Value)))
	case *StringLit:
		buf.WriteString(Quote(n.Value))
	case *BoolLit:
		if n.Value {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case *IndexExpr:
		buf.WriteString(n.Array.Name)
		buf.WriteByte('[')
		pp(buf, n.Index, 0)
		buf.WriteByte(']')
	case *UnaryExpr:
		buf.WriteString(n.Op.String())
		if n.Op == token.NOT {
			buf.WriteByte(' ')
		}
		ppOperand(buf, n.X)
	case *BinaryExpr:
		ppOperand(buf, n.X)
		fmt.Fprintf(buf, " %s ", n.Op)
		ppOperand(buf, n.Y)
	case *Formatted:
		pp(buf, n.X, 0)
		buf.WriteByte(':')
		pp(buf, n.Width, 0)
		if n.Precision != nil {
			buf.WriteByte(':')
			pp(buf, n.Precision, 0)
		}
	case *CallExpr:
		buf.WriteString(n.Name.Name)
		buf.WriteByte('(')
		if n.Args != nil {
			ppList(buf, n.Args.Args)
		}
		buf.WriteByte(')')
	case *ArgList:
		ppList(buf, n.Args)

	default:
		fmt.Fprintf(buf, "[UNHANDLED: %T]\n", node)
	}
}

// ppBody prints an optional var section followed by begin ... end without a terminator.
func ppBody(buf *bytes.Buffer, b *Block, indent int) {
	if b.Decls != nil {
		pp(buf, b.Decls, indent)
	}
	writeIndent(buf, indent)
	buf.WriteString("begin\n")
	ppStmts(buf, b, indent+1)
	writeIndent(buf, indent)
	buf.WriteString("end")
}

func ppStmts(buf *bytes.Buffer, b *Block, indent int) {
	for _, stmt := range b.Stmts {
		if vd, ok := stmt.(*VarDecl); ok {
			// Block-local var statement, one declaration per line.
			for _, d := range vd.Decls {
				writeIndent(buf, indent)
				buf.WriteString("var ")
				pp(buf, d, 0)
				buf.WriteString(";\n")
			}
			continue
		}
		pp(buf, stmt, indent)
	}
}

// ppIf prints an if statement starting at the current column so else-if
// chains stay on the else line.
func ppIf(buf *bytes.Buffer, n *IfStmt, indent int) {
	buf.WriteString("if ")
	pp(buf, n.Cond, 0)
	buf.WriteString(" then\n")
	ppBody(buf, n.Then, indent)
	if n.Else == nil {
		buf.WriteString(";\n")
		return
	}
	buf.WriteString("\n")
	writeIndent(buf, indent)
	if nested, ok := elseIf(n.Else); ok {
		buf.WriteString("else ")
		ppIf(buf, nested, indent)
		return
	}
	buf.WriteString("else\n")
	ppBody(buf, n.Else, indent)
	buf.WriteString(";\n")
}

// elseIf reports whether b is the synthetic block wrapping an else-if.
func elseIf(b *Block) (*IfStmt, bool) {
	if b.Decls != nil || len(b.Stmts) != 1 {
		return nil, false
	}
	nested, ok := b.Stmts[0].(*IfStmt)
	return nested, ok && nested.Pos() == b.Pos()
}

func ppOperand(buf *bytes.Buffer, x Expression) {
	switch x.(type) {
	case *BinaryExpr, *Formatted:
		buf.WriteByte('(')
		pp(buf, x, 0)
		buf.WriteByte(')')
	default:
		pp(buf, x, 0)
	}
}

func ppList(buf *bytes.Buffer, list []Expression) {
	for i, x := range list {
		if i > 0 {
			buf.WriteString(", ")
		}
		pp(buf, x, 0)
	}
}

// Quote renders s as a single-quoted literal, doubling embedded quotes.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func writeIndent(buf *bytes.Buffer, indent int) {
	for i := 0; i < indent; i++ {
		buf.WriteString("  ")
	}
}
