package ast

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// A FieldFilter is used to filter fields when printing AST nodes.
// If it returns false, the field is excluded from the output.
type FieldFilter func(name string, value reflect.Value) bool

// NotNilFilter excludes nil pointers, interfaces and slices and false booleans.
func NotNilFilter(_ string, v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return !v.IsNil()
	case reflect.Bool:
		return v.Bool()
	}
	return true
}

// Fprint writes the tree rooted at x to w, one field per line. Identifiers,
// literals, break and continue print on a single line followed by their
// source offset. Scope ids print as #n and tokens by name. Only fields for
// which a non-nil f returns true are printed.
func Fprint(w io.Writer, x any, f FieldFilter) error {
	p := &printer{
		output: w,
		filter: f,
		seen:   make(map[any]int),
		line:   1,
	}
	p.print(reflect.ValueOf(x))
	return p.err
}

// Print calls Fprint(os.Stdout, x, NotNilFilter).
func Print(x any) error {
	return Fprint(os.Stdout, x, NotNilFilter)
}

type printer struct {
	output io.Writer
	filter FieldFilter
	seen   map[any]int // node pointer to the line it was first printed on.
	line   int
	indent int
	err    error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	s := fmt.Sprintf(format, args...)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			p.line++
		}
	}
	_, p.err = io.WriteString(p.output, s)
}

func (p *printer) newline() {
	p.printf("\n")
	for i := 0; i < p.indent; i++ {
		p.printf("  ")
	}
}

// leaf returns the one line rendering of nodes without children.
func leaf(n Node) (string, bool) {
	switch n := n.(type) {
	case *Ident:
		return "Ident " + n.Name, true
	case *IntLit:
		return "IntLit " + strconv.FormatInt(n.Value, 10), true
	case *RealLit:
		return "RealLit " + strconv.FormatFloat(n.Value, 'g', -1, 64), true
	case *CharLit:
		return "CharLit " + Quote(string(n.Value)), true
	case *StringLit:
		return "StringLit " + Quote(n.Value), true
	case *BoolLit:
		return "BoolLit " + strconv.FormatBool(n.Value), true
	case *BreakStmt:
		return "BreakStmt", true
	case *ContinueStmt:
		return "ContinueStmt", true
	}
	return "", false
}

func (p *printer) print(v reflect.Value) {
	if !v.IsValid() {
		p.printf("nil")
		return
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			p.printf("nil")
			return
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			p.printf("nil")
			return
		}
		if n, ok := v.Interface().(Node); ok {
			if s, ok := leaf(n); ok {
				p.printf("%s @%d", s, n.Pos())
				return
			}
		}
		ptr := v.Interface()
		if line, ok := p.seen[ptr]; ok {
			p.printf("(seen on line %d)", line)
			return
		}
		p.seen[ptr] = p.line
		v = v.Elem()
	}

	switch x := v.Interface().(type) {
	case Position:
		p.printf("Position [%d, %d)", x.Pos(), x.End())
		return
	case ScopeID:
		p.printf("#%d", int32(x))
		return
	case token.Token:
		p.printf("%s", x)
		return
	}

	t := v.Type()
	switch v.Kind() {
	case reflect.Struct:
		p.printf("%s {", t.Name())
		p.indent++
		for i := 0; i < v.NumField(); i++ {
			field, fv := t.Field(i), v.Field(i)
			if !field.IsExported() || p.filter != nil && !p.filter(field.Name, fv) {
				continue
			}
			p.newline()
			p.printf("%s: ", field.Name)
			p.print(fv)
		}
		p.indent--
		p.newline()
		p.printf("}")

	case reflect.Slice:
		if v.IsNil() {
			p.printf("nil")
			return
		}
		p.printf("[%d]%s [", v.Len(), t.Elem())
		if v.Len() == 0 {
			p.printf("]")
			return
		}
		p.indent++
		for i := 0; i < v.Len(); i++ {
			p.newline()
			p.printf("%d: ", i)
			p.print(v.Index(i))
		}
		p.indent--
		p.newline()
		p.printf("]")

	case reflect.String:
		p.printf("%q", v.String())

	default:
		p.printf("%v", v.Interface())
	}
}
