package pascal

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ahrtr/gocontainer/set"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// ErrUnsupported is returned for constructs that have no C rendition.
var ErrUnsupported = errors.New("not supported in C output")

const (
	cStrLen  = "PAS_STRLEN"  // capacity of string variables including the terminator.
	cOpenLen = "PAS_OPENLEN" // capacity of growable arrays.
	cResult  = "pas_result"
)

// cPrelude holds the definitions generated programs rely on. %s are the
// boolean tokens.
const cPrelude = `#include <stdio.h>
#include <string.h>

#define PAS_STRLEN 256
#define PAS_OPENLEN 1024
#define PAS_TRUE %s
#define PAS_FALSE %s

static char pas_ring[8][PAS_STRLEN];
static int pas_next;

static char *pas_slot(void) {
	return pas_ring[pas_next++ %% 8];
}

static char *pas_tmp(const char *s) {
	char *dst = pas_slot();
	snprintf(dst, PAS_STRLEN, "%%s", s);
	return dst;
}

static char *pas_chr(char c) {
	char *dst = pas_slot();
	dst[0] = c;
	dst[1] = '\0';
	return dst;
}

static char *pas_concat(const char *a, const char *b) {
	char *dst = pas_slot();
	snprintf(dst, PAS_STRLEN, "%%s%%s", a, b);
	return dst;
}

static void pas_strset(char *dst, size_t cap, const char *src) {
	size_t n = strlen(src);
	if (n > cap - 1) {
		n = cap - 1;
	}
	memmove(dst, src, n);
	dst[n] = '\0';
}

static void pas_insert(const char *src, char *dst, size_t cap, int at) {
	size_t n = strlen(dst), m = strlen(src);
	if (at < 1 || (size_t)at > n + 1 || n + m > cap - 1) {
		return;
	}
	memmove(dst + at - 1 + m, dst + at - 1, n - (at - 1) + 1);
	memcpy(dst + at - 1, src, m);
}

static void pas_skipline(void) {
	int c;
	while ((c = getchar()) != EOF && c != '\n') {
	}
}

static int pas_readstr(char *dst, size_t cap) {
	char tok[PAS_STRLEN];
	if (scanf("%%255s", tok) != 1) {
		return 0;
	}
	pas_strset(dst, cap, pas_concat(dst, tok));
	return 1;
}

static int pas_readbool(int *b) {
	char tok[PAS_STRLEN];
	if (scanf("%%255s", tok) != 1) {
		return 0;
	}
	*b = strcmp(tok, PAS_TRUE) == 0 || strcmp(tok, "true") == 0;
	return 1;
}
`

// cReserved holds names a program may declare that would clash in C.
var cReserved = newCReserved()

func newCReserved() set.Interface {
	s := set.New()
	for _, kw := range strings.Fields(`auto break case char const continue default do double
		else enum extern float for goto if inline int long register restrict return short
		signed sizeof static struct switch typedef union unsigned void volatile while
		printf scanf getchar strlen strcmp memmove memcpy snprintf size_t EOF NULL`) {
		s.Add(kw)
	}
	return s
}

// sanitizeIdent renames identifiers that collide with C keywords, the C
// library functions used by generated code or the prelude.
func sanitizeIdent(name string) string {
	if cReserved.Contains(name) || strings.HasPrefix(name, "pas_") || strings.HasPrefix(name, "PAS_") {
		return name + "_"
	}
	return name
}

// TranspileToC translates a symbolized program into a C99 translation unit.
// Static types come from the symbol tables.
type TranspileToC struct {
	info  *symbol.Info
	fmtr  intrinsic.Formatter
	scope ast.ScopeID   // scope statements are resolved in.
	fn    *ast.FuncDecl // callable being translated, nil in the main block.
	level int
}

// Reset prepares the transpiler for info, which must have been symbolized
// without errors. Booleans are written with the tokens of f and reals
// without rounding metadata with its precision.
func (tc *TranspileToC) Reset(info *symbol.Info, f intrinsic.Formatter) error {
	if info == nil || info.Program() == nil {
		return errors.New("transpile: nil program")
	}
	*tc = TranspileToC{info: info, fmtr: f}
	return nil
}

// WriteProgram writes the C source of the whole program to w.
func (tc *TranspileToC) WriteProgram(w io.Writer) error {
	dst, err := tc.AppendProgram(nil)
	if err != nil {
		return err
	}
	_, err = w.Write(dst)
	return err
}

// AppendProgram appends the C source of the program to dst: prelude, globals,
// prototypes, callables and main, in that order.
func (tc *TranspileToC) AppendProgram(dst []byte) (_ []byte, err error) {
	if tc.info == nil {
		return dst, errors.New("transpile: Reset not called")
	}
	prog := tc.info.Program()
	dst = fmt.Appendf(dst, cPrelude, cQuote(tc.fmtr.TrueToken), cQuote(tc.fmtr.FalseToken))

	tc.scope, tc.fn, tc.level = prog.Scope, nil, 0
	var fns []*ast.FuncDecl
	for _, n := range prog.Nodes {
		switch n := n.(type) {
		case *ast.VarDecl:
			dst = append(dst, '\n')
			if dst, err = tc.appendVarDecl(dst, n, true); err != nil {
				return dst, err
			}
		case *ast.FuncDecl:
			fns = append(fns, n)
		}
	}
	if len(fns) > 0 {
		dst = append(dst, '\n')
	}
	for _, fn := range fns {
		dst = tc.appendSignature(dst, fn)
		dst = append(dst, ";\n"...)
	}
	for _, fn := range fns {
		dst = append(dst, '\n')
		if dst, err = tc.appendFunc(dst, fn); err != nil {
			return dst, err
		}
	}

	dst = append(dst, "\nint main(void) {\n"...)
	if main := prog.Main(); main != nil {
		tc.fn = nil
		if dst, err = tc.appendBlockBody(dst, main); err != nil {
			return dst, err
		}
	}
	dst = append(dst, "\treturn 0;\n}\n"...)
	return dst, nil
}

func (tc *TranspileToC) makeErr(node ast.Node, format string, args ...any) error {
	return fmt.Errorf("%s in %T @ %d", fmt.Sprintf(format, args...), node, node.Pos())
}

func (tc *TranspileToC) unsupported(node ast.Node, what string) error {
	return fmt.Errorf("%s in %T @ %d: %w", what, node, node.Pos(), ErrUnsupported)
}

func (tc *TranspileToC) indent(dst []byte) []byte {
	for i := 0; i < tc.level; i++ {
		dst = append(dst, '\t')
	}
	return dst
}

// ==================== DECLARATIONS ====================

func cType(t symbol.Type) string {
	switch t {
	case symbol.TypeReal:
		return "double"
	case symbol.TypeChar:
		return "char"
	case symbol.TypeString:
		return "char *"
	case symbol.TypeNone:
		return "void"
	}
	return "int"
}

func (tc *TranspileToC) appendSignature(dst []byte, fn *ast.FuncDecl) []byte {
	ret := cType(symbol.TypeFromToken(fn.Result))
	dst = append(dst, ret...)
	if !strings.HasSuffix(ret, "*") {
		dst = append(dst, ' ')
	}
	dst = append(dst, sanitizeIdent(fn.Name.Name)...)
	dst = append(dst, '(')
	if len(fn.Params.Params) == 0 {
		dst = append(dst, "void"...)
	}
	for i, p := range fn.Params.Params {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		switch p := p.(type) {
		case *ast.Decl:
			typ := symbol.TypeFromToken(p.Type)
			dst = append(dst, cType(typ)...)
			if typ != symbol.TypeString {
				dst = append(dst, ' ')
			}
			dst = append(dst, sanitizeIdent(p.Name.Name)...)
		case *ast.ArrayDecl:
			elem := symbol.TypeFromToken(p.Elem)
			if elem == symbol.TypeString && !p.Open && p.Range == nil {
				// string[n] parameter.
				dst = append(dst, "char *"...)
				dst = append(dst, sanitizeIdent(p.Name.Name)...)
				continue
			}
			dst = tc.appendElemType(dst, elem)
			dst = append(dst, ' ')
			dst = append(dst, sanitizeIdent(p.Name.Name)...)
			dst = append(dst, "[]"...)
			if elem == symbol.TypeString {
				dst = append(dst, "["+cStrLen+"]"...)
			}
		}
	}
	return append(dst, ')')
}

func (tc *TranspileToC) appendElemType(dst []byte, t symbol.Type) []byte {
	if t == symbol.TypeString {
		return append(dst, "char"...)
	}
	return append(dst, cType(t)...)
}

func (tc *TranspileToC) appendFunc(dst []byte, fn *ast.FuncDecl) (_ []byte, err error) {
	tc.fn = fn
	defer func() { tc.fn = nil }()
	dst = tc.appendSignature(dst, fn)
	dst = append(dst, " {\n"...)
	result := symbol.TypeFromToken(fn.Result)
	switch {
	case fn.IsProcedure():
	case result == symbol.TypeString:
		dst = append(dst, "\tchar "+cResult+"["+cStrLen+"] = \"\";\n"...)
	default:
		dst = fmt.Appendf(dst, "\t%s %s = 0;\n", cType(result), cResult)
	}
	if dst, err = tc.appendBlockBody(dst, fn.Body); err != nil {
		return dst, err
	}
	if !fn.IsProcedure() {
		dst = append(dst, '\t')
		dst = tc.appendReturnResult(dst)
		dst = append(dst, '\n')
	}
	return append(dst, "}\n"...), nil
}

func (tc *TranspileToC) appendReturnResult(dst []byte) []byte {
	if symbol.TypeFromToken(tc.fn.Result) == symbol.TypeString {
		return append(dst, "return pas_tmp("+cResult+");"...)
	}
	return append(dst, "return "+cResult+";"...)
}

// appendBlockBody appends the declarations and statements of blk one level
// deeper than the current indentation.
func (tc *TranspileToC) appendBlockBody(dst []byte, blk *ast.Block) (_ []byte, err error) {
	outer := tc.scope
	tc.scope = blk.Scope
	tc.level++
	defer func() {
		tc.scope = outer
		tc.level--
	}()
	if blk.Decls != nil {
		if dst, err = tc.appendVarDecl(dst, blk.Decls, false); err != nil {
			return dst, err
		}
	}
	for _, stmt := range blk.Stmts {
		if dst, err = tc.appendStmt(dst, stmt); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func (tc *TranspileToC) appendVarDecl(dst []byte, vd *ast.VarDecl, global bool) (_ []byte, err error) {
	for _, d := range vd.Decls {
		switch d := d.(type) {
		case *ast.Decl:
			dst = tc.indent(dst)
			name := sanitizeIdent(d.Name.Name)
			if typ := symbol.TypeFromToken(d.Type); typ == symbol.TypeString {
				dst = append(dst, "char "+name+"["+cStrLen+"] = \"\";\n"...)
			} else {
				dst = fmt.Appendf(dst, "%s %s = 0;\n", cType(typ), name)
			}
		case *ast.ArrayDecl:
			if dst, err = tc.appendArrayDecl(dst, d, global); err != nil {
				return dst, err
			}
		}
	}
	return dst, nil
}

func (tc *TranspileToC) appendArrayDecl(dst []byte, d *ast.ArrayDecl, global bool) (_ []byte, err error) {
	name := sanitizeIdent(d.Name.Name)
	elem := symbol.TypeFromToken(d.Elem)
	var length []byte
	constant := true
	switch {
	case d.Range != nil:
		length = strconv.AppendInt(length, d.Range.Len(), 10)
	case d.Size != nil:
		_, constant = d.Size.(*ast.IntLit)
		if length, err = tc.appendExpr(length, d.Size); err != nil {
			return dst, err
		}
	default:
		length = append(length, cOpenLen...)
	}
	if !constant && global {
		return dst, tc.unsupported(d, "global array with variable size")
	}
	stringVar := elem == symbol.TypeString && !d.Open && d.Range == nil

	dst = tc.indent(dst)
	dst = tc.appendElemType(dst, elem)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, '[')
	dst = append(dst, length...)
	if stringVar {
		dst = append(dst, " + 1"...)
	}
	dst = append(dst, ']')
	if elem == symbol.TypeString && !stringVar {
		dst = append(dst, "["+cStrLen+"]"...)
	}

	switch {
	case d.Elems != nil && !stringVar:
		if !constant {
			return dst, tc.unsupported(d, "initializer for array with variable size")
		}
		dst = append(dst, " = {"...)
		for i, x := range d.Elems.Elems {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			if dst, err = tc.appendExpr(dst, x); err != nil {
				return dst, err
			}
		}
		dst = append(dst, "};\n"...)
	case !constant:
		dst = append(dst, ";\n"...)
		dst = tc.indent(dst)
		dst = append(dst, "memset("+name+", 0, sizeof "+name+");\n"...)
	case stringVar:
		dst = append(dst, " = \"\";\n"...)
	default:
		dst = append(dst, " = {0};\n"...)
	}
	return dst, nil
}

// ==================== STATEMENTS ====================

func (tc *TranspileToC) appendStmt(dst []byte, stmt ast.Statement) (_ []byte, err error) {
	switch s := stmt.(type) {
	case *ast.VarDecl:
		return tc.appendVarDecl(dst, s, false)
	case *ast.AssignStmt:
		dst = tc.indent(dst)
		dst, err = tc.appendAssign(dst, s.Target, s.Value)
		return append(dst, '\n'), err
	case *ast.CallStmt:
		dst = tc.indent(dst)
		dst, err = tc.appendCallStmt(dst, s.Call)
		return append(dst, '\n'), err
	case *ast.IfStmt:
		dst = tc.indent(dst)
		dst = append(dst, "if ("...)
		if dst, err = tc.appendExpr(dst, s.Cond); err != nil {
			return dst, err
		}
		dst = append(dst, ") {\n"...)
		if dst, err = tc.appendBlockBody(dst, s.Then); err != nil {
			return dst, err
		}
		if s.Else != nil {
			dst = tc.indent(dst)
			dst = append(dst, "} else {\n"...)
			if dst, err = tc.appendBlockBody(dst, s.Else); err != nil {
				return dst, err
			}
		}
		dst = tc.indent(dst)
		return append(dst, "}\n"...), nil
	case *ast.WhileStmt:
		dst = tc.indent(dst)
		dst = append(dst, "while ("...)
		if dst, err = tc.appendExpr(dst, s.Cond); err != nil {
			return dst, err
		}
		dst = append(dst, ") {\n"...)
		if dst, err = tc.appendBlockBody(dst, s.Body); err != nil {
			return dst, err
		}
		dst = tc.indent(dst)
		return append(dst, "}\n"...), nil
	case *ast.ForStmt:
		return tc.appendFor(dst, s)
	case *ast.RepeatStmt:
		dst = tc.indent(dst)
		dst = append(dst, "do {\n"...)
		if dst, err = tc.appendBlockBody(dst, s.Body); err != nil {
			return dst, err
		}
		dst = tc.indent(dst)
		dst = append(dst, "} while (!("...)
		if dst, err = tc.appendExpr(dst, s.Cond); err != nil {
			return dst, err
		}
		return append(dst, "));\n"...), nil
	case *ast.BreakStmt:
		dst = tc.indent(dst)
		return append(dst, "break;\n"...), nil
	case *ast.ContinueStmt:
		dst = tc.indent(dst)
		return append(dst, "continue;\n"...), nil
	case *ast.ExitStmt:
		dst = tc.indent(dst)
		dst, err = tc.appendExit(dst, s)
		return append(dst, '\n'), err
	case *ast.Block:
		dst = tc.indent(dst)
		dst = append(dst, "{\n"...)
		if dst, err = tc.appendBlockBody(dst, s); err != nil {
			return dst, err
		}
		dst = tc.indent(dst)
		return append(dst, "}\n"...), nil
	}
	return dst, tc.unsupported(stmt, "statement")
}

// appendFor appends a C for loop. Both languages re-evaluate the bound before
// every iteration and step the variable after continue.
func (tc *TranspileToC) appendFor(dst []byte, s *ast.ForStmt) (_ []byte, err error) {
	v := sanitizeIdent(s.Var().Name)
	cmp, step := " <= ", "++"
	if s.Down {
		cmp, step = " >= ", "--"
	}
	dst = tc.indent(dst)
	dst = append(dst, "for ("+v+" = "...)
	if dst, err = tc.appendExpr(dst, s.Init.Value); err != nil {
		return dst, err
	}
	dst = append(dst, "; "+v+cmp...)
	if dst, err = tc.appendExpr(dst, s.Bound); err != nil {
		return dst, err
	}
	dst = append(dst, "; "+v+step+") {\n"...)
	if dst, err = tc.appendBlockBody(dst, s.Body); err != nil {
		return dst, err
	}
	dst = tc.indent(dst)
	return append(dst, "}\n"...), nil
}

func (tc *TranspileToC) appendExit(dst []byte, s *ast.ExitStmt) (_ []byte, err error) {
	switch {
	case tc.fn == nil:
		return append(dst, "return 0;"...), nil
	case tc.fn.IsProcedure():
		return append(dst, "return;"...), nil
	case s.Value == nil:
		return tc.appendReturnResult(dst), nil
	}
	dst = append(dst, "return "...)
	if symbol.TypeFromToken(tc.fn.Result) == symbol.TypeString {
		dst = append(dst, "pas_tmp("...)
		dst, err = tc.appendText(dst, s.Value)
		dst = append(dst, ')')
	} else {
		dst, err = tc.appendExpr(dst, s.Value)
	}
	return append(dst, ';'), err
}

// stringCap returns the C expression for the capacity of the string stored in target.
func (tc *TranspileToC) stringCap(target string, sym *symbol.Symbol) string {
	if sym.Kind() == symbol.KindParam || sym.Array() != nil {
		return cStrLen
	}
	return "sizeof " + target
}

func (tc *TranspileToC) appendAssign(dst []byte, target, value ast.Expression) (_ []byte, err error) {
	var lhs []byte
	var sym *symbol.Symbol
	switch t := target.(type) {
	case *ast.Ident:
		sym = tc.info.Lookup(tc.scope, t.Name)
		if sym == nil {
			return dst, tc.makeErr(t, "undeclared %s", t.Name)
		}
		if sym.Array() != nil {
			return dst, tc.unsupported(t, "assignment to whole array")
		}
		lhs, err = tc.appendIdent(lhs, t, false)
	case *ast.IndexExpr:
		sym = tc.info.Lookup(tc.scope, t.Array.Name)
		if sym == nil {
			return dst, tc.makeErr(t, "undeclared %s", t.Array.Name)
		}
		lhs, err = tc.appendIndex(lhs, t)
		if sym.Array() == nil {
			// Character of a string.
			sym = nil
		}
	default:
		return dst, tc.unsupported(target, "assignment target")
	}
	if err != nil {
		return dst, err
	}
	if sym != nil && sym.Type() == symbol.TypeString {
		dst = append(dst, "pas_strset("...)
		dst = append(dst, lhs...)
		dst = append(dst, ", "+tc.stringCap(string(lhs), sym)+", "...)
		dst, err = tc.appendText(dst, value)
		return append(dst, ");"...), err
	}
	dst = append(dst, lhs...)
	dst = append(dst, " = "...)
	dst, err = tc.appendExpr(dst, value)
	return append(dst, ';'), err
}

func (tc *TranspileToC) appendCallStmt(dst []byte, c *ast.CallExpr) (_ []byte, err error) {
	args := c.Args.Args
	switch name := c.Name.Name; name {
	case symbol.BuiltinWrite, symbol.BuiltinWriteln:
		return tc.appendWrite(dst, args, name == symbol.BuiltinWriteln)
	case symbol.BuiltinRead, symbol.BuiltinReadln:
		return tc.appendRead(dst, args, name == symbol.BuiltinReadln)
	case symbol.BuiltinInc, symbol.BuiltinDec:
		if len(args) < 1 || len(args) > 2 {
			return dst, tc.makeErr(c, "%s expects 1 or 2 arguments", name)
		}
		if dst, err = tc.appendExpr(dst, args[0]); err != nil {
			return dst, err
		}
		op := " += "
		if name == symbol.BuiltinDec {
			op = " -= "
		}
		dst = append(dst, op...)
		if len(args) == 1 {
			dst = append(dst, '1')
		} else if dst, err = tc.appendExpr(dst, args[1]); err != nil {
			return dst, err
		}
		return append(dst, ';'), nil
	case symbol.BuiltinConcat:
		// concat(s, t) as a statement appends to s.
		if len(args) < 2 {
			return append(dst, "(void)0;"...), nil
		}
		return tc.appendAssign(dst, args[0], c)
	case symbol.BuiltinInsert:
		if len(args) != 3 {
			return dst, tc.makeErr(c, "insert expects 3 arguments")
		}
		id, ok := args[1].(*ast.Ident)
		sym := (*symbol.Symbol)(nil)
		if ok {
			sym = tc.info.Lookup(tc.scope, id.Name)
		}
		if sym == nil || sym.Type() != symbol.TypeString || sym.Array() != nil {
			return dst, tc.makeErr(args[1], "insert destination must be a string variable")
		}
		dst = append(dst, "pas_insert("...)
		if dst, err = tc.appendText(dst, args[0]); err != nil {
			return dst, err
		}
		target := sanitizeIdent(id.Name)
		dst = append(dst, ", "+target+", "+tc.stringCap(target, sym)+", "...)
		if dst, err = tc.appendExpr(dst, args[2]); err != nil {
			return dst, err
		}
		return append(dst, ");"...), nil
	}
	dst, err = tc.appendCall(dst, c)
	return append(dst, ';'), err
}

// appendWrite appends a printf call. Values are passed as arguments so the
// format string only holds conversions.
func (tc *TranspileToC) appendWrite(dst []byte, args []ast.Expression, newline bool) (_ []byte, err error) {
	var format []byte
	var vals []byte
	for _, a := range args {
		x, width, prec := a, ast.Expression(nil), ast.Expression(nil)
		if f, ok := a.(*ast.Formatted); ok {
			x, width, prec = f.X, f.Width, f.Precision
		}
		if id, ok := x.(*ast.Ident); ok {
			if sym := tc.info.Lookup(tc.scope, id.Name); sym != nil && sym.Array() != nil {
				return dst, tc.unsupported(x, "writing a whole array")
			}
		}
		format = append(format, '%')
		if width != nil {
			format = append(format, '*')
			vals = append(vals, ", (int)("...)
			if vals, err = tc.appendExpr(vals, width); err != nil {
				return dst, err
			}
			vals = append(vals, ')')
		}
		vals = append(vals, ", "...)
		switch tc.info.TypeOf(tc.scope, x) {
		case symbol.TypeInteger:
			format = append(format, 'd')
			vals, err = tc.appendExpr(vals, x)
		case symbol.TypeReal:
			format = append(format, ".*f"...)
			if prec != nil {
				vals = append(vals, "(int)("...)
				if vals, err = tc.appendExpr(vals, prec); err != nil {
					return dst, err
				}
				vals = append(vals, "), "...)
			} else {
				vals = strconv.AppendInt(vals, int64(tc.fmtr.Precision), 10)
				vals = append(vals, ", "...)
			}
			vals = append(vals, "(double)"...)
			vals, err = tc.appendExpr(vals, x)
		case symbol.TypeChar:
			format = append(format, 'c')
			vals, err = tc.appendExpr(vals, x)
		case symbol.TypeBoolean:
			format = append(format, 's')
			vals = append(vals, '(')
			vals, err = tc.appendExpr(vals, x)
			vals = append(vals, " ? PAS_TRUE : PAS_FALSE)"...)
		case symbol.TypeString:
			format = append(format, 's')
			vals, err = tc.appendExpr(vals, x)
		default:
			return dst, tc.makeErr(x, "expression has no value")
		}
		if err != nil {
			return dst, err
		}
	}
	if newline {
		format = append(format, `\n`...)
	}
	if len(format) == 0 {
		return append(dst, "(void)0;"...), nil
	}
	dst = append(dst, "printf(\""...)
	dst = append(dst, format...)
	dst = append(dst, '"')
	dst = append(dst, vals...)
	return append(dst, ");"...), nil
}

// appendRead appends a scanf call. readln also discards the rest of the line.
func (tc *TranspileToC) appendRead(dst []byte, args []ast.Expression, line bool) (_ []byte, err error) {
	var calls [][]byte
	var format, vals []byte
	flush := func() {
		if len(format) > 0 {
			calls = append(calls, fmt.Appendf(nil, "scanf(\"%s\"%s);", format, vals))
			format, vals = nil, nil
		}
	}
	for _, a := range args {
		if id, ok := a.(*ast.Ident); ok {
			if sym := tc.info.Lookup(tc.scope, id.Name); sym != nil && sym.Array() != nil {
				return dst, tc.unsupported(a, "reading a whole array")
			}
		}
		typ := tc.info.TypeOf(tc.scope, a)
		if id, ok := a.(*ast.Ident); ok && typ == symbol.TypeString {
			// Strings are read one at a time to append the token.
			flush()
			name, err := tc.appendIdent(nil, id, false)
			if err != nil {
				return dst, err
			}
			sym := tc.info.Lookup(tc.scope, id.Name)
			calls = append(calls, fmt.Appendf(nil, "pas_readstr(%s, %s);", name, tc.stringCap(string(name), sym)))
			continue
		}
		if typ == symbol.TypeBoolean {
			// Booleans are read one at a time to map the tokens.
			flush()
			call := []byte("pas_readbool(&")
			if call, err = tc.appendExpr(call, a); err != nil {
				return dst, err
			}
			calls = append(calls, append(call, ");"...))
			continue
		}
		vals = append(vals, ", "...)
		switch typ {
		case symbol.TypeInteger:
			format = append(format, "%d"...)
			vals = append(vals, '&')
		case symbol.TypeReal:
			format = append(format, "%lf"...)
			vals = append(vals, '&')
		case symbol.TypeChar:
			format = append(format, " %c"...)
			vals = append(vals, '&')
		case symbol.TypeString:
			format = append(format, "%255s"...)
		default:
			return dst, tc.makeErr(a, "cannot read into %s", ast.PrettyPrint(a))
		}
		if vals, err = tc.appendExpr(vals, a); err != nil {
			return dst, err
		}
	}
	flush()
	if line {
		calls = append(calls, []byte("pas_skipline();"))
	}
	if len(calls) == 0 {
		return append(dst, "(void)0;"...), nil
	}
	for i, call := range calls {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = append(dst, call...)
	}
	return dst, nil
}

// ==================== EXPRESSIONS ====================

func (tc *TranspileToC) appendExpr(dst []byte, x ast.Expression) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.IntLit:
		return strconv.AppendInt(dst, x.Value, 10), nil
	case *ast.RealLit:
		s := strconv.FormatFloat(x.Value, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return append(dst, s...), nil
	case *ast.CharLit:
		return append(dst, cCharQuote(x.Value)...), nil
	case *ast.StringLit:
		return append(dst, cQuote(x.Value)...), nil
	case *ast.BoolLit:
		if x.Value {
			return append(dst, '1'), nil
		}
		return append(dst, '0'), nil
	case *ast.Ident:
		return tc.appendIdent(dst, x, true)
	case *ast.IndexExpr:
		return tc.appendIndex(dst, x)
	case *ast.Formatted:
		return tc.appendExpr(dst, x.X)
	case *ast.UnaryExpr:
		switch x.Op {
		case token.NOT:
			dst = append(dst, '!')
		case token.Minus:
			dst = append(dst, '-')
		default:
			return dst, tc.unsupported(x, "unary operator "+x.Op.String())
		}
		dst = append(dst, '(')
		dst, err = tc.appendExpr(dst, x.X)
		return append(dst, ')'), err
	case *ast.BinaryExpr:
		return tc.appendBinary(dst, x)
	case *ast.CallExpr:
		return tc.appendCall(dst, x)
	}
	return dst, tc.unsupported(x, "expression")
}

// appendIdent appends a variable reference. Callables named in an expression
// are called without arguments.
func (tc *TranspileToC) appendIdent(dst []byte, id *ast.Ident, rvalue bool) ([]byte, error) {
	sym := tc.info.Lookup(tc.scope, id.Name)
	switch {
	case sym == nil:
		return dst, tc.makeErr(id, "undeclared %s", id.Name)
	case sym.Kind() == symbol.KindResult:
		return append(dst, cResult...), nil
	case sym.Kind() == symbol.KindProc:
		return dst, tc.makeErr(id, "procedure %s used as a value", id.Name)
	case sym.Kind() == symbol.KindFunc && rvalue:
		return append(dst, sanitizeIdent(id.Name)+"()"...), nil
	}
	return append(dst, sanitizeIdent(id.Name)...), nil
}

// appendIndex appends an element access, shifting the index to C's zero base.
func (tc *TranspileToC) appendIndex(dst []byte, x *ast.IndexExpr) (_ []byte, err error) {
	sym := tc.info.Lookup(tc.scope, x.Array.Name)
	if sym == nil {
		return dst, tc.makeErr(x, "undeclared %s", x.Array.Name)
	}
	var lo int64
	switch arr := sym.Array(); {
	case arr == nil && sym.Type() == symbol.TypeString:
		lo = 1
	case arr == nil:
		return dst, tc.makeErr(x, "%s is not indexable", sym.Name())
	case arr.Range != nil:
		lo = arr.Range.Lo
	}
	dst, _ = tc.appendIdent(dst, x.Array, false)
	dst = append(dst, '[')
	if dst, err = tc.appendExpr(dst, x.Index); err != nil {
		return dst, err
	}
	switch {
	case lo > 0:
		dst = append(dst, " - "...)
		dst = strconv.AppendInt(dst, lo, 10)
	case lo < 0:
		dst = append(dst, " + "...)
		dst = strconv.AppendInt(dst, -lo, 10)
	}
	return append(dst, ']'), nil
}

var cOps = map[token.Token]string{
	token.Plus: "+", token.Minus: "-", token.Asterisk: "*", token.DIV: "/", token.MOD: "%",
	token.AND: "&&", token.OR: "||", token.Equals: "==", token.NotEquals: "!=",
	token.Less: "<", token.Greater: ">", token.LessEq: "<=", token.GreaterEq: ">=",
}

func (tc *TranspileToC) appendBinary(dst []byte, x *ast.BinaryExpr) (_ []byte, err error) {
	a, b := tc.info.TypeOf(tc.scope, x.X), tc.info.TypeOf(tc.scope, x.Y)
	result := symbol.BinaryType(x.Op, a, b)
	binary := func(dst []byte, prefix, op, suffix string) ([]byte, error) {
		dst = append(dst, prefix...)
		if dst, err = tc.appendExpr(dst, x.X); err != nil {
			return dst, err
		}
		dst = append(dst, op...)
		if dst, err = tc.appendExpr(dst, x.Y); err != nil {
			return dst, err
		}
		return append(dst, suffix...), nil
	}
	switch {
	case x.Op == token.Plus && result == symbol.TypeString:
		dst = append(dst, "pas_concat("...)
		if dst, err = tc.appendText(dst, x.X); err != nil {
			return dst, err
		}
		dst = append(dst, ", "...)
		if dst, err = tc.appendText(dst, x.Y); err != nil {
			return dst, err
		}
		return append(dst, ')'), nil
	case x.Op.IsRelational() && (a == symbol.TypeString || b == symbol.TypeString):
		dst = append(dst, "(strcmp("...)
		if dst, err = tc.appendText(dst, x.X); err != nil {
			return dst, err
		}
		dst = append(dst, ", "...)
		if dst, err = tc.appendText(dst, x.Y); err != nil {
			return dst, err
		}
		return append(dst, ") "+cOps[x.Op]+" 0)"...), nil
	case x.Op == token.Slash:
		return binary(dst, "((double)", " / ", ")")
	case x.Op == token.XOR && result == symbol.TypeBoolean:
		dst = append(dst, "(!"...)
		if dst, err = binary(dst, "(", ") != !(", ")"); err != nil {
			return dst, err
		}
		return append(dst, ')'), nil
	case x.Op == token.XOR:
		return binary(dst, "(", " ^ ", ")")
	}
	op, ok := cOps[x.Op]
	if !ok {
		return dst, tc.unsupported(x, "operator "+x.Op.String())
	}
	return binary(dst, "(", " "+op+" ", ")")
}

// appendText appends x as a C string. Characters are converted.
func (tc *TranspileToC) appendText(dst []byte, x ast.Expression) (_ []byte, err error) {
	switch tc.info.TypeOf(tc.scope, x) {
	case symbol.TypeString:
		return tc.appendExpr(dst, x)
	case symbol.TypeChar:
		dst = append(dst, "pas_chr("...)
		dst, err = tc.appendExpr(dst, x)
		return append(dst, ')'), err
	}
	return dst, tc.makeErr(x, "%s is not text", ast.PrettyPrint(x))
}

func (tc *TranspileToC) appendCall(dst []byte, c *ast.CallExpr) (_ []byte, err error) {
	args := c.Args.Args
	name := c.Name.Name
	if symbol.IsBuiltin(name) {
		return tc.appendBuiltin(dst, c)
	}
	sym := tc.info.Callable(name)
	if sym == nil {
		return dst, tc.makeErr(c, "undeclared procedure or function %s", name)
	}
	params := sym.Func().Params.Params
	if len(params) != len(args) {
		return dst, tc.makeErr(c, "%s: expected %d arguments, got %d", name, len(params), len(args))
	}
	dst = append(dst, sanitizeIdent(name)...)
	dst = append(dst, '(')
	for i, a := range args {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		if d, ok := params[i].(*ast.Decl); ok && d.Type == token.STRING && !tc.isStringVar(a) {
			// Writable copy of a string value.
			dst = append(dst, "pas_tmp("...)
			dst, err = tc.appendText(dst, a)
			dst = append(dst, ')')
		} else {
			dst, err = tc.appendExpr(dst, a)
		}
		if err != nil {
			return dst, err
		}
	}
	return append(dst, ')'), nil
}

func (tc *TranspileToC) isStringVar(x ast.Expression) bool {
	id, ok := x.(*ast.Ident)
	if !ok {
		return false
	}
	sym := tc.info.Lookup(tc.scope, id.Name)
	return sym != nil && sym.Type() == symbol.TypeString && sym.Array() == nil &&
		!sym.Kind().IsCallable() && sym.Kind() != symbol.KindResult
}

func (tc *TranspileToC) appendBuiltin(dst []byte, c *ast.CallExpr) (_ []byte, err error) {
	args := c.Args.Args
	name := c.Name.Name
	if symbol.BuiltinResult(name) == symbol.TypeNone {
		return dst, tc.makeErr(c, "procedure %s used as a value", name)
	}
	if name != symbol.BuiltinConcat && len(args) != 1 || len(args) == 0 {
		return dst, tc.makeErr(c, "%s: wrong number of arguments", name)
	}
	switch name {
	case symbol.BuiltinLength:
		if id, ok := args[0].(*ast.Ident); ok {
			if sym := tc.info.Lookup(tc.scope, id.Name); sym != nil && sym.Array() != nil {
				arr := sym.Array()
				switch {
				case arr.Range != nil:
					return strconv.AppendInt(dst, arr.Range.Len(), 10), nil
				case arr.Size != nil:
					dst = append(dst, '(')
					dst, err = tc.appendExpr(dst, arr.Size)
					return append(dst, ')'), err
				}
				return dst, tc.unsupported(c, "length of growable array")
			}
		}
		dst = append(dst, "(int)strlen("...)
		dst, err = tc.appendText(dst, args[0])
		return append(dst, ')'), err
	case symbol.BuiltinChr:
		dst = append(dst, "((char)("...)
		dst, err = tc.appendExpr(dst, args[0])
		return append(dst, "))"...), err
	case symbol.BuiltinOrd:
		dst = append(dst, "((int)("...)
		dst, err = tc.appendExpr(dst, args[0])
		return append(dst, "))"...), err
	case symbol.BuiltinConcat:
		for range args[1:] {
			dst = append(dst, "pas_concat("...)
		}
		if dst, err = tc.appendText(dst, args[0]); err != nil {
			return dst, err
		}
		for _, a := range args[1:] {
			dst = append(dst, ", "...)
			if dst, err = tc.appendText(dst, a); err != nil {
				return dst, err
			}
			dst = append(dst, ')')
		}
		return dst, nil
	}
	return dst, tc.unsupported(c, "built-in "+name)
}

// cQuote returns s as a C string literal.
func cQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		sb.WriteString(cEscape(s[i], '"'))
	}
	sb.WriteByte('"')
	return sb.String()
}

func cCharQuote(c byte) string {
	return "'" + cEscape(c, '\'') + "'"
}

func cEscape(c, quote byte) string {
	switch {
	case c == quote || c == '\\':
		return `\` + string(c)
	case c == '\n':
		return `\n`
	case c == '\t':
		return `\t`
	case c < 0x20 || c >= 0x7f:
		return fmt.Sprintf(`\%03o`, c)
	}
	return string(c)
}
