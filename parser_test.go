package pascal

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

//go:embed testdata
var testdatadir embed.FS

// programs returns the names of embedded testdata programs that are not invalid_ files.
func programs(t *testing.T) []string {
	t.Helper()
	entries, err := fs.ReadDir(testdatadir, "testdata")
	if err != nil || len(entries) == 0 {
		t.Fatal(err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".pas") || strings.HasPrefix(name, "invalid_") {
			continue
		}
		names = append(names, name)
	}
	return names
}

func TestData_valid(t *testing.T) {
	for _, name := range programs(t) {
		t.Run(name, func(t *testing.T) {
			path := "testdata/" + name
			src, err := fs.ReadFile(testdatadir, path)
			if err != nil {
				t.Fatal(err)
			}
			checkErrors(t, path, string(src), false)
			if _, err := Compile(path, strings.NewReader(string(src))); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestData_invalid(t *testing.T) {
	entries, err := fs.ReadDir(testdatadir, "testdata")
	if err != nil || len(entries) == 0 {
		t.Fatal(err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "invalid_") {
			continue
		}
		t.Run(entry.Name(), func(t *testing.T) {
			srcpath := "testdata/" + name
			src, err := fs.ReadFile(testdatadir, srcpath)
			if err != nil {
				t.Fatal(err)
			}
			checkErrors(t, srcpath, string(src), true)
		})
	}
}

var errCommentRx = regexp.MustCompile(`//\s*ERROR\s+"([^"]*)"`)

// expectedErrors scans the source for error annotations and returns
// a map of line numbers to expected error patterns (as regexes).
func expectedErrors(src string) map[int]string {
	errs := make(map[int]string)
	for lineNum, line := range strings.Split(src, "\n") {
		if m := errCommentRx.FindStringSubmatch(line); len(m) == 2 {
			errs[lineNum+1] = m[1]
		}
	}
	return errs
}

// checkErrors parses src and verifies the syntax error matches its annotation.
// If expectErrors is false it verifies parsing succeeds.
func checkErrors(t *testing.T, srcpath, src string, expectErrors bool) {
	t.Helper()
	expected := map[int]string{}
	if expectErrors {
		expected = expectedErrors(src)
		if len(expected) != 1 {
			t.Fatalf("%s: want exactly one ERROR annotation, got %d", srcpath, len(expected))
		}
	}
	_, err := Parse(srcpath, strings.NewReader(src))
	if err := compareErrors(srcpath, expected, err); err != nil {
		t.Error(err)
	}
}

// compareErrors compares the expected error annotation with the parser error.
func compareErrors(srcpath string, expected map[int]string, actual error) error {
	if len(expected) == 0 {
		return actual
	}
	var pe *ParserError
	if !errors.As(actual, &pe) {
		return fmt.Errorf("%s: expected a syntax error, got %v", srcpath, actual)
	}
	line, _ := pe.LineCol()
	for wantLine, pattern := range expected {
		sp := sourcePos{Source: srcpath, Line: wantLine}
		rx, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%s: invalid regex pattern %q: %v", sp.String(), pattern, err)
		}
		if line != wantLine {
			return fmt.Errorf("%s: expected error matching %q, but error is on line %d: %v", sp.String(), pattern, line, pe)
		}
		if !rx.MatchString(pe.Error()) {
			return fmt.Errorf("%s: expected error matching %q, but got: %v", sp.String(), pattern, pe)
		}
	}
	return nil
}

func TestPrettyPrintRoundTrip(t *testing.T) {
	for _, name := range programs(t) {
		t.Run(name, func(t *testing.T) {
			src, err := fs.ReadFile(testdatadir, "testdata/"+name)
			if err != nil {
				t.Fatal(err)
			}
			prog, err := Parse(name, strings.NewReader(string(src)))
			if err != nil {
				t.Fatal(err)
			}
			first := ast.PrettyPrint(prog)
			reparsed, err := Parse(name+" (printed)", strings.NewReader(first))
			if err != nil {
				t.Fatalf("printed source does not parse: %v\n%s", err, first)
			}
			second := ast.PrettyPrint(reparsed)
			if first != second {
				t.Errorf("pretty print is not stable:\nfirst:\n%s\nsecond:\n%s", first, second)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	var tests = []struct {
		src  string
		want string
		line int
		col  int
	}{
		{src: "begin x := 1 end.", want: "test:1:14: statement: expected ;, found end", line: 1, col: 14},
		{src: "begin\nwhile x do x := 1; end.", want: `while loop: expected begin, found <identifier> "x"`, line: 2, col: 12},
		{src: "begin for i = 1 to 2 do begin end; end.", want: "for loop: expected :=, found =", line: 1, col: 13},
		{src: "begin for i := 1 until 2 do begin end; end.", want: "for loop: expected to or downto", line: 1, col: 18},
		{src: "begin repeat x := 1; end.", want: "repeat loop: expected until, found end", line: 1, col: 22},
		{src: "var a: array of integer; begin end.", want: "declaration: expected array range, found of", line: 1, col: 14},
		{src: "begin x := (1 + 2; end.", want: "parenthesized expression: expected ), found ;", line: 1, col: 18},
		{src: "begin x := f(1, ; end.", want: "expression: expected operand, found ;", line: 1, col: 17},
		{src: "begin x := f(1 2); end.", want: "call arguments: expected ), found <integer>", line: 1, col: 16},
		{src: "begin writeln(1); end", want: "main block: expected ., found <EOF>"},
		{src: "x := 1;", want: `program: expected var, function, procedure or begin, found <identifier> "x"`, line: 1, col: 1},
		{src: "begin x := 99999999999999999999; end.", want: "integer literal: expected integer within range", line: 1, col: 12},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Parse("test", strings.NewReader(tc.src))
			var pe *ParserError
			if !errors.As(err, &pe) {
				t.Fatalf("want ParserError, got %v", err)
			}
			if !strings.Contains(pe.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", pe.Error(), tc.want)
			}
			if line, col := pe.LineCol(); tc.line != 0 && (line != tc.line || col != tc.col) {
				t.Errorf("error at %d:%d, want %d:%d", line, col, tc.line, tc.col)
			}
		})
	}
}

func TestParseStructure(t *testing.T) {
	const src = `var g: integer;
function f(a, b: integer; s: string): real;
var t: real;
begin
  t := a / b;
  f := t;
end;
var x: integer;
    ok: boolean;
begin
  ok := x < g and not ok;
  x := x + f(1, 2, 'ab') * 3;
  if ok then begin
    x := 1;
  end else if x > 2 then begin
    x := 2;
  end else begin
    exit;
  end;
end.
`
	prog, err := Parse("structure", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(prog.Nodes) != 3 {
		t.Fatalf("want 3 program nodes, got %d", len(prog.Nodes))
	}
	if _, ok := prog.Nodes[0].(*ast.VarDecl); !ok {
		t.Errorf("first node is %T, want global var section", prog.Nodes[0])
	}
	fn, ok := prog.Nodes[1].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("second node is %T", prog.Nodes[1])
	}
	if fn.Name.Name != "f" || fn.Result != token.REAL {
		t.Errorf("function %s returns %s", fn.Name.Name, fn.Result)
	}
	main := prog.Main()
	if main == nil || main.Decls == nil || len(main.Decls.Decls) != 2 {
		t.Fatal("var section before begin must become the main declarations")
	}

	// A relational or logical operator after the first operand makes the
	// right hand side a logic expression.
	assign := main.Stmts[0].(*ast.AssignStmt)
	and, ok := assign.Value.(*ast.BinaryExpr)
	if !ok || and.Op != token.AND {
		t.Fatalf("want and at the root, got %s", ast.PrettyPrint(assign.Value))
	}
	if cmp, ok := and.X.(*ast.BinaryExpr); !ok || cmp.Op != token.Less {
		t.Errorf("want comparison on the left of and, got %s", ast.PrettyPrint(and.X))
	}
	arith := main.Stmts[1].(*ast.AssignStmt).Value.(*ast.BinaryExpr)
	if arith.Op != token.Plus {
		t.Errorf("want + at the root, got %s", arith.Op)
	}
	if mul, ok := arith.Y.(*ast.BinaryExpr); !ok || mul.Op != token.Asterisk {
		t.Errorf("want * to bind tighter than +, got %s", ast.PrettyPrint(arith.Y))
	} else if call, ok := mul.X.(*ast.CallExpr); !ok || len(call.Args.Args) != 3 {
		t.Errorf("want call with 3 arguments, got %s", ast.PrettyPrint(mul.X))
	}

	ifs := main.Stmts[2].(*ast.IfStmt)
	if ifs.Else == nil || len(ifs.Else.Stmts) != 1 {
		t.Fatal("else if must be wrapped in a block")
	}
	nested, ok := ifs.Else.Stmts[0].(*ast.IfStmt)
	if !ok || nested.Else == nil {
		t.Fatalf("else branch holds %T", ifs.Else.Stmts[0])
	}
	if _, ok := nested.Else.Stmts[0].(*ast.ExitStmt); !ok {
		t.Errorf("innermost else holds %T", nested.Else.Stmts[0])
	}
}

func TestParseDeclarations(t *testing.T) {
	const src = `var
  a: array[-2..2] of char;
  b: integer[4] = (1, 2, 3, 4);
  c: real[] = {1.5};
  s: string[8];
  n: integer;
procedure p(xs: array of integer; k: integer);
begin
end;
begin
end.
`
	prog, err := Parse("decls", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	vd := prog.Nodes[0].(*ast.VarDecl)
	a := vd.Decls[0].(*ast.ArrayDecl)
	if a.Range == nil || a.Range.Lo != -2 || a.Range.Hi != 2 || a.Elem != token.CHAR {
		t.Errorf("ranged array: %s", ast.PrettyPrint(a))
	}
	b := vd.Decls[1].(*ast.ArrayDecl)
	if b.Size == nil || b.Elems == nil || len(b.Elems.Elems) != 4 {
		t.Errorf("sized array: %s", ast.PrettyPrint(b))
	}
	c := vd.Decls[2].(*ast.ArrayDecl)
	if c.Size != nil || c.Range != nil || c.Open || c.Elems == nil {
		t.Errorf("growable array: %s", ast.PrettyPrint(c))
	}
	s := vd.Decls[3]
	if got := ast.PrettyPrint(s); got != "s: string[8]" {
		t.Errorf("string with capacity printed as %q", got)
	}
	fn := prog.Nodes[1].(*ast.FuncDecl)
	if fn.Result != token.Undefined {
		t.Errorf("procedure has result %s", fn.Result)
	}
	if xs, ok := fn.Params.Params[0].(*ast.ArrayDecl); !ok || !xs.Open {
		t.Errorf("open array parameter: %s", ast.PrettyPrint(fn.Params.Params[0]))
	}
}

func TestCompile(t *testing.T) {
	info, err := Compile("compile", strings.NewReader("var x: integer;\nbegin\n  y := x;\nend.\n"))
	if err == nil {
		t.Fatal("want undeclared identifier error")
	}
	var serr *symbol.Error
	if !errors.As(err, &serr) || serr.Name != "y" {
		t.Errorf("got %v", err)
	}
	if info == nil || info.Program() == nil {
		t.Fatal("tables must be returned along with symbol errors")
	}
	if _, err := Compile("compile", strings.NewReader("begin")); err == nil {
		t.Error("want syntax error")
	} else if _, ok := err.(*ParserError); !ok {
		t.Errorf("want *ParserError, got %T", err)
	}
}
