package interp

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	pascal "github.com/Qwerasdzxc/Pascal-Compiler"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
)

func newTestRunner(t *testing.T, src, input string, cfg Config) (*Runner, *bytes.Buffer) {
	t.Helper()
	prog, err := pascal.Parse("test.pas", strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	info, err := symbol.Symbolize(prog)
	if err != nil {
		t.Fatalf("symbolize: %v", err)
	}
	var out bytes.Buffer
	r, err := NewRunner(info, &out, NewLineReader(strings.NewReader(input)), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r, &out
}

func TestRun(t *testing.T) {
	var tests = []struct {
		name  string
		src   string
		input string
		want  string
	}{
		{
			name: "recursive factorial",
			src: `
function fact(k: integer): integer;
begin
  if k <= 1 then begin
    fact := 1;
  end else begin
    fact := k * fact(k - 1);
  end;
end;
begin
  writeln(fact(5));
end.`,
			want: "120\n",
		},
		{
			name: "independent activations",
			src: `
procedure count(n: integer);
var local: integer;
begin
  local := n;
  if n > 0 then begin
    count(n - 1);
  end;
  write(local);
end;
begin
  count(3);
  writeln();
end.`,
			want: "0123\n",
		},
		{
			name: "break in for inside if",
			src: `
var i: integer;
begin
  for i := 1 to 10 do begin
    if i = 4 then begin
      break;
    end;
    write(i);
  end;
  writeln('done');
end.`,
			want: "123done\n",
		},
		{
			name: "continue skips rest of iteration",
			src: `
var i: integer;
begin
  for i := 1 to 5 do begin
    if i mod 2 = 0 then begin
      continue;
    end;
    write(i);
  end;
  writeln();
end.`,
			want: "135\n",
		},
		{
			name: "downto",
			src:  "var i: integer; begin for i := 3 downto 1 do begin write(i); end; writeln(); end.",
			want: "321\n",
		},
		{
			name: "while and repeat",
			src: `
var n, m: integer;
begin
  n := 0;
  while true do begin
    n := n + 1;
    if n >= 4 then begin
      break;
    end;
  end;
  m := 0;
  repeat
    m := m + 1;
  until m >= 3;
  writeln(n, ' ', m);
end.`,
			want: "4 3\n",
		},
		{
			name: "ranged array",
			src:  "var a: array[1..5] of integer; begin a[3] := 7; writeln(a[3], a[1]); end.",
			want: "70\n",
		},
		{
			name: "array initializer",
			src:  "var a: array[1..3] of integer = (4, 5, 6); begin writeln(a[1] + a[3], ' ', a); end.",
			want: "10 456\n",
		},
		{
			name: "sized and growable arrays",
			src: `
var n: integer[3];
    g: integer[] = {1, 2};
begin
  n[0] := 1;
  n[2] := 5;
  g[2] := 3;
  writeln(n[0] + n[2], ' ', length(g));
end.`,
			want: "6 3\n",
		},
		{
			name: "concat and length",
			src:  "var s: string; begin s := concat('ab', 'cd'); writeln(s, ' ', length(s)); end.",
			want: "abcd 4\n",
		},
		{
			name: "write rounding",
			src:  "begin writeln(10); writeln(3.14159:0:2); writeln(2.5:6:1); writeln(1.5); end.",
			want: "10\n3.14\n   2.5\n1.500000\n",
		},
		{
			name: "shadowing",
			src: `
var x: integer;
procedure p;
var x: integer;
begin
  x := 2;
  writeln(x);
end;
begin
  x := 1;
  p;
  if true then begin
    var x: real;
    x := 1.5;
    writeln(x:0:1);
  end;
  writeln(x);
end.`,
			want: "2\n1.5\n1\n",
		},
		{
			name: "exit with value",
			src: `
function f(n: integer): integer;
begin
  if n > 0 then begin
    exit(n * 2);
  end;
  f := -1;
end;
begin
  writeln(f(3), ' ', f(0));
end.`,
			want: "6 -1\n",
		},
		{
			name: "exit in loop inside function",
			src: `
function first(limit: integer): integer;
var i: integer;
begin
  first := 0;
  for i := 1 to limit do begin
    if i * i > 10 then begin
      first := i;
      exit;
    end;
  end;
end;
begin
  writeln(first(100));
end.`,
			want: "4\n",
		},
		{
			name: "exit ends main",
			src:  "begin writeln(1); exit; writeln(2); end.",
			want: "1\n",
		},
		{
			name: "booleans",
			src:  "var b: boolean; begin b := 3 > 2; writeln(b, ' ', not b, ' ', true and false, ' ', b xor false); end.",
			want: "TRUE FALSE FALSE TRUE\n",
		},
		{
			name: "char builtins",
			src:  "var c: char; n: integer; begin c := 'a'; inc(c); n := ord(c); dec(n, 2); writeln(c, n, chr(n)); end.",
			want: "b96`\n",
		},
		{
			name: "insert and string index",
			src:  "var s: string; begin s := 'Pscal'; insert('a', s, 2); s[1] := 'p'; writeln(s, s[2]); end.",
			want: "pascala\n",
		},
		{
			name: "string parameter shares storage",
			src: `
procedure shout(t: string);
begin
  concat(t, '!');
end;
var s: string;
begin
  s := 'hi';
  shout(s);
  writeln(s);
end.`,
			want: "hi!\n",
		},
		{
			name: "zero argument function",
			src:  "function five: integer; begin five := 5; end; begin writeln(five + 1); end.",
			want: "6\n",
		},
		{
			name: "hoisted callee",
			src:  "begin writeln(sq(3)); end. function sq(x: integer): integer; begin sq := x * x; end;",
			want: "9\n",
		},
		{
			name: "arithmetic",
			src:  "begin writeln(7 div 2, ' ', -7 mod 3, ' ', 7 / 2:0:1, ' ', 2 + 3 * 4, ' ', 6 xor 3); end.",
			want: "3 -1 3.5 14 5\n",
		},
		{
			name:  "readln",
			src:   "var a, b: integer; s: string; begin readln(a, b); readln(s); writeln(a + b, s); end.",
			input: "3 4 extra\nhello world\n",
			want:  "7hello\n",
		},
		{
			name:  "read keeps rest of line",
			src:   "var a, b: integer; r: real; begin read(a); read(b); readln(r); writeln(a * b, ' ', r:0:2); end.",
			input: "6 7 0.5\n",
			want:  "42 0.50\n",
		},
		{
			name:  "read array",
			src:   "var a: array[1..3] of integer; begin read(a); writeln(a[1] + a[2] + a[3]); end.",
			input: "1 2 3\n",
			want:  "6\n",
		},
		{
			name:  "read appends to string",
			src:   "var s: string; begin s := 'ab'; readln(s); writeln(s, ' ', length(s)); end.",
			input: "cd\n",
			want:  "abcd 4\n",
		},
		{
			name:  "read into sized string drops overflow",
			src:   "var s: string[3]; begin s := 'ab'; read(s); writeln(s); end.",
			input: "cde\n",
			want:  "abc\n",
		},
		{
			name: "for loop ending at largest integer",
			src:  "var i, n: integer; begin n := 0; for i := 9223372036854775806 to 9223372036854775807 do begin n := n + 1; end; writeln(n, ' ', i); end.",
			want: "2 9223372036854775807\n",
		},
		{
			name: "for loop over booleans",
			src:  "var b: boolean; n: integer; begin n := 0; for b := false to true do begin n := n + 1; end; writeln(n); end.",
			want: "2\n",
		},
		{
			name: "global initialised before main",
			src:  "var g: integer[2] = (9, 8); procedure show; begin writeln(g[0], g[1]); end; begin show; end.",
			want: "98\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newTestRunner(t, tt.src, tt.input, DefaultConfig())
			if err := r.Run(); err != nil {
				t.Fatalf("run: %v (output %q)", err, out.String())
			}
			if got := out.String(); got != tt.want {
				t.Errorf("output mismatch:\n got: %q\nwant: %q", got, tt.want)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	var tests = []struct {
		name    string
		src     string
		input   string
		wantErr error
		wantOut string
	}{
		{
			name:    "index out of range",
			src:     "var a: array[1..5] of integer; begin writeln(1); a[6] := 1; end.",
			wantErr: ErrIndexRange,
			wantOut: "1\n",
		},
		{
			name:    "string to integer",
			src:     "var s: string; n: integer; begin s := 'a'; n := s; end.",
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "divide by zero",
			src:     "var a: integer; begin a := 0; writeln(1 div a); end.",
			wantErr: ErrDivideByZero,
		},
		{
			name:    "unbounded recursion",
			src:     "procedure loop; begin loop; end; begin loop; end.",
			wantErr: ErrDepthExceeded,
		},
		{
			name:    "end of input",
			src:     "var a: integer; begin readln(a); end.",
			wantErr: io.EOF,
		},
		{
			name:    "malformed input",
			src:     "var a: integer; begin readln(a); end.",
			input:   "x\n",
			wantErr: ErrInput,
		},
		{
			name:    "procedure as value",
			src:     "var n: integer; procedure p; begin end; begin n := p; end.",
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "string index out of range",
			src:     "var s: string; begin s := 'ab'; s[4] := 'x'; end.",
			wantErr: ErrIndexRange,
		},
		{
			name:    "chr out of range",
			src:     "begin writeln(chr(300)); end.",
			wantErr: ErrIndexRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, out := newTestRunner(t, tt.src, tt.input, DefaultConfig())
			err := r.Run()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got error %v, want %v", err, tt.wantErr)
			}
			var rerr *RuntimeError
			if !errors.As(err, &rerr) {
				t.Errorf("error %T is not a *RuntimeError", err)
			}
			if out.String() != tt.wantOut {
				t.Errorf("output before error: got %q, want %q", out.String(), tt.wantOut)
			}
			assertFramesReleased(t, r)
		})
	}
}

func assertFramesReleased(t *testing.T, r *Runner) {
	t.Helper()
	for scope, stack := range r.frames {
		if len(stack) != 0 {
			t.Errorf("scope %d still has %d frames", scope, len(stack))
		}
	}
	if r.CallDepth() != 0 {
		t.Errorf("call stack not empty: %d", r.CallDepth())
	}
}

func TestFramesReleasedOnSignals(t *testing.T) {
	const src = `
function find(n: integer): integer;
var i: integer;
begin
  find := 0;
  i := 0;
  while true do begin
    i := i + 1;
    if i = n then begin
      exit(i * 10);
    end;
  end;
end;
var k: integer;
begin
  for k := 1 to 3 do begin
    repeat
      if find(k) > 10 then begin
        break;
      end;
    until true;
    continue;
  end;
  writeln(find(2));
end.`
	r, out := newTestRunner(t, src, "", DefaultConfig())
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "20\n" {
		t.Errorf("got %q", out.String())
	}
	assertFramesReleased(t, r)
}

func TestMaxDepth(t *testing.T) {
	const src = `
function depth(n: integer): integer;
begin
  if n = 0 then begin
    depth := 0;
  end else begin
    depth := 1 + depth(n - 1);
  end;
end;
begin
  writeln(depth(9));
end.`
	cfg := DefaultConfig()
	cfg.MaxDepth = 10
	r, out := newTestRunner(t, src, "", cfg)
	if err := r.Run(); err != nil {
		t.Fatalf("depth 10 within bound: %v", err)
	}
	if out.String() != "9\n" {
		t.Errorf("got %q", out.String())
	}

	cfg.MaxDepth = 5
	r, _ = newTestRunner(t, src, "", cfg)
	if err := r.Run(); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("expected ErrDepthExceeded, got %v", err)
	}
}

func TestCustomBooleanTokens(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrueToken, cfg.FalseToken = "yes", "no"
	cfg.DefaultPrecision = 2
	r, out := newTestRunner(t, "var b: boolean; begin readln(b); writeln(b, ' ', not b, ' ', 0.125); end.", "yes\n", cfg)
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "yes no 0.12\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestTraceLogging(t *testing.T) {
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r, _ := newTestRunner(t, "procedure p; begin end; begin p; end.", "", cfg)
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"msg=call name=p", "msg=\"push frame\"", "msg=\"pop frame\""} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("trace missing %q:\n%s", want, logs.String())
		}
	}
}

// promptRecorder serves canned lines and records the prompt shown for each.
type promptRecorder struct {
	lines   []string
	prompts []string
}

func (pr *promptRecorder) ReadLine() (string, error) { return pr.PromptLine("") }

func (pr *promptRecorder) PromptLine(prompt string) (string, error) {
	pr.prompts = append(pr.prompts, prompt)
	if len(pr.lines) == 0 {
		return "", io.EOF
	}
	line := pr.lines[0]
	pr.lines = pr.lines[1:]
	return line, nil
}

func TestPromptFromPendingOutput(t *testing.T) {
	const src = `var n, m: integer;
begin
  write('n? ');
  readln(n);
  writeln('got ', n);
  write('a', 'b');
  write('m: ');
  readln(m);
  write(n + m);
end.`
	prog, err := pascal.Parse("prompt.pas", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	info, err := symbol.Symbolize(prog)
	if err != nil {
		t.Fatal(err)
	}
	in := &promptRecorder{lines: []string{"5", "7"}}
	var out bytes.Buffer
	r, err := NewRunner(info, &out, in, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(in.prompts, []string{"n? ", "abm: "}) {
		t.Errorf("prompts: got %q", in.prompts)
	}
	// Prompted text is shown by the reader, not written again.
	if got, want := out.String(), "got 5\n12"; got != want {
		t.Errorf("output: got %q, want %q", got, want)
	}
}

func TestRuntimeErrorStack(t *testing.T) {
	const src = `var a: array[1..2] of integer;
procedure poke(i: integer);
begin
  a[i] := 1;
end;
function twice(i: integer): integer;
begin
  poke(i);
  twice := 2 * i;
end;
begin
  writeln(twice(1));
  writeln(twice(3));
end.`
	r, out := newTestRunner(t, src, "", DefaultConfig())
	err := r.Run()
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || !errors.Is(err, ErrIndexRange) {
		t.Fatalf("got %v, want index error", err)
	}
	if want := []string{"poke", "twice", symbol.EntryName}; !slices.Equal(rerr.Stack, want) {
		t.Errorf("stack: got %q, want %q", rerr.Stack, want)
	}
	if out.String() != "2\n" {
		t.Errorf("output before error: got %q", out.String())
	}
	if r.CallDepth() != 0 {
		t.Errorf("call stack not unwound: depth %d", r.CallDepth())
	}
}
