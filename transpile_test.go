package pascal

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Qwerasdzxc/Pascal-Compiler/intrinsic"
)

func transpileSource(t *testing.T, src string, f intrinsic.Formatter) (string, error) {
	t.Helper()
	info, err := Compile("transpile.pas", strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	var tc TranspileToC
	if err := tc.Reset(info, f); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	err = tc.WriteProgram(&buf)
	return buf.String(), err
}

var testFormatter = intrinsic.Formatter{Precision: 2, TrueToken: "TRUE", FalseToken: "FALSE"}

func TestTranspileToC(t *testing.T) {
	var tests = []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "function result and recursion",
			src: `function fact(n: integer): integer;
begin
  if n <= 1 then begin
    fact := 1;
  end else begin
    fact := n * fact(n - 1);
  end;
end;
begin
  writeln(fact(5));
end.`,
			want: []string{
				"int fact(int n);\n",
				"int fact(int n) {\n\tint pas_result = 0;\n",
				"\t\tpas_result = (n * fact((n - 1)));\n",
				"\treturn pas_result;\n}\n",
				"int main(void) {\n\tprintf(\"%d\\n\", fact(5));\n\treturn 0;\n}\n",
			},
		},
		{
			name: "loops",
			src: `var i: integer;
begin
  for i := 10 downto 1 do begin
    if i = 3 then begin
      break;
    end;
  end;
  while i < 5 do begin
    inc(i, 2);
  end;
  repeat
    dec(i);
  until i = 0;
end.`,
			want: []string{
				"\tint i = 0;\n",
				"\tfor (i = 10; i >= 1; i--) {\n\t\tif ((i == 3)) {\n\t\t\tbreak;\n",
				"\twhile ((i < 5)) {\n\t\ti += 2;\n\t}\n",
				"\tdo {\n\t\ti -= 1;\n\t} while (!((i == 0)));\n",
			},
		},
		{
			name: "arrays",
			src: `var a: array[-1..1] of real;
    b: integer[3] = (4, 5, 6);
    c: char[];
    n: integer;
begin
  a[-1] := b[0] / 2;
  writeln(length(a), length(b));
end.`,
			want: []string{
				"\tdouble a[3] = {0};\n",
				"\tint b[3] = {4, 5, 6};\n",
				"\tchar c[PAS_OPENLEN] = {0};\n",
				"\ta[-(1) + 1] = ((double)b[0] / 2);\n",
				"printf(\"%d%d\\n\", 3, (3));",
			},
		},
		{
			name: "strings",
			src: `var s: string;
    short: string[3];
    c: char;
begin
  s := 'it''s';
  short := s;
  c := s[2];
  s := s + c;
  concat(s, '!', 'x');
  insert('ab', s, 1);
  if s < 'z' then begin
    writeln(s, c, length(s));
  end;
end.`,
			want: []string{
				"\tchar s[PAS_STRLEN] = \"\";\n",
				"\tchar short_[3 + 1] = \"\";\n",
				"\tpas_strset(s, sizeof s, \"it's\");\n",
				"\tpas_strset(short_, sizeof short_, s);\n",
				"\tc = s[2 - 1];\n",
				"\tpas_strset(s, sizeof s, pas_concat(s, pas_chr(c)));\n",
				"\tpas_strset(s, sizeof s, pas_concat(pas_concat(s, pas_chr('!')), pas_chr('x')));\n",
				"\tpas_insert(\"ab\", s, sizeof s, 1);\n",
				"\tif ((strcmp(s, pas_chr('z')) < 0)) {\n",
				"\t\tprintf(\"%s%c%d\\n\", s, c, (int)strlen(s));\n",
			},
		},
		{
			name: "string function and parameters",
			src: `function twice(s: string): string;
begin
  exit(s + s);
end;
procedure show(var_: integer);
begin
  writeln(twice('ab'));
  exit;
end;
begin
  show(1);
end.`,
			want: []string{
				"char *twice(char *s);\n",
				"void show(int var_);\n",
				"\tchar pas_result[PAS_STRLEN] = \"\";\n\treturn pas_tmp(pas_concat(s, s));\n",
				"\treturn pas_tmp(pas_result);\n}\n",
				"\tprintf(\"%s\\n\", twice(pas_tmp(\"ab\")));\n\treturn;\n",
			},
		},
		{
			name: "write formatting and booleans",
			src: `var r: real;
    ok: boolean;
begin
  r := 1 / 3;
  ok := (r > 0) xor false;
  writeln(r, r:8, r:0:4, ok, not ok);
end.`,
			want: []string{
				"#define PAS_TRUE \"TRUE\"\n#define PAS_FALSE \"FALSE\"\n",
				"\tr = ((double)1 / 3);\n",
				"\tok = (!((r > 0)) != !(0));\n",
				`printf("%.*f%*.*f%*.*f%s%s\n", 2, (double)r, (int)(8), 2, (double)r, (int)(0), (int)(4), (double)r, (ok ? PAS_TRUE : PAS_FALSE), (!(ok) ? PAS_TRUE : PAS_FALSE));`,
			},
		},
		{
			name: "read",
			src: `var n: integer;
    r: real;
    c: char;
    s: string;
    b: boolean;
    a: integer[2];
begin
  read(n, r, c);
  readln(s, b, a[1]);
  readln;
end.`,
			want: []string{
				"\tscanf(\"%d%lf %c\", &n, &r, &c);\n",
				"\tpas_readstr(s, sizeof s); pas_readbool(&b); scanf(\"%d\", &a[1]); pas_skipline();\n",
				"\tpas_skipline();\n",
			},
		},
		{
			name: "reserved names",
			src: `var int, pas_x: integer;
function printf(double: real): real;
begin
  printf := double;
end;
begin
  int := 1;
  pas_x := int;
end.`,
			want: []string{
				"int int_ = 0;\nint pas_x_ = 0;\n",
				"double printf_(double double_);\n",
				"\tpas_result = double_;\n",
				"\tint_ = 1;\n\tpas_x_ = int_;\n",
			},
		},
		{
			name: "block local declarations",
			src: `var x: integer;
begin
  if x = 0 then begin
    var x: real;
    x := 1.0;
  end else if x = 1 then begin
    x := 2;
  end;
end.`,
			want: []string{
				"\tif ((x == 0)) {\n\t\tdouble x = 0;\n\t\tx = 1.0;\n\t} else {\n\t\tif ((x == 1)) {\n",
				"\t\t\tx = 2;\n",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := transpileSource(t, tt.src, testFormatter)
			if err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output does not contain %q\n%s", want, got)
				}
			}
		})
	}
}

func TestTranspileToC_unsupported(t *testing.T) {
	var tests = []struct {
		name string
		src  string
	}{
		{
			name: "whole array assignment",
			src:  "var a, b: integer[2];\nbegin\n  a := b;\nend.",
		},
		{
			name: "write whole array",
			src:  "var a: integer[2];\nbegin\n  writeln(a);\nend.",
		},
		{
			name: "read whole array",
			src:  "var a: integer[2];\nbegin\n  readln(a);\nend.",
		},
		{
			name: "length of growable array",
			src:  "var a: integer[];\nbegin\n  writeln(length(a));\nend.",
		},
		{
			name: "global array with variable size",
			src:  "var n: integer;\n    a: integer[n];\nprocedure p;\nbegin\nend;\nbegin\nend.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transpileSource(t, tt.src, testFormatter)
			if !errors.Is(err, ErrUnsupported) {
				t.Errorf("want ErrUnsupported, got %v", err)
			}
		})
	}
}

func TestTranspileToC_notReset(t *testing.T) {
	var tc TranspileToC
	if _, err := tc.AppendProgram(nil); err == nil {
		t.Error("want error before Reset")
	}
	if err := tc.Reset(nil, testFormatter); err == nil {
		t.Error("want error for nil info")
	}
}

func TestSanitizeIdent(t *testing.T) {
	for name, want := range map[string]string{
		"x":       "x",
		"while":   "while_",
		"strlen":  "strlen_",
		"pas_tmp": "pas_tmp_",
		"PAS_MAX": "PAS_MAX_",
		"Pascal":  "Pascal",
	} {
		if got := sanitizeIdent(name); got != want {
			t.Errorf("sanitizeIdent(%q) = %q, want %q", name, got, want)
		}
	}
}
