package pascal

import (
	"strconv"
	"strings"
	"testing"

	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

type testtoktuple struct {
	tok     token.Token
	literal string
}

func TestLexer_tokens(t *testing.T) {
	cases := []struct {
		src    string
		expect []testtoktuple
	}{
		0: {
			src: "if (a>=1) and (b<>2) then x := x div 3",
			expect: []testtoktuple{
				{tok: token.IF, literal: "if"},
				{tok: token.LParen, literal: ""},
				{tok: token.Identifier, literal: "a"},
				{tok: token.GreaterEq, literal: ""},
				{tok: token.IntLit, literal: "1"},
				{tok: token.RParen, literal: ""},
				{tok: token.AND, literal: "and"},
				{tok: token.LParen, literal: ""},
				{tok: token.Identifier, literal: "b"},
				{tok: token.NotEquals, literal: ""},
				{tok: token.IntLit, literal: "2"},
				{tok: token.RParen, literal: ""},
				{tok: token.THEN, literal: "then"},
				{tok: token.Identifier, literal: "x"},
				{tok: token.Assign, literal: ""},
				{tok: token.Identifier, literal: "x"},
				{tok: token.DIV, literal: "div"},
				{tok: token.IntLit, literal: "3"},
			},
		},
		1: {
			src: "var a: array[1..5] of real;",
			expect: []testtoktuple{
				{tok: token.VAR, literal: "var"},
				{tok: token.Identifier, literal: "a"},
				{tok: token.Colon, literal: ""},
				{tok: token.ARRAY, literal: "array"},
				{tok: token.LBracket, literal: ""},
				{tok: token.IntLit, literal: "1"},
				{tok: token.Dot, literal: ""},
				{tok: token.Dot, literal: ""},
				{tok: token.IntLit, literal: "5"},
				{tok: token.RBracket, literal: ""},
				{tok: token.OF, literal: "of"},
				{tok: token.REAL, literal: "real"},
				{tok: token.Semicolon, literal: ""},
			},
		},
		2: {
			src: "writeln('it''s', 'x', '', 3.14:0:2); // trailing comment",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "writeln"},
				{tok: token.LParen, literal: ""},
				{tok: token.StringLit, literal: "it's"},
				{tok: token.Comma, literal: ""},
				{tok: token.CharLit, literal: "x"},
				{tok: token.Comma, literal: ""},
				{tok: token.StringLit, literal: ""},
				{tok: token.Comma, literal: ""},
				{tok: token.RealLit, literal: "3.14"},
				{tok: token.Colon, literal: ""},
				{tok: token.IntLit, literal: "0"},
				{tok: token.Colon, literal: ""},
				{tok: token.IntLit, literal: "2"},
				{tok: token.RParen, literal: ""},
				{tok: token.Semicolon, literal: ""},
			},
		},
		3: {
			src: "(* block\ncomment *) g: integer[] = {1, 2}; end.",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "g"},
				{tok: token.Colon, literal: ""},
				{tok: token.INTEGER, literal: "integer"},
				{tok: token.LBracket, literal: ""},
				{tok: token.RBracket, literal: ""},
				{tok: token.Equals, literal: ""},
				{tok: token.LBrace, literal: ""},
				{tok: token.IntLit, literal: "1"},
				{tok: token.Comma, literal: ""},
				{tok: token.IntLit, literal: "2"},
				{tok: token.RBrace, literal: ""},
				{tok: token.Semicolon, literal: ""},
				{tok: token.END, literal: "end"},
				{tok: token.Dot, literal: ""},
			},
		},
		4: {
			src: "n<=m*-2 xor not ok or true",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "n"},
				{tok: token.LessEq, literal: ""},
				{tok: token.Identifier, literal: "m"},
				{tok: token.Asterisk, literal: ""},
				{tok: token.Minus, literal: ""},
				{tok: token.IntLit, literal: "2"},
				{tok: token.XOR, literal: "xor"},
				{tok: token.NOT, literal: "not"},
				{tok: token.Identifier, literal: "ok"},
				{tok: token.OR, literal: "or"},
				{tok: token.TRUE, literal: "true"},
			},
		},
		5: {
			// Keywords are case sensitive.
			src: "Begin end_1",
			expect: []testtoktuple{
				{tok: token.Identifier, literal: "Begin"},
				{tok: token.Identifier, literal: "end_1"},
			},
		},
	}
	var l Lexer
	for i, test := range cases {
		err := l.Reset("TestLexer"+strconv.Itoa(i), strings.NewReader(test.src))
		if err != nil {
			t.Error(err)
			continue
		}
		for i, expect := range test.expect {
			tok, _, literal := l.NextToken()
			if tok == token.EOF {
				t.Errorf("%s tok %d early EOF", l.Source(), i)
				break
			}
			if tok != expect.tok {
				t.Errorf("%s tok %d TokenMismatch want %s got %s", l.Source(), i, expect.tok.String(), tok.String())
			}
			if string(literal) != expect.literal {
				t.Errorf("%s tok %d LiteralMismatch want %q got %q", l.Source(), i, expect.literal, literal)
			}
		}
		if tok, _, lit := l.NextToken(); tok != token.EOF {
			t.Errorf("%s expected EOF, got %s (%s)", l.Source(), lit, tok.String())
		}
	}
}

func TestLexer_illegal(t *testing.T) {
	cases := []struct {
		src  string
		want string // literal of the illegal token.
	}{
		{src: "x := 1 # 2", want: "#"},
		{src: "s := 'open", want: "open"},
		{src: "(* never closed", want: ""},
	}
	var l Lexer
	for _, test := range cases {
		if err := l.Reset("illegal", strings.NewReader(test.src)); err != nil {
			t.Fatal(err)
		}
		for {
			tok, _, lit := l.NextToken()
			if tok == token.EOF {
				t.Errorf("%q: no illegal token", test.src)
				break
			}
			if tok == token.Illegal {
				if string(lit) != test.want {
					t.Errorf("%q: illegal literal %q, want %q", test.src, lit, test.want)
				}
				break
			}
		}
	}
}

func TestLexer_position(t *testing.T) {
	var l Lexer
	if err := l.Reset("pos", strings.NewReader("begin\n  x := 1;\nend.")); err != nil {
		t.Fatal(err)
	}
	l.NextToken() // begin
	tok, start, _ := l.NextToken()
	line, col := l.TokenLineCol()
	if tok != token.Identifier || start != 8 || line != 2 || col != 3 {
		t.Errorf("got %s at offset %d line %d col %d", tok, start, line, col)
	}
}
