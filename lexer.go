package pascal

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// The lexer follows the design of the Lexer described in "Writing An Interpreter In Go"
// by Thorsten Ball https://monkeylang.org/ with a two character lookahead window.

// Lexer tokenizes source code of the language.
type Lexer struct {
	input bufio.Reader
	ch    rune // current character (utf8)
	peek  rune // next character (utf8)
	err   error
	idbuf []byte // accumulation buffer.

	chSize   int // encoded size of ch.
	peekSize int // encoded size of peek.

	source    string // filename or source name.
	line      int    // file line number (position of current char)
	col       int    // column number in line (position of current char)
	pos       int    // byte position.
	tokenLine int    // line number where the last token started
	tokenCol  int    // column number where the last token started
}

func (l *Lexer) IsDone() bool {
	return l.err != nil && l.ch == 0
}

func (l *Lexer) isUnitialized() bool {
	return l.source == ""
}

// Reset discards all state and buffered data and begins a new lexing
// procedure on the input r. It performs a single utf8 read to initialize.
func (l *Lexer) Reset(source string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader")
	} else if source == "" {
		return errors.New("no source name")
	}
	*l = Lexer{
		input:  l.input,
		line:   1,
		idbuf:  l.idbuf,
		source: source,
	}
	l.input.Reset(r)
	if l.idbuf == nil {
		l.idbuf = make([]byte, 0, 1024)
	}
	// Fill up peek and current character. col is 1 based.
	l.readChar()
	l.readChar()
	if l.err == io.EOF {
		return nil
	}
	return l.err
}

// Source returns the name the lexer was reset/initialized with. Usually a filename.
func (l *Lexer) Source() string {
	return l.source
}

// Err returns the lexer error.
func (l *Lexer) Err() error {
	if l.err == io.EOF {
		return nil
	}
	return l.err
}

// LineCol returns the current line number and column number (utf8 relative).
func (l *Lexer) LineCol() (line, col int) {
	return l.line, l.col
}

// TokenLineCol returns the line/col where the last returned token started.
func (l *Lexer) TokenLineCol() (line, col int) {
	return l.tokenLine, l.tokenCol
}

// Pos returns the absolute position of the lexer in bytes from the start of the file.
func (l *Lexer) Pos() int { return l.pos }

// NextToken parses the upcoming token and returns the literal representation
// of the token for identifiers, strings, characters and numbers.
// The returned byte slice is reused between calls to NextToken.
func (l *Lexer) NextToken() (tok token.Token, startPos int, literal []byte) {
	if l.isUnitialized() {
		l.err = errors.New("lexer unitilialized")
		return token.Illegal, 0, nil
	}
	if !l.skipBlank() {
		l.tokenLine, l.tokenCol = l.line, l.col
		return token.Illegal, l.pos, nil
	}
	startPos = l.pos
	l.tokenLine, l.tokenCol = l.line, l.col
	// With lookahead buffer, l.err might be EOF while l.ch still has a valid character.
	// Only return EOF when current character is exhausted.
	if l.ch == 0 {
		return token.EOF, startPos, nil
	} else if l.err != nil && l.err != io.EOF {
		return token.Illegal, startPos, nil
	}
	ch := l.ch
	switch ch {
	case '+':
		tok = token.Plus
		l.readChar()
	case '-':
		tok = token.Minus
		l.readChar()
	case '*':
		tok = token.Asterisk
		l.readChar()
	case '/':
		tok = token.Slash
		l.readChar()
	case '=':
		tok = token.Equals
		l.readChar()
	case '<':
		switch l.peek {
		case '=':
			tok = token.LessEq
			l.readChar()
		case '>':
			tok = token.NotEquals
			l.readChar()
		default:
			tok = token.Less
		}
		l.readChar()
	case '>':
		tok = token.Greater
		if l.peek == '=' {
			tok = token.GreaterEq
			l.readChar()
		}
		l.readChar()
	case ':':
		tok = token.Colon
		if l.peek == '=' {
			tok = token.Assign
			l.readChar()
		}
		l.readChar()
	case '(':
		tok = token.LParen
		l.readChar()
	case ')':
		tok = token.RParen
		l.readChar()
	case '[':
		tok = token.LBracket
		l.readChar()
	case ']':
		tok = token.RBracket
		l.readChar()
	case '{':
		tok = token.LBrace
		l.readChar()
	case '}':
		tok = token.RBrace
		l.readChar()
	case ',':
		tok = token.Comma
		l.readChar()
	case '.':
		tok = token.Dot
		l.readChar()
	case ';':
		tok = token.Semicolon
		l.readChar()
	case '\'':
		var ok bool
		literal, ok = l.readString()
		switch {
		case !ok:
			tok = token.Illegal
		case len(literal) == 1:
			tok = token.CharLit
		default:
			tok = token.StringLit
		}
	default:
		if isIdentifierChar(ch) {
			literal = l.readIdentifier()
			tok = token.LookupKeyword(literal)
		} else if isDigit(ch) {
			var isReal bool
			literal, isReal = l.readNumber()
			tok = token.IntLit
			if isReal {
				tok = token.RealLit
			}
		} else {
			start := l.bufstart()
			l.idbuf = utf8.AppendRune(l.idbuf, ch)
			literal = l.idbuf[start:]
			tok = token.Illegal
			l.readChar()
		}
	}
	return tok, startPos, literal
}

// skipBlank skips whitespace and comments. It returns false on an unterminated block comment.
func (l *Lexer) skipBlank() bool {
	for {
		switch {
		case isWhitespace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peek == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '(' && l.peek == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peek == ')') {
				if l.ch == 0 {
					l.err = errors.New("unterminated comment")
					return false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return true
		}
	}
}

func (l *Lexer) readIdentifier() []byte {
	start := l.bufstart()
	for isIdentifierChar(l.ch) || isDigit(l.ch) {
		l.idbuf = utf8.AppendRune(l.idbuf, l.ch)
		l.readChar()
	}
	return l.idbuf[start:]
}

// readString reads a single-quoted literal. A doubled quote inside the
// literal stands for one quote character.
func (l *Lexer) readString() ([]byte, bool) {
	start := l.bufstart()
	l.readChar() // consume opening quote
	for l.ch != 0 {
		if l.ch == '\n' {
			l.err = errors.New("unterminated string literal")
			return l.idbuf[start:], false
		}
		if l.ch == '\'' {
			if l.peek == '\'' {
				l.idbuf = append(l.idbuf, '\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // consume closing quote
			return l.idbuf[start:], true
		}
		l.idbuf = utf8.AppendRune(l.idbuf, l.ch)
		l.readChar()
	}
	l.err = errors.New("unterminated string literal")
	return l.idbuf[start:], false
}

// readNumber reads an integer or real literal. A dot is only part of the number
// when followed by a digit so ranges such as 1..5 lex as IntLit Dot Dot IntLit.
func (l *Lexer) readNumber() ([]byte, bool) {
	start := l.bufstart()
	seenDot := false
	for {
		if l.ch == '.' && !seenDot && isDigit(l.peek) {
			seenDot = true
		} else if !isDigit(l.ch) {
			break
		}
		l.idbuf = utf8.AppendRune(l.idbuf, l.ch)
		l.readChar()
	}
	return l.idbuf[start:], seenDot
}

func (l *Lexer) bufstart() int {
	l.idbuf = l.idbuf[:0]
	return 0
}

// readChar advances the two character window by one rune.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	l.pos += l.chSize
	l.ch, l.chSize = l.peek, l.peekSize
	if l.ch != 0 {
		l.col++
	}
	if l.err != nil {
		l.peek, l.peekSize = 0, 0
		return
	}
	ch, sz, err := l.input.ReadRune()
	if err != nil {
		l.peek, l.peekSize = 0, 0
		l.err = err
		return
	}
	l.peek, l.peekSize = ch, sz
}

func (l *Lexer) sourcePos() sourcePos {
	line, col := l.TokenLineCol()
	return sourcePos{
		Source: l.source,
		Line:   line,
		Col:    col,
	}
}

func isIdentifierChar(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func isWhitespace(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}
