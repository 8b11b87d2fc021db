package token

import "strconv"

type Token int

// List of all tokens of the language.
// When adding a new token add it in between blocks since we use comparison functions to check properties of tokens.
const (
	// Not to be used in code. Is to catch uninitialized tokens.
	Undefined Token = iota // <undefined>

	// ==================== KEYWORDS ====================

	// Block structure keywords
	BEGIN     // begin
	END       // end
	VAR       // var
	PROCEDURE // procedure
	FUNCTION  // function
	ARRAY     // array
	OF        // of

	// Control flow keywords
	IF       // if
	THEN     // then
	ELSE     // else
	WHILE    // while
	FOR      // for
	TO       // to
	DOWNTO   // downto
	DO       // do
	REPEAT   // repeat
	UNTIL    // until
	BREAK    // break
	CONTINUE // continue
	EXIT     // exit

	// ==================== SCALAR TYPES ====================

	INTEGER // integer
	REAL    // real
	CHAR    // char
	BOOLEAN // boolean
	STRING  // string

	// ==================== OPERATORS ====================

	// Arithmetic operators
	Plus     // +
	Minus    // -
	Asterisk // *
	Slash    // /
	DIV      // div
	MOD      // mod

	// Logical operators
	AND // and
	OR  // or
	NOT // not
	XOR // xor

	// Relational operators
	Equals    // =
	NotEquals // <>
	Less      // <
	Greater   // >
	LessEq    // <=
	GreaterEq // >=

	// ==================== DELIMITERS / PUNCTUATION ====================

	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	LBrace    // {
	RBrace    // }
	Comma     // ,
	Dot       // .
	Colon     // :
	Semicolon // ;
	Assign    // :=

	// ==================== LITERALS ====================

	// Boolean constants
	TRUE  // true
	FALSE // false

	// User-defined literals
	Identifier // <identifier>
	IntLit     // <integer>
	RealLit    // <real>
	CharLit    // <char>
	StringLit  // <string>

	// ==================== SPECIAL TOKENS ====================

	EOF     // <EOF>
	Illegal // <illegal>
	numToks
)

var tokNames = [numToks]string{
	Undefined: "<undefined>",
	BEGIN:     "begin", END: "end", VAR: "var", PROCEDURE: "procedure", FUNCTION: "function",
	ARRAY: "array", OF: "of",
	IF: "if", THEN: "then", ELSE: "else", WHILE: "while", FOR: "for", TO: "to",
	DOWNTO: "downto", DO: "do", REPEAT: "repeat", UNTIL: "until", BREAK: "break",
	CONTINUE: "continue", EXIT: "exit",
	INTEGER: "integer", REAL: "real", CHAR: "char", BOOLEAN: "boolean", STRING: "string",
	Plus: "+", Minus: "-", Asterisk: "*", Slash: "/", DIV: "div", MOD: "mod",
	AND: "and", OR: "or", NOT: "not", XOR: "xor",
	Equals: "=", NotEquals: "<>", Less: "<", Greater: ">", LessEq: "<=", GreaterEq: ">=",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Comma: ",", Dot: ".", Colon: ":", Semicolon: ";", Assign: ":=",
	TRUE: "true", FALSE: "false",
	Identifier: "<identifier>", IntLit: "<integer>", RealLit: "<real>",
	CharLit: "<char>", StringLit: "<string>",
	EOF: "<EOF>", Illegal: "<illegal>",
}

func (tok Token) String() string {
	if tok >= 0 && tok < numToks && tokNames[tok] != "" {
		return tokNames[tok]
	}
	return "Token(" + strconv.Itoa(int(tok)) + ")"
}

// IsKeyword returns true if the token is a reserved word, including type names and word operators.
func (tok Token) IsKeyword() bool {
	return tok >= BEGIN && tok <= STRING || tok == DIV || tok == MOD ||
		(tok >= AND && tok <= XOR) || tok == TRUE || tok == FALSE
}

// IsType returns true if the token names a scalar type.
func (tok Token) IsType() bool {
	return tok >= INTEGER && tok <= STRING
}

// IsOperator returns true if the token is an operator.
func (tok Token) IsOperator() bool {
	return tok >= Plus && tok <= GreaterEq
}

// IsRelational returns true for comparison operators.
func (tok Token) IsRelational() bool {
	return tok >= Equals && tok <= GreaterEq
}

// IsAdditive returns true for the operators of additive precedence.
func (tok Token) IsAdditive() bool {
	return tok == Plus || tok == Minus
}

// IsMultiplicative returns true for the operators of multiplicative precedence.
func (tok Token) IsMultiplicative() bool {
	return tok == Asterisk || tok == Slash || tok == DIV || tok == MOD || tok == XOR
}

// IsLogical returns true for the binary boolean connectives.
func (tok Token) IsLogical() bool {
	return tok == AND || tok == OR
}

func (tok Token) IsLogicalOr() bool  { return tok == OR }
func (tok Token) IsLogicalAnd() bool { return tok == AND }

// IsDelimiter returns true if the token is a delimiter or punctuation.
func (tok Token) IsDelimiter() bool {
	return tok >= LParen && tok <= Assign
}

// IsLiteral returns true if the token is a literal value.
func (tok Token) IsLiteral() bool {
	return tok >= TRUE && tok <= StringLit && tok != Identifier
}

// EndsBlock returns true for tokens that terminate a statement sequence.
func (tok Token) EndsBlock() bool {
	return tok == END || tok == UNTIL || tok == EOF
}

// LookupKeyword returns [Identifier] or the token for keyword maybeKeyword represents if found.
// Keywords are case-sensitive.
func LookupKeyword(maybeKeyword []byte) Token {
	switch string(maybeKeyword) {
	default:
		return Identifier
	case "begin":
		return BEGIN
	case "end":
		return END
	case "var":
		return VAR
	case "procedure":
		return PROCEDURE
	case "function":
		return FUNCTION
	case "array":
		return ARRAY
	case "of":
		return OF
	case "if":
		return IF
	case "then":
		return THEN
	case "else":
		return ELSE
	case "while":
		return WHILE
	case "for":
		return FOR
	case "to":
		return TO
	case "downto":
		return DOWNTO
	case "do":
		return DO
	case "repeat":
		return REPEAT
	case "until":
		return UNTIL
	case "break":
		return BREAK
	case "continue":
		return CONTINUE
	case "exit":
		return EXIT
	case "integer":
		return INTEGER
	case "real":
		return REAL
	case "char":
		return CHAR
	case "boolean":
		return BOOLEAN
	case "string":
		return STRING
	case "div":
		return DIV
	case "mod":
		return MOD
	case "and":
		return AND
	case "or":
		return OR
	case "not":
		return NOT
	case "xor":
		return XOR
	case "true":
		return TRUE
	case "false":
		return FALSE
	}
}
