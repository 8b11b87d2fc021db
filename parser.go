package pascal

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Qwerasdzxc/Pascal-Compiler/ast"
	"github.com/Qwerasdzxc/Pascal-Compiler/symbol"
	"github.com/Qwerasdzxc/Pascal-Compiler/token"
)

// ParserError is a syntax error. Parsing stops at the first one.
type ParserError struct {
	sp       sourcePos
	Context  string      // construct being parsed, e.g. "if statement".
	Expected string      // what the grammar allowed at this point.
	Found    token.Token // what was there instead.
	Lit      string      // literal of Found, if any.
}

func (pe *ParserError) Error() string {
	var dst []byte
	dst = pe.sp.AppendString(dst)
	dst = append(dst, ':', ' ')
	if pe.Context != "" {
		dst = append(dst, pe.Context...)
		dst = append(dst, ':', ' ')
	}
	dst = append(dst, "expected "...)
	dst = append(dst, pe.Expected...)
	dst = append(dst, ", found "...)
	dst = append(dst, pe.Found.String()...)
	if pe.Lit != "" {
		dst = append(dst, ' ')
		dst = strconv.AppendQuote(dst, pe.Lit)
	}
	return string(dst)
}

// LineCol returns the 1-based line and column of the offending token.
func (pe *ParserError) LineCol() (line, col int) {
	return pe.sp.Line, pe.sp.Col
}

type sourcePos struct {
	Source string
	Line   int
	Col    int
}

func (l *sourcePos) String() string {
	return string(l.AppendString(nil))
}

func (l *sourcePos) AppendString(b []byte) []byte {
	if b == nil {
		b = make([]byte, 0, len(l.Source)+3+3)
	}
	b = append(b, l.Source...)
	b = append(b, ':')

	b = strconv.AppendInt(b, int64(l.Line), 10)
	if l.Col > 0 {
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(l.Col), 10)
	}
	return b
}

type toktuple struct {
	tok   token.Token
	start int
	end   int
	lit   string
	line  int // Line number where this token starts
	col   int // Column number where this token starts
}

// Parser is a recursive descent parser. The whole token stream is buffered on
// Reset so speculative parses only need to save and restore the cursor.
type Parser struct {
	l         Lexer
	toks      []toktuple
	cur       int
	nextScope ast.ScopeID
}

// Reset tokenizes r and prepares the parser to parse it. Lexing stops at the
// first illegal token which is then reported by Parse when reached.
func (p *Parser) Reset(source string, r io.Reader) error {
	err := p.l.Reset(source, r)
	if err != nil {
		return err
	}
	*p = Parser{
		l:    p.l,
		toks: p.toks[:0], // Reuse memory.
	}
	for {
		tok, start, lit := p.l.NextToken()
		line, col := p.l.TokenLineCol()
		tt := toktuple{tok: tok, start: start, end: p.l.Pos(), lit: string(lit), line: line, col: col}
		if tok == token.Illegal && p.l.Err() != nil {
			tt.lit = p.l.Err().Error()
		}
		p.toks = append(p.toks, tt)
		if tok == token.EOF || tok == token.Illegal {
			break
		}
	}
	return nil
}

// Parse parses the whole program. On error no AST is returned.
func (p *Parser) Parse() (*ast.Program, error) {
	if len(p.toks) == 0 {
		return nil, errors.New("parser not initialized")
	}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// Parse parses a program from r. source names the input in error messages.
func Parse(source string, r io.Reader) (*ast.Program, error) {
	var p Parser
	if err := p.Reset(source, r); err != nil {
		return nil, err
	}
	return p.Parse()
}

// Compile parses and symbolizes a program read from r. On a symbol error the
// tables are returned along with it.
func Compile(source string, r io.Reader) (*symbol.Info, error) {
	prog, err := Parse(source, r)
	if err != nil {
		return nil, err
	}
	return symbol.Symbolize(prog)
}

// Helper methods

func (p *Parser) current() toktuple { return p.toks[p.cur] }

func (p *Parser) peek() toktuple {
	if p.cur+1 < len(p.toks) {
		return p.toks[p.cur+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) nextToken() {
	if p.cur < len(p.toks)-1 {
		p.cur++
	}
}

// prevEnd returns the end position of the last consumed token.
func (p *Parser) prevEnd() int {
	if p.cur == 0 {
		return 0
	}
	return p.toks[p.cur-1].end
}

func (p *Parser) pos(start int) ast.Position {
	return ast.Pos(start, p.prevEnd())
}

func (p *Parser) newScope() ast.ScopeID {
	id := p.nextScope
	p.nextScope++
	return id
}

func (p *Parser) currentTokenIs(t token.Token) bool {
	return p.current().tok == t
}

// expect checks if current token matches t, consumes it if so, and reports error if not.
func (p *Parser) expect(t token.Token, context string) error {
	if !p.currentTokenIs(t) {
		return p.errorf(context, t.String())
	}
	p.nextToken()
	return nil
}

// consumeIf consumes the current token if it matches t, otherwise does nothing.
// Returns true if token was consumed, false otherwise.
// Use this for optional tokens where absence is not an error.
func (p *Parser) consumeIf(t token.Token) bool {
	if p.currentTokenIs(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) errorf(context, expected string) *ParserError {
	cur := p.current()
	pe := &ParserError{
		sp:       sourcePos{Source: p.l.Source(), Line: cur.line, Col: cur.col},
		Context:  context,
		Expected: expected,
		Found:    cur.tok,
	}
	switch {
	case cur.tok == token.Identifier, cur.tok.IsLiteral(), cur.tok == token.Illegal:
		pe.Lit = cur.lit
	}
	return pe
}

// try runs fn speculatively. If fn fails the token cursor is restored and its
// error returned. Only the cursor is saved: fn must not allocate scopes.
func (p *Parser) try(fn func() error) error {
	mark := p.cur
	err := fn()
	if err != nil {
		p.cur = mark
	}
	return err
}

// probe is like try but always restores the cursor.
func (p *Parser) probe(fn func() error) bool {
	mark := p.cur
	err := fn()
	p.cur = mark
	return err == nil
}

var errNoMatch = errors.New("no match")

// parseCommaSeparatedList parses items separated by commas until terminator.
// The terminator itself is not consumed.
func parseCommaSeparatedList[T any](p *Parser, terminator token.Token, parser func() (T, error)) ([]T, error) {
	var items []T
	for !p.currentTokenIs(terminator) && !p.currentTokenIs(token.EOF) {
		item, err := parser()
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if !p.consumeIf(token.Comma) {
			break
		}
	}
	return items, nil
}

// ==================== PROGRAM STRUCTURE ====================

func (p *Parser) parseProgram() (*ast.Program, error) {
	start := p.current().start
	prog := &ast.Program{Scope: p.newScope()}
	for !p.currentTokenIs(token.EOF) {
		switch p.current().tok {
		case token.VAR:
			vd, err := p.parseVarSection()
			if err != nil {
				return nil, err
			}
			if !p.currentTokenIs(token.BEGIN) {
				prog.Nodes = append(prog.Nodes, vd)
				continue
			}
			main, err := p.parseMain(vd)
			if err != nil {
				return nil, err
			}
			prog.Nodes = append(prog.Nodes, main)
		case token.FUNCTION, token.PROCEDURE:
			fn, err := p.parseCallable()
			if err != nil {
				return nil, err
			}
			prog.Nodes = append(prog.Nodes, fn)
		case token.BEGIN:
			main, err := p.parseMain(nil)
			if err != nil {
				return nil, err
			}
			prog.Nodes = append(prog.Nodes, main)
		default:
			return nil, p.errorf("program", "var, function, procedure or begin")
		}
	}
	prog.Position = p.pos(start)
	return prog, nil
}

// parseMain parses the entry point block, terminated by a dot.
func (p *Parser) parseMain(decls *ast.VarDecl) (*ast.Block, error) {
	start := p.current().start
	if decls != nil {
		start = decls.Pos()
	}
	main, err := p.parseBlock("main block")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Dot, "main block"); err != nil {
		return nil, err
	}
	main.Decls = decls
	main.IsMain = true
	main.Position = p.pos(start)
	return main, nil
}

// parseCallable parses a function or procedure definition.
func (p *Parser) parseCallable() (*ast.FuncDecl, error) {
	start := p.current().start
	isFunc := p.currentTokenIs(token.FUNCTION)
	context := "procedure"
	if isFunc {
		context = "function"
	}
	p.nextToken()
	fn := &ast.FuncDecl{}
	var err error
	fn.Name, err = p.parseIdent(context + " name")
	if err != nil {
		return nil, err
	}
	fn.Params, err = p.parseParamList()
	if err != nil {
		return nil, err
	}
	if isFunc {
		if err := p.expect(token.Colon, "function result"); err != nil {
			return nil, err
		}
		fn.Result, err = p.parseScalarType("function result")
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.Semicolon, context+" header"); err != nil {
		return nil, err
	}
	fn.Body, err = p.parseBody(context + " body")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semicolon, context+" body"); err != nil {
		return nil, err
	}
	fn.Position = p.pos(start)
	return fn, nil
}

func (p *Parser) parseParamList() (*ast.ParamList, error) {
	start := p.current().start
	params := &ast.ParamList{Scope: p.newScope()}
	if p.consumeIf(token.LParen) {
		for p.currentTokenIs(token.Identifier) {
			group, err := p.parseDeclGroup("parameter", true, false)
			if err != nil {
				return nil, err
			}
			params.Params = append(params.Params, group...)
			if !p.consumeIf(token.Semicolon) {
				break
			}
		}
		if err := p.expect(token.RParen, "parameter list"); err != nil {
			return nil, err
		}
	}
	params.Position = p.pos(start)
	return params, nil
}

// parseBody parses [var section] begin stmts end.
func (p *Parser) parseBody(context string) (*ast.Block, error) {
	start := p.current().start
	var decls *ast.VarDecl
	if p.currentTokenIs(token.VAR) {
		var err error
		decls, err = p.parseVarSection()
		if err != nil {
			return nil, err
		}
	}
	blk, err := p.parseBlock(context)
	if err != nil {
		return nil, err
	}
	blk.Decls = decls
	blk.Position = p.pos(start)
	return blk, nil
}

// parseBlock parses begin stmts end.
func (p *Parser) parseBlock(context string) (*ast.Block, error) {
	start := p.current().start
	blk := &ast.Block{Scope: p.newScope()}
	if err := p.expect(token.BEGIN, context); err != nil {
		return nil, err
	}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.END, context); err != nil {
		return nil, err
	}
	blk.Stmts = stmts
	blk.Position = p.pos(start)
	return blk, nil
}

func (p *Parser) parseStatements() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for !p.current().tok.EndsBlock() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// ==================== DECLARATIONS ====================

func (p *Parser) parseVarSection() (*ast.VarDecl, error) {
	start := p.current().start
	if err := p.expect(token.VAR, "var section"); err != nil {
		return nil, err
	}
	vd := &ast.VarDecl{}
	if !p.currentTokenIs(token.Identifier) {
		return nil, p.errorf("var section", "identifier")
	}
	for p.currentTokenIs(token.Identifier) {
		group, err := p.parseDeclGroup("declaration", false, true)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semicolon, "declaration"); err != nil {
			return nil, err
		}
		vd.Decls = append(vd.Decls, group...)
	}
	vd.Position = p.pos(start)
	return vd, nil
}

// parseDeclGroup parses idList ":" typeSpec [ "=" initList ] and returns one
// declaration per identifier.
func (p *Parser) parseDeclGroup(context string, allowOpen, allowInit bool) ([]ast.Statement, error) {
	start := p.current().start
	names, err := parseCommaSeparatedList(p, token.Colon, func() (*ast.Ident, error) {
		return p.parseIdent(context)
	})
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Colon, context); err != nil {
		return nil, err
	}

	// Shape shared by every name in the group.
	var (
		typ   token.Token
		size  ast.Expression
		rng   *ast.Range
		open  bool
		array bool
	)
	switch {
	case p.current().tok.IsType():
		typ = p.current().tok
		p.nextToken()
		if p.consumeIf(token.LBracket) {
			array = true
			if !p.currentTokenIs(token.RBracket) {
				size, err = p.parseExpr()
				if err != nil {
					return nil, err
				}
			}
			if err := p.expect(token.RBracket, context+" size"); err != nil {
				return nil, err
			}
		}
	case p.currentTokenIs(token.ARRAY):
		array = true
		p.nextToken()
		if p.consumeIf(token.LBracket) {
			rng, err = p.parseRange(context)
			if err != nil {
				return nil, err
			}
		} else if !allowOpen {
			return nil, p.errorf(context, "array range")
		} else {
			open = true
		}
		if err := p.expect(token.OF, context); err != nil {
			return nil, err
		}
		typ, err = p.parseScalarType(context)
		if err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(context, "type")
	}

	var elems *ast.ElemList
	if allowInit && array && p.currentTokenIs(token.Equals) {
		p.nextToken()
		elems, err = p.parseElemList()
		if err != nil {
			return nil, err
		}
	}

	decls := make([]ast.Statement, 0, len(names))
	for _, name := range names {
		if !array {
			decls = append(decls, &ast.Decl{Type: typ, Name: name, Position: p.pos(start)})
			continue
		}
		decls = append(decls, &ast.ArrayDecl{
			Scope:    p.newScope(),
			Elem:     typ,
			Name:     name,
			Size:     size,
			Range:    rng,
			Open:     open,
			Elems:    elems,
			Position: p.pos(start),
		})
	}
	return decls, nil
}

// parseRange parses lo..hi] after the opening bracket.
func (p *Parser) parseRange(context string) (*ast.Range, error) {
	lo, err := p.parseSignedInt(context + " range")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Dot, context+" range"); err != nil {
		return nil, err
	}
	if err := p.expect(token.Dot, context+" range"); err != nil {
		return nil, err
	}
	hi, err := p.parseSignedInt(context + " range")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBracket, context+" range"); err != nil {
		return nil, err
	}
	return &ast.Range{Lo: lo, Hi: hi}, nil
}

func (p *Parser) parseSignedInt(context string) (int64, error) {
	neg := p.consumeIf(token.Minus)
	if !p.currentTokenIs(token.IntLit) {
		return 0, p.errorf(context, "integer")
	}
	v, err := strconv.ParseInt(p.current().lit, 10, 64)
	if err != nil {
		return 0, p.errorf(context, "integer within range")
	}
	p.nextToken()
	if neg {
		v = -v
	}
	return v, nil
}

func (p *Parser) parseElemList() (*ast.ElemList, error) {
	start := p.current().start
	closing := token.RParen
	if p.consumeIf(token.LBrace) {
		closing = token.RBrace
	} else if err := p.expect(token.LParen, "initializer"); err != nil {
		return nil, err
	}
	elems, err := parseCommaSeparatedList(p, closing, p.parseExpr)
	if err != nil {
		return nil, err
	}
	if err := p.expect(closing, "initializer"); err != nil {
		return nil, err
	}
	return &ast.ElemList{Elems: elems, Position: p.pos(start)}, nil
}

func (p *Parser) parseScalarType(context string) (token.Token, error) {
	tok := p.current().tok
	if !tok.IsType() {
		return token.Undefined, p.errorf(context, "type")
	}
	p.nextToken()
	return tok, nil
}

func (p *Parser) parseIdent(context string) (*ast.Ident, error) {
	cur := p.current()
	if cur.tok != token.Identifier {
		return nil, p.errorf(context, "identifier")
	}
	p.nextToken()
	return &ast.Ident{Name: cur.lit, Position: p.pos(cur.start)}, nil
}

// ==================== STATEMENTS ====================

func (p *Parser) parseStatement() (ast.Statement, error) {
	cur := p.current()
	switch cur.tok {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.REPEAT:
		return p.parseRepeat()
	case token.BREAK:
		p.nextToken()
		if err := p.expect(token.Semicolon, "break"); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Position: p.pos(cur.start)}, nil
	case token.CONTINUE:
		p.nextToken()
		if err := p.expect(token.Semicolon, "continue"); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{Position: p.pos(cur.start)}, nil
	case token.EXIT:
		return p.parseExit()
	case token.VAR:
		p.nextToken()
		decls, err := p.parseDeclGroup("declaration", false, true)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semicolon, "declaration"); err != nil {
			return nil, err
		}
		return &ast.VarDecl{Decls: decls, Position: p.pos(cur.start)}, nil
	case token.Identifier:
		stmt, err := p.parseIdentStmt()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.Semicolon, "statement"); err != nil {
			return nil, err
		}
		return stmt, nil
	}
	return nil, p.errorf("statement", "statement")
}

func (p *Parser) parseIf() (*ast.IfStmt, error) {
	start := p.current().start
	if err := p.expect(token.IF, "if statement"); err != nil {
		return nil, err
	}
	cond, err := p.parseLogic()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.THEN, "if statement"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock("if statement")
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.consumeIf(token.ELSE) {
		if p.currentTokenIs(token.IF) {
			// else if: the nested statement consumes the semicolon.
			wrap := &ast.Block{Scope: p.newScope()}
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			wrap.Stmts = []ast.Statement{nested}
			wrap.Position = ast.Pos(nested.Pos(), nested.End())
			stmt.Else = wrap
			stmt.Position = p.pos(start)
			return stmt, nil
		}
		stmt.Else, err = p.parseBlock("else branch")
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.Semicolon, "if statement"); err != nil {
		return nil, err
	}
	stmt.Position = p.pos(start)
	return stmt, nil
}

func (p *Parser) parseWhile() (*ast.WhileStmt, error) {
	start := p.current().start
	p.nextToken()
	cond, err := p.parseLogic()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.DO, "while loop"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock("while loop")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semicolon, "while loop"); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Position: p.pos(start)}, nil
}

func (p *Parser) parseFor() (*ast.ForStmt, error) {
	start := p.current().start
	p.nextToken()
	v, err := p.parseIdent("for loop")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Assign, "for loop"); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	stmt := &ast.ForStmt{
		Init: &ast.AssignStmt{Target: v, Value: init, Position: p.pos(v.Pos())},
	}
	switch {
	case p.consumeIf(token.TO):
	case p.consumeIf(token.DOWNTO):
		stmt.Down = true
	default:
		return nil, p.errorf("for loop", "to or downto")
	}
	stmt.Bound, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.DO, "for loop"); err != nil {
		return nil, err
	}
	stmt.Body, err = p.parseBlock("for loop")
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semicolon, "for loop"); err != nil {
		return nil, err
	}
	stmt.Position = p.pos(start)
	return stmt, nil
}

func (p *Parser) parseRepeat() (*ast.RepeatStmt, error) {
	start := p.current().start
	p.nextToken()
	body := &ast.Block{Scope: p.newScope()}
	stmts, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	body.Stmts = stmts
	body.Position = p.pos(start)
	if err := p.expect(token.UNTIL, "repeat loop"); err != nil {
		return nil, err
	}
	cond, err := p.parseLogic()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semicolon, "repeat loop"); err != nil {
		return nil, err
	}
	return &ast.RepeatStmt{Body: body, Cond: cond, Position: p.pos(start)}, nil
}

func (p *Parser) parseExit() (*ast.ExitStmt, error) {
	start := p.current().start
	p.nextToken()
	stmt := &ast.ExitStmt{}
	if p.consumeIf(token.LParen) {
		if !p.currentTokenIs(token.RParen) {
			var err error
			stmt.Value, err = p.parseLogic()
			if err != nil {
				return nil, err
			}
		}
		if err := p.expect(token.RParen, "exit"); err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.Semicolon, "exit"); err != nil {
		return nil, err
	}
	stmt.Position = p.pos(start)
	return stmt, nil
}

// parseIdentStmt parses a procedure call or an assignment. The trailing
// semicolon is left to the caller.
func (p *Parser) parseIdentStmt() (ast.Statement, error) {
	start := p.current().start
	name, err := p.parseIdent("statement")
	if err != nil {
		return nil, err
	}
	switch p.current().tok {
	case token.LParen:
		call, err := p.parseCallTail(name)
		if err != nil {
			return nil, err
		}
		return &ast.CallStmt{Call: call, Position: p.pos(start)}, nil
	case token.Semicolon:
		call := &ast.CallExpr{Name: name, Args: &ast.ArgList{Position: p.pos(p.prevEnd())}, Position: p.pos(start)}
		return &ast.CallStmt{Call: call, Position: p.pos(start)}, nil
	}

	var target ast.Expression = name
	if p.consumeIf(token.LBracket) {
		index, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RBracket, "index"); err != nil {
			return nil, err
		}
		target = &ast.IndexExpr{Array: name, Index: index, Position: p.pos(start)}
	}
	if err := p.expect(token.Assign, "assignment"); err != nil {
		return nil, err
	}
	value, err := p.parseRHS()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: target, Value: value, Position: p.pos(start)}, nil
}

// parseRHS parses the right hand side of an assignment. A bounded trial parses
// an additive expression and looks for a relational or logical operator after
// it to decide whether a full logic expression follows.
func (p *Parser) parseRHS() (ast.Expression, error) {
	isLogic := p.probe(func() error {
		if _, err := p.parseExpr(); err != nil {
			return err
		}
		if tok := p.current().tok; tok.IsRelational() || tok.IsLogical() {
			return nil
		}
		return errNoMatch
	})
	if isLogic {
		return p.parseLogic()
	}
	return p.parseExpr()
}

// parseCallTail parses "(" args ")" after the callee name.
func (p *Parser) parseCallTail(name *ast.Ident) (*ast.CallExpr, error) {
	argStart := p.current().start
	if err := p.expect(token.LParen, "call"); err != nil {
		return nil, err
	}
	args, err := parseCommaSeparatedList(p, token.RParen, p.parseArg)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RParen, "call arguments"); err != nil {
		return nil, err
	}
	return &ast.CallExpr{
		Name:     name,
		Args:     &ast.ArgList{Args: args, Position: p.pos(argStart)},
		Position: p.pos(name.Pos()),
	}, nil
}

// parseArg parses a call argument with optional rounding metadata x:width[:precision].
func (p *Parser) parseArg() (ast.Expression, error) {
	start := p.current().start
	x, err := p.parseLogic()
	if err != nil {
		return nil, err
	}
	if !p.consumeIf(token.Colon) {
		return x, nil
	}
	f := &ast.Formatted{X: x}
	f.Width, err = p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.consumeIf(token.Colon) {
		f.Precision, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	f.Position = p.pos(start)
	return f, nil
}

// ==================== EXPRESSIONS ====================

func (p *Parser) parseLogic() (ast.Expression, error) {
	return p.parseBinary(token.Token.IsLogicalOr, p.parseAnd)
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	return p.parseBinary(token.Token.IsLogicalAnd, p.parseCompare)
}

func (p *Parser) parseCompare() (ast.Expression, error) {
	start := p.current().start
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	op := p.current().tok
	if !op.IsRelational() {
		return x, nil
	}
	p.nextToken()
	y, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Op: op, X: x, Y: y, Position: p.pos(start)}, nil
}

func (p *Parser) parseExpr() (ast.Expression, error) {
	return p.parseBinary(token.Token.IsAdditive, p.parseTerm)
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	return p.parseBinary(token.Token.IsMultiplicative, p.parseFactor)
}

// parseBinary parses a left associative chain of operands joined by operators accepted by isOp.
func (p *Parser) parseBinary(isOp func(token.Token) bool, operand func() (ast.Expression, error)) (ast.Expression, error) {
	start := p.current().start
	x, err := operand()
	if err != nil {
		return nil, err
	}
	for isOp(p.current().tok) {
		op := p.current().tok
		p.nextToken()
		y, err := operand()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Op: op, X: x, Y: y, Position: p.pos(start)}
	}
	return x, nil
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	cur := p.current()
	switch cur.tok {
	case token.IntLit:
		v, err := strconv.ParseInt(cur.lit, 10, 64)
		if err != nil {
			return nil, p.errorf("integer literal", "integer within range")
		}
		p.nextToken()
		return &ast.IntLit{Value: v, Raw: cur.lit, Position: p.pos(cur.start)}, nil
	case token.RealLit:
		v, err := strconv.ParseFloat(cur.lit, 64)
		if err != nil {
			return nil, p.errorf("real literal", "real within range")
		}
		p.nextToken()
		return &ast.RealLit{Value: v, Raw: cur.lit, Position: p.pos(cur.start)}, nil
	case token.CharLit:
		p.nextToken()
		return &ast.CharLit{Value: cur.lit[0], Position: p.pos(cur.start)}, nil
	case token.StringLit:
		p.nextToken()
		return &ast.StringLit{Value: cur.lit, Position: p.pos(cur.start)}, nil
	case token.TRUE, token.FALSE:
		p.nextToken()
		return &ast.BoolLit{Value: cur.tok == token.TRUE, Position: p.pos(cur.start)}, nil
	case token.Identifier:
		name, _ := p.parseIdent("expression")
		switch p.current().tok {
		case token.LParen:
			var call *ast.CallExpr
			err := p.try(func() (err error) {
				call, err = p.parseCallTail(name)
				return err
			})
			if err == nil {
				return call, nil
			}
			if p.currentTokenIs(token.LParen) {
				// Nothing but a call may follow a name and "(".
				return nil, err
			}
		case token.LBracket:
			p.nextToken()
			index, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(token.RBracket, "index"); err != nil {
				return nil, err
			}
			return &ast.IndexExpr{Array: name, Index: index, Position: p.pos(cur.start)}, nil
		}
		return name, nil
	case token.LParen:
		p.nextToken()
		x, err := p.parseLogic()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "parenthesized expression"); err != nil {
			return nil, err
		}
		return x, nil
	case token.Minus, token.NOT:
		p.nextToken()
		x, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: cur.tok, X: x, Position: p.pos(cur.start)}, nil
	}
	return nil, p.errorf("expression", "operand")
}

// String returns a short description of the parser state for debugging.
func (p *Parser) String() string {
	cur := p.current()
	return fmt.Sprintf("%s:%d:%d %s %q", p.l.Source(), cur.line, cur.col, cur.tok, cur.lit)
}
