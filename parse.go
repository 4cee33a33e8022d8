package main

import (
	"errors"
	"strconv"
)

// Parser is a recursive-descent parser with one symbol of lookahead. It
// binds identifiers as it goes and allocates nodes from an Arena.
type Parser struct {
	lex   *Lexer
	arena *Arena
	syms  Resolver
}

func NewParser(l *Lexer, arena *Arena, syms Resolver) *Parser {
	return &Parser{lex: l, arena: arena, syms: syms}
}

// located stamps compile errors raised away from the scanner with the line
// of the current symbol.
func (p *Parser) located(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) && ce.Line == 0 {
		ce.Line = p.lex.CurrLine
	}
	return err
}

func (p *Parser) next() error {
	return p.lex.NextToken()
}

func (p *Parser) current() string {
	switch p.lex.CurrTokenType {
	case IDENT:
		return "identifier " + strconv.Quote(p.lex.CurrLiteral)
	case FUNCNAME:
		return "call " + strconv.Quote(p.lex.CurrLiteral+"()")
	case INT:
		return "integer " + p.lex.CurrLiteral
	case EOF:
		return "end of input"
	}
	return strconv.Quote(p.lex.CurrLiteral)
}

// expect consumes the current symbol if it is typ.
func (p *Parser) expect(typ TokenType) error {
	if p.lex.CurrTokenType != typ {
		return compileErrorf(KindSyntax, p.lex.CurrLine, "expected %s but got %s", describeToken(typ), p.current())
	}
	return p.next()
}

func describeToken(typ TokenType) string {
	switch typ {
	case IDENT:
		return "identifier"
	case FUNCNAME:
		return "function name"
	case INT:
		return "integer"
	case EOF:
		return "end of input"
	}
	for _, kw := range keywords {
		if kw.typ == typ {
			return strconv.Quote(kw.word)
		}
	}
	return strconv.Quote(string(typ))
}

func (p *Parser) alloc(kind NodeKind) (NodeID, error) {
	id, err := p.arena.New(kind)
	return id, p.located(err)
}

func (p *Parser) gen(kind NodeKind, o1, o2 NodeID) (NodeID, error) {
	id, err := p.arena.Gen(kind, o1, o2)
	return id, p.located(err)
}

// ParseProgram parses zero or more top-level statements up to end of input.
func (p *Parser) ParseProgram() (NodeID, error) {
	if err := p.next(); err != nil {
		return NoNode, err
	}
	prog, err := p.gen(NodeProgram, NoNode, NoNode)
	if err != nil {
		return NoNode, err
	}
	body, err := p.sequence(EOF)
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(prog).O1 = body
	return prog, nil
}

// ParseExpression parses a single expression that must span the whole input.
func (p *Parser) ParseExpression() (NodeID, error) {
	if err := p.next(); err != nil {
		return NoNode, err
	}
	x, err := p.expr()
	if err != nil {
		return NoNode, err
	}
	if p.lex.CurrTokenType != EOF {
		return NoNode, p.expect(EOF)
	}
	return x, nil
}

// sequence folds statements up to end into a left-leaning chain seeded with
// an empty node, so that an empty run is representable.
func (p *Parser) sequence(end TokenType) (NodeID, error) {
	x, err := p.alloc(NodeEmpty)
	if err != nil {
		return NoNode, err
	}
	for p.lex.CurrTokenType != end {
		if p.lex.CurrTokenType == EOF {
			return NoNode, p.expect(end)
		}
		if x, err = p.gen(NodeSeq, x, NoNode); err != nil {
			return NoNode, err
		}
		stmt, err := p.statement()
		if err != nil {
			return NoNode, err
		}
		p.arena.Node(x).O2 = stmt
	}
	return x, nil
}

// <term> ::= <id> | <int> | <paren_expr>
func (p *Parser) term() (NodeID, error) {
	switch p.lex.CurrTokenType {
	case IDENT:
		x, err := p.alloc(NodeVar)
		if err != nil {
			return NoNode, err
		}
		slot, err := p.syms.BindVariable(p.lex.CurrLiteral)
		if err != nil {
			return NoNode, p.located(err)
		}
		p.arena.Node(x).Val = int64(slot)
		return x, p.next()

	case INT:
		x, err := p.alloc(NodeConst)
		if err != nil {
			return NoNode, err
		}
		p.arena.Node(x).Val = p.lex.CurrIntValue
		return x, p.next()
	}
	return p.parenExpr()
}

// mathOp maps the current symbol to an arithmetic node kind, or "".
func (p *Parser) mathOp() NodeKind {
	switch p.lex.CurrTokenType {
	case PLUS:
		return NodeAdd
	case MINUS:
		return NodeSub
	case ASTERISK:
		return NodeMul
	case SLASH:
		return NodeDiv
	}
	return ""
}

// <math> ::= <term> | <math> <math_op> <term>
//
// All four operators bind equally and associate to the left.
func (p *Parser) math() (NodeID, error) {
	x, err := p.term()
	if err != nil {
		return NoNode, err
	}
	for op := p.mathOp(); op != ""; op = p.mathOp() {
		if x, err = p.gen(op, x, NoNode); err != nil {
			return NoNode, err
		}
		if err := p.next(); err != nil {
			return NoNode, err
		}
		right, err := p.term()
		if err != nil {
			return NoNode, err
		}
		p.arena.Node(x).O2 = right
	}
	return x, nil
}

// <test> ::= <math> | <math> "<" <math> | <math> ">" <math>
func (p *Parser) test() (NodeID, error) {
	x, err := p.math()
	if err != nil {
		return NoNode, err
	}
	var kind NodeKind
	switch p.lex.CurrTokenType {
	case LT:
		kind = NodeLess
	case GT:
		kind = NodeGreater
	default:
		return x, nil
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	right, err := p.math()
	if err != nil {
		return NoNode, err
	}
	return p.gen(kind, x, right)
}

// <expr> ::= <test> | <id> "=" <expr>
func (p *Parser) expr() (NodeID, error) {
	if p.lex.CurrTokenType != IDENT {
		return p.test()
	}
	x, err := p.test()
	if err != nil {
		return NoNode, err
	}
	if p.arena.Node(x).Kind != NodeVar || p.lex.CurrTokenType != ASSIGN {
		return x, nil
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	value, err := p.expr()
	if err != nil {
		return NoNode, err
	}
	return p.gen(NodeSet, x, value)
}

// <paren_expr> ::= "(" <expr> ")"
func (p *Parser) parenExpr() (NodeID, error) {
	if err := p.expect(LPAREN); err != nil {
		return NoNode, err
	}
	x, err := p.expr()
	if err != nil {
		return NoNode, err
	}
	return x, p.expect(RPAREN)
}

func (p *Parser) statement() (NodeID, error) {
	switch p.lex.CurrTokenType {
	case IF:
		return p.ifStatement()
	case WHILE:
		return p.whileStatement()
	case DO:
		return p.doStatement()
	case FUNCNAME:
		return p.callStatement()
	case VOID:
		return p.funcDefinition()
	case INT_TYPE:
		return p.varDefinition()

	case RETURN:
		if err := p.next(); err != nil {
			return NoNode, err
		}
		if err := p.expect(SEMICOLON); err != nil {
			return NoNode, err
		}
		return p.alloc(NodeReturn)

	case SEMICOLON:
		x, err := p.alloc(NodeEmpty)
		if err != nil {
			return NoNode, err
		}
		return x, p.next()

	case LBRACE:
		if err := p.next(); err != nil {
			return NoNode, err
		}
		x, err := p.sequence(RBRACE)
		if err != nil {
			return NoNode, err
		}
		return x, p.next()
	}

	// <expr> ";"
	e, err := p.expr()
	if err != nil {
		return NoNode, err
	}
	x, err := p.gen(NodeExpr, e, NoNode)
	if err != nil {
		return NoNode, err
	}
	return x, p.expect(SEMICOLON)
}

// "if" <paren_expr> <statement> [ "else" <statement> ]
func (p *Parser) ifStatement() (NodeID, error) {
	x, err := p.alloc(NodeIf)
	if err != nil {
		return NoNode, err
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	cond, err := p.parenExpr()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O1 = cond
	then, err := p.statement()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O2 = then

	if p.lex.CurrTokenType != ELSE {
		return x, nil
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	alt, err := p.statement()
	if err != nil {
		return NoNode, err
	}
	n := p.arena.Node(x)
	n.Kind = NodeIfElse
	n.O3 = alt
	return x, nil
}

// "while" <paren_expr> <statement>
func (p *Parser) whileStatement() (NodeID, error) {
	x, err := p.alloc(NodeWhile)
	if err != nil {
		return NoNode, err
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	cond, err := p.parenExpr()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O1 = cond
	body, err := p.statement()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O2 = body
	return x, nil
}

// "do" <statement> "while" <paren_expr> ";"
func (p *Parser) doStatement() (NodeID, error) {
	x, err := p.alloc(NodeDo)
	if err != nil {
		return NoNode, err
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	body, err := p.statement()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O1 = body
	if err := p.expect(WHILE); err != nil {
		return NoNode, err
	}
	cond, err := p.parenExpr()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O2 = cond
	return x, p.expect(SEMICOLON)
}

// <id> "()" ";"
func (p *Parser) callStatement() (NodeID, error) {
	x, err := p.alloc(NodeFuncCall)
	if err != nil {
		return NoNode, err
	}
	slot, err := p.syms.LookupFunction(p.lex.CurrLiteral)
	if err != nil {
		return NoNode, p.located(err)
	}
	p.arena.Node(x).Val = int64(slot)
	if err := p.next(); err != nil {
		return NoNode, err
	}
	return x, p.expect(SEMICOLON)
}

// "void" <id> "()" <block>
func (p *Parser) funcDefinition() (NodeID, error) {
	if err := p.next(); err != nil {
		return NoNode, err
	}
	name := p.lex.CurrLiteral
	if err := p.expect(FUNCNAME); err != nil {
		return NoNode, err
	}
	x, err := p.alloc(NodeFuncDef)
	if err != nil {
		return NoNode, err
	}
	slot, err := p.syms.DefineFunction(name)
	if err != nil {
		return NoNode, p.located(err)
	}
	p.arena.Node(x).Val = int64(slot)
	if p.lex.CurrTokenType != LBRACE {
		return NoNode, p.expect(LBRACE)
	}
	body, err := p.statement()
	if err != nil {
		return NoNode, err
	}
	p.arena.Node(x).O1 = body
	return x, nil
}

// "int" <id> ";"
func (p *Parser) varDefinition() (NodeID, error) {
	if err := p.next(); err != nil {
		return NoNode, err
	}
	if p.lex.CurrTokenType != IDENT {
		return NoNode, p.expect(IDENT)
	}
	if _, err := p.syms.BindVariable(p.lex.CurrLiteral); err != nil {
		return NoNode, p.located(err)
	}
	if err := p.next(); err != nil {
		return NoNode, err
	}
	if err := p.expect(SEMICOLON); err != nil {
		return NoNode, err
	}
	return p.alloc(NodeEmpty)
}
