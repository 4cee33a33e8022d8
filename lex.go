package main

// TokenType is the discriminant of a scanned symbol.
type TokenType string

const (
	EOF TokenType = "EOF"

	IDENT    TokenType = "IDENT"    // count, _tmp1
	FUNCNAME TokenType = "FUNCNAME" // identifier immediately followed by "()"
	INT      TokenType = "INT"      // 12345

	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	PLUS      TokenType = "+"
	MINUS     TokenType = "-"
	ASTERISK  TokenType = "*"
	SLASH     TokenType = "/"
	LT        TokenType = "<"
	GT        TokenType = ">"
	SEMICOLON TokenType = ";"
	ASSIGN    TokenType = "="

	DO       TokenType = "DO"
	ELSE     TokenType = "ELSE"
	IF       TokenType = "IF"
	WHILE    TokenType = "WHILE"
	VOID     TokenType = "VOID"
	RETURN   TokenType = "RETURN"
	INT_TYPE TokenType = "INT_TYPE"
)

// Reserved words in lookup order.
var keywords = []struct {
	word string
	typ  TokenType
}{
	{"do", DO},
	{"else", ELSE},
	{"if", IF},
	{"while", WHILE},
	{"void", VOID},
	{"return", RETURN},
	{"int", INT_TYPE},
}

// DefaultMaxIdentLength bounds identifier accumulation when no Config is supplied.
const DefaultMaxIdentLength = 63

// Lexer scans one source text. The current symbol is exposed through the
// Curr* fields and replaced by every call to NextToken.
type Lexer struct {
	input    []byte
	pos      int
	line     int
	maxIdent int

	CurrTokenType TokenType
	CurrLiteral   string
	CurrIntValue  int64 // only meaningful when CurrTokenType == INT
	CurrLine      int
}

// NewLexer creates a lexer over input. No terminator byte is required.
func NewLexer(input []byte) *Lexer {
	return &Lexer{input: input, line: 1, maxIdent: DefaultMaxIdentLength}
}

// SetMaxIdentLength changes the identifier length bound.
func (l *Lexer) SetMaxIdentLength(n int) {
	l.maxIdent = n
}

// Line returns the line the scanner is positioned on.
func (l *Lexer) Line() int {
	return l.line
}

// peek returns the byte at pos+off, or -1 past the end of input.
func (l *Lexer) peek(off int) int {
	if l.pos+off >= len(l.input) {
		return -1
	}
	return int(l.input[l.pos+off])
}

// NextToken scans the next symbol into the Curr* fields.
func (l *Lexer) NextToken() error {
	l.skipWhitespaceAndComments()

	l.CurrIntValue = 0
	l.CurrLine = l.line
	c := l.peek(0)

	if c == -1 {
		l.CurrTokenType = EOF
		l.CurrLiteral = ""
		return nil
	}

	if typ, ok := punctuation(byte(c)); ok {
		l.CurrTokenType = typ
		l.CurrLiteral = string(rune(c))
		l.pos++
		return nil
	}

	if isDigit(byte(c)) {
		lit, val := l.readNumber()
		l.CurrTokenType = INT
		l.CurrLiteral = lit
		l.CurrIntValue = val
		return nil
	}

	if isLetter(byte(c)) {
		return l.readWord()
	}

	return compileErrorf(KindLexical, l.line, "unexpected character %q", rune(c))
}

func punctuation(c byte) (TokenType, bool) {
	switch c {
	case '{':
		return LBRACE, true
	case '}':
		return RBRACE, true
	case '(':
		return LPAREN, true
	case ')':
		return RPAREN, true
	case '+':
		return PLUS, true
	case '-':
		return MINUS, true
	case '*':
		return ASTERISK, true
	case '/':
		return SLASH, true
	case '<':
		return LT, true
	case '>':
		return GT, true
	case ';':
		return SEMICOLON, true
	case '=':
		return ASSIGN, true
	}
	return "", false
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		c := l.peek(0)
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
		default:
			return
		}
	}
}

// skipLineComment stops on the newline so line counting stays in one place.
func (l *Lexer) skipLineComment() {
	for c := l.peek(0); c != -1 && c != '\n'; c = l.peek(0) {
		l.pos++
	}
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// readNumber accumulates decimal digits into 32 bits. Overflow wraps
// silently and the result is read back as a signed 32-bit value.
func (l *Lexer) readNumber() (string, int64) {
	start := l.pos
	var val uint32
	for c := l.peek(0); c != -1 && isDigit(byte(c)); c = l.peek(0) {
		val = val*10 + uint32(c-'0')
		l.pos++
	}
	return string(l.input[start:l.pos]), int64(int32(val))
}

func (l *Lexer) readWord() error {
	start := l.pos
	for c := l.peek(0); c != -1 && (isLetter(byte(c)) || isDigit(byte(c))); c = l.peek(0) {
		l.pos++
	}
	if l.pos-start > l.maxIdent {
		return compileErrorf(KindCapacity, l.line, "identifier %q... longer than %d characters",
			string(l.input[start:start+l.maxIdent]), l.maxIdent)
	}
	lit := string(l.input[start:l.pos])
	l.CurrLiteral = lit

	for _, kw := range keywords {
		if kw.word == lit {
			l.CurrTokenType = kw.typ
			return nil
		}
	}

	l.CurrTokenType = IDENT
	if l.peek(0) == '(' {
		if l.peek(1) != ')' {
			return compileErrorf(KindLexical, l.line, "malformed call suffix after %q: expected \"()\"", lit)
		}
		l.pos += 2
		l.CurrTokenType = FUNCNAME
	}
	return nil
}
