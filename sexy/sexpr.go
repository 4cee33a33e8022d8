// Package sexy reads the s-expression patterns used by Markdown test files
// and matches them against rendered syntax trees.
package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is one datum: an atom or a list.
type Node struct {
	Type  NodeType
	Text  string  // NodeSymbol, NodeString, NodeInteger
	Items []*Node // NodeList
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
}

func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewEllipsis() *Node {
	return &Node{Type: NodeEllipsis}
}

func NewList(items []*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// Match checks actual against pattern. An ellipsis in pattern matches any
// single datum, or any run of list items when it appears inside a list. The
// returned error names the path of the first mismatch.
func Match(pattern, actual *Node) error {
	return match(pattern, actual, "root")
}

func match(pattern, actual *Node, path string) error {
	if pattern.Type == NodeEllipsis {
		return nil
	}
	if pattern.Type != actual.Type {
		return fmt.Errorf("at %s: expected %s %s, got %s", path, pattern.Type, pattern, actual)
	}
	if pattern.Type != NodeList {
		if pattern.Text != actual.Text {
			return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
		}
		return nil
	}
	if !matchItems(pattern.Items, actual.Items, path) {
		// Report the first item-wise difference when there is one.
		for i := 0; i < len(pattern.Items) && i < len(actual.Items); i++ {
			if pattern.Items[i].Type == NodeEllipsis {
				break
			}
			if err := match(pattern.Items[i], actual.Items[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return fmt.Errorf("at %s: expected %s, got %s", path, pattern, actual)
	}
	return nil
}

// matchItems matches a list body, letting each ellipsis absorb zero or more items.
func matchItems(pattern, actual []*Node, path string) bool {
	if len(pattern) == 0 {
		return len(actual) == 0
	}
	if pattern[0].Type == NodeEllipsis {
		for skip := 0; skip <= len(actual); skip++ {
			if matchItems(pattern[1:], actual[skip:], path) {
				return true
			}
		}
		return false
	}
	if len(actual) == 0 || match(pattern[0], actual[0], path) != nil {
		return false
	}
	return matchItems(pattern[1:], actual[1:], path)
}

type parser struct {
	lexer        *lexer
	currentToken token
}

// Parse parses the entire input and returns the top-level datum
func Parse(input string) (*Node, error) {
	p := &parser{lexer: newLexer(input)}
	p.nextToken()

	result, err := p.parseDatum()
	if len(p.lexer.errors) > 0 {
		// Lexer errors take priority because they might cause confusing parser errors.
		return nil, fmt.Errorf("%s", p.lexer.errors[0])
	}
	if err != nil {
		return nil, err
	}
	if p.currentToken.Type != tokenEOF {
		return nil, fmt.Errorf("expected EOF but got %s", p.currentToken.Type)
	}
	return result, nil
}

func (p *parser) nextToken() {
	p.currentToken = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	tok := p.currentToken
	switch tok.Type {
	case tokenSymbol:
		p.nextToken()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.nextToken()
		return NewString(tok.Value), nil
	case tokenInteger:
		p.nextToken()
		return NewInteger(tok.Value), nil
	case tokenEllipsis:
		p.nextToken()
		return NewEllipsis(), nil
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("unexpected token: %s", tok.Type)
	}
}

func (p *parser) parseList() (*Node, error) {
	items := []*Node{}
	p.nextToken() // consume '('

	for p.currentToken.Type != tokenRParen && p.currentToken.Type != tokenEOF {
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if p.currentToken.Type != tokenRParen {
		return nil, fmt.Errorf("expected ')' but got %s", p.currentToken.Type)
	}
	p.nextToken() // consume ')'
	return NewList(items), nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
}

type lexer struct {
	input  string
	pos    int
	errors []string
}

func newLexer(input string) *lexer {
	return &lexer{input: input}
}

func (l *lexer) peek(off int) byte {
	if l.pos+off >= len(l.input) {
		return 0
	}
	return l.input[l.pos+off]
}

func (l *lexer) fail(format string, args ...any) token {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
	return token{Type: tokenEOF}
}

func (l *lexer) nextToken() token {
	for {
		for unicode.IsSpace(rune(l.peek(0))) {
			l.pos++
		}
		if l.peek(0) != ';' {
			break
		}
		// Comment to end of line.
		for l.peek(0) != '\n' && l.peek(0) != 0 {
			l.pos++
		}
	}

	c := l.peek(0)
	switch {
	case c == 0:
		return token{Type: tokenEOF}
	case c == '(':
		l.pos++
		return token{Type: tokenLParen, Value: "("}
	case c == ')':
		l.pos++
		return token{Type: tokenRParen, Value: ")"}
	case c == '"':
		return l.readString()
	case c == '.':
		if l.peek(1) == '.' && l.peek(2) == '.' {
			l.pos += 3
			return token{Type: tokenEllipsis, Value: "..."}
		}
		return l.fail("unexpected character '.'")
	case unicode.IsDigit(rune(c)), (c == '-' || c == '+') && unicode.IsDigit(rune(l.peek(1))):
		start := l.pos
		l.pos++
		for unicode.IsDigit(rune(l.peek(0))) {
			l.pos++
		}
		return token{Type: tokenInteger, Value: l.input[start:l.pos]}
	case isSymbolChar(c):
		start := l.pos
		for isSymbolChar(l.peek(0)) {
			l.pos++
		}
		return token{Type: tokenSymbol, Value: l.input[start:l.pos]}
	}
	return l.fail("unexpected character '%c'", c)
}

func (l *lexer) readString() token {
	var sb strings.Builder
	l.pos++ // opening quote
	for {
		c := l.peek(0)
		switch c {
		case 0:
			return l.fail("unterminated string")
		case '"':
			l.pos++
			return token{Type: tokenString, Value: sb.String()}
		case '\\':
			next := l.peek(1)
			if next != '"' && next != '\\' {
				return l.fail("invalid escape sequence: \\%c", next)
			}
			sb.WriteByte(next)
			l.pos += 2
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
}

// isSymbolChar accepts letters, digits and the operator characters that
// appear as bare symbols in patterns.
func isSymbolChar(c byte) bool {
	return unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) || strings.IndexByte("-_+*/<>=!?", c) >= 0
}
