package template

import "fmt"

// TokenKind classifies a token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenKeyword
	TokenString
	TokenNumber
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punctuation"
	}
	return fmt.Sprintf("TokenKind(%d)", k)
}

// Position is a location in template source. Line and Col are 1-based; Col
// counts runes.
type Position struct {
	Offset int
	Line   int
	Col    int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Token is a single lexeme. For strings, Value holds the raw text between the
// quotes with escapes still in place; for everything else it equals Lexeme.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Value  string
	Pos    Position
}

// Is reports whether t is the punctuation or keyword s.
func (t Token) Is(s string) bool {
	return (t.Kind == TokenPunct || t.Kind == TokenKeyword) && t.Lexeme == s
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string " + t.Lexeme
	case TokenPunct:
		return fmt.Sprintf("%q", t.Lexeme)
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Lexeme)
}

var keywords = map[string]bool{
	"if":    true,
	"else":  true,
	"for":   true,
	"in":    true,
	"end":   true,
	"key":   true,
	"true":  true,
	"false": true,
	"null":  true,
}

// markup punctuation, longest first
var markupPunct = []string{"{%-", "{{", "{%", "</", "/>", "<", ">", "="}

// expression punctuation, longest first
var exprPunct = []string{
	"-%}", "}}", "%}",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!", "(", ")", "[", "]", ".", ",",
}
