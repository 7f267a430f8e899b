package template

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits template source into tokens. It runs in one of two modes:
// markup (outside delimiters) and expression (between {{ }} or {% %}). The
// mode follows the delimiters it emits.
type Lexer struct {
	src  string
	i    int
	pos  Position
	expr bool
	prev Token
	err  error
}

func NewLexer(src string) *Lexer {
	return &Lexer{src: src, pos: Position{Line: 1, Col: 1}}
}

// newExprLexer lexes src in expression mode, reporting positions relative to
// at. Used for interpolations inside strings.
func newExprLexer(src string, at Position) *Lexer {
	return &Lexer{src: src, pos: at, expr: true}
}

// Next returns the next token. At the end of input it keeps returning an EOF
// token. After an error it keeps returning that error.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	tok, err := l.scan()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	l.prev = tok
	return tok, nil
}

// Tokens is the lazy token sequence. It ends after EOF or the first error.
func (l *Lexer) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.Next()
			if err != nil {
				yield(tok, err)
				return
			}
			if !yield(tok, nil) || tok.Kind == TokenEOF {
				return
			}
		}
	}
}

func (l *Lexer) peekRune() rune {
	if l.i >= len(l.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.i:])
	return r
}

func (l *Lexer) peekByteAt(n int) byte {
	if l.i+n >= len(l.src) {
		return 0
	}
	return l.src[l.i+n]
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.i:])
	l.i += size
	l.pos.Offset += size
	if r == '\n' {
		l.pos.Line++
		l.pos.Col = 1
	} else {
		l.pos.Col++
	}
	return r
}

func (l *Lexer) skip(n int) {
	end := l.i + n
	for l.i < end {
		l.advance()
	}
}

func (l *Lexer) skipSpaceAndComments() error {
	for l.i < len(l.src) {
		r := l.peekRune()
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		if !l.expr && strings.HasPrefix(l.src[l.i:], "{#") {
			start := l.pos
			end := strings.Index(l.src[l.i+2:], "#}")
			if end < 0 {
				return &LexError{Kind: UnterminatedString, Pos: start, Text: "{#"}
			}
			l.skip(end + 4)
			continue
		}
		break
	}
	return nil
}

func (l *Lexer) scan() (Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	if l.i >= len(l.src) {
		return Token{Kind: TokenEOF, Pos: l.pos}, nil
	}
	r := l.peekRune()
	switch {
	case r == '"' || r == '\'':
		return l.scanString()
	case r >= '0' && r <= '9':
		return l.scanNumber()
	case isIdentStart(r):
		return l.scanIdent(), nil
	}

	punct := markupPunct
	if l.expr {
		punct = exprPunct
	}
	for _, p := range punct {
		if !strings.HasPrefix(l.src[l.i:], p) {
			continue
		}
		tok := Token{Kind: TokenPunct, Lexeme: p, Value: p, Pos: l.pos}
		l.skip(len(p))
		switch p {
		case "{{", "{%", "{%-":
			l.expr = true
		case "}}", "%}", "-%}":
			l.expr = false
		}
		return tok, nil
	}
	return Token{}, &LexError{Kind: InvalidCharacter, Pos: l.pos, Text: string(r)}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentRune(r rune, markup bool) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || (markup && r == '-')
}

func (l *Lexer) scanIdent() Token {
	start, startPos := l.i, l.pos
	for l.i < len(l.src) && isIdentRune(l.peekRune(), !l.expr) {
		l.advance()
	}
	text := l.src[start:l.i]
	kind := TokenIdent
	if l.expr && keywords[text] {
		kind = TokenKeyword
	}
	return Token{Kind: kind, Lexeme: text, Value: text, Pos: startPos}
}

func (l *Lexer) scanNumber() (Token, error) {
	start, startPos := l.i, l.pos
	digits := func() {
		for l.i < len(l.src) && l.src[l.i] >= '0' && l.src[l.i] <= '9' {
			l.advance()
		}
	}
	digits()
	// a number directly after '.' is a path index and has no fraction
	if !l.prev.Is(".") && l.i < len(l.src) && l.src[l.i] == '.' {
		if next := l.peekByteAt(1); next < '0' || next > '9' {
			l.advance()
			return Token{}, &LexError{Kind: InvalidNumber, Pos: startPos, Text: l.src[start:l.i]}
		}
		l.advance()
		digits()
		if l.i < len(l.src) && l.src[l.i] == '.' {
			l.advance()
			digits()
			return Token{}, &LexError{Kind: InvalidNumber, Pos: startPos, Text: l.src[start:l.i]}
		}
	}
	if l.i < len(l.src) && isIdentStart(l.peekRune()) {
		for l.i < len(l.src) && isIdentRune(l.peekRune(), false) {
			l.advance()
		}
		return Token{}, &LexError{Kind: InvalidNumber, Pos: startPos, Text: l.src[start:l.i]}
	}
	text := l.src[start:l.i]
	return Token{Kind: TokenNumber, Lexeme: text, Value: text, Pos: startPos}, nil
}

// scanString reads a quoted string. In markup mode, {{ }} interpolations
// inside the string are skipped as a unit so they may contain quotes of
// their own.
func (l *Lexer) scanString() (Token, error) {
	start, startPos := l.i, l.pos
	quote := l.advance()
	unterminated := &LexError{Kind: UnterminatedString, Pos: startPos}
	for {
		if l.i >= len(l.src) {
			return Token{}, unterminated
		}
		r := l.peekRune()
		switch {
		case r == '\\':
			l.advance()
			if l.i >= len(l.src) {
				return Token{}, unterminated
			}
			l.advance()
		case r == quote:
			l.advance()
			text := l.src[start:l.i]
			return Token{Kind: TokenString, Lexeme: text, Value: text[1 : len(text)-1], Pos: startPos}, nil
		case !l.expr && strings.HasPrefix(l.src[l.i:], "{{"):
			if !l.skipInterpolation() {
				return Token{}, unterminated
			}
		default:
			l.advance()
		}
	}
}

func (l *Lexer) skipInterpolation() bool {
	l.skip(2)
	for l.i < len(l.src) {
		r := l.peekRune()
		switch {
		case strings.HasPrefix(l.src[l.i:], "}}"):
			l.skip(2)
			return true
		case r == '"' || r == '\'':
			l.advance()
			for {
				if l.i >= len(l.src) {
					return false
				}
				c := l.advance()
				if c == '\\' {
					if l.i >= len(l.src) {
						return false
					}
					l.advance()
				} else if c == r {
					break
				}
			}
		default:
			l.advance()
		}
	}
	return false
}

// Unescape decodes the escapes \n \t \\ \" \' and \{. Unknown escapes are
// kept as written.
func Unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '"', '\'', '{':
			b.WriteByte(raw[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}
