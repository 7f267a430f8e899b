package template

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kungfusheep/loom/value"
)

// DefaultMaxDepth bounds element, block and expression nesting.
const DefaultMaxDepth = 128

// Option configures Parse.
type Option func(*Parser)

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// Parser is a recursive-descent parser with one token of lookahead.
type Parser struct {
	lex      *Lexer
	cur      Token
	peek     Token
	depth    int
	maxDepth int
	trimNext bool
}

// Parse parses a whole template.
func Parse(src string, opts ...Option) (*Document, error) {
	p := &Parser{lex: NewLexer(src), maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	return p.parseDocument()
}

// ParseReader reads r to the end and parses it.
func ParseReader(r io.Reader, opts ...Option) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(string(src), opts...)
}

// ParseExpr parses a standalone expression.
func ParseExpr(src string) (Expr, error) {
	p := &Parser{lex: newExprLexer(src, Position{Line: 1, Col: 1}), maxDepth: DefaultMaxDepth}
	if err := p.init(); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokenEOF {
		return nil, p.unexpected("end of expression")
	}
	return e, nil
}

func (p *Parser) init() error {
	if err := p.advance(); err != nil {
		return err
	}
	return p.advance()
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) unexpected(expected string) error {
	if p.cur.Kind == TokenEOF {
		return &ParseError{Kind: UnexpectedEOF, Expected: expected, Pos: p.cur.Pos}
	}
	return &ParseError{Kind: UnexpectedToken, Expected: expected, Found: p.cur.String(), Pos: p.cur.Pos}
}

func (p *Parser) expect(punct string) error {
	if !p.cur.Is(punct) {
		return p.unexpected(strconv.Quote(punct))
	}
	return p.advance()
}

func (p *Parser) enter(pos Position) error {
	p.depth++
	if p.depth > p.maxDepth {
		return &ParseError{Kind: NestingTooDeep, Found: fmt.Sprintf("more than %d levels", p.maxDepth), Pos: pos}
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) parseDocument() (*Document, error) {
	nodes, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokenEOF {
		if p.cur.Is("</") && p.peek.Kind == TokenIdent {
			return nil, &ParseError{Kind: MismatchedTag, Found: p.peek.Lexeme, Pos: p.cur.Pos}
		}
		return nil, p.unexpected("end of input")
	}
	return &Document{Children: nodes}, nil
}

func (p *Parser) atBlockTag(names ...string) bool {
	if !p.cur.Is("{%") && !p.cur.Is("{%-") {
		return false
	}
	for _, n := range names {
		if p.peek.Is(n) {
			return true
		}
	}
	return false
}

// parseNodes parses siblings until end of input, a closing tag, or an
// else/end block tag, none of which it consumes.
func (p *Parser) parseNodes() ([]Node, error) {
	var nodes []Node
	for {
		trim := p.trimNext
		p.trimNext = false
		if p.cur.Is("{%-") {
			nodes = trimLast(nodes)
		}

		switch {
		case p.cur.Kind == TokenEOF, p.cur.Is("</"), p.atBlockTag("else", "end"):
			return nodes, nil
		case p.cur.Is("<"):
			n, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case p.cur.Kind == TokenString:
			t, err := p.parseTextString(p.cur)
			if err != nil {
				return nil, err
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if trim {
				trimLeft(t)
				if len(t.Segments) == 0 {
					continue
				}
			}
			nodes = append(nodes, t)
		case p.cur.Is("{{"):
			t, err := p.parseInterpolation()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, t)
		case p.atBlockTag("if"):
			n, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		case p.atBlockTag("for"):
			n, err := p.parseFor()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		default:
			return nil, p.unexpected("element, string, {{ or {%")
		}
	}
}

func trimLast(nodes []Node) []Node {
	if len(nodes) == 0 {
		return nodes
	}
	t, ok := nodes[len(nodes)-1].(*Text)
	if !ok {
		return nodes
	}
	trimRight(t)
	if len(t.Segments) == 0 {
		return nodes[:len(nodes)-1]
	}
	return nodes
}

func trimLeft(t *Text) {
	if len(t.Segments) == 0 || t.Segments[0].Expr != nil {
		return
	}
	s := strings.TrimLeftFunc(t.Segments[0].Literal, unicode.IsSpace)
	if s == "" {
		t.Segments = t.Segments[1:]
		return
	}
	t.Segments[0].Literal = s
}

func trimRight(t *Text) {
	last := len(t.Segments) - 1
	if last < 0 || t.Segments[last].Expr != nil {
		return
	}
	s := strings.TrimRightFunc(t.Segments[last].Literal, unicode.IsSpace)
	if s == "" {
		t.Segments = t.Segments[:last]
		return
	}
	t.Segments[last].Literal = s
}

func (p *Parser) parseElement() (*Element, error) {
	el := &Element{Pos: p.cur.Pos}
	if err := p.enter(el.Pos); err != nil {
		return nil, err
	}
	defer p.leave()

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokenIdent {
		return nil, p.unexpected("element name")
	}
	el.Name = p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.cur.Kind == TokenIdent {
		attr := Attr{Key: p.cur.Lexeme, Pos: p.cur.Pos}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Is("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, err := p.parseAttrValue()
			if err != nil {
				return nil, err
			}
			attr.Value = v
		} else {
			attr.Value = AttrValue{Literal: value.Bool(true)}
		}
		el.Attrs = append(el.Attrs, attr)
	}

	if p.cur.Is("/>") {
		el.SelfClosing = true
		return el, p.advance()
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}

	children, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	el.Children = children

	closing := "</" + el.Name + ">"
	if !p.cur.Is("</") {
		return nil, p.unexpected(closing)
	}
	closePos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokenIdent {
		return nil, p.unexpected("element name")
	}
	if p.cur.Lexeme != el.Name {
		return nil, &ParseError{Kind: MismatchedTag, Expected: el.Name, Found: p.cur.Lexeme, Pos: closePos}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return el, p.expect(">")
}

func (p *Parser) parseAttrValue() (AttrValue, error) {
	tok := p.cur
	var v AttrValue
	switch {
	case tok.Kind == TokenString:
		v.Literal = value.String(Unescape(tok.Value))
	case tok.Kind == TokenNumber:
		n, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return v, &LexError{Kind: InvalidNumber, Pos: tok.Pos, Text: tok.Lexeme}
		}
		v.Literal = value.Number(n)
	case tok.Kind == TokenIdent:
		switch tok.Lexeme {
		case "true":
			v.Literal = value.Bool(true)
		case "false":
			v.Literal = value.Bool(false)
		default:
			v.Literal = value.String(tok.Lexeme)
		}
	case tok.Is("{{"):
		if err := p.advance(); err != nil {
			return v, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return v, err
		}
		v.Expr = e
		return v, p.expect("}}")
	default:
		return v, p.unexpected("attribute value")
	}
	return v, p.advance()
}

func (p *Parser) parseInterpolation() (*Text, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Is("}}") {
		return nil, &ParseError{Kind: InvalidInterpolation, Found: "empty {{ }}", Pos: pos}
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect("}}"); err != nil {
		return nil, err
	}
	return &Text{Segments: []Segment{{Expr: e}}, Pos: pos}, nil
}

// parseTextString splits a markup string into literal runs and {{ }}
// interpolations.
func (p *Parser) parseTextString(tok Token) (*Text, error) {
	raw := tok.Value
	t := &Text{Pos: tok.Pos}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.Segments = append(t.Segments, Segment{Literal: Unescape(lit.String())})
			lit.Reset()
		}
	}
	for i := 0; i < len(raw); {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			lit.WriteString(raw[i : i+2])
			i += 2
		case strings.HasPrefix(raw[i:], "{{"):
			at := advancePos(tok.Pos, tok.Lexeme[:1+i])
			end := interpolationEnd(raw, i+2)
			if end < 0 {
				return nil, &ParseError{Kind: InvalidInterpolation, Found: "unclosed {{", Pos: at}
			}
			flush()
			e, err := p.parseSubExpr(raw[i+2:end], advancePos(at, "{{"))
			if err != nil {
				return nil, err
			}
			t.Segments = append(t.Segments, Segment{Expr: e})
			i = end + 2
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return t, nil
}

// interpolationEnd returns the index of the "}}" closing an interpolation
// that starts at i, skipping quoted strings.
func interpolationEnd(raw string, i int) int {
	for i < len(raw) {
		switch c := raw[i]; {
		case strings.HasPrefix(raw[i:], "}}"):
			return i
		case c == '"' || c == '\'':
			i++
			for i < len(raw) && raw[i] != c {
				if raw[i] == '\\' {
					i++
				}
				i++
			}
			i++
		default:
			i++
		}
	}
	return -1
}

func advancePos(pos Position, s string) Position {
	for _, r := range s {
		pos.Offset += utf8.RuneLen(r)
		if r == '\n' {
			pos.Line++
			pos.Col = 1
		} else {
			pos.Col++
		}
	}
	return pos
}

func (p *Parser) parseSubExpr(src string, at Position) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Kind: InvalidInterpolation, Found: "empty {{ }}", Pos: at}
	}
	sub := &Parser{lex: newExprLexer(src, at), depth: p.depth, maxDepth: p.maxDepth}
	if err := sub.init(); err != nil {
		return nil, err
	}
	e, err := sub.parseExpr()
	if err != nil {
		return nil, err
	}
	if sub.cur.Kind != TokenEOF {
		return nil, &ParseError{Kind: InvalidInterpolation, Expected: "}}", Found: sub.cur.String(), Pos: sub.cur.Pos}
	}
	return e, nil
}

// closeBlock consumes "%}" or "-%}".
func (p *Parser) closeBlock() error {
	if !p.cur.Is("%}") && !p.cur.Is("-%}") {
		return p.unexpected(`"%}"`)
	}
	trim := p.cur.Lexeme == "-%}"
	if err := p.advance(); err != nil {
		return err
	}
	p.trimNext = trim
	return nil
}

func (p *Parser) requireEndOrElse() error {
	if p.atBlockTag("else", "end") {
		return nil
	}
	return p.unexpected("{% end %}")
}

func (p *Parser) consumeEnd() error {
	if !p.atBlockTag("end") {
		return p.unexpected("{% end %}")
	}
	if err := p.advance(); err != nil {
		return err
	}
	if err := p.advance(); err != nil {
		return err
	}
	return p.closeBlock()
}

func (p *Parser) parseIf() (*If, error) {
	pos := p.cur.Pos
	if err := p.enter(pos); err != nil {
		return nil, err
	}
	defer p.leave()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseIfTail(pos)
}

// parseIfTail parses from the condition onwards. An "else if" recurses and
// the innermost If consumes the shared {% end %}.
func (p *Parser) parseIfTail(pos Position) (*If, error) {
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	n := &If{Cond: cond, Pos: pos}
	if n.Then, err = p.parseNodes(); err != nil {
		return nil, err
	}
	if err := p.requireEndOrElse(); err != nil {
		return nil, err
	}
	if p.peek.Is("end") {
		return n, p.consumeEnd()
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Is("if") {
		elsePos := p.cur.Pos
		if err := p.enter(elsePos); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		nested, err := p.parseIfTail(elsePos)
		if err != nil {
			return nil, err
		}
		n.Else = []Node{nested}
		return n, nil
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	if n.Else, err = p.parseNodes(); err != nil {
		return nil, err
	}
	return n, p.consumeEnd()
}

func (p *Parser) parseFor() (*For, error) {
	n := &For{Pos: p.cur.Pos}
	if err := p.enter(n.Pos); err != nil {
		return nil, err
	}
	defer p.leave()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokenIdent {
		return nil, p.unexpected("loop variable")
	}
	n.Binding = p.cur.Lexeme
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect("in"); err != nil {
		return nil, err
	}
	var err error
	if n.Collection, err = p.parseExpr(); err != nil {
		return nil, err
	}
	if p.cur.Is("key") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if n.Key, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if err := p.closeBlock(); err != nil {
		return nil, err
	}
	if n.Body, err = p.parseNodes(); err != nil {
		return nil, err
	}
	return n, p.consumeEnd()
}

var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (p *Parser) parseExpr() (Expr, error) {
	if err := p.enter(p.cur.Pos); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur
		prec, ok := binaryPrec[op.Lexeme]
		if op.Kind != TokenPunct || !ok || prec < minPrec {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.Lexeme, L: left, R: right, Pos: op.Pos}
	}
}

func (p *Parser) parseUnary() (Expr, error) {
	if !p.cur.Is("!") && !p.cur.Is("-") {
		return p.parsePrimary()
	}
	op := p.cur
	if err := p.enter(op.Pos); err != nil {
		return nil, err
	}
	defer p.leave()
	if err := p.advance(); err != nil {
		return nil, err
	}
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Unary{Op: op.Lexeme, X: x, Pos: op.Pos}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.cur
	switch {
	case tok.Kind == TokenNumber:
		n, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &LexError{Kind: InvalidNumber, Pos: tok.Pos, Text: tok.Lexeme}
		}
		return &Literal{Value: value.Number(n), Pos: tok.Pos}, p.advance()
	case tok.Kind == TokenString:
		return &Literal{Value: value.String(Unescape(tok.Value)), Pos: tok.Pos}, p.advance()
	case tok.Is("true"):
		return &Literal{Value: value.Bool(true), Pos: tok.Pos}, p.advance()
	case tok.Is("false"):
		return &Literal{Value: value.Bool(false), Pos: tok.Pos}, p.advance()
	case tok.Is("null"):
		return &Literal{Value: value.Undefined, Pos: tok.Pos}, p.advance()
	case tok.Is("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case tok.Kind == TokenIdent:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Is("(") {
			return p.parseCall(tok)
		}
		return p.parsePath(tok)
	}
	return nil, p.unexpected("expression")
}

func (p *Parser) parseCall(name Token) (Expr, error) {
	if _, ok := builtins[name.Lexeme]; !ok {
		return nil, &ParseError{Kind: UnknownFunction, Found: name.Lexeme, Pos: name.Pos}
	}
	call := &Call{Func: name.Lexeme, Pos: name.Pos}
	if err := p.advance(); err != nil {
		return nil, err
	}
	for !p.cur.Is(")") {
		if len(call.Args) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	return call, p.advance()
}

func (p *Parser) parsePath(root Token) (Expr, error) {
	path := &PathExpr{Root: root.Lexeme, Pos: root.Pos}
	for {
		switch {
		case p.cur.Is("."):
			if err := p.advance(); err != nil {
				return nil, err
			}
			switch p.cur.Kind {
			case TokenIdent, TokenKeyword, TokenNumber:
			default:
				return nil, p.unexpected("field name or index")
			}
			path.Steps = append(path.Steps, PathStep{Name: p.cur.Lexeme})
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.cur.Is("["):
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			path.Steps = append(path.Steps, PathStep{Index: idx})
		default:
			return path, nil
		}
	}
}
