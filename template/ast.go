package template

import "github.com/kungfusheep/loom/value"

// Node is a template AST node: *Document, *Element, *Text, *If or *For.
type Node interface {
	Position() Position
	node()
}

// Document is the implicit root container.
type Document struct {
	Children []Node
}

// Element is a tag with ordered attributes and children.
type Element struct {
	Name        string
	Attrs       []Attr
	Children    []Node
	SelfClosing bool
	Pos         Position
}

// Attr is one key=value pair on an element, in source order.
type Attr struct {
	Key   string
	Value AttrValue
	Pos   Position
}

// AttrValue is either a literal or an expression. Expr is nil for literals.
type AttrValue struct {
	Literal value.Value
	Expr    Expr
}

// Text is renderable content: literal runs interleaved with interpolations.
type Text struct {
	Segments []Segment
	Pos      Position
}

// Segment is a literal run, or an expression when Expr is non-nil.
type Segment struct {
	Literal string
	Expr    Expr
}

// If renders Then when Cond is truthy and Else otherwise. "else if" chains
// are nested Ifs as the sole node of Else.
type If struct {
	Cond Expr
	Then []Node
	Else []Node
	Pos  Position
}

// For renders Body once per element of Collection with Binding in scope.
// Key, when set, identifies items across rebinds.
type For struct {
	Binding    string
	Collection Expr
	Key        Expr
	Body       []Node
	Pos        Position
}

func (d *Document) Position() Position { return Position{Line: 1, Col: 1} }
func (e *Element) Position() Position  { return e.Pos }
func (t *Text) Position() Position     { return t.Pos }
func (n *If) Position() Position       { return n.Pos }
func (n *For) Position() Position      { return n.Pos }

func (*Document) node() {}
func (*Element) node()  {}
func (*Text) node()     {}
func (*If) node()       {}
func (*For) node()      {}

// Attr returns the attribute named key.
func (e *Element) Attr(key string) (AttrValue, bool) {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return AttrValue{}, false
}

// Expr is an expression node.
type Expr interface {
	Position() Position
	expr()
}

// PathExpr reads state or a loop binding: root followed by .name or [expr]
// steps.
type PathExpr struct {
	Root  string
	Steps []PathStep
	Pos   Position
}

// PathStep is .Name, or [Index] when Index is non-nil.
type PathStep struct {
	Name  string
	Index Expr
}

type Literal struct {
	Value value.Value
	Pos   Position
}

type Unary struct {
	Op  string
	X   Expr
	Pos Position
}

type Binary struct {
	Op   string
	L, R Expr
	Pos  Position
}

// Call invokes a builtin.
type Call struct {
	Func string
	Args []Expr
	Pos  Position
}

func (e *PathExpr) Position() Position { return e.Pos }
func (e *Literal) Position() Position  { return e.Pos }
func (e *Unary) Position() Position    { return e.Pos }
func (e *Binary) Position() Position   { return e.Pos }
func (e *Call) Position() Position     { return e.Pos }

func (*PathExpr) expr() {}
func (*Literal) expr()  {}
func (*Unary) expr()    {}
func (*Binary) expr()   {}
func (*Call) expr()     {}

// Walk calls fn for n and each node below it, depth first, until fn returns
// false.
func Walk(n Node, fn func(Node) bool) bool {
	if !fn(n) {
		return false
	}
	var kids [][]Node
	switch t := n.(type) {
	case *Document:
		kids = [][]Node{t.Children}
	case *Element:
		kids = [][]Node{t.Children}
	case *If:
		kids = [][]Node{t.Then, t.Else}
	case *For:
		kids = [][]Node{t.Body}
	}
	for _, list := range kids {
		for _, c := range list {
			if !Walk(c, fn) {
				return false
			}
		}
	}
	return true
}
