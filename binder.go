package loom

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kungfusheep/loom/template"
	"github.com/kungfusheep/loom/value"
)

// BindErrorKind classifies a bind failure.
type BindErrorKind uint8

const (
	UnknownKind      BindErrorKind = iota // element name is not a widget kind
	InvalidAttribute                      // unknown attribute or bad value
	NotAccepted                           // parent kind cannot hold this kind
)

func (k BindErrorKind) String() string {
	switch k {
	case UnknownKind:
		return "unknown widget"
	case InvalidAttribute:
		return "invalid attribute"
	case NotAccepted:
		return "not accepted"
	}
	return fmt.Sprintf("BindErrorKind(%d)", uint8(k))
}

// BindError is a widget that could not be built. The widget renders as a
// placeholder and the rest of the tree carries on.
type BindError struct {
	Kind    BindErrorKind
	Element string
	Attr    string
	Pos     template.Position
	Err     error
}

func (e *BindError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: <%s>: %s", e.Pos, e.Element, e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *BindError) Unwrap() error { return e.Err }

// TreePatch lists the widgets a bind or rebind touched.
type TreePatch struct {
	Created []WidgetID
	Removed []WidgetID
	Moved   []WidgetID
	Updated []WidgetID
}

// Empty reports whether nothing changed.
func (p TreePatch) Empty() bool {
	return len(p.Created) == 0 && len(p.Removed) == 0 && len(p.Moved) == 0 && len(p.Updated) == 0
}

// normalize drops duplicates and entries superseded by a removal or
// creation in the same pass.
func (p *TreePatch) normalize() {
	removed := make(map[WidgetID]bool, len(p.Removed))
	for _, id := range p.Removed {
		removed[id] = true
	}
	created := make(map[WidgetID]bool, len(p.Created))
	for _, id := range p.Created {
		created[id] = true
	}
	keep := func(ids []WidgetID, drop func(WidgetID) bool) []WidgetID {
		seen := make(map[WidgetID]bool, len(ids))
		out := ids[:0]
		for _, id := range ids {
			if !seen[id] && !drop(id) {
				seen[id] = true
				out = append(out, id)
			}
		}
		return out
	}
	p.Created = keep(p.Created, func(id WidgetID) bool { return removed[id] })
	p.Moved = keep(p.Moved, func(id WidgetID) bool { return removed[id] || created[id] })
	p.Updated = keep(p.Updated, func(id WidgetID) bool { return removed[id] || created[id] })
	p.Removed = keep(p.Removed, func(WidgetID) bool { return false })
}

// Tree is a template bound to state: the widget arena plus, for every
// template node that produced output, the paths its expressions last read.
type Tree struct {
	doc   *template.Document
	state value.Getter
	arena *Arena
	root  *boundNode
	cfg   Config
	log   *log.Logger
}

// boundNode tracks one template node under one scope.
type boundNode struct {
	ast    template.Node
	scope  *template.Scope
	parent WidgetID
	deps   []string

	// element and text nodes
	widget WidgetID
	kind   Kind

	// element children, or the live branch of an if
	children []*boundNode
	branch   int

	// for loops
	items []*forItem
	keyed bool
	bound bool

	lastErr string
}

const (
	unbound = iota - 2
	noBranch
	thenBranch
	elseBranch
)

type forItem struct {
	key   string
	val   value.Value
	path  string
	scope *template.Scope
	nodes []*boundNode
}

// Bind builds the widget tree for doc from scratch.
func Bind(doc *template.Document, state value.Getter, cfg Config) (*Tree, error) {
	if doc == nil {
		return nil, errors.New("bind: nil document")
	}
	if state == nil {
		return nil, errors.New("bind: nil state")
	}
	t := &Tree{doc: doc, state: state, arena: NewArena(), cfg: cfg, log: cfg.logger()}
	root := t.arena.Alloc(KindDocument, "")
	t.root = &boundNode{ast: doc, scope: template.NewScope(state), widget: root.ID, kind: KindDocument}
	var p TreePatch
	t.root.children = t.bindNodes(doc.Children, t.root.scope, root, &p)
	t.arena.SetChildren(root.ID, flatten(t.root.children))
	return t, nil
}

// Root returns the document widget.
func (t *Tree) Root() WidgetID {
	return t.root.widget
}

// Arena returns the arena holding the tree's widgets.
func (t *Tree) Arena() *Arena {
	return t.arena
}

// Widget returns the widget for id, or nil.
func (t *Tree) Widget(id WidgetID) *Widget {
	return t.arena.Get(id)
}

// Document returns the template the tree was bound from.
func (t *Tree) Document() *template.Document {
	return t.doc
}

// Dump renders the widget tree one widget per line, for debugging.
func (t *Tree) Dump() string {
	var b strings.Builder
	var walk func(id WidgetID, depth int)
	walk = func(id WidgetID, depth int) {
		w := t.arena.Get(id)
		if w == nil {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(w.Kind.String())
		if w.Content != "" {
			fmt.Fprintf(&b, " %q", w.Content)
		}
		fmt.Fprintf(&b, " %s\n", w.Rect)
		for _, c := range w.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root(), 0)
	return b.String()
}

func (t *Tree) report(b *boundNode, err error) {
	msg := err.Error()
	if b.lastErr == msg {
		return
	}
	b.lastErr = msg
	t.log.Printf("loom: %v", err)
	if t.cfg.Reporter != nil {
		t.cfg.Reporter(err)
	}
}

func (t *Tree) defect(err error) {
	t.log.Printf("loom: %v", err)
	if t.cfg.Reporter != nil {
		t.cfg.Reporter(err)
	}
}

func (t *Tree) bindNodes(nodes []template.Node, scope *template.Scope, parent *Widget, p *TreePatch) []*boundNode {
	out := make([]*boundNode, 0, len(nodes))
	for _, n := range nodes {
		if b := t.bindNode(n, scope, parent, p); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (t *Tree) bindNode(n template.Node, scope *template.Scope, parent *Widget, p *TreePatch) *boundNode {
	b := &boundNode{ast: n, scope: scope, parent: parent.ID, branch: unbound}
	switch n := n.(type) {
	case *template.Element:
		w := t.alloc(b, KindPlaceholder, n.Name, parent, p)
		kind, attrs, deps, err := t.evalElement(n, scope, parent.Kind)
		b.kind, b.deps = kind, deps
		if err != nil {
			t.placeholder(b, w, err)
			return b
		}
		w.Kind, w.Attrs = kind, attrs
		b.children = t.bindNodes(n.Children, scope, w, p)
		t.arena.SetChildren(w.ID, flatten(b.children))
	case *template.Text:
		b.kind = KindText
		if inlineKinds.has(parent.Kind) {
			b.kind = KindSpan
		}
		w := t.alloc(b, b.kind, "", parent, p)
		content, deps, err := t.evalText(n, b.kind, scope, parent.Kind)
		b.deps = deps
		if err != nil {
			t.placeholder(b, w, err)
			return b
		}
		w.Content = content
	case *template.If:
		t.syncIf(b, nil, true, p)
	case *template.For:
		t.syncFor(b, nil, true, p)
	default:
		return nil
	}
	return b
}

func (t *Tree) alloc(b *boundNode, kind Kind, name string, parent *Widget, p *TreePatch) *Widget {
	w := t.arena.Alloc(kind, name)
	w.Attrs = kindAttrs(kind)
	w.Parent = parent.ID
	b.widget = w.ID
	p.Created = append(p.Created, w.ID)
	return w
}

// placeholder turns w into the stand-in for a failed bind.
func (t *Tree) placeholder(b *boundNode, w *Widget, err error) {
	w.Kind = KindPlaceholder
	w.Attrs = defaultAttrs()
	w.Content = ""
	w.Err = err
	t.report(b, err)
}

// evalElement resolves an element's kind and attributes. On failure the
// returned deps still cover every path read, so a later fix is noticed.
func (t *Tree) evalElement(e *template.Element, scope *template.Scope, parentKind Kind) (Kind, Attrs, []string, error) {
	kind, ok := LookupKind(e.Name)
	if !ok {
		return KindPlaceholder, Attrs{}, nil, &BindError{Kind: UnknownKind, Element: e.Name, Pos: e.Pos}
	}
	if !behaviorOf(parentKind).accepts(kind) {
		return kind, Attrs{}, nil, &BindError{Kind: NotAccepted, Element: e.Name, Pos: e.Pos, Err: fmt.Errorf("%s cannot contain %s", parentKind, kind)}
	}
	attrs := kindAttrs(kind)
	var deps []string
	for _, a := range e.Attrs {
		v := a.Value.Literal
		if a.Value.Expr != nil {
			var d []string
			var err error
			v, d, err = template.EvalDeps(a.Value.Expr, scope)
			deps = mergeDeps(deps, d)
			if err != nil {
				return kind, attrs, deps, err
			}
		}
		if err := applyAttr(&attrs, kind, a.Key, v); err != nil {
			return kind, attrs, deps, &BindError{Kind: InvalidAttribute, Element: e.Name, Attr: a.Key, Pos: a.Pos, Err: err}
		}
	}
	return kind, attrs, deps, nil
}

// evalText renders a text node's segments. Undefined values render empty.
func (t *Tree) evalText(n *template.Text, kind Kind, scope *template.Scope, parentKind Kind) (string, []string, error) {
	if !behaviorOf(parentKind).accepts(kind) {
		return "", nil, &BindError{Kind: NotAccepted, Element: "text", Pos: n.Pos, Err: fmt.Errorf("%s cannot contain text", parentKind)}
	}
	var sb strings.Builder
	var deps []string
	for _, seg := range n.Segments {
		if seg.Expr == nil {
			sb.WriteString(seg.Literal)
			continue
		}
		v, d, err := template.EvalDeps(seg.Expr, scope)
		deps = mergeDeps(deps, d)
		if err != nil {
			return "", deps, err
		}
		sb.WriteString(v.Display())
	}
	return sanitize(sb.String()), deps, nil
}

func mergeDeps(into, from []string) []string {
	for _, d := range from {
		dup := false
		for _, e := range into {
			if e == d {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, d)
		}
	}
	return into
}

// flatten returns the widgets a list of bound nodes currently produces, in
// order.
func flatten(nodes []*boundNode) []WidgetID {
	var out []WidgetID
	for _, b := range nodes {
		out = b.appendWidgets(out)
	}
	return out
}

func (b *boundNode) appendWidgets(out []WidgetID) []WidgetID {
	switch b.ast.(type) {
	case *template.Element, *template.Text:
		return append(out, b.widget)
	case *template.For:
		for _, it := range b.items {
			for _, c := range it.nodes {
				out = c.appendWidgets(out)
			}
		}
	default:
		for _, c := range b.children {
			out = c.appendWidgets(out)
		}
	}
	return out
}

// removeNodes frees every widget produced by nodes.
func (t *Tree) removeNodes(nodes []*boundNode, p *TreePatch) {
	for _, id := range flatten(nodes) {
		ids, err := t.arena.RemoveSubtree(id)
		if err != nil {
			t.defect(err)
			continue
		}
		p.Removed = append(p.Removed, ids...)
	}
}
