package loom

import "fmt"

// Kind is the closed set of widget kinds.
type Kind uint8

const (
	KindDocument Kind = iota
	KindRow
	KindColumn
	KindExpand
	KindBorder
	KindPosition
	KindText
	KindSpan
	KindSpacer
	KindPlaceholder
)

var kindNames = map[string]Kind{
	"row":      KindRow,
	"column":   KindColumn,
	"expand":   KindExpand,
	"border":   KindBorder,
	"position": KindPosition,
	"text":     KindText,
	"span":     KindSpan,
	"spacer":   KindSpacer,
}

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindPlaceholder:
		return "placeholder"
	}
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// LookupKind maps an element name to its kind.
func LookupKind(name string) (Kind, bool) {
	k, ok := kindNames[name]
	return k, ok
}

// kindSet is a bit set of kinds.
type kindSet uint16

func kinds(ks ...Kind) kindSet {
	var s kindSet
	for _, k := range ks {
		s |= 1 << k
	}
	return s
}

func (s kindSet) has(k Kind) bool { return s&(1<<k) != 0 }

var (
	allKinds       = kinds(KindDocument, KindRow, KindColumn, KindExpand, KindBorder, KindPosition, KindText, KindSpan, KindSpacer, KindPlaceholder)
	containerKinds = kinds(KindDocument, KindRow, KindColumn, KindExpand, KindBorder, KindPosition)
	flowKinds      = kinds(KindDocument, KindRow, KindColumn)
	inlineKinds    = kinds(KindText, KindSpan)
)

// Widget is a node of the bound tree. Widgets are owned by an Arena and
// refer to each other by ID.
type Widget struct {
	ID       WidgetID
	Kind     Kind
	Name     string // element name as written; "" for implicit widgets
	Parent   WidgetID
	Children []WidgetID
	Attrs    Attrs
	// Content is the literal text of implicit text widgets and spans.
	Content string
	// Rect is sealed by Layout.
	Rect Rect
	// Err is the bind failure a placeholder stands in for.
	Err error
}

// Insets returns the cells the border and padding take from each side.
func (w *Widget) Insets() Edges {
	e := w.Attrs.Padding
	if w.Attrs.hasBorder() {
		e = e.Add(Uniform(1))
	}
	return e
}

// Inner returns the widget's rect minus its insets.
func (w *Widget) Inner() Rect {
	return w.Rect.Inset(w.Insets())
}

// behavior is the capability set each kind implements. Layout and paint only
// ever go through it, so a new kind needs a behavior and a kindNames entry.
type behavior interface {
	// accepts reports whether a child of kind k may be placed inside.
	accepts(k Kind) bool
	// measure returns the natural content size, excluding insets, when at
	// most maxW columns are available.
	measure(l *layouter, w *Widget, maxW int) Size
	// arrange seals the rects of w's children inside inner.
	arrange(l *layouter, w *Widget, inner Rect)
	// paint draws w itself; children are painted afterwards by the caller.
	paint(p *painter, w *Widget, st Style, clip Rect)
}

var behaviors = [...]behavior{
	KindDocument:    flow{vertical: true},
	KindRow:         flow{},
	KindColumn:      flow{vertical: true},
	KindExpand:      stack{},
	KindBorder:      stack{},
	KindPosition:    stack{},
	KindText:        textual{},
	KindSpan:        inline{},
	KindSpacer:      leaf{},
	KindPlaceholder: leaf{},
}

func behaviorOf(k Kind) behavior {
	return behaviors[k]
}
