package loom

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// LayoutError reports a broken tree invariant found during layout. It is a
// defect, not a template error.
type LayoutError struct {
	Widget WidgetID
	Msg    string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("layout %s: %s", e.Widget, e.Msg)
}

// Layout seals Rect on every widget of t. The document fills viewport and
// lays its children out as a column.
func Layout(t *Tree, viewport Size) error {
	root := t.arena.Get(t.Root())
	if root == nil {
		return &LayoutError{Widget: t.Root(), Msg: "tree has no root"}
	}
	l := newLayouter(t.arena)
	l.place(root, Rect{W: max(viewport.Width, 0), H: max(viewport.Height, 0)})
	return l.err
}

type natKey struct {
	id   WidgetID
	maxW int
}

type axisKey struct {
	id         WidgetID
	horizontal bool
}

// layouter carries one layout pass. natural sizes and resolved constraints
// are memoized per widget and width.
type layouter struct {
	arena    *Arena
	naturals map[natKey]Size
	resolved map[axisKey]Constraint
	err      error
}

func newLayouter(a *Arena) *layouter {
	return &layouter{
		arena:    a,
		naturals: make(map[natKey]Size),
		resolved: make(map[axisKey]Constraint),
	}
}

func (l *layouter) fail(id WidgetID, format string, args ...any) {
	if l.err == nil {
		l.err = &LayoutError{Widget: id, Msg: fmt.Sprintf(format, args...)}
	}
}

// children returns the live children of w, recording dangling IDs.
func (l *layouter) children(w *Widget) []*Widget {
	out := make([]*Widget, 0, len(w.Children))
	for _, id := range w.Children {
		c := l.arena.Get(id)
		if c == nil {
			l.fail(w.ID, "dangling child %s", id)
			continue
		}
		if c.Parent != w.ID {
			l.fail(c.ID, "parent is %s, listed by %s", c.Parent, w.ID)
		}
		out = append(out, c)
	}
	return out
}

// inFlow returns the children that take a slot in w's layout.
func (l *layouter) inFlow(w *Widget) []*Widget {
	var out []*Widget
	for _, c := range l.children(w) {
		if c.Attrs.Display != Exclude && c.Kind != KindPosition {
			out = append(out, c)
		}
	}
	return out
}

// natural returns the size w would take if unconstrained, with at most maxW
// columns to wrap into. It has no side effects.
func (l *layouter) natural(w *Widget, maxW int) Size {
	maxW = max(maxW, 0)
	key := natKey{w.ID, maxW}
	if s, ok := l.naturals[key]; ok {
		return s
	}
	in := w.Insets()
	s := behaviorOf(w.Kind).measure(l, w, max(maxW-in.Horizontal(), 0))
	s.Width += in.Horizontal()
	s.Height += in.Vertical()
	l.naturals[key] = s
	return s
}

// resolve returns c's constraint on one axis with Auto replaced.
func (l *layouter) resolve(c *Widget, horizontal bool) Constraint {
	con := c.Attrs.Height
	if horizontal {
		con = c.Attrs.Width
	}
	if con.Kind != Auto {
		return con
	}
	key := axisKey{c.ID, horizontal}
	if r, ok := l.resolved[key]; ok {
		return r
	}
	r := Constraint{Kind: Fit}
	switch {
	case (c.Kind == KindExpand || c.Kind == KindSpacer) && l.fills(c, horizontal):
		r = FillWeight(c.Attrs.Factor)
	case containerKinds.has(c.Kind):
		for _, ch := range l.inFlow(c) {
			if l.resolve(ch, horizontal).Kind == Fill {
				r = FillWeight(1)
				break
			}
		}
	}
	l.resolved[key] = r
	return r
}

// fills reports whether an expand or spacer fills the given axis.
func (l *layouter) fills(c *Widget, horizontal bool) bool {
	switch c.Attrs.Axis {
	case AxisBoth:
		return true
	case AxisHorizontal:
		return horizontal
	case AxisVertical:
		return !horizontal
	}
	p := l.arena.Get(c.Parent)
	if p == nil {
		return true
	}
	switch p.Kind {
	case KindRow:
		return horizontal
	case KindColumn, KindDocument:
		return !horizontal
	}
	return true
}

// extent sizes c along one axis within avail cells, clamped to avail.
// width is c's already-resolved width, used to measure heights.
func (l *layouter) extent(c *Widget, con Constraint, horizontal bool, avail, width int) int {
	var n int
	switch con.Kind {
	case Fixed:
		n = int(con.N)
	case Percent:
		n = int(math.Floor(con.N * float64(avail) / 100))
	case Fill:
		n = avail
	default:
		if horizontal {
			n = l.natural(c, avail).Width
		} else {
			n = l.natural(c, width).Height
		}
	}
	return min(max(n, 0), max(avail, 0))
}

// place seals r on w and arranges its subtree.
func (l *layouter) place(w *Widget, r Rect) {
	if r.W < 0 || r.H < 0 {
		l.fail(w.ID, "negative size %dx%d", r.W, r.H)
		r.W, r.H = max(r.W, 0), max(r.H, 0)
	}
	w.Rect = r
	behaviorOf(w.Kind).arrange(l, w, w.Inner())
}

// collapse gives w and its subtree a zero rect at the given origin.
func (l *layouter) collapse(w *Widget, x, y int) {
	w.Rect = Rect{X: x, Y: y}
	for _, c := range l.children(w) {
		l.collapse(c, x, y)
	}
}

// outOfFlow handles the children that take no slot: excluded ones collapse
// and position widgets anchor to inner.
func (l *layouter) outOfFlow(w *Widget, inner Rect) {
	for _, c := range l.children(w) {
		switch {
		case c.Attrs.Display == Exclude:
			l.collapse(c, inner.X, inner.Y)
		case c.Kind == KindPosition:
			l.anchor(c, inner)
		}
	}
}

// anchor places a position widget by its left/top/right/bottom offsets
// inside inner. Unanchored axes start at the inner origin.
func (l *layouter) anchor(c *Widget, inner Rect) {
	a := c.Attrs
	w := l.anchoredExtent(c, true, inner.W, 0, a.Left, a.Right)
	h := l.anchoredExtent(c, false, inner.H, w, a.Top, a.Bottom)
	x := anchorOffset(inner.W, w, a.Left, a.Right)
	y := anchorOffset(inner.H, h, a.Top, a.Bottom)
	l.place(c, Rect{X: inner.X + x, Y: inner.Y + y, W: w, H: h})
}

func (l *layouter) anchoredExtent(c *Widget, horizontal bool, avail, width int, lo, hi Offset) int {
	con := l.resolve(c, horizontal)
	if con.Kind == Fit && lo.Set && hi.Set && (horizontal && c.Attrs.Width.Kind == Auto || !horizontal && c.Attrs.Height.Kind == Auto) {
		return max(avail-lo.N-hi.N, 0)
	}
	return l.extent(c, con, horizontal, avail, width)
}

func anchorOffset(avail, size int, lo, hi Offset) int {
	switch {
	case lo.Set:
		return lo.N
	case hi.Set:
		return max(avail-hi.N-size, 0)
	}
	return 0
}

// distribute shares total among weights by the largest remainder method.
// Ties go to the lower index. The result always sums to total when any
// weight is positive. NaN and non-positive weights get nothing; infinite
// weights split the total between them.
func distribute(total int, weights []float64) []int {
	out := make([]int, len(weights))
	// scale by the largest weight so the sum stays finite
	top := 0.0
	for _, w := range weights {
		if w > top {
			top = w
		}
	}
	if total <= 0 || top == 0 {
		return out
	}
	scaled := make([]float64, len(weights))
	var sum float64
	for i, w := range weights {
		switch {
		case math.IsInf(top, 1):
			if math.IsInf(w, 1) {
				scaled[i] = 1
			}
		case w > 0:
			scaled[i] = w / top
		}
		sum += scaled[i]
	}
	weights = scaled
	type share struct {
		i    int
		frac float64
	}
	shares := make([]share, len(weights))
	used := 0
	for i, w := range weights {
		exact := float64(total) * w / sum
		out[i] = int(math.Floor(exact))
		used += out[i]
		shares[i] = share{i, exact - float64(out[i])}
	}
	slices.SortStableFunc(shares, func(a, b share) int { return cmp.Compare(b.frac, a.frac) })
	for k := 0; k < total-used && k < len(shares); k++ {
		out[shares[k].i]++
	}
	return out
}

func alignOffset(a Align, avail, size int) int {
	switch a {
	case AlignCenter:
		return max((avail-size)/2, 0)
	case AlignEnd:
		return max(avail-size, 0)
	}
	return 0
}

// flow lays children out in a line: a row horizontally, a column or the
// document vertically.
type flow struct {
	vertical bool
}

func (f flow) accepts(k Kind) bool { return k != KindSpan && k != KindDocument }

func (f flow) measure(l *layouter, w *Widget, maxW int) Size {
	kids := l.inFlow(w)
	var s Size
	if f.vertical {
		for _, c := range kids {
			cw := l.measureExtent(c, true, maxW, 0)
			s.Width = max(s.Width, cw)
			s.Height += l.measureExtent(c, false, maxW, cw)
		}
		s.Height += w.Attrs.Gap * max(len(kids)-1, 0)
		return s
	}
	left := maxW
	for _, c := range kids {
		cw := l.measureExtent(c, true, left, 0)
		left = max(left-cw, 0)
		s.Width += cw
		s.Height = max(s.Height, l.measureExtent(c, false, maxW, cw))
	}
	s.Width += w.Attrs.Gap * max(len(kids)-1, 0)
	return s
}

// measureExtent is a child's preferred size on one axis while its parent is
// being measured: fixed and percentage sizes as given, everything else at
// its natural size.
func (l *layouter) measureExtent(c *Widget, horizontal bool, avail, width int) int {
	con := c.Attrs.Height
	if horizontal {
		con = c.Attrs.Width
	}
	switch con.Kind {
	case Fixed:
		return int(con.N)
	case Percent:
		if horizontal {
			return int(math.Floor(con.N * float64(avail) / 100))
		}
	}
	if horizontal {
		return l.natural(c, avail).Width
	}
	return l.natural(c, width).Height
}

func (f flow) arrange(l *layouter, w *Widget, inner Rect) {
	l.outOfFlow(w, inner)
	kids := l.inFlow(w)
	if len(kids) == 0 {
		return
	}
	mainAvail, crossAvail := inner.W, inner.H
	if f.vertical {
		mainAvail, crossAvail = inner.H, inner.W
	}
	horizontalMain := !f.vertical

	// a column needs widths before heights so text can wrap
	cross := make([]int, len(kids))
	if f.vertical {
		for i, c := range kids {
			cross[i] = l.extent(c, l.resolve(c, true), true, crossAvail, 0)
		}
	}

	// a scrolled line is sized as if it were skip cells longer
	view := mainAvail
	mainAvail += w.Attrs.Scroll
	gaps := w.Attrs.Gap * (len(kids) - 1)
	remaining := max(mainAvail-gaps, 0)
	sizes := make([]int, len(kids))
	var fills []int
	var weights []float64
	for i, c := range kids {
		con := l.resolve(c, horizontalMain)
		if con.Kind == Fill {
			fills = append(fills, i)
			weights = append(weights, con.N)
			continue
		}
		sizes[i] = min(l.extent(c, con, horizontalMain, mainAvail, cross[i]), remaining)
		remaining -= sizes[i]
	}
	for j, n := range distribute(remaining, weights) {
		sizes[fills[j]] = n
	}

	if !f.vertical {
		for i, c := range kids {
			cross[i] = l.extent(c, l.resolve(c, false), false, crossAvail, sizes[i])
		}
	}

	// pos runs along the unscrolled line; the first skip cells of it are
	// out of view
	skip := w.Attrs.Scroll
	pos := 0
	for i, c := range kids {
		start, end := pos, pos+sizes[i]
		pos = end + w.Attrs.Gap
		if skip > 0 && end <= skip {
			l.collapse(c, inner.X, inner.Y)
			continue
		}
		start = max(start, skip)
		size := end - start
		at := start - skip
		if w.Attrs.Direction == Backward {
			at = max(view-at-size, 0)
		}
		across := alignOffset(w.Attrs.Align, crossAvail, cross[i])
		if f.vertical {
			l.place(c, Rect{X: inner.X + across, Y: inner.Y + at, W: cross[i], H: size})
		} else {
			l.place(c, Rect{X: inner.X + at, Y: inner.Y + across, W: size, H: cross[i]})
		}
	}
}

func (f flow) paint(p *painter, w *Widget, st Style, clip Rect) {
	p.box(w, st, clip)
}

// stack overlays its children in its inner rect: expand, border and
// position.
type stack struct{}

func (stack) accepts(k Kind) bool { return k != KindSpan && k != KindDocument }

func (stack) measure(l *layouter, w *Widget, maxW int) Size {
	var s Size
	for _, c := range l.inFlow(w) {
		cw := l.measureExtent(c, true, maxW, 0)
		s.Width = max(s.Width, cw)
		s.Height = max(s.Height, l.measureExtent(c, false, maxW, cw))
	}
	return s
}

func (stack) arrange(l *layouter, w *Widget, inner Rect) {
	l.outOfFlow(w, inner)
	for _, c := range l.inFlow(w) {
		cw := l.extent(c, l.resolve(c, true), true, inner.W, 0)
		ch := l.extent(c, l.resolve(c, false), false, inner.H, cw)
		l.place(c, Rect{
			X: inner.X + alignOffset(w.Attrs.Align, inner.W, cw),
			Y: inner.Y + alignOffset(w.Attrs.Align, inner.H, ch),
			W: cw,
			H: ch,
		})
	}
}

func (stack) paint(p *painter, w *Widget, st Style, clip Rect) {
	p.box(w, st, clip)
}

// textual is a text widget: its own content followed by its spans.
type textual struct{}

func (textual) accepts(k Kind) bool { return k == KindSpan || k == KindPlaceholder }

func (textual) measure(l *layouter, w *Widget, maxW int) Size {
	s, _ := textRuns(l.arena, w, Style{})
	var size Size
	for _, ln := range wrapText(s, maxW, w.Attrs.Wrap) {
		size.Width = max(size.Width, lineWidth(s, ln))
		size.Height++
	}
	if s == "" {
		size.Height = 0
	}
	return size
}

// arrange gives every span the text's inner rect; spans paint as part of
// the text.
func (textual) arrange(l *layouter, w *Widget, inner Rect) {
	var walk func(w *Widget)
	walk = func(w *Widget) {
		for _, c := range l.children(w) {
			c.Rect = inner
			walk(c)
		}
	}
	walk(w)
}

func (textual) paint(p *painter, w *Widget, st Style, clip Rect) {
	p.text(w, st, clip)
}

// inline is a span. It is measured, placed and painted by its text.
type inline struct{}

func (inline) accepts(k Kind) bool                  { return k == KindSpan || k == KindPlaceholder }
func (inline) measure(*layouter, *Widget, int) Size { return Size{} }
func (inline) arrange(*layouter, *Widget, Rect)     {}
func (inline) paint(*painter, *Widget, Style, Rect) {}

// leaf is a spacer or placeholder: no content, no children.
type leaf struct{}

func (leaf) accepts(Kind) bool                    { return false }
func (leaf) measure(*layouter, *Widget, int) Size { return Size{} }
func (leaf) arrange(*layouter, *Widget, Rect)     {}
func (leaf) paint(p *painter, w *Widget, st Style, clip Rect) {
	p.box(w, st, clip)
}
