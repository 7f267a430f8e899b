package loom

import (
	"sort"

	"github.com/mattn/go-runewidth"
)

// Paint draws t into buf, depth first with parents before children. Every
// widget is clipped to its rect intersected with its parent's clip.
func Paint(t *Tree, buf *Buffer) {
	root := t.arena.Get(t.Root())
	if root == nil {
		return
	}
	p := &painter{arena: t.arena, buf: buf}
	p.paint(root, DefaultStyle(), buf.Bounds())
}

type painter struct {
	arena *Arena
	buf   *Buffer
}

func (p *painter) paint(w *Widget, parent Style, clip Rect) {
	if w.Attrs.Display != Show {
		return
	}
	clip = clip.Intersect(w.Rect)
	st := w.Attrs.inherit(parent)
	behaviorOf(w.Kind).paint(p, w, st, clip)
	if w.Kind == KindText || clip.Empty() {
		return
	}
	for c := range p.arena.Children(w.ID) {
		p.paint(c, st, clip)
	}
}

// put draws r at (x, y) and returns its width. Glyphs not wholly inside clip
// are skipped. An unset background keeps whatever is already painted there.
func (p *painter) put(x, y int, r rune, st Style, clip Rect) int {
	w := runewidth.RuneWidth(r)
	if w == 0 || !clip.Contains(x, y) || !clip.Contains(x+w-1, y) {
		return w
	}
	if st.BG.IsDefault() {
		st.BG = p.buf.Get(x, y).Style.BG
	}
	if w == 2 {
		p.buf.setWide(x, y, r, st)
	} else {
		p.buf.Set(x, y, NewCell(r, st))
	}
	return w
}

// box fills a container's background when it sets one, then draws its
// border and title.
func (p *painter) box(w *Widget, st Style, clip Rect) {
	if !w.Attrs.Style.BG.IsDefault() {
		p.buf.FillRect(clip, NewCell(' ', st))
	}
	if !w.Attrs.hasBorder() || w.Rect.W < 2 || w.Rect.H < 2 {
		return
	}
	b, r := w.Attrs.Border, w.Rect
	right, bottom := r.X+r.W-1, r.Y+r.H-1
	for x := r.X + 1; x < right; x++ {
		p.put(x, r.Y, b.Horizontal, st, clip)
		p.put(x, bottom, b.Horizontal, st, clip)
	}
	for y := r.Y + 1; y < bottom; y++ {
		p.put(r.X, y, b.Vertical, st, clip)
		p.put(right, y, b.Vertical, st, clip)
	}
	p.put(r.X, r.Y, b.TopLeft, st, clip)
	p.put(right, r.Y, b.TopRight, st, clip)
	p.put(r.X, bottom, b.BottomLeft, st, clip)
	p.put(right, bottom, b.BottomRight, st, clip)

	if w.Attrs.Title != "" && r.W > 4 {
		// " title " sits on the top edge between the corners
		edge := Rect{X: r.X + 1, Y: r.Y, W: r.W - 2, H: 1}.Intersect(clip)
		x := r.X + 1
		for _, ch := range " " + w.Attrs.Title + " " {
			x += p.put(x, r.Y, ch, st, edge)
		}
	}
}

// text paints a text widget and its spans, wrapped to the inner width.
func (p *painter) text(w *Widget, st Style, clip Rect) {
	p.box(w, st, clip)
	inner := w.Inner()
	clip = clip.Intersect(inner)
	if clip.Empty() {
		return
	}
	s, runs := textRuns(p.arena, w, st)
	if len(runs) == 0 {
		return
	}
	for i, ln := range wrapText(s, inner.W, w.Attrs.Wrap) {
		y := inner.Y + i
		if y >= inner.Y+inner.H {
			break
		}
		x := inner.X + alignOffset(w.Attrs.TextAlign, inner.W, lineWidth(s, ln))
		for off, r := range s[ln.start:ln.end] {
			x += p.put(x, y, r, styleAt(runs, ln.start+off), clip)
		}
	}
}

// styleAt returns the style of the run covering byte offset i.
func styleAt(runs []run, i int) Style {
	k := sort.Search(len(runs), func(k int) bool { return runs[k].start > i }) - 1
	if k < 0 {
		k = 0
	}
	return runs[k].style
}
