package loom

import "fmt"

// Size is a width and height in cells.
type Size struct {
	Width, Height int
}

// Rect is an absolute rectangle in cell units. Width and height are never
// negative.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}

// Empty reports whether r covers no cells.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of r and o, or a zero-sized rect at r's
// origin when they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: r.X, Y: r.Y}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Inset shrinks r by the given edges, clamping at zero size.
func (r Rect) Inset(e Edges) Rect {
	r.X += e.Left
	r.Y += e.Top
	r.W = max(r.W-e.Left-e.Right, 0)
	r.H = max(r.H-e.Top-e.Bottom, 0)
	return r
}

// Edges are per-side cell counts used for padding and border insets.
type Edges struct {
	Top, Right, Bottom, Left int
}

// Add returns the side-wise sum of e and o.
func (e Edges) Add(o Edges) Edges {
	return Edges{e.Top + o.Top, e.Right + o.Right, e.Bottom + o.Bottom, e.Left + o.Left}
}

// Horizontal returns left plus right.
func (e Edges) Horizontal() int { return e.Left + e.Right }

// Vertical returns top plus bottom.
func (e Edges) Vertical() int { return e.Top + e.Bottom }

// Uniform returns edges of n on every side.
func Uniform(n int) Edges { return Edges{n, n, n, n} }
