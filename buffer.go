package loom

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Buffer is a 2D grid of cells representing a drawable surface.
type Buffer struct {
	cells  []Cell
	width  int
	height int
}

// NewBuffer creates a new buffer with the given dimensions.
func NewBuffer(width, height int) *Buffer {
	width, height = max(width, 0), max(height, 0)
	b := &Buffer{
		cells:  make([]Cell, width*height),
		width:  width,
		height: height,
	}
	b.Clear()
	return b
}

// Width returns the buffer width.
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the buffer height.
func (b *Buffer) Height() int {
	return b.height
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() Size {
	return Size{Width: b.width, Height: b.height}
}

// Bounds returns the rectangle covering the whole buffer.
func (b *Buffer) Bounds() Rect {
	return Rect{W: b.width, H: b.height}
}

// InBounds returns true if the given coordinates are within the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Buffer) index(x, y int) int {
	return y*b.width + x
}

// Get returns the cell at the given coordinates.
// Returns an empty cell if out of bounds.
func (b *Buffer) Get(x, y int) Cell {
	if !b.InBounds(x, y) {
		return EmptyCell()
	}
	return b.cells[b.index(x, y)]
}

// Set sets the cell at the given coordinates. Does nothing if out of bounds.
// Overwriting either half of a wide glyph blanks the other half, so the grid
// never holds an orphaned continuation cell.
func (b *Buffer) Set(x, y int, c Cell) {
	if !b.InBounds(x, y) {
		return
	}
	idx := b.index(x, y)
	old := b.cells[idx]
	if old.Continuation() && x > 0 {
		b.cells[idx-1].Rune = ' '
	}
	if !old.Continuation() && runewidth.RuneWidth(old.Rune) == 2 && x+1 < b.width && b.cells[idx+1].Continuation() {
		b.cells[idx+1].Rune = ' '
	}
	b.cells[idx] = c
}

// setWide writes a double-width glyph at x and its continuation at x+1.
func (b *Buffer) setWide(x, y int, r rune, style Style) {
	if !b.InBounds(x+1, y) {
		return
	}
	b.Set(x+1, y, NewCell(' ', style))
	b.Set(x, y, NewCell(r, style))
	b.cells[b.index(x+1, y)] = NewCell(0, style)
}

// Fill fills the entire buffer with the given cell.
func (b *Buffer) Fill(c Cell) {
	for i := range b.cells {
		b.cells[i] = c
	}
}

// Clear clears the buffer to empty cells with default style.
func (b *Buffer) Clear() {
	b.Fill(EmptyCell())
}

// FillRect fills the part of r inside the buffer with c.
func (b *Buffer) FillRect(r Rect, c Cell) {
	r = r.Intersect(b.Bounds())
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			b.Set(x, y, c)
		}
	}
}

// BorderStyle defines the characters used for drawing borders.
type BorderStyle struct {
	Horizontal  rune
	Vertical    rune
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
}

// Standard border styles.
var (
	BorderSingle  = BorderStyle{'─', '│', '┌', '┐', '└', '┘'}
	BorderRounded = BorderStyle{'─', '│', '╭', '╮', '╰', '╯'}
	BorderDouble  = BorderStyle{'═', '║', '╔', '╗', '╚', '╝'}
	BorderThick   = BorderStyle{'━', '┃', '┏', '┓', '┗', '┛'}
	BorderASCII   = BorderStyle{'-', '|', '+', '+', '+', '+'}
)

var borderNames = map[string]BorderStyle{
	"single":  BorderSingle,
	"rounded": BorderRounded,
	"double":  BorderDouble,
	"thick":   BorderThick,
	"ascii":   BorderASCII,
}

// Equal reports whether b and o have the same size and cells.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{cells: make([]Cell, len(b.cells)), width: b.width, height: b.height}
	copy(c.cells, b.cells)
	return c
}

// GetLine returns the content of a single line with trailing spaces removed.
func (b *Buffer) GetLine(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	var line strings.Builder
	for x := 0; x < b.width; x++ {
		r := b.cells[b.index(x, y)].Rune
		if r == 0 {
			continue
		}
		line.WriteRune(r)
	}
	return strings.TrimRight(line.String(), " ")
}

// String returns the buffer contents as a string (for testing/debugging).
// Each row is separated by a newline. Trailing spaces are preserved.
func (b *Buffer) String() string {
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if r := b.cells[b.index(x, y)].Rune; r != 0 {
				sb.WriteRune(r)
			}
		}
		if y < b.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// StringTrimmed returns the buffer contents with trailing spaces removed per
// line and trailing empty lines dropped.
func (b *Buffer) StringTrimmed() string {
	lines := make([]string, b.height)
	for y := range lines {
		lines[y] = b.GetLine(y)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// Resize resizes the buffer to new dimensions.
// Existing content is preserved where it fits.
func (b *Buffer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == b.width && height == b.height {
		return
	}
	next := NewBuffer(width, height)
	for y := 0; y < min(height, b.height); y++ {
		copy(next.cells[y*width:y*width+min(width, b.width)], b.cells[y*b.width:])
	}
	if width < b.width {
		// a wide glyph cut at the new right edge would leave half a glyph
		for y := 0; y < height && width > 0; y++ {
			last := &next.cells[y*width+width-1]
			if runewidth.RuneWidth(last.Rune) == 2 {
				last.Rune = ' '
			}
		}
	}
	*b = *next
}
