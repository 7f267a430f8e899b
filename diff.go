package loom

// Patch is one changed cell of a frame.
type Patch struct {
	X, Y int
	Cell Cell
}

// Diff returns the cells of cur that differ from prev, in row-major order.
// A nil prev, or one of a different size, yields every cell of cur.
func Diff(prev, cur *Buffer) []Patch {
	full := prev == nil || prev.width != cur.width || prev.height != cur.height
	var out []Patch
	for y := 0; y < cur.height; y++ {
		row := y * cur.width
		for x := 0; x < cur.width; x++ {
			c := cur.cells[row+x]
			if full || prev.cells[row+x] != c {
				out = append(out, Patch{X: x, Y: y, Cell: c})
			}
		}
	}
	return out
}

// Apply replays patches onto buf. Patches outside buf are ignored.
func Apply(buf *Buffer, patches []Patch) {
	for _, p := range patches {
		if buf.InBounds(p.X, p.Y) {
			buf.cells[buf.index(p.X, p.Y)] = p.Cell
		}
	}
}
