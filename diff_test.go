package loom

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func randomBuffer(rng *rand.Rand, w, h int) *Buffer {
	buf := NewBuffer(w, h)
	bold := DefaultStyle()
	bold.Attr = AttrBold
	styles := []Style{DefaultStyle(), bold, DefaultStyle().Foreground(BasicColor(2))}
	for y := range h {
		for x := range w {
			if rng.IntN(3) == 0 {
				buf.Set(x, y, NewCell(rune('a'+rng.IntN(4)), styles[rng.IntN(len(styles))]))
			}
		}
	}
	return buf
}

func TestDiff(t *testing.T) {
	t.Run("ApplyReproduces", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(3, 5))
		for range 200 {
			w, h := 1+rng.IntN(12), 1+rng.IntN(6)
			a, b := randomBuffer(rng, w, h), randomBuffer(rng, w, h)
			got := a.Clone()
			Apply(got, Diff(a, b))
			if !got.Equal(b) {
				t.Fatalf("apply(diff(a, b)) != b\na:\n%s\nb:\n%s\ngot:\n%s", a, b, got)
			}
		}
	})

	t.Run("Identical", func(t *testing.T) {
		a := randomBuffer(rand.New(rand.NewPCG(1, 1)), 8, 4)
		if p := Diff(a, a.Clone()); len(p) != 0 {
			t.Errorf("diff of identical buffers = %v", p)
		}
	})

	t.Run("RowMajor", func(t *testing.T) {
		a, b := NewBuffer(3, 2), NewBuffer(3, 2)
		b.Set(2, 1, NewCell('z', DefaultStyle()))
		b.Set(0, 1, NewCell('y', DefaultStyle()))
		b.Set(1, 0, NewCell('x', DefaultStyle()))
		want := []Patch{
			{X: 1, Y: 0, Cell: NewCell('x', DefaultStyle())},
			{X: 0, Y: 1, Cell: NewCell('y', DefaultStyle())},
			{X: 2, Y: 1, Cell: NewCell('z', DefaultStyle())},
		}
		if diff := cmp.Diff(want, Diff(a, b)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("StyleOnlyChange", func(t *testing.T) {
		a, b := NewBuffer(2, 1), NewBuffer(2, 1)
		b.Set(1, 0, NewCell(' ', DefaultStyle().Background(BasicColor(4))))
		if p := Diff(a, b); len(p) != 1 || p[0].X != 1 {
			t.Errorf("patches = %v", p)
		}
	})

	t.Run("FullRepaint", func(t *testing.T) {
		cur := NewBuffer(3, 2)
		if got := len(Diff(nil, cur)); got != 6 {
			t.Errorf("diff against nil = %d patches, want 6", got)
		}
		if got := len(Diff(NewBuffer(2, 2), cur)); got != 6 {
			t.Errorf("diff against another size = %d patches, want 6", got)
		}
	})

	t.Run("ApplyIgnoresOutside", func(t *testing.T) {
		buf := NewBuffer(2, 2)
		Apply(buf, []Patch{{X: 5, Y: 0, Cell: NewCell('x', DefaultStyle())}, {X: -1, Y: 1}})
		if !buf.Equal(NewBuffer(2, 2)) {
			t.Errorf("buffer changed: %q", buf.String())
		}
	})
}
