package loom

import "testing"

func TestBuffer(t *testing.T) {
	t.Run("NewBuffer", func(t *testing.T) {
		buf := NewBuffer(80, 24)
		if buf.Width() != 80 || buf.Height() != 24 {
			t.Errorf("expected 80x24, got %dx%d", buf.Width(), buf.Height())
		}

		// All cells should be empty
		for y := 0; y < buf.Height(); y++ {
			for x := 0; x < buf.Width(); x++ {
				if c := buf.Get(x, y); c != EmptyCell() {
					t.Fatalf("expected empty cell at (%d,%d), got %+v", x, y, c)
				}
			}
		}
	})

	t.Run("NegativeSize", func(t *testing.T) {
		buf := NewBuffer(-3, 2)
		if buf.Size() != (Size{Width: 0, Height: 2}) {
			t.Errorf("size = %+v", buf.Size())
		}
		buf.Set(0, 0, NewCell('x', DefaultStyle()))
		if got := buf.StringTrimmed(); got != "" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("InBounds", func(t *testing.T) {
		buf := NewBuffer(10, 10)

		tests := []struct {
			x, y   int
			expect bool
		}{
			{0, 0, true},
			{9, 9, true},
			{-1, 0, false},
			{0, -1, false},
			{10, 0, false},
			{0, 10, false},
		}

		for _, tt := range tests {
			got := buf.InBounds(tt.x, tt.y)
			if got != tt.expect {
				t.Errorf("InBounds(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.expect)
			}
		}
	})

	t.Run("SetGet", func(t *testing.T) {
		buf := NewBuffer(10, 10)
		cell := NewCell('X', DefaultStyle().Foreground(BasicColor(1)))

		buf.Set(5, 5, cell)
		if got := buf.Get(5, 5); got != cell {
			t.Errorf("got %+v, want %+v", got, cell)
		}

		// Out of bounds should return empty cell
		if oob := buf.Get(-1, -1); oob != EmptyCell() {
			t.Error("expected empty cell for out of bounds")
		}
		buf.Set(10, 0, cell)
	})

	t.Run("WideGlyph", func(t *testing.T) {
		buf := NewBuffer(4, 1)
		buf.setWide(0, 0, '世', DefaultStyle())
		if !buf.Get(1, 0).Continuation() {
			t.Fatal("expected continuation cell after wide glyph")
		}
		if got := buf.GetLine(0); got != "世" {
			t.Errorf("line = %q", got)
		}

		// overwriting the continuation blanks the head
		buf.Set(1, 0, NewCell('x', DefaultStyle()))
		if got := buf.GetLine(0); got != " x" {
			t.Errorf("after overwriting tail: %q", got)
		}

		// overwriting the head blanks the continuation
		buf.setWide(2, 0, '界', DefaultStyle())
		buf.Set(2, 0, NewCell('y', DefaultStyle()))
		if got := buf.GetLine(0); got != " xy" {
			t.Errorf("after overwriting head: %q", got)
		}

		// no room for the second half
		buf.setWide(3, 0, '界', DefaultStyle())
		if buf.Get(3, 0).Rune != ' ' {
			t.Errorf("wide glyph written at the last column")
		}
	})

	t.Run("FillRect", func(t *testing.T) {
		buf := NewBuffer(4, 3)
		buf.FillRect(Rect{X: 2, Y: 1, W: 5, H: 5}, NewCell('#', DefaultStyle()))
		want := "\n  ##\n  ##"
		if got := buf.StringTrimmed(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("Resize", func(t *testing.T) {
		buf := NewBuffer(3, 2)
		buf.Set(0, 0, NewCell('a', DefaultStyle()))
		buf.Set(2, 1, NewCell('b', DefaultStyle()))
		buf.setWide(0, 1, '世', DefaultStyle())

		buf.Resize(1, 2)
		if got := buf.StringTrimmed(); got != "a" {
			t.Errorf("shrunk buffer = %q", got)
		}

		buf.Resize(4, 3)
		if buf.Size() != (Size{Width: 4, Height: 3}) {
			t.Errorf("size = %+v", buf.Size())
		}
		if buf.Get(0, 0).Rune != 'a' {
			t.Errorf("content lost on grow")
		}
	})

	t.Run("EqualClone", func(t *testing.T) {
		a := NewBuffer(3, 3)
		a.Set(1, 1, NewCell('z', DefaultStyle()))
		b := a.Clone()
		if !a.Equal(b) {
			t.Fatal("clone differs")
		}
		b.Set(0, 0, NewCell('q', DefaultStyle()))
		if a.Equal(b) || a.Get(0, 0).Rune == 'q' {
			t.Error("clone shares cells with the original")
		}
		if a.Equal(NewBuffer(3, 2)) {
			t.Error("buffers of different size compare equal")
		}
	})
}

func TestBufferPool(t *testing.T) {
	var p BufferPool
	a := p.Next(Size{Width: 3, Height: 1})
	a.Set(0, 0, NewCell('a', DefaultStyle()))
	b := p.Next(Size{Width: 3, Height: 1})
	if a == b {
		t.Fatal("consecutive buffers are the same")
	}
	if a.Get(0, 0).Rune != 'a' {
		t.Error("previous frame was cleared")
	}
	if p.Current() != b {
		t.Error("Current is not the last buffer handed out")
	}

	again := p.Next(Size{Width: 2, Height: 2})
	if again != a {
		t.Error("buffers are not reused")
	}
	if again.Size() != (Size{Width: 2, Height: 2}) || !again.Equal(NewBuffer(2, 2)) {
		t.Errorf("reused buffer not reset: %q", again.String())
	}
}
