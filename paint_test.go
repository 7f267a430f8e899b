package loom

import (
	"testing"

	"github.com/kungfusheep/loom/value"
)

func TestPaint(t *testing.T) {
	t.Run("BackgroundInherited", func(t *testing.T) {
		tree := bindTree(t, `<column bg="blue" width=3><text>"a"</text></column>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 5, 1)
		for x := range 3 {
			if got := buf.Get(x, 0).Style.BG; got != BasicColor(4) {
				t.Errorf("cell %d background = %+v, want blue", x, got)
			}
		}
		if got := buf.Get(3, 0).Style.BG; !got.IsDefault() {
			t.Errorf("cell outside the column has background %+v", got)
		}
	})

	t.Run("ForegroundOverridesParent", func(t *testing.T) {
		tree := bindTree(t, `<column fg="red"><text>"a"<span fg="#00ff00" bold>"b"</span></text></column>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 3, 1)
		a, b := buf.Get(0, 0), buf.Get(1, 0)
		if a.Style.FG != BasicColor(1) || a.Style.Attr.Has(AttrBold) {
			t.Errorf("a style = %+v", a.Style)
		}
		if b.Style.FG != RGB(0, 255, 0) || !b.Style.Attr.Has(AttrBold) {
			t.Errorf("b style = %+v", b.Style)
		}
	})

	t.Run("ChildClearsInheritedFlag", func(t *testing.T) {
		tree := bindTree(t, `<column bold italic><text bold=false>"a"</text><text>"b"</text></column>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 3, 2)
		a, b := buf.Get(0, 0).Style.Attr, buf.Get(0, 1).Style.Attr
		if a.Has(AttrBold) || !a.Has(AttrItalic) {
			t.Errorf("a attrs = %v, want italic only", a)
		}
		if !b.Has(AttrBold) || !b.Has(AttrItalic) {
			t.Errorf("b attrs = %v, want bold and italic", b)
		}
	})

	t.Run("WideGlyphClipped", func(t *testing.T) {
		tree := bindTree(t, `<text width=3 wrap=none>"世界"</text>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 5, 1)
		if got := buf.GetLine(0); got != "世" {
			t.Errorf("line = %q, want only the glyph that fits", got)
		}
		if !buf.Get(1, 0).Continuation() {
			t.Error("expected continuation cell")
		}
		if buf.Get(2, 0) != EmptyCell() {
			t.Errorf("half glyph painted at the clip edge: %+v", buf.Get(2, 0))
		}
	})

	t.Run("ClippedToParent", func(t *testing.T) {
		tree := bindTree(t, `<row width=3><text wrap=none>"abcdef"</text></row>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 6, 1)
		if got := buf.GetLine(0); got != "abc" {
			t.Errorf("line = %q", got)
		}
	})

	t.Run("HiddenSubtree", func(t *testing.T) {
		tree := bindTree(t, `<row display=hide bg="red"><text>"gone"</text></row>`, value.NewState(nil), DefaultConfig())
		buf := render(t, tree, 5, 1)
		if !buf.Equal(NewBuffer(5, 1)) {
			t.Errorf("hidden row painted %q", buf.String())
		}
	})

	t.Run("EscapesStripped", func(t *testing.T) {
		state := value.NewState(map[string]any{"msg": "\x1b[31mred\x1b[0m\tx"})
		tree := bindTree(t, `<text>"{{ msg }}"</text>`, state, DefaultConfig())
		buf := render(t, tree, 8, 1)
		if got := buf.GetLine(0); got != "red x" {
			t.Errorf("line = %q", got)
		}
	})
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		s     string
		width int
		mode  WrapMode
		want  []string
	}{
		{"Word", "one two three", 7, WrapWord, []string{"one two", "three"}},
		{"LongWord", "abcdefgh ij", 3, WrapWord, []string{"abc", "def", "gh", "ij"}},
		{"HardBreak", "a\nb", 10, WrapWord, []string{"a", "b"}},
		{"EmptyLine", "a\n\nb", 10, WrapWord, []string{"a", "", "b"}},
		{"Char", "abcdefg", 3, WrapChar, []string{"abc", "def", "g"}},
		{"CharWide", "世界x", 3, WrapChar, []string{"世", "界x"}},
		{"None", "abcdefg", 3, WrapNone, []string{"abcdefg"}},
		{"ZeroWidth", "a b", 0, WrapWord, []string{"a b"}},
		{"Empty", "", 5, WrapWord, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := wrapText(tt.s, tt.width, tt.mode)
			var got []string
			for _, ln := range lines {
				got = append(got, tt.s[ln.start:ln.end])
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"a\tb", "a b"},
		{"line\nbreak", "line\nbreak"},
		{"\x1b[1mbold\x1b[0m", "bold"},
		{"bell\x07", "bell"},
		{"del\x7f", "del"},
	}
	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
