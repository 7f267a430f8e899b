package loom

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestPatchWriter(t *testing.T) {
	plain := DefaultStyle()
	bold := DefaultStyle()
	bold.Attr = AttrBold

	tests := []struct {
		name    string
		profile termenv.Profile
		patches []Patch
		want    string
	}{
		{
			name:    "adjacent cells share one cursor move",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('a', plain)}, {1, 0, NewCell('b', plain)}},
			want:    "\x1b[1;1H\x1b[0mab\x1b[0m",
		},
		{
			name:    "gaps move the cursor",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('a', plain)}, {3, 1, NewCell('b', plain)}},
			want:    "\x1b[1;1H\x1b[0ma\x1b[2;4Hb\x1b[0m",
		},
		{
			name:    "style written only on change",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('a', plain)}, {1, 0, NewCell('b', bold)}, {2, 0, NewCell('c', bold)}},
			want:    "\x1b[1;1H\x1b[0ma\x1b[0;1mbc\x1b[0m",
		},
		{
			name:    "basic colors",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('x', plain.Foreground(BasicColor(1)).Background(BasicColor(4)))}},
			want:    "\x1b[1;1H\x1b[0;31;44mx\x1b[0m",
		},
		{
			name:    "true color",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('x', plain.Foreground(RGB(255, 0, 0)))}},
			want:    "\x1b[1;1H\x1b[0;38;2;255;0;0mx\x1b[0m",
		},
		{
			name:    "ascii profile drops colors",
			profile: termenv.Ascii,
			patches: []Patch{{0, 0, NewCell('x', bold.Foreground(RGB(255, 0, 0)))}},
			want:    "\x1b[1;1H\x1b[0;1mx\x1b[0m",
		},
		{
			name:    "continuation cells skipped",
			profile: termenv.TrueColor,
			patches: []Patch{{0, 0, NewCell('世', plain)}, {1, 0, NewCell(0, plain)}, {2, 0, NewCell('x', plain)}},
			want:    "\x1b[1;1H\x1b[0m世x\x1b[0m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			w := newPatchWriter(&out, tt.profile)
			if err := w.write(tt.patches); err != nil {
				t.Fatal(err)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("nothing to write", func(t *testing.T) {
		var out bytes.Buffer
		if err := newPatchWriter(&out, termenv.TrueColor).write(nil); err != nil {
			t.Fatal(err)
		}
		if out.Len() != 0 {
			t.Errorf("wrote %q for no patches", out.String())
		}
	})

	t.Run("debug flush logging", func(t *testing.T) {
		var out, logs bytes.Buffer
		w := newPatchWriter(&out, termenv.Ascii)
		w.debug = log.New(&logs, "", 0)
		w.write([]Patch{{0, 0, NewCell('a', plain)}, {5, 0, NewCell('b', plain)}})
		want := "flush: 2 patches, 2 cursor moves"
		if !strings.HasPrefix(logs.String(), want) {
			t.Errorf("log = %q, want prefix %q", logs.String(), want)
		}
	})

	t.Run("frame replays onto a blank screen", func(t *testing.T) {
		prev := NewBuffer(4, 2)
		cur := NewBuffer(4, 2)
		cur.Set(1, 0, NewCell('a', plain))
		cur.Set(2, 1, NewCell('b', bold))
		var out bytes.Buffer
		newPatchWriter(&out, termenv.TrueColor).write(Diff(prev, cur))
		if got := strings.Count(out.String(), "H"); got != 2 {
			t.Errorf("cursor moves = %d in %q", got, out.String())
		}
	})
}

func TestColorProfile(t *testing.T) {
	tests := []struct {
		name string
		want termenv.Profile
	}{
		{"truecolor", termenv.TrueColor},
		{"256", termenv.ANSI256},
		{"16", termenv.ANSI},
		{"none", termenv.Ascii},
	}
	for _, tt := range tests {
		got, err := colorProfile(tt.name, &bytes.Buffer{})
		if err != nil || got != tt.want {
			t.Errorf("colorProfile(%q) = %v, %v", tt.name, got, err)
		}
	}
	if _, err := colorProfile("sixel", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestNewScreen(t *testing.T) {
	if _, err := NewScreen(nil, os.Stdout, DefaultConfig()); err == nil {
		t.Error("expected error for nil input")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	cfg := DefaultConfig()
	cfg.ColorProfile = "none"
	s, err := NewScreen(r, w, cfg)
	if err != nil {
		t.Fatal(err)
	}
	// leaving without entering is a no-op
	if err := s.LeaveRawMode(); err != nil {
		t.Error(err)
	}
	if _, err := s.ViewportSize(); err == nil {
		t.Error("expected a size error on a pipe")
	}

	cfg.ColorProfile = "bogus"
	if _, err := NewScreen(r, w, cfg); err == nil {
		t.Error("expected error for unknown color profile")
	}
}
