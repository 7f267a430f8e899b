package loom

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// sanitize strips escape sequences from bound text, turns tabs into spaces
// and drops other control characters. Newlines are kept as hard breaks.
func sanitize(s string) string {
	s = ansi.Strip(s)
	clean := true
	for _, r := range s {
		if r != '\n' && (r < 0x20 || r == 0x7f) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// run is a styled stretch of text starting at byte offset start of the
// concatenated content.
type run struct {
	start int
	style Style
}

// textRuns concatenates the content of a text widget and its spans, depth
// first, returning the styled runs. Excluded spans contribute nothing.
func textRuns(a *Arena, w *Widget, st Style) (string, []run) {
	var sb strings.Builder
	var runs []run
	var walk func(w *Widget, st Style)
	walk = func(w *Widget, st Style) {
		if w.Attrs.Display == Exclude {
			return
		}
		st = w.Attrs.inherit(st)
		if w.Content != "" {
			runs = append(runs, run{start: sb.Len(), style: st})
			sb.WriteString(w.Content)
		}
		for c := range a.Children(w.ID) {
			walk(c, st)
		}
	}
	walk(w, st)
	return sb.String(), runs
}

// line is one wrapped line, as byte offsets into the wrapped string.
type line struct {
	start, end int
}

func lineWidth(s string, l line) int {
	return runewidth.StringWidth(s[l.start:l.end])
}

// wrapText breaks s into lines no wider than width. Hard newlines always
// break. WrapWord breaks at Unicode line-break opportunities, drops the
// spaces at a break and splits words longer than width by cell. WrapChar
// splits by cell. WrapNone only honours hard newlines. A width below 1
// disables wrapping.
func wrapText(s string, width int, mode WrapMode) []line {
	var out []line
	start := 0
	for {
		end := strings.IndexByte(s[start:], '\n')
		if end < 0 {
			end = len(s)
		} else {
			end += start
		}
		switch {
		case mode == WrapNone || width < 1:
			out = append(out, line{start, end})
		case mode == WrapChar:
			out = wrapChars(s, start, end, width, out)
		default:
			out = wrapWords(s, start, end, width, out)
		}
		if end == len(s) {
			return out
		}
		start = end + 1
	}
}

func wrapChars(s string, start, end, width int, out []line) []line {
	lineStart, col := start, 0
	for i, r := range s[start:end] {
		w := runewidth.RuneWidth(r)
		if col+w > width && col > 0 {
			out = append(out, line{lineStart, start + i})
			lineStart, col = start+i, 0
		}
		col += w
	}
	return append(out, line{lineStart, end})
}

func wrapWords(s string, start, end, width int, out []line) []line {
	lineStart, lineEnd := start, start
	col, pending := 0, 0
	rest, pos, state := s[start:end], start, -1
	for len(rest) > 0 {
		var seg string
		seg, rest, _, state = uniseg.FirstLineSegmentInString(rest, state)
		segStart := pos
		pos += len(seg)
		word := strings.TrimRight(seg, " ")
		if word == "" && lineEnd == lineStart {
			// leading indentation is content
			word = seg
		}
		ww := runewidth.StringWidth(word)

		if lineEnd > lineStart && col+pending+ww > width {
			out = append(out, line{lineStart, lineEnd})
			lineStart, lineEnd, col, pending = segStart, segStart, 0, 0
		}
		switch {
		case lineEnd == lineStart && ww > width:
			broken := wrapChars(s, segStart, segStart+len(word), width, nil)
			out = append(out, broken[:len(broken)-1]...)
			last := broken[len(broken)-1]
			lineStart, lineEnd, col = last.start, last.end, lineWidth(s, last)
		case lineEnd == lineStart:
			lineStart, lineEnd, col = segStart, segStart+len(word), ww
		default:
			lineEnd = segStart + len(word)
			col += pending + ww
		}
		pending = runewidth.StringWidth(seg[len(word):])
	}
	return append(out, line{lineStart, lineEnd})
}
