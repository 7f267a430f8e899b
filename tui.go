// Package loom renders declarative templates into a terminal.
//
// A template is parsed once, bound against application state into a widget
// tree, laid out into rectangles, painted into a cell buffer and diffed
// against the previous frame. Runtime.Tick runs that pipeline once.
package loom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Attribute represents text styling attributes that can be combined.
type Attribute uint8

const (
	AttrNone Attribute = 0
	AttrBold Attribute = 1 << (iota - 1)
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrInverse
	AttrStrikethrough
)

// Has returns true if the attribute set contains the given attribute.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

// With returns a new attribute set with the given attribute added.
func (a Attribute) With(attr Attribute) Attribute {
	return a | attr
}

// Without returns a new attribute set with the given attribute removed.
func (a Attribute) Without(attr Attribute) Attribute {
	return a &^ attr
}

var attrNames = map[string]Attribute{
	"bold":          AttrBold,
	"dim":           AttrDim,
	"italic":        AttrItalic,
	"underline":     AttrUnderline,
	"blink":         AttrBlink,
	"inverse":       AttrInverse,
	"strikethrough": AttrStrikethrough,
}

// ColorMode represents the color mode for a color value.
type ColorMode uint8

const (
	ColorDefault ColorMode = iota // Terminal default
	Color16                       // Basic 16 colors (0-15)
	Color256                      // 256 color palette (0-255)
	ColorRGB                      // 24-bit true color
)

// Color represents a terminal color.
type Color struct {
	Mode    ColorMode
	R, G, B uint8 // For RGB mode
	Index   uint8 // For 16/256 mode
}

// DefaultColor returns the terminal's default color.
func DefaultColor() Color {
	return Color{Mode: ColorDefault}
}

// BasicColor returns one of the 16 basic terminal colors.
func BasicColor(index uint8) Color {
	return Color{Mode: Color16, Index: index}
}

// PaletteColor returns one of the 256 palette colors.
func PaletteColor(index uint8) Color {
	return Color{Mode: Color256, Index: index}
}

// RGB returns a 24-bit true color.
func RGB(r, g, b uint8) Color {
	return Color{Mode: ColorRGB, R: r, G: g, B: b}
}

// Hex returns a 24-bit true color from a hex value (e.g., 0xFF5500).
func Hex(hex uint32) Color {
	return RGB(uint8(hex>>16), uint8(hex>>8), uint8(hex))
}

// IsDefault reports whether c defers to the terminal default.
func (c Color) IsDefault() bool { return c.Mode == ColorDefault }

// Hex returns "#rrggbb" for RGB colors and "" otherwise.
func (c Color) Hex() string {
	if c.Mode != ColorRGB {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var colorNames = map[string]Color{
	"default":        DefaultColor(),
	"reset":          DefaultColor(),
	"black":          BasicColor(0),
	"red":            BasicColor(1),
	"green":          BasicColor(2),
	"yellow":         BasicColor(3),
	"blue":           BasicColor(4),
	"magenta":        BasicColor(5),
	"cyan":           BasicColor(6),
	"white":          BasicColor(7),
	"grey":           BasicColor(8),
	"gray":           BasicColor(8),
	"bright-black":   BasicColor(8),
	"bright-red":     BasicColor(9),
	"bright-green":   BasicColor(10),
	"bright-yellow":  BasicColor(11),
	"bright-blue":    BasicColor(12),
	"bright-magenta": BasicColor(13),
	"bright-cyan":    BasicColor(14),
	"bright-white":   BasicColor(15),
}

// ParseColor reads a color name ("red", "bright-blue"), a hex value
// ("#f80" or "#ff8800") or a palette index ("ansi196").
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colorNames[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hc, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		r, g, b := hc.RGB255()
		return RGB(r, g, b), nil
	}
	if rest, ok := strings.CutPrefix(s, "ansi"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 || n > 255 {
			return Color{}, fmt.Errorf("invalid palette color %q", s)
		}
		if n < 16 {
			return BasicColor(uint8(n)), nil
		}
		return PaletteColor(uint8(n)), nil
	}
	return Color{}, fmt.Errorf("unknown color %q", s)
}

// Style combines foreground, background colors and attributes.
type Style struct {
	FG   Color
	BG   Color
	Attr Attribute
}

// DefaultStyle returns a style with default colors and no attributes.
func DefaultStyle() Style {
	return Style{
		FG: DefaultColor(),
		BG: DefaultColor(),
	}
}

// Foreground returns a new style with the given foreground color.
func (s Style) Foreground(c Color) Style {
	s.FG = c
	return s
}

// Background returns a new style with the given background color.
func (s Style) Background(c Color) Style {
	s.BG = c
	return s
}

// Inherit layers s over parent: colors s leaves at the default come from
// parent, and attributes accumulate. Widgets drop the attributes they set
// to false afterwards.
func (s Style) Inherit(parent Style) Style {
	if s.FG.IsDefault() {
		s.FG = parent.FG
	}
	if s.BG.IsDefault() {
		s.BG = parent.BG
	}
	s.Attr |= parent.Attr
	return s
}

// Cell represents a single character cell on the terminal. The second cell
// of a double-width glyph holds Rune 0.
type Cell struct {
	Rune  rune
	Style Style
}

// EmptyCell returns a cell with a space and default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Style: DefaultStyle()}
}

// NewCell creates a cell with the given rune and style.
func NewCell(r rune, style Style) Cell {
	return Cell{Rune: r, Style: style}
}

// Continuation reports whether c is the trailing half of a wide glyph.
func (c Cell) Continuation() bool { return c.Rune == 0 }
