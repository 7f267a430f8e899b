package loom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kungfusheep/loom/value"
)

// Align positions content within spare space.
type Align uint8

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// Direction is the order a row or column lays out its children in.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Display controls whether a widget paints and takes a layout slot.
type Display uint8

const (
	Show    Display = iota
	Hide            // keeps its slot, paints nothing
	Exclude         // no slot, no paint
)

// AxisMode is the axes an expand or spacer fills when its size is auto.
type AxisMode uint8

const (
	AxisAuto AxisMode = iota // the parent's main axis, or both in a stack
	AxisHorizontal
	AxisVertical
	AxisBoth
)

// WrapMode is how text breaks lines that do not fit.
type WrapMode uint8

const (
	WrapWord WrapMode = iota
	WrapChar
	WrapNone
)

// Offset is an optional anchor distance for position widgets.
type Offset struct {
	N   int
	Set bool
}

// Attrs are a widget's resolved attributes. The struct is comparable so
// rebinding can detect changes with ==.
type Attrs struct {
	Width, Height Constraint
	Factor        float64
	Axis          AxisMode
	Padding       Edges
	Gap           int
	Scroll        int
	Align         Align
	Direction     Direction
	Display       Display
	Border        BorderStyle
	Title         string
	Left, Top     Offset
	Right, Bottom Offset
	Wrap          WrapMode
	TextAlign     Align
	Style         Style
	// Cleared holds the attributes explicitly set to false, which are
	// removed from the inherited style.
	Cleared Attribute
}

// inherit layers a's style over parent, dropping cleared attributes.
func (a Attrs) inherit(parent Style) Style {
	st := a.Style.Inherit(parent)
	st.Attr &^= a.Cleared
	return st
}

func defaultAttrs() Attrs {
	return Attrs{Factor: 1, Style: DefaultStyle()}
}

func (a Attrs) hasBorder() bool { return a.Border != BorderStyle{} }

type attrSetter struct {
	kinds kindSet
	set   func(a *Attrs, v value.Value) error
}

var attrSetters map[string]attrSetter

func init() {
	sized := kinds(KindRow, KindColumn, KindExpand, KindBorder, KindPosition, KindText, KindSpacer)
	boxed := kinds(KindRow, KindColumn, KindExpand, KindBorder, KindPosition, KindText)
	containers := kinds(KindRow, KindColumn, KindExpand, KindBorder, KindPosition)
	flow := kinds(KindRow, KindColumn)
	filling := kinds(KindExpand, KindSpacer)
	position := kinds(KindPosition)

	attrSetters = map[string]attrSetter{
		"width":      {sized, func(a *Attrs, v value.Value) (err error) { a.Width, err = ParseConstraint(v); return }},
		"height":     {sized, func(a *Attrs, v value.Value) (err error) { a.Height, err = ParseConstraint(v); return }},
		"factor":     {filling, setFactor},
		"axis":       {filling, enumSetter(func(a *Attrs) *AxisMode { return &a.Axis }, map[string]AxisMode{"auto": AxisAuto, "horizontal": AxisHorizontal, "vertical": AxisVertical, "both": AxisBoth})},
		"padding":    {boxed, setPadding},
		"gap":        {flow, intSetter(func(a *Attrs) *int { return &a.Gap })},
		"offset":     {flow, intSetter(func(a *Attrs) *int { return &a.Scroll })},
		"align":      {containers, enumSetter(func(a *Attrs) *Align { return &a.Align }, map[string]Align{"start": AlignStart, "center": AlignCenter, "end": AlignEnd})},
		"direction":  {flow, enumSetter(func(a *Attrs) *Direction { return &a.Direction }, map[string]Direction{"forward": Forward, "backward": Backward})},
		"display":    {allKinds, enumSetter(func(a *Attrs) *Display { return &a.Display }, map[string]Display{"show": Show, "hide": Hide, "exclude": Exclude})},
		"border":     {containers, setBorder},
		"title":      {containers, func(a *Attrs, v value.Value) error { a.Title = sanitize(v.Display()); return nil }},
		"left":       {position, offsetSetter(func(a *Attrs) *Offset { return &a.Left })},
		"top":        {position, offsetSetter(func(a *Attrs) *Offset { return &a.Top })},
		"right":      {position, offsetSetter(func(a *Attrs) *Offset { return &a.Right })},
		"bottom":     {position, offsetSetter(func(a *Attrs) *Offset { return &a.Bottom })},
		"wrap":       {kinds(KindText), enumSetter(func(a *Attrs) *WrapMode { return &a.Wrap }, map[string]WrapMode{"word": WrapWord, "char": WrapChar, "none": WrapNone})},
		"text-align": {kinds(KindText), enumSetter(func(a *Attrs) *Align { return &a.TextAlign }, map[string]Align{"left": AlignStart, "center": AlignCenter, "right": AlignEnd})},
		"fg":         {allKinds, colorSetter(func(a *Attrs) *Color { return &a.Style.FG })},
		"bg":         {allKinds, colorSetter(func(a *Attrs) *Color { return &a.Style.BG })},
	}
	for name, attr := range attrNames {
		attrSetters[name] = attrSetter{allKinds, flagSetter(attr)}
	}
}

// applyAttr sets the attribute key on a for a widget of kind k.
func applyAttr(a *Attrs, k Kind, key string, v value.Value) error {
	s, ok := attrSetters[key]
	if !ok {
		return fmt.Errorf("unknown attribute %q", key)
	}
	if !s.kinds.has(k) {
		return fmt.Errorf("attribute %q does not apply to %s", key, k)
	}
	if err := s.set(a, v); err != nil {
		return fmt.Errorf("attribute %q: %w", key, err)
	}
	return nil
}

func asString(v value.Value) (string, error) {
	if s, ok := v.Str(); ok {
		return strings.TrimSpace(s), nil
	}
	return "", fmt.Errorf("expected string, got %s", v.Kind())
}

func asInt(v value.Value) (int, error) {
	if n, ok := v.Num(); ok {
		return cells(n)
	}
	if s, ok := v.Str(); ok {
		n, err := parseCells(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("expected non-negative integer, got %q", s)
		}
		return n, nil
	}
	return 0, fmt.Errorf("expected number, got %s", v.Kind())
}

func enumSetter[T any](field func(*Attrs) *T, names map[string]T) func(*Attrs, value.Value) error {
	return func(a *Attrs, v value.Value) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		e, ok := names[s]
		if !ok {
			return fmt.Errorf("invalid value %q", s)
		}
		*field(a) = e
		return nil
	}
}

func intSetter(field func(*Attrs) *int) func(*Attrs, value.Value) error {
	return func(a *Attrs, v value.Value) error {
		n, err := asInt(v)
		*field(a) = n
		return err
	}
}

func offsetSetter(field func(*Attrs) *Offset) func(*Attrs, value.Value) error {
	return func(a *Attrs, v value.Value) error {
		n, err := asInt(v)
		if err != nil {
			return err
		}
		*field(a) = Offset{N: n, Set: true}
		return nil
	}
}

func colorSetter(field func(*Attrs) *Color) func(*Attrs, value.Value) error {
	return func(a *Attrs, v value.Value) error {
		s, err := asString(v)
		if err != nil {
			return err
		}
		c, err := ParseColor(s)
		if err != nil {
			return err
		}
		*field(a) = c
		return nil
	}
}

func flagSetter(attr Attribute) func(*Attrs, value.Value) error {
	return func(a *Attrs, v value.Value) error {
		b, ok := v.Boolean()
		if !ok {
			return fmt.Errorf("expected bool, got %s", v.Kind())
		}
		if b {
			a.Style.Attr = a.Style.Attr.With(attr)
			a.Cleared = a.Cleared.Without(attr)
		} else {
			a.Style.Attr = a.Style.Attr.Without(attr)
			a.Cleared = a.Cleared.With(attr)
		}
		return nil
	}
}

func setFactor(a *Attrs, v value.Value) error {
	n, ok := v.Num()
	if !ok {
		s, err := asString(v)
		if err != nil {
			return err
		}
		if n, err = strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("expected number, got %q", s)
		}
	}
	if !validWeight(n) {
		return fmt.Errorf("factor must be a finite number of at least 1, got %s", value.FormatNumber(n))
	}
	a.Factor = n
	return nil
}

// setPadding accepts one, two or four sizes: all sides, vertical and
// horizontal, or top right bottom left.
func setPadding(a *Attrs, v value.Value) error {
	if _, ok := v.Num(); ok {
		n, err := asInt(v)
		a.Padding = Uniform(n)
		return err
	}
	s, err := asString(v)
	if err != nil {
		return err
	}
	fields := strings.Fields(s)
	ns := make([]int, len(fields))
	for i, f := range fields {
		if ns[i], err = asInt(value.String(f)); err != nil {
			return err
		}
	}
	switch len(ns) {
	case 1:
		a.Padding = Uniform(ns[0])
	case 2:
		a.Padding = Edges{Top: ns[0], Right: ns[1], Bottom: ns[0], Left: ns[1]}
	case 4:
		a.Padding = Edges{Top: ns[0], Right: ns[1], Bottom: ns[2], Left: ns[3]}
	default:
		return fmt.Errorf("padding takes 1, 2 or 4 sizes, got %d", len(ns))
	}
	return nil
}

func setBorder(a *Attrs, v value.Value) error {
	s, err := asString(v)
	if err != nil {
		return err
	}
	if s == "none" {
		a.Border = BorderStyle{}
		return nil
	}
	b, ok := borderNames[s]
	if !ok {
		return fmt.Errorf("invalid border %q", s)
	}
	a.Border = b
	return nil
}

// kindAttrs returns the starting attributes of a widget of kind k.
func kindAttrs(k Kind) Attrs {
	a := defaultAttrs()
	if k == KindBorder {
		a.Border = BorderSingle
	}
	return a
}
