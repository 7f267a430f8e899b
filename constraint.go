package loom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kungfusheep/loom/value"
)

// ConstraintKind selects how a widget is sized along one axis.
type ConstraintKind uint8

const (
	Auto    ConstraintKind = iota // kind default, resolved during layout
	Fixed                         // exactly N cells
	Percent                       // N percent of the parent's inner extent
	Fill                          // a weighted share of the leftover space
	Fit                           // the natural size of the content
)

func (k ConstraintKind) String() string {
	switch k {
	case Fixed:
		return "fixed"
	case Percent:
		return "percent"
	case Fill:
		return "fill"
	case Fit:
		return "fit"
	}
	return "auto"
}

// Constraint is a per-axis sizing rule. N is the cell count for Fixed, the
// percentage for Percent and the weight for Fill.
type Constraint struct {
	Kind ConstraintKind
	N    float64
}

func (c Constraint) String() string {
	switch c.Kind {
	case Fixed:
		return value.FormatNumber(c.N)
	case Percent:
		return value.FormatNumber(c.N) + "%"
	case Fill:
		if c.N == 1 {
			return "fill"
		}
		return "fill:" + value.FormatNumber(c.N)
	}
	return c.Kind.String()
}

// maxCells bounds every size, offset and padding read from an attribute.
const maxCells = math.MaxInt32

// cells converts a non-negative size to a cell count, clamped to maxCells.
func cells(n float64) (int, error) {
	switch {
	case math.IsNaN(n):
		return 0, fmt.Errorf("invalid size NaN")
	case n < 0:
		return 0, fmt.Errorf("negative size %s", value.FormatNumber(n))
	}
	return int(min(n, maxCells)), nil
}

// parseCells reads a decimal cell count, clamping values that overflow.
func parseCells(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return int(min(n, maxCells)), nil
}

// validWeight reports whether w can be used as a fill weight.
func validWeight(w float64) bool { return w >= 1 && !math.IsInf(w, 1) }

// FixedSize returns a Fixed(n) constraint.
func FixedSize(n int) Constraint { return Constraint{Kind: Fixed, N: float64(n)} }

// FillWeight returns a Fill(w) constraint.
func FillWeight(w float64) Constraint { return Constraint{Kind: Fill, N: w} }

// ParseConstraint reads a width or height attribute: a number or "N" (fixed),
// "N%", "fill", "fill:W", "fit" or "auto".
func ParseConstraint(v value.Value) (Constraint, error) {
	if n, ok := v.Num(); ok {
		c, err := cells(n)
		if err != nil {
			return Constraint{}, err
		}
		return FixedSize(c), nil
	}
	s, ok := v.Str()
	if !ok {
		return Constraint{}, fmt.Errorf("expected size, got %s", v.Kind())
	}
	s = strings.TrimSpace(s)
	switch {
	case s == "auto":
		return Constraint{Kind: Auto}, nil
	case s == "fit":
		return Constraint{Kind: Fit}, nil
	case s == "fill":
		return Constraint{Kind: Fill, N: 1}, nil
	case strings.HasPrefix(s, "fill:"):
		w, err := strconv.ParseFloat(s[len("fill:"):], 64)
		if err != nil || !validWeight(w) {
			return Constraint{}, fmt.Errorf("invalid fill weight %q", s)
		}
		return Constraint{Kind: Fill, N: w}, nil
	case strings.HasSuffix(s, "%"):
		p, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || !(p >= 0 && p <= 100) {
			return Constraint{}, fmt.Errorf("invalid percentage %q", s)
		}
		return Constraint{Kind: Percent, N: p}, nil
	}
	n, err := parseCells(s)
	if err != nil {
		return Constraint{}, fmt.Errorf("invalid size %q", s)
	}
	return FixedSize(n), nil
}
