package template

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kungfusheep/loom/value"
)

type builtin struct {
	min, max int // max < 0 means variadic
	fn       func(args []value.Value) (value.Value, error)
}

var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"len":      {1, 1, builtinLen},
		"upper":    {1, 1, stringFunc(strings.ToUpper)},
		"lower":    {1, 1, stringFunc(strings.ToLower)},
		"trim":     {1, 1, stringFunc(strings.TrimSpace)},
		"str":      {1, 1, func(a []value.Value) (value.Value, error) { return value.String(a[0].Display()), nil }},
		"join":     {1, 2, builtinJoin},
		"default":  {2, 2, builtinDefault},
		"contains": {2, 2, builtinContains},
		"repeat":   {2, 2, builtinRepeat},
		"min":      {1, -1, extremum(math.Min)},
		"max":      {1, -1, extremum(math.Max)},
		"keys":     {1, 1, builtinKeys},
	}
}

// Builtins returns the sorted names of the builtin functions.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type mismatch string

// maxRepeat caps the length in bytes of a repeat result.
const maxRepeat = 1 << 20

func callBuiltin(call *Call, args []value.Value) (value.Value, error) {
	b, ok := builtins[call.Func]
	if !ok {
		return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: "unknown function " + call.Func, Pos: call.Pos}
	}
	if len(args) < b.min || (b.max >= 0 && len(args) > b.max) {
		return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: fmt.Sprintf("%s: wrong number of arguments (%d)", call.Func, len(args)), Pos: call.Pos}
	}
	v, err := b.fn(args)
	if m, ok := err.(mismatch); ok {
		return value.Undefined, &EvalError{Kind: TypeMismatch, Msg: call.Func + ": " + string(m), Pos: call.Pos}
	}
	return v, err
}

func (m mismatch) Error() string { return string(m) }

func builtinLen(a []value.Value) (value.Value, error) {
	switch a[0].Kind() {
	case value.KindString, value.KindList, value.KindMap, value.KindUndefined:
		return value.Int(a[0].Len()), nil
	}
	return value.Undefined, mismatch("no length for " + a[0].Kind().String())
}

func stringFunc(fn func(string) string) func([]value.Value) (value.Value, error) {
	return func(a []value.Value) (value.Value, error) {
		switch a[0].Kind() {
		case value.KindString, value.KindUndefined:
			s, _ := a[0].Str()
			return value.String(fn(s)), nil
		}
		return value.Undefined, mismatch("expected string, got " + a[0].Kind().String())
	}
}

func builtinJoin(a []value.Value) (value.Value, error) {
	items, ok := a[0].Items()
	if !ok {
		return value.Undefined, mismatch("expected list, got " + a[0].Kind().String())
	}
	sep := ""
	if len(a) == 2 {
		s, ok := a[1].Str()
		if !ok {
			return value.Undefined, mismatch("separator must be a string")
		}
		sep = s
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Display()
	}
	return value.String(strings.Join(parts, sep)), nil
}

func builtinDefault(a []value.Value) (value.Value, error) {
	if a[0].IsUndefined() {
		return a[1], nil
	}
	return a[0], nil
}

func builtinContains(a []value.Value) (value.Value, error) {
	hay, needle := a[0], a[1]
	switch hay.Kind() {
	case value.KindUndefined:
		return value.Bool(false), nil
	case value.KindString:
		s, _ := hay.Str()
		n, ok := needle.Str()
		if !ok {
			return value.Undefined, mismatch("string can only contain a string")
		}
		return value.Bool(strings.Contains(s, n)), nil
	case value.KindList:
		items, _ := hay.Items()
		for _, item := range items {
			if item.Equal(needle) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.KindMap:
		k, ok := needle.Str()
		if !ok {
			return value.Undefined, mismatch("map keys are strings")
		}
		return value.Bool(!hay.Field(k).IsUndefined()), nil
	}
	return value.Undefined, mismatch("cannot search " + hay.Kind().String())
}

func builtinRepeat(a []value.Value) (value.Value, error) {
	s, ok := a[0].Str()
	if !ok {
		return value.Undefined, mismatch("expected string, got " + a[0].Kind().String())
	}
	n, ok := a[1].Num()
	if !ok || n < 0 || n != math.Trunc(n) || math.IsInf(n, 0) {
		return value.Undefined, mismatch("count must be a non-negative integer")
	}
	if s == "" {
		return value.String(""), nil
	}
	if n > float64(maxRepeat/len(s)) {
		return value.Undefined, mismatch(fmt.Sprintf("result longer than %d bytes", maxRepeat))
	}
	return value.String(strings.Repeat(s, int(n))), nil
}

func extremum(pick func(a, b float64) float64) func([]value.Value) (value.Value, error) {
	return func(a []value.Value) (value.Value, error) {
		var out float64
		for i, v := range a {
			n, ok := v.Num()
			if !ok {
				return value.Undefined, mismatch("expected number, got " + v.Kind().String())
			}
			if i == 0 {
				out = n
				continue
			}
			out = pick(out, n)
		}
		return value.Number(out), nil
	}
}

func builtinKeys(a []value.Value) (value.Value, error) {
	if a[0].IsUndefined() {
		return value.List(), nil
	}
	if a[0].Kind() != value.KindMap {
		return value.Undefined, mismatch("expected map, got " + a[0].Kind().String())
	}
	keys := a[0].Keys()
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.String(k)
	}
	return value.List(out...), nil
}
