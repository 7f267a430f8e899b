// Package value holds the dynamic values templates are evaluated against and the
// state context applications mutate between ticks.
package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged variant: string, number, bool, list, map or undefined.
// The zero Value is Undefined.
//
// Values are treated as immutable. Lists and maps share their backing storage,
// so callers must not modify a slice or map after handing it to List or Map.
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
	list []Value
	m    map[string]Value
}

// Undefined is the value of an absent path. It displays as the empty string.
var Undefined = Value{}

func String(s string) Value { return Value{kind: KindString, s: s} }

func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

func Int(n int) Value { return Value{kind: KindNumber, n: float64(n)} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps items without copying.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Map wraps m without copying.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// From converts plain Go data (as produced by yaml or json decoding) into a
// Value. Unsupported types become their fmt representation.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return Undefined
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(t)
	case int8:
		return Int(int(t))
	case int16:
		return Int(int(t))
	case int32:
		return Int(int(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Int(int(t))
	case uint16:
		return Int(int(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case []Value:
		return List(t...)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = From(item)
		}
		return List(items...)
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}
		return List(items...)
	case map[string]Value:
		return Map(t)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = From(item)
		}
		return Map(m)
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = From(item)
		}
		return Map(m)
	}
	return String(fmt.Sprint(v))
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// Str returns the string held by v.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Num returns the number held by v.
func (v Value) Num() (float64, bool) { return v.n, v.kind == KindNumber }

// Boolean returns the bool held by v.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the elements of a list.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Fields returns the entries of a map.
func (v Value) Fields() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Len returns the rune count of a string, the length of a list or map, and 0
// for everything else.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len([]rune(v.s))
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Index returns element i of a list, or Undefined.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Undefined
	}
	return v.list[i]
}

// Field returns entry name of a map, or Undefined.
func (v Value) Field(name string) Value {
	if v.kind != KindMap {
		return Undefined
	}
	return v.m[name]
}

// Keys returns the sorted keys of a map.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup walks a dotted path below v. Missing segments, and segments that pass
// through scalars, yield Undefined.
func (v Value) Lookup(path string) Value {
	cur := v
	for _, seg := range SplitPath(path) {
		switch cur.kind {
		case KindMap:
			cur = cur.m[seg]
		case KindList:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return Undefined
			}
			cur = cur.Index(i)
		default:
			return Undefined
		}
	}
	return cur
}

// Truthy reports whether v counts as true in a condition. Undefined, false, 0,
// "" and empty collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.s != ""
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindBool:
		return v.b
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	}
	return false
}

// Equal is structural equality. There is no coercion between kinds.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUndefined:
		return true
	case KindString:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Display returns the text a value renders as.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return FormatNumber(v.n)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Display()
		}
		return strings.Join(parts, ", ")
	case KindMap:
		return v.String()
	}
	return ""
}

// String is the debug form of v: strings are quoted and collections are
// written out in full.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.Display()
}

// Any converts v back into plain Go data.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Any()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Any()
		}
		return out
	}
	return nil
}

// FormatNumber writes integral numbers without a fractional part.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
