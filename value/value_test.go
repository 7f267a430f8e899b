package value

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrom(t *testing.T) {
	v := From(map[string]any{
		"name":  "ada",
		"age":   36,
		"tags":  []any{"x", "y"},
		"inner": map[string]any{"ok": true},
		"none":  nil,
	})
	if v.Kind() != KindMap {
		t.Fatalf("expected map, got %s", v.Kind())
	}
	if got := v.Lookup("name").Display(); got != "ada" {
		t.Errorf("name: got %q", got)
	}
	if n, ok := v.Lookup("age").Num(); !ok || n != 36 {
		t.Errorf("age: got %v %v", n, ok)
	}
	if got := v.Lookup("tags.1").Display(); got != "y" {
		t.Errorf("tags.1: got %q", got)
	}
	if b, ok := v.Lookup("inner.ok").Boolean(); !ok || !b {
		t.Errorf("inner.ok: got %v %v", b, ok)
	}
	if !v.Lookup("none").IsUndefined() {
		t.Errorf("nil should become undefined")
	}
}

func TestLookup(t *testing.T) {
	root := From(map[string]any{
		"items": []any{map[string]any{"id": 1}},
		"count": 3,
	})
	tests := []struct {
		path string
		want Value
	}{
		{"", root},
		{"count", Int(3)},
		{"items.0.id", Int(1)},
		{"items.1.id", Undefined},
		{"items.x", Undefined},
		{"count.x", Undefined},
		{"missing.deep.path", Undefined},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := root.Lookup(tt.path); !got.Equal(tt.want) {
				t.Errorf("Lookup(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Undefined, false},
		{String(""), false},
		{String("a"), true},
		{Int(0), false},
		{Number(0.5), true},
		{Bool(false), false},
		{Bool(true), true},
		{List(), false},
		{List(Int(1)), true},
		{Map(nil), false},
		{Map(map[string]Value{"a": Int(1)}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%s.Truthy() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEqual(t *testing.T) {
	t.Run("NoCoercion", func(t *testing.T) {
		if Int(1).Equal(String("1")) {
			t.Error("number and string must not compare equal")
		}
		if Bool(true).Equal(Int(1)) {
			t.Error("bool and number must not compare equal")
		}
	})

	t.Run("Structural", func(t *testing.T) {
		a := From(map[string]any{"l": []any{1, "two", map[string]any{"k": false}}})
		b := From(map[string]any{"l": []any{1, "two", map[string]any{"k": false}}})
		if !a.Equal(b) {
			t.Errorf("expected %s == %s", a, b)
		}
		c := From(map[string]any{"l": []any{1, "two", map[string]any{"k": true}}})
		if a.Equal(c) {
			t.Errorf("expected %s != %s", a, c)
		}
	})
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, ""},
		{String("hi"), "hi"},
		{Int(42), "42"},
		{Number(-3), "-3"},
		{Number(1.5), "1.5"},
		{Bool(true), "true"},
		{List(Int(1), String("a")), "1, a"},
		{Map(map[string]Value{"b": Int(2), "a": String("x")}), `{a: "x", b: 2}`},
	}
	for _, tt := range tests {
		if got := tt.v.Display(); got != tt.want {
			t.Errorf("Display() = %q, want %q", got, tt.want)
		}
	}
}

func TestAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"a": "x",
		"b": 1.5,
		"c": []any{true, "y"},
	}
	got := From(in).Any()
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("Any() mismatch (-want +got):\n%s", diff)
	}
}
