package value

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestState(t *testing.T) {
	t.Run("SetMarksDirty", func(t *testing.T) {
		s := NewState(map[string]any{"count": 1})
		if err := s.Set("count", Int(2)); err != nil {
			t.Fatal(err)
		}
		if err := s.Set("user.name", String("ada")); err != nil {
			t.Fatal(err)
		}
		if err := s.Set("count", Int(3)); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"count", "user.name"}, s.TakeDirty()); diff != "" {
			t.Errorf("dirty mismatch (-want +got):\n%s", diff)
		}
		if got := s.TakeDirty(); len(got) != 0 {
			t.Errorf("expected dirty cleared, got %v", got)
		}
		if got := s.Get("user.name").Display(); got != "ada" {
			t.Errorf("expected ada, got %q", got)
		}
	})

	t.Run("CopyOnWrite", func(t *testing.T) {
		s := NewState(map[string]any{"items": []any{"a", "b"}})
		before := s.Get("items")
		if err := s.Set("items.0", String("z")); err != nil {
			t.Fatal(err)
		}
		if got := before.Index(0).Display(); got != "a" {
			t.Errorf("old value mutated: %q", got)
		}
		if got := s.Get("items.0").Display(); got != "z" {
			t.Errorf("expected z, got %q", got)
		}
	})

	t.Run("SetErrors", func(t *testing.T) {
		s := NewState(map[string]any{"n": 1, "l": []any{1}})
		if err := s.Set("n.x", Int(1)); err == nil {
			t.Error("expected error writing through a number")
		}
		if err := s.Set("l.5", Int(1)); err == nil {
			t.Error("expected error for out of range index")
		}
		if err := s.Set("", Int(1)); err == nil {
			t.Error("expected error replacing root with a scalar")
		}
		if got := s.TakeDirty(); len(got) != 0 {
			t.Errorf("failed writes must not mark dirty, got %v", got)
		}
	})

	t.Run("AppendRemove", func(t *testing.T) {
		s := NewState(nil)
		if err := s.Append("items", String("a"), String("b"), String("c")); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveAt("items", 1); err != nil {
			t.Fatal(err)
		}
		if got := s.Get("items").Display(); got != "a, c" {
			t.Errorf("expected \"a, c\", got %q", got)
		}
		if err := s.RemoveAt("items", 9); err == nil {
			t.Error("expected range error")
		}
	})

	t.Run("Replace", func(t *testing.T) {
		s := NewState(map[string]any{"a": 1, "b": []any{1, 2}})
		got := s.Replace(From(map[string]any{"a": 1, "b": []any{1, 3}, "c": true}))
		if diff := cmp.Diff([]string{"b.1", "c"}, got); diff != "" {
			t.Errorf("changed mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(got, s.TakeDirty()); diff != "" {
			t.Errorf("dirty mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := NewState(map[string]any{"n": 0})
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Update("n", func(v Value) Value {
					n, _ := v.Num()
					return Number(n + 1)
				})
			}()
		}
		wg.Wait()
		if n, _ := s.Get("n").Num(); n != 50 {
			t.Errorf("expected 50, got %v", n)
		}
	})
}

func TestChanged(t *testing.T) {
	tests := []struct {
		name     string
		old, new any
		want     []string
	}{
		{"Equal", map[string]any{"a": 1}, map[string]any{"a": 1}, nil},
		{"Scalar", map[string]any{"a": 1}, map[string]any{"a": 2}, []string{"a"}},
		{"KindChange", map[string]any{"a": 1}, map[string]any{"a": "1"}, []string{"a"}},
		{"Added", map[string]any{}, map[string]any{"x": map[string]any{"y": 1}}, []string{"x"}},
		{"Removed", map[string]any{"x": 1, "y": 2}, map[string]any{"y": 2}, []string{"x"}},
		{"ListLength", map[string]any{"l": []any{1}}, map[string]any{"l": []any{1, 2}}, []string{"l"}},
		{"ListItem", map[string]any{"l": []any{1, map[string]any{"k": 1}}}, map[string]any{"l": []any{1, map[string]any{"k": 2}}}, []string{"l.1.k"}},
		{"Nested", map[string]any{"u": map[string]any{"a": 1, "b": 2}}, map[string]any{"u": map[string]any{"a": 0, "b": 3}}, []string{"u.a", "u.b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Changed(From(tt.old), From(tt.new), "")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Changed mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("RootKind", func(t *testing.T) {
		got := Changed(Int(1), String("x"), "")
		if diff := cmp.Diff([]string{""}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}
