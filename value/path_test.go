package value

import "testing"

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"items", "items", true},
		{"items", "items.1.name", true},
		{"items.1", "items", true},
		{"items.1", "items.2", false},
		{"item", "items", false},
		{"items", "item", false},
		{"", "anything.at.all", true},
		{"a.b", "a.bc", false},
	}
	for _, tt := range tests {
		if got := Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := Overlaps(tt.b, tt.a); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v (symmetric)", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestOverlapsAny(t *testing.T) {
	deps := []string{"user.name", "items"}
	if !OverlapsAny(deps, []string{"items.3.done"}) {
		t.Error("expected items.3.done to hit items")
	}
	if OverlapsAny(deps, []string{"user.email", "other"}) {
		t.Error("expected no overlap")
	}
	if OverlapsAny(nil, []string{""}) {
		t.Error("no deps never overlap")
	}
}

func TestJoinPath(t *testing.T) {
	segs := []string{"a", "", "b"}
	if got := JoinPath(segs...); got != "a.b" {
		t.Errorf("got %q", got)
	}
	if segs[1] != "" || segs[2] != "b" {
		t.Errorf("JoinPath modified its input: %v", segs)
	}
	if got := SplitPath(""); got != nil {
		t.Errorf("SplitPath(\"\") = %v, want nil", got)
	}
}
