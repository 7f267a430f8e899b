package value

import "strings"

// SplitPath splits a dotted path into its segments. The empty path is the root
// and has no segments.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// JoinPath joins segments into a dotted path, skipping empty segments.
func JoinPath(segs ...string) string {
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		if s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ".")
}

// Overlaps reports whether a change at one path can affect a read of the
// other, which is the case when either is a segment prefix of the other.
// The root path "" overlaps everything.
//
//	Overlaps("items", "items.1.name") == true
//	Overlaps("items.1", "items")       == true
//	Overlaps("item", "items")          == false
func Overlaps(a, b string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if a == "" {
		return true
	}
	if !strings.HasPrefix(b, a) {
		return false
	}
	return len(a) == len(b) || b[len(a)] == '.'
}

// OverlapsAny reports whether any path in deps overlaps any path in dirty.
func OverlapsAny(deps, dirty []string) bool {
	for _, d := range dirty {
		for _, p := range deps {
			if Overlaps(p, d) {
				return true
			}
		}
	}
	return false
}
