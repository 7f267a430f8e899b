package value

import (
	"sort"
	"strconv"
)

// Changed returns the smallest set of paths below prefix at which old and new
// differ. A path is reported whole when its kind or scalar value changes, or
// when a list changes length; maps and equal-length lists are descended into.
// The result is sorted.
func Changed(old, new Value, prefix string) []string {
	var out []string
	changed(old, new, prefix, &out)
	sort.Strings(out)
	return out
}

func changed(old, new Value, prefix string, out *[]string) {
	if old.kind != new.kind {
		*out = append(*out, prefix)
		return
	}
	switch old.kind {
	case KindMap:
		for k, a := range old.m {
			b, ok := new.m[k]
			if !ok {
				*out = append(*out, JoinPath(prefix, k))
				continue
			}
			changed(a, b, JoinPath(prefix, k), out)
		}
		for k := range new.m {
			if _, ok := old.m[k]; !ok {
				*out = append(*out, JoinPath(prefix, k))
			}
		}
	case KindList:
		if len(old.list) != len(new.list) {
			*out = append(*out, prefix)
			return
		}
		for i := range old.list {
			changed(old.list[i], new.list[i], JoinPath(prefix, strconv.Itoa(i)), out)
		}
	default:
		if !old.Equal(new) {
			*out = append(*out, prefix)
		}
	}
}
