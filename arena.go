package loom

import (
	"fmt"
	"iter"
)

// WidgetID addresses a widget in an Arena. The low 32 bits are the slot
// index and the high 32 bits its generation, so an ID held past removal of
// its widget never resolves to the slot's next occupant.
type WidgetID uint64

// NoWidget is the zero ID; it never resolves.
const NoWidget WidgetID = 0

func makeID(index int, gen uint32) WidgetID {
	return WidgetID(uint64(gen)<<32 | uint64(uint32(index)))
}

func (id WidgetID) index() int  { return int(uint32(id)) }
func (id WidgetID) gen() uint32 { return uint32(id >> 32) }
func (id WidgetID) String() string {
	if id == NoWidget {
		return "#none"
	}
	return fmt.Sprintf("#%d.%d", id.index(), id.gen())
}

type slot struct {
	gen    uint32
	widget *Widget
}

// Arena owns every widget of a tree. Parents own their children through
// ordered ID lists; children refer back to their parent by ID only.
type Arena struct {
	slots []slot
	free  []int
	live  int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc stores a new widget of the given kind and returns it with its ID set.
func (a *Arena) Alloc(kind Kind, name string) *Widget {
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		i = len(a.slots) - 1
	}
	s := &a.slots[i]
	s.gen++
	w := &Widget{ID: makeID(i, s.gen), Kind: kind, Name: name, Attrs: defaultAttrs()}
	s.widget = w
	a.live++
	return w
}

// Get returns the widget for id, or nil when id is stale or unknown.
func (a *Arena) Get(id WidgetID) *Widget {
	i := id.index()
	if id == NoWidget || i >= len(a.slots) {
		return nil
	}
	s := a.slots[i]
	if s.gen != id.gen() || s.widget == nil {
		return nil
	}
	return s.widget
}

// Len returns the number of live widgets.
func (a *Arena) Len() int {
	return a.live
}

// Children iterates the live children of id in order.
func (a *Arena) Children(id WidgetID) iter.Seq[*Widget] {
	return func(yield func(*Widget) bool) {
		w := a.Get(id)
		if w == nil {
			return
		}
		for _, c := range w.Children {
			if cw := a.Get(c); cw != nil && !yield(cw) {
				return
			}
		}
	}
}

// All iterates every live widget in slot order.
func (a *Arena) All() iter.Seq[*Widget] {
	return func(yield func(*Widget) bool) {
		for _, s := range a.slots {
			if s.widget != nil && !yield(s.widget) {
				return
			}
		}
	}
}

// SetChildren replaces the children of parent, updating back-references.
// Former children not in ids keep their parent link until removed.
func (a *Arena) SetChildren(parent WidgetID, ids []WidgetID) {
	p := a.Get(parent)
	if p == nil {
		return
	}
	p.Children = append(p.Children[:0:0], ids...)
	for _, id := range ids {
		if c := a.Get(id); c != nil {
			c.Parent = parent
		}
	}
}

// RemoveSubtree frees id and all of its descendants and detaches id from its
// parent. The whole subtree is collected before anything is freed, so a
// failure leaves the arena untouched. It returns the freed IDs, root first.
func (a *Arena) RemoveSubtree(id WidgetID) ([]WidgetID, error) {
	if a.Get(id) == nil {
		return nil, fmt.Errorf("remove %s: no such widget", id)
	}
	var ids []WidgetID
	stack := []WidgetID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		w := a.Get(cur)
		if w == nil {
			return nil, fmt.Errorf("remove %s: dangling child %s", id, cur)
		}
		ids = append(ids, cur)
		for i := len(w.Children) - 1; i >= 0; i-- {
			stack = append(stack, w.Children[i])
		}
	}
	if p := a.Get(a.Get(id).Parent); p != nil {
		for i, c := range p.Children {
			if c == id {
				p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
				break
			}
		}
	}
	for _, cur := range ids {
		i := cur.index()
		a.slots[i].widget = nil
		a.free = append(a.free, i)
		a.live--
	}
	return ids, nil
}

// Check verifies that every child link resolves, that each child points
// back at the parent listing it, and that no widget is listed twice.
func (a *Arena) Check(root WidgetID) error {
	seen := make(map[WidgetID]bool)
	var walk func(id WidgetID) error
	walk = func(id WidgetID) error {
		if seen[id] {
			return fmt.Errorf("%s reachable twice", id)
		}
		seen[id] = true
		w := a.Get(id)
		for _, c := range w.Children {
			cw := a.Get(c)
			if cw == nil {
				return fmt.Errorf("%s has dangling child %s", id, c)
			}
			if cw.Parent != id {
				return fmt.Errorf("%s lists %s whose parent is %s", id, c, cw.Parent)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if a.Get(root) == nil {
		return fmt.Errorf("root %s missing", root)
	}
	if err := walk(root); err != nil {
		return err
	}
	if len(seen) != a.live {
		return fmt.Errorf("%d live widgets, %d reachable from root", a.live, len(seen))
	}
	return nil
}
