package value

import (
	"fmt"
	"strconv"
	"sync"
)

// Getter resolves dotted paths. State implements it; tests can use Static.
type Getter interface {
	Get(path string) Value
}

// Static is a read-only Getter over a fixed root value.
type Static struct{ Root Value }

func (s Static) Get(path string) Value { return s.Root.Lookup(path) }

// State is the application-owned state context. Writes go through Set (or the
// other mutators) which replace values copy-on-write along the path, so values
// previously handed out are never modified, and record the written path as
// dirty. The runtime drains dirty paths once per tick with TakeDirty.
//
// State is safe for concurrent use.
type State struct {
	mu    sync.Mutex
	root  Value
	dirty []string
	seen  map[string]struct{}
}

// NewState creates a state context from plain Go data.
func NewState(init map[string]any) *State {
	return NewStateValue(From(init))
}

// NewStateValue creates a state context rooted at root, which must be a map.
func NewStateValue(root Value) *State {
	if root.Kind() != KindMap {
		root = Map(nil)
	}
	return &State{root: root, seen: make(map[string]struct{})}
}

// Get returns the value at path, or Undefined.
func (s *State) Get(path string) Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.Lookup(path)
}

// Root returns the current root map.
func (s *State) Root() Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Set stores v at path, creating intermediate maps as needed, and marks path
// dirty. It fails when the path runs through a scalar or indexes a list out of
// range.
func (s *State) Set(path string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := setRoot(s.root, SplitPath(path), v)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	s.root = root
	s.markLocked(path)
	return nil
}

// SetAny is Set with a plain Go value.
func (s *State) SetAny(path string, v any) error {
	return s.Set(path, From(v))
}

// Update replaces the value at path with fn applied to the current value.
func (s *State) Update(path string, fn func(Value) Value) error {
	return s.modify(path, func(cur Value) (Value, error) { return fn(cur), nil })
}

func (s *State) modify(path string, fn func(Value) (Value, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	segs := SplitPath(path)
	next, err := fn(s.root.Lookup(path))
	if err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	root, err := setRoot(s.root, segs, next)
	if err != nil {
		return fmt.Errorf("update %q: %w", path, err)
	}
	s.root = root
	s.markLocked(path)
	return nil
}

// Append adds items to the end of the list at path. An undefined path becomes
// a new list.
func (s *State) Append(path string, items ...Value) error {
	return s.Update(path, func(cur Value) Value {
		old, _ := cur.Items()
		next := make([]Value, 0, len(old)+len(items))
		next = append(next, old...)
		next = append(next, items...)
		return List(next...)
	})
}

// RemoveAt deletes element i of the list at path.
func (s *State) RemoveAt(path string, i int) error {
	return s.modify(path, func(cur Value) (Value, error) {
		old, ok := cur.Items()
		if !ok {
			return Undefined, fmt.Errorf("not a list (%s)", cur.Kind())
		}
		if i < 0 || i >= len(old) {
			return Undefined, fmt.Errorf("index %d out of range", i)
		}
		next := make([]Value, 0, len(old)-1)
		next = append(next, old[:i]...)
		next = append(next, old[i+1:]...)
		return List(next...), nil
	})
}

// Replace swaps in a whole new root and marks every path that differs.
// It returns the marked paths.
func (s *State) Replace(root Value) []string {
	if root.Kind() != KindMap {
		root = Map(nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := Changed(s.root, root, "")
	s.root = root
	for _, p := range changed {
		s.markLocked(p)
	}
	return changed
}

// MarkDirty records paths as changed without writing to them. Use it after
// mutating data the state does not track itself.
func (s *State) MarkDirty(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.markLocked(p)
	}
}

// TakeDirty returns the paths marked since the last call, in marking order,
// and clears them.
func (s *State) TakeDirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.dirty
	s.dirty = nil
	clear(s.seen)
	return out
}

func (s *State) markLocked(path string) {
	if _, ok := s.seen[path]; ok {
		return
	}
	s.seen[path] = struct{}{}
	s.dirty = append(s.dirty, path)
}

func setRoot(root Value, segs []string, v Value) (Value, error) {
	if len(segs) == 0 && v.Kind() != KindMap {
		return Undefined, fmt.Errorf("root must be a map, got %s", v.Kind())
	}
	return setIn(root, segs, v)
}

func setIn(cur Value, segs []string, v Value) (Value, error) {
	if len(segs) == 0 {
		return v, nil
	}
	seg := segs[0]
	switch cur.Kind() {
	case KindUndefined:
		child, err := setIn(Undefined, segs[1:], v)
		if err != nil {
			return Undefined, err
		}
		return Map(map[string]Value{seg: child}), nil
	case KindMap:
		old, _ := cur.Fields()
		next := make(map[string]Value, len(old)+1)
		for k, item := range old {
			next[k] = item
		}
		child, err := setIn(old[seg], segs[1:], v)
		if err != nil {
			return Undefined, err
		}
		next[seg] = child
		return Map(next), nil
	case KindList:
		old, _ := cur.Items()
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(old) {
			return Undefined, fmt.Errorf("list index %q out of range", seg)
		}
		next := make([]Value, len(old))
		copy(next, old)
		child, err := setIn(old[i], segs[1:], v)
		if err != nil {
			return Undefined, err
		}
		next[i] = child
		return List(next...), nil
	}
	return Undefined, fmt.Errorf("segment %q runs through a %s", seg, cur.Kind())
}
