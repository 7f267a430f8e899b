package loom

import (
	"fmt"
	"slices"

	"github.com/kungfusheep/loom/template"
	"github.com/kungfusheep/loom/value"
)

// Rebind brings the tree up to date with the state after the given paths
// changed. Only nodes whose recorded dependencies overlap a dirty path are
// re-evaluated; a dirty path nothing read yields an empty patch.
func (t *Tree) Rebind(dirty []string) TreePatch {
	var p TreePatch
	if len(dirty) > 0 {
		t.rebindNode(t.root, t.root.scope, dirty, false, &p)
	}
	p.normalize()
	return p
}

// rebindNode re-syncs b under scope. force re-evaluates regardless of
// dirty paths and is set when the scope itself changed.
func (t *Tree) rebindNode(b *boundNode, scope *template.Scope, dirty []string, force bool, p *TreePatch) {
	b.scope = scope
	switch b.ast.(type) {
	case *template.Document:
		w := t.arena.Get(b.widget)
		before := slices.Clone(w.Children)
		for _, c := range b.children {
			t.rebindNode(c, scope, dirty, force, p)
		}
		t.syncChildren(w, before, b.children, p)
	case *template.Element:
		t.syncElement(b, dirty, force, p)
	case *template.Text:
		t.syncText(b, dirty, force, p)
	case *template.If:
		t.syncIf(b, dirty, force, p)
	case *template.For:
		t.syncFor(b, dirty, force, p)
	}
}

func (t *Tree) stale(b *boundNode, dirty []string, force bool) bool {
	return force || value.OverlapsAny(b.deps, dirty)
}

// syncChildren rewrites w's child list when the widgets its bound children
// produce differ from before, and reports w as updated.
func (t *Tree) syncChildren(w *Widget, before []WidgetID, nodes []*boundNode, p *TreePatch) {
	ids := flatten(nodes)
	if slices.Equal(ids, before) && slices.Equal(ids, w.Children) {
		return
	}
	t.arena.SetChildren(w.ID, ids)
	p.Updated = append(p.Updated, w.ID)
}

func (t *Tree) syncElement(b *boundNode, dirty []string, force bool, p *TreePatch) {
	e := b.ast.(*template.Element)
	w := t.arena.Get(b.widget)
	if w == nil {
		t.defect(fmt.Errorf("rebind <%s>: widget %s missing", e.Name, b.widget))
		return
	}
	before := slices.Clone(w.Children)
	if t.stale(b, dirty, force) {
		parent := t.arena.Get(b.parent)
		kind, attrs, deps, err := t.evalElement(e, b.scope, parent.Kind)
		b.deps = deps
		switch {
		case err != nil:
			if w.Kind != KindPlaceholder {
				t.removeNodes(b.children, p)
				b.children = nil
				t.arena.SetChildren(w.ID, nil)
				p.Updated = append(p.Updated, w.ID)
			}
			t.placeholder(b, w, err)
			return
		case w.Kind == KindPlaceholder:
			b.lastErr = ""
			w.Kind, w.Attrs, w.Err = kind, attrs, nil
			b.children = t.bindNodes(e.Children, b.scope, w, p)
			t.arena.SetChildren(w.ID, flatten(b.children))
			p.Updated = append(p.Updated, w.ID)
			return
		case attrs != w.Attrs:
			w.Attrs = attrs
			p.Updated = append(p.Updated, w.ID)
		}
		b.lastErr = ""
	}
	for _, c := range b.children {
		t.rebindNode(c, b.scope, dirty, force, p)
	}
	t.syncChildren(w, before, b.children, p)
}

func (t *Tree) syncText(b *boundNode, dirty []string, force bool, p *TreePatch) {
	if !t.stale(b, dirty, force) {
		return
	}
	w := t.arena.Get(b.widget)
	parent := t.arena.Get(b.parent)
	if w == nil || parent == nil {
		t.defect(fmt.Errorf("rebind text: widget %s detached", b.widget))
		return
	}
	content, deps, err := t.evalText(b.ast.(*template.Text), b.kind, b.scope, parent.Kind)
	b.deps = deps
	switch {
	case err != nil:
		if w.Kind != KindPlaceholder {
			p.Updated = append(p.Updated, w.ID)
		}
		t.placeholder(b, w, err)
	case w.Kind == KindPlaceholder:
		b.lastErr = ""
		w.Kind, w.Err, w.Content = b.kind, nil, content
		p.Updated = append(p.Updated, w.ID)
	case content != w.Content:
		b.lastErr = ""
		w.Content = content
		p.Updated = append(p.Updated, w.ID)
	default:
		b.lastErr = ""
	}
}

func (t *Tree) syncIf(b *boundNode, dirty []string, force bool, p *TreePatch) {
	n := b.ast.(*template.If)
	if b.branch == unbound || t.stale(b, dirty, force) {
		v, deps, err := template.EvalDeps(n.Cond, b.scope)
		b.deps = deps
		branch := elseBranch
		switch {
		case err != nil:
			branch = noBranch
			t.report(b, err)
		case v.Truthy():
			branch = thenBranch
			b.lastErr = ""
		default:
			b.lastErr = ""
		}
		if branch != b.branch {
			t.removeNodes(b.children, p)
			b.children = nil
			b.branch = branch
			parent := t.arena.Get(b.parent)
			switch branch {
			case thenBranch:
				b.children = t.bindNodes(n.Then, b.scope, parent, p)
			case elseBranch:
				b.children = t.bindNodes(n.Else, b.scope, parent, p)
			}
			return
		}
	}
	for _, c := range b.children {
		t.rebindNode(c, b.scope, dirty, force, p)
	}
}

func (t *Tree) syncFor(b *boundNode, dirty []string, force bool, p *TreePatch) {
	n := b.ast.(*template.For)
	if b.bound && !t.stale(b, dirty, force) {
		for _, it := range b.items {
			for _, c := range it.nodes {
				t.rebindNode(c, it.scope, dirty, false, p)
			}
		}
		return
	}
	b.bound = true

	items, deps, err := template.EvalItems(n.Collection, b.scope)
	if err != nil {
		b.deps = deps
		t.report(b, err)
		for _, it := range b.items {
			t.removeNodes(it.nodes, p)
		}
		b.items = nil
		return
	}

	next := make([]*forItem, len(items))
	keyed := n.Key != nil
	var keyErr error
	seen := make(map[string]int)
	for i, item := range items {
		it := &forItem{val: item.Value, path: item.Path}
		it.scope = b.scope.With(n.Binding, item.Value, item.Path)
		if keyed {
			kv, kd, err := template.EvalDeps(n.Key, it.scope)
			deps = mergeDeps(deps, kd)
			if err != nil {
				keyErr, keyed = err, false
			} else {
				it.key = kv.String()
				if c := seen[it.key]; c > 0 {
					seen[it.key] = c + 1
					it.key = fmt.Sprintf("%s#%d", it.key, c)
				} else {
					seen[it.key] = 1
				}
			}
		}
		next[i] = it
	}
	b.deps = deps
	if keyErr != nil {
		t.report(b, keyErr)
	} else {
		b.lastErr = ""
	}

	parent := t.arena.Get(b.parent)
	if keyed && b.keyed {
		t.matchKeyed(b, n, parent, next, dirty, force, p)
	} else {
		t.matchPositional(b, n, parent, next, dirty, force, p)
	}
	b.items, b.keyed = next, keyed
}

// reuse moves prev's widgets to it and re-syncs them under it's scope,
// forcing re-evaluation when the item's value or position changed.
func (t *Tree) reuse(prev, it *forItem, dirty []string, force bool, p *TreePatch) {
	it.nodes = prev.nodes
	force = force || prev.path != it.path || !prev.val.Equal(it.val)
	for _, c := range it.nodes {
		t.rebindNode(c, it.scope, dirty, force, p)
	}
}

// matchKeyed pairs old and new items by key. Survivors keep their widgets;
// those outside the longest run that kept its relative order are moved.
func (t *Tree) matchKeyed(b *boundNode, n *template.For, parent *Widget, next []*forItem, dirty []string, force bool, p *TreePatch) {
	byKey := make(map[string]int, len(b.items))
	for i, it := range b.items {
		byKey[it.key] = i
	}
	used := make([]bool, len(b.items))
	var order []int
	var survivors []*forItem
	for _, it := range next {
		i, ok := byKey[it.key]
		if !ok {
			it.nodes = t.bindNodes(n.Body, it.scope, parent, p)
			continue
		}
		used[i] = true
		t.reuse(b.items[i], it, dirty, force, p)
		order = append(order, i)
		survivors = append(survivors, it)
	}
	for i, it := range b.items {
		if !used[i] {
			t.removeNodes(it.nodes, p)
		}
	}
	stay := increasingRun(order)
	for j, it := range survivors {
		if !stay[j] {
			p.Moved = append(p.Moved, flatten(it.nodes)...)
		}
	}
}

// matchPositional reuses item slots by index.
func (t *Tree) matchPositional(b *boundNode, n *template.For, parent *Widget, next []*forItem, dirty []string, force bool, p *TreePatch) {
	for i, it := range next {
		if i < len(b.items) {
			t.reuse(b.items[i], it, dirty, force, p)
		} else {
			it.nodes = t.bindNodes(n.Body, it.scope, parent, p)
		}
	}
	for _, it := range b.items[min(len(next), len(b.items)):] {
		t.removeNodes(it.nodes, p)
	}
}

// increasingRun marks a longest strictly increasing subsequence of seq.
func increasingRun(seq []int) []bool {
	// tails[k] is the index in seq ending the best run of length k+1
	var tails []int
	prev := make([]int, len(seq))
	for i, v := range seq {
		k, _ := slices.BinarySearchFunc(tails, v, func(j, target int) int { return seq[j] - target })
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	mark := make([]bool, len(seq))
	if len(tails) == 0 {
		return mark
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		mark[i] = true
	}
	return mark
}
