package loom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kungfusheep/loom/template"
	"github.com/kungfusheep/loom/value"
)

func testConfig(w, h int) Config {
	cfg := DefaultConfig()
	cfg.InitialSize = Size{Width: w, Height: h}
	return cfg
}

func newTestRuntime(t *testing.T, src string, state *value.State, w, h int) *Runtime {
	t.Helper()
	rt, err := NewRuntime(src, state, testConfig(w, h))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	return rt
}

// bindTree parses and binds src without a runtime.
func bindTree(t *testing.T, src string, state value.Getter, cfg Config) *Tree {
	t.Helper()
	doc, err := template.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tree, err := Bind(doc, state, cfg)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return tree
}

// render lays out and paints tree into a fresh w x h buffer.
func render(t *testing.T, tree *Tree, w, h int) *Buffer {
	t.Helper()
	if err := Layout(tree, Size{Width: w, Height: h}); err != nil {
		t.Fatalf("Layout: %v", err)
	}
	buf := NewBuffer(w, h)
	Paint(tree, buf)
	return buf
}

// child walks from the root by child indexes.
func child(t *testing.T, tree *Tree, path ...int) *Widget {
	t.Helper()
	w := tree.Widget(tree.Root())
	for _, i := range path {
		if i >= len(w.Children) {
			t.Fatalf("widget %s has %d children, want index %d\n%s", w.ID, len(w.Children), i, tree.Dump())
		}
		w = tree.Widget(w.Children[i])
	}
	return w
}

func TestScenarioExpandBesideText(t *testing.T) {
	rt := newTestRuntime(t, `<row><expand/><text>"hi"</text></row>`, nil, 10, 1)
	patches, err := rt.Tick(nil, nil)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}

	expand, text := child(t, rt.Tree(), 0, 0), child(t, rt.Tree(), 0, 1)
	if expand.Rect.W != 8 {
		t.Errorf("expand width = %d, want 8", expand.Rect.W)
	}
	if text.Rect.W != 2 || text.Rect.X != 8 {
		t.Errorf("text rect = %s, want x=8 w=2", text.Rect)
	}

	want := []Patch{
		{X: 8, Y: 0, Cell: NewCell('h', DefaultStyle())},
		{X: 9, Y: 0, Cell: NewCell('i', DefaultStyle())},
	}
	if diff := cmp.Diff(want, patches); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

const listTemplate = `
<column>
  {% for item in items key item %}
    <text>"{{ item }}"</text>
  {% end %}
</column>`

func TestScenarioRemoveFromList(t *testing.T) {
	state := value.NewState(map[string]any{"items": []any{"a", "b", "c"}})
	tree := bindTree(t, listTemplate, state, DefaultConfig())
	render(t, tree, 10, 5)

	col := child(t, tree, 0)
	before := append([]WidgetID(nil), col.Children...)
	if len(before) != 3 {
		t.Fatalf("expected 3 items, got %d", len(before))
	}
	first, second, third := tree.Widget(before[0]), tree.Widget(before[1]), tree.Widget(before[2])
	if third.Rect.Y != 2 {
		t.Fatalf("third item at y=%d, want 2", third.Rect.Y)
	}
	removed := append([]WidgetID{second.ID}, second.Children...)

	if err := state.RemoveAt("items", 1); err != nil {
		t.Fatal(err)
	}
	patch := tree.Rebind(state.TakeDirty())

	if diff := cmp.Diff(removed, patch.Removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if len(patch.Created) != 0 || len(patch.Moved) != 0 {
		t.Errorf("expected no creates or moves, got %+v", patch)
	}
	if diff := cmp.Diff([]WidgetID{col.ID}, patch.Updated); diff != "" {
		t.Errorf("updated mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]WidgetID{first.ID, third.ID}, col.Children); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	buf := render(t, tree, 10, 5)
	if third.Rect.Y != 1 {
		t.Errorf("third item at y=%d after removal, want 1", third.Rect.Y)
	}
	if got := buf.StringTrimmed(); got != "a\nc" {
		t.Errorf("frame = %q, want %q", got, "a\nc")
	}
	if err := tree.Arena().Check(tree.Root()); err != nil {
		t.Error(err)
	}
}

func TestScenarioEvalFailures(t *testing.T) {
	state := value.NewState(map[string]any{"n": 5})
	var reported []error
	cfg := DefaultConfig()
	cfg.Reporter = func(err error) { reported = append(reported, err) }

	tree := bindTree(t, `
<column>
  <text>"[{{ missing.path }}]"</text>
  <text>"{{ n.x }}"</text>
</column>`, state, cfg)

	buf := render(t, tree, 10, 2)
	if got := buf.GetLine(0); got != "[]" {
		t.Errorf("undefined rendered as %q, want %q", got, "[]")
	}

	span := child(t, tree, 0, 1, 0)
	if span.Kind != KindPlaceholder {
		t.Errorf("failed span kind = %s, want placeholder", span.Kind)
	}
	if len(reported) != 1 {
		t.Fatalf("expected 1 report, got %d: %v", len(reported), reported)
	}
	var ee *template.EvalError
	if !errors.As(reported[0], &ee) || ee.Kind != template.TypeMismatch {
		t.Errorf("expected a type mismatch, got %v", reported[0])
	}

	t.Run("ReportedOnce", func(t *testing.T) {
		if err := state.SetAny("n", 6); err != nil {
			t.Fatal(err)
		}
		tree.Rebind(state.TakeDirty())
		if len(reported) != 1 {
			t.Errorf("same failure reported again: %v", reported)
		}
	})

	t.Run("Recovers", func(t *testing.T) {
		if err := state.SetAny("n", map[string]any{"x": "ok"}); err != nil {
			t.Fatal(err)
		}
		patch := tree.Rebind(state.TakeDirty())
		if span.Kind != KindSpan || span.Err != nil {
			t.Errorf("span did not recover: kind %s err %v", span.Kind, span.Err)
		}
		if !containsID(patch.Updated, span.ID) {
			t.Errorf("recovered span not in updated %v", patch.Updated)
		}
		buf := render(t, tree, 10, 2)
		if got := buf.GetLine(1); got != "ok" {
			t.Errorf("line 1 = %q, want ok", got)
		}
	})
}

func TestScenarioResizeRepaints(t *testing.T) {
	rt := newTestRuntime(t, `<text>"hi"</text>`, nil, 4, 2)
	if _, err := rt.Tick(nil, nil); err != nil {
		t.Fatal(err)
	}
	patches, err := rt.Tick(nil, nil)
	if err != nil || patches != nil {
		t.Fatalf("idle tick = %v, %v; want no patches", patches, err)
	}

	patches, err = rt.Tick([]Event{ResizeEvent{Size: Size{Width: 4, Height: 2}}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(patches) != 8 {
		t.Errorf("resize produced %d patches, want every cell (8)", len(patches))
	}

	patches, _ = rt.Tick([]Event{ResizeEvent{Size: Size{Width: 6, Height: 1}}}, nil)
	if len(patches) != 6 {
		t.Errorf("resize to 6x1 produced %d patches, want 6", len(patches))
	}
	if got := rt.Frame().GetLine(0); got != "hi" {
		t.Errorf("frame after resize = %q", got)
	}
}

func TestUnreadPathIsNoop(t *testing.T) {
	state := value.NewState(map[string]any{"a": 1, "b": 2, "items": []any{1, 2}})
	rt := newTestRuntime(t, `
<column>
  <text>"{{ a }}"</text>
  {% if a > 0 %}<text>"pos"</text>{% end %}
  {% for i in items %}<text>"{{ i }}"</text>{% end %}
</column>`, state, 10, 5)
	if _, err := rt.Tick(nil, nil); err != nil {
		t.Fatal(err)
	}

	if p := rt.Tree().Rebind([]string{"b"}); !p.Empty() {
		t.Errorf("rebind of unread path = %+v, want empty", p)
	}
	if err := state.SetAny("b", 3); err != nil {
		t.Fatal(err)
	}
	patches, err := rt.Tick(nil, nil)
	if err != nil || patches != nil {
		t.Errorf("tick after unread write = %v, %v; want nothing", patches, err)
	}

	if err := state.SetAny("a", 7); err != nil {
		t.Fatal(err)
	}
	patches, _ = rt.Tick(nil, nil)
	want := []Patch{{X: 0, Y: 0, Cell: NewCell('7', DefaultStyle())}}
	if diff := cmp.Diff(want, patches); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}

func TestRuntime(t *testing.T) {
	t.Run("ParseErrorFailsFast", func(t *testing.T) {
		_, err := NewRuntime(`<row></column>`, nil, testConfig(5, 5))
		var pe *template.ParseError
		if !errors.As(err, &pe) || pe.Kind != template.MismatchedTag {
			t.Errorf("expected mismatched tag, got %v", err)
		}
	})

	t.Run("OnEvent", func(t *testing.T) {
		cfg := testConfig(5, 1)
		cfg.OnEvent = func(ev Event, s *value.State) {
			if k, ok := ev.(KeyEvent); ok {
				s.SetAny("last", string(k.Key.Rune))
			}
		}
		rt, err := NewRuntime(`<text>"{{ last }}"</text>`, nil, cfg)
		if err != nil {
			t.Fatal(err)
		}
		rt.Tick(nil, nil)
		rt.Tick([]Event{KeyEvent{Key: Key{Rune: 'x'}}}, nil)
		if got := rt.Frame().GetLine(0); got != "x" {
			t.Errorf("frame = %q, want x", got)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rt := newTestRuntime(t, `<text>"one"</text>`, nil, 5, 1)
		rt.Tick(nil, nil)
		if err := rt.Reload(`<text>"on"`); err == nil {
			t.Fatal("expected parse error")
		}
		if err := rt.Reload(`<text>"ona"</text>`); err != nil {
			t.Fatal(err)
		}
		patches, _ := rt.Tick(nil, nil)
		want := []Patch{{X: 2, Y: 0, Cell: NewCell('a', DefaultStyle())}}
		if diff := cmp.Diff(want, patches); diff != "" {
			t.Errorf("reload patches mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		stats := &Stats{}
		cfg := testConfig(3, 1)
		cfg.Metrics = stats
		rt, err := NewRuntime(`<text>"abc"</text>`, nil, cfg)
		if err != nil {
			t.Fatal(err)
		}
		rt.Tick(nil, nil)
		rt.Tick(nil, nil)
		snap := stats.Snapshot()
		if snap.Ticks != 2 {
			t.Errorf("ticks = %d, want 2", snap.Ticks)
		}
		if snap.CellsPatched != 3 {
			t.Errorf("cells patched = %d, want 3", snap.CellsPatched)
		}
		// document, text and its span
		if snap.WidgetsBound != 3 {
			t.Errorf("widgets bound = %d, want 3", snap.WidgetsBound)
		}
	})
}

func containsID(ids []WidgetID, id WidgetID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
