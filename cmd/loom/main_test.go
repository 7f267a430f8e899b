package main

import (
	"bytes"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kungfusheep/loom"
	"github.com/kungfusheep/loom/value"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    loom.Size
		wantErr bool
	}{
		{"80x24", loom.Size{Width: 80, Height: 24}, false},
		{"10X3", loom.Size{Width: 10, Height: 3}, false},
		{"80", loom.Size{}, true},
		{"0x5", loom.Size{}, true},
		{"ax5", loom.Size{}, true},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseSize(%q) = %+v, %v", tt.in, got, err)
		}
	}
}

func TestUsage(t *testing.T) {
	out := flag.CommandLine.Output()
	defer flag.CommandLine.SetOutput(out)

	var buf bytes.Buffer
	usage(&buf)
	for _, want := range []string{"-dump", "-watch", "template functions: contains, default, join, keys, len, lower, max, min, repeat, str, trim, upper"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("usage missing %q:\n%s", want, buf.String())
		}
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDumpFrame(t *testing.T) {
	dir := t.TempDir()
	statePath := writeFile(t, dir, "state.yaml", "title: hello\nitems: [a, b]\n")
	state, err := loadState(statePath)
	if err != nil {
		t.Fatal(err)
	}

	src := `
<column>
  <text>"{{ title }}"</text>
  {% for i in items %}<text>"- {{ i }}"</text>{% end %}
</column>`
	var out bytes.Buffer
	if err := dumpFrame(&out, src, state, loom.DefaultConfig(), loom.Size{Width: 10, Height: 4}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("hello\n- a\n- b\n", out.String()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestReadState(t *testing.T) {
	dir := t.TempDir()
	if _, err := readState(writeFile(t, dir, "bad.yaml", "a: [\n")); err == nil {
		t.Error("expected parse error")
	}
	root, err := readState(writeFile(t, dir, "empty.yaml", ""))
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind() != value.KindMap {
		t.Errorf("empty file gives %s, want map", root.Kind())
	}
	if s, err := loadState(""); err != nil || !s.Get("x").IsUndefined() {
		t.Errorf("loadState(\"\") = %v, %v", s, err)
	}
}

func TestPreviewerOnEvent(t *testing.T) {
	p := &previewer{log: log.New(io.Discard, "", 0)}
	cfg := loom.DefaultConfig()
	cfg.InitialSize = loom.Size{Width: 8, Height: 1}
	cfg.OnEvent = p.onEvent
	state := value.NewState(map[string]any{"name": "one"})
	var err error
	p.rt, err = loom.NewRuntime(`<text>"{{ name }}"</text>`, state, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p.rt.Tick(nil, nil)

	root := value.From(map[string]any{"name": "two"})
	p.rt.Tick([]loom.Event{loom.UserEvent{Payload: stateChanged{root: root}}}, nil)
	if got := p.rt.Frame().GetLine(0); got != "two" {
		t.Errorf("after state reload: %q", got)
	}

	p.rt.Tick([]loom.Event{loom.UserEvent{Payload: templateChanged(`<text>"[{{ name }}]"</text>`)}}, nil)
	if got := p.rt.Frame().GetLine(0); got != "[two]" {
		t.Errorf("after template reload: %q", got)
	}

	// a broken template keeps the running one
	p.rt.Tick([]loom.Event{loom.UserEvent{Payload: templateChanged(`<text>`)}}, nil)
	if got := p.rt.Frame().GetLine(0); got != "[two]" {
		t.Errorf("after broken reload: %q", got)
	}
}

func TestWatcherFlush(t *testing.T) {
	dir := t.TempDir()
	tpl := writeFile(t, dir, "view.loom", `<text>"x"</text>`)
	st := writeFile(t, dir, "state.yaml", "n: 1\n")

	var got []loom.Event
	w, err := newWatcher(tpl, st, log.New(io.Discard, "", 0), func(ev loom.Event) bool {
		got = append(got, ev)
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.close()

	if w.match(filepath.Join(dir, "other.txt")) != "" {
		t.Error("unrelated file matched")
	}
	if w.match(tpl) != w.template {
		t.Error("template not matched")
	}

	w.flush(map[string]bool{w.state: true, w.template: true})
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if src, ok := got[0].(loom.UserEvent).Payload.(templateChanged); !ok || string(src) != `<text>"x"</text>` {
		t.Errorf("first event = %+v, want the template", got[0])
	}
	sc, ok := got[1].(loom.UserEvent).Payload.(stateChanged)
	if !ok {
		t.Fatalf("second event = %+v, want the state", got[1])
	}
	if n, _ := value.NewStateValue(sc.root).Get("n").Num(); n != 1 {
		t.Errorf("state n = %v", n)
	}
}
