package loom_test

import (
	"fmt"

	"github.com/kungfusheep/loom"
	"github.com/kungfusheep/loom/value"
)

func ExampleRuntime() {
	state := value.NewState(map[string]any{"todos": []any{"write", "test"}})
	cfg := loom.DefaultConfig()
	cfg.InitialSize = loom.Size{Width: 20, Height: 4}

	rt, err := loom.NewRuntime(`
<border title="todo" width=12>
  <column>
    {% for t in todos %}<text>"- {{ t }}"</text>{% end %}
  </column>
</border>`, state, cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	rt.Tick(nil, nil)
	fmt.Println(rt.Frame().StringTrimmed())

	state.SetAny("todos.1", "ship")
	patches, _ := rt.Tick(nil, nil)
	fmt.Println(len(patches), rt.Frame().GetLine(2))
	// Output:
	// ┌ todo ────┐
	// │- write   │
	// │- test    │
	// └──────────┘
	// 4 │- ship    │
}

func ExampleParseKey() {
	k, _ := loom.ParseKey("Ctrl+Alt+X")
	fmt.Println(k)
	// Output: ctrl+alt+x
}
