package loom

import (
	"slices"
	"time"

	"github.com/kungfusheep/loom/template"
	"github.com/kungfusheep/loom/value"
)

// Event is an input delivered to Runtime.Tick.
type Event interface {
	isEvent()
}

// KeyEvent is a decoded key press.
type KeyEvent struct {
	Key Key
}

// ResizeEvent reports a new viewport size.
type ResizeEvent struct {
	Size Size
}

// UserEvent carries anything the embedding application sends through
// App.Send.
type UserEvent struct {
	Payload any
}

func (KeyEvent) isEvent()    {}
func (ResizeEvent) isEvent() {}
func (UserEvent) isEvent()   {}

// Runtime drives one template through bind, layout, paint and diff. It is
// not safe for concurrent use; App serializes all calls onto its loop.
type Runtime struct {
	cfg     Config
	metrics Metrics
	state   *value.State
	tree    *Tree

	viewport Size
	frames   BufferPool
	prev     *Buffer
	// stale forces the next tick to produce a frame even when no widget
	// changed.
	stale bool

	lastLayoutErr string
}

// NewRuntime parses src and binds it to state. Template errors are returned
// here, before any frame is drawn. A nil state starts empty.
func NewRuntime(src string, state *value.State, cfg Config) (*Runtime, error) {
	if state == nil {
		state = value.NewState(nil)
	}
	doc, err := template.Parse(src, template.WithMaxDepth(cfg.MaxDepth))
	if err != nil {
		return nil, err
	}
	tree, err := Bind(doc, state, cfg)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg:      cfg,
		metrics:  cfg.metrics(),
		state:    state,
		tree:     tree,
		viewport: cfg.InitialSize,
		prev:     NewBuffer(cfg.InitialSize.Width, cfg.InitialSize.Height),
		stale:    true,
	}
	r.metrics.WidgetsBound(tree.arena.Len())
	return r, nil
}

// Tree returns the bound widget tree.
func (r *Runtime) Tree() *Tree { return r.tree }

// State returns the state the template is bound to.
func (r *Runtime) State() *value.State { return r.state }

// Frame returns the last painted frame. It is owned by the runtime, which
// paints into it again two drawing ticks later; Clone it to keep it.
func (r *Runtime) Frame() *Buffer { return r.prev }

// Viewport returns the current viewport size.
func (r *Runtime) Viewport() Size { return r.viewport }

// Tick applies events, rebinds whatever the dirty paths touch and returns
// the cell patches that turn the previous frame into the new one. Paths
// marked on the state since the last tick are merged into dirty.
//
// A resize discards the previous frame, so the following patches cover
// every cell. When nothing changed no frame is drawn and Tick returns nil.
// The returned error is a layout defect; the patches are still valid.
func (r *Runtime) Tick(events []Event, dirty []string) ([]Patch, error) {
	start := time.Now()
	for _, ev := range events {
		switch ev := ev.(type) {
		case ResizeEvent:
			r.viewport = Size{Width: max(ev.Size.Width, 0), Height: max(ev.Size.Height, 0)}
			r.prev = nil
		default:
			if r.cfg.OnEvent != nil {
				r.cfg.OnEvent(ev, r.state)
			}
		}
	}

	if marked := r.state.TakeDirty(); len(marked) > 0 {
		dirty = append(slices.Clip(dirty), marked...)
	}
	tp := r.tree.Rebind(dirty)
	r.metrics.WidgetsBound(len(tp.Created))
	if tp.Empty() && !r.stale && r.prev != nil {
		r.metrics.ObserveTick(time.Since(start))
		return nil, nil
	}
	r.stale = false

	layoutErr := Layout(r.tree, r.viewport)
	r.reportLayout(layoutErr)

	cur := r.frames.Next(r.viewport)
	Paint(r.tree, cur)
	patches := Diff(r.prev, cur)
	r.prev = cur

	r.metrics.CellsPatched(len(patches))
	r.metrics.ObserveTick(time.Since(start))
	return patches, layoutErr
}

func (r *Runtime) reportLayout(err error) {
	if err == nil {
		r.lastLayoutErr = ""
		return
	}
	if msg := err.Error(); msg != r.lastLayoutErr {
		r.lastLayoutErr = msg
		r.tree.defect(err)
	}
}

// Reload swaps in a new template. On a parse error the running template is
// kept and the error returned. The previous frame is kept so the next tick
// only patches what the new template draws differently.
func (r *Runtime) Reload(src string) error {
	doc, err := template.Parse(src, template.WithMaxDepth(r.cfg.MaxDepth))
	if err != nil {
		return err
	}
	tree, err := Bind(doc, r.state, r.cfg)
	if err != nil {
		return err
	}
	r.tree = tree
	r.stale = true
	r.metrics.WidgetsBound(tree.arena.Len())
	return nil
}
