package loom

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
)

// ErrNotTerminal is returned by App.Run when stdout is not a terminal.
var ErrNotTerminal = errors.New("loom: stdout is not a terminal")

// App runs a Runtime against a Terminal: poll for input, drain the inbox,
// tick and write the patches, until a quit key or the context ends.
type App struct {
	term  Terminal
	rt    *Runtime
	cfg   Config
	log   *log.Logger
	inbox chan Event
	quit  []Key

	// isTTY gates Run; NewApp checks stdout.
	isTTY func() bool
}

// NewApp wires a terminal to a runtime.
func NewApp(term Terminal, rt *Runtime, cfg Config) (*App, error) {
	if term == nil || rt == nil {
		return nil, errors.New("loom: app needs a terminal and a runtime")
	}
	a := &App{
		term:  term,
		rt:    rt,
		cfg:   cfg,
		log:   cfg.logger(),
		inbox: make(chan Event, max(cfg.InboxSize, 0)),
		isTTY: func() bool {
			fd := os.Stdout.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}
	for _, s := range cfg.QuitKeys {
		k, err := ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("loom: quit key: %w", err)
		}
		a.quit = append(a.quit, k)
	}
	return a, nil
}

// Send queues ev for the next tick. It never blocks: when the inbox is full
// the event is dropped and Send returns false. Safe from any goroutine.
func (a *App) Send(ev Event) bool {
	select {
	case a.inbox <- ev:
		return true
	default:
		return false
	}
}

// Run takes over the terminal until a quit key is pressed or ctx is done.
// The terminal is restored on every way out, panics included.
func (a *App) Run(ctx context.Context) (err error) {
	if !a.isTTY() {
		return ErrNotTerminal
	}
	if err := a.term.EnterRawMode(); err != nil {
		return err
	}
	defer func() {
		r := recover()
		if lerr := a.term.LeaveRawMode(); lerr != nil && err == nil {
			err = lerr
		}
		if r != nil {
			panic(r)
		}
	}()

	size, err := a.term.ViewportSize()
	if err != nil {
		return err
	}
	events := []Event{ResizeEvent{Size: size}}
	for {
		if err := a.tick(events); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		events = events[:0]
		ev, ok, err := a.term.PollEvent(a.cfg.TickInterval)
		if err != nil {
			return err
		}
		if ok {
			if a.quits(ev) {
				return nil
			}
			events = append(events, ev)
		}
		events = a.drain(events)
	}
}

func (a *App) tick(events []Event) error {
	patches, err := a.rt.Tick(events, nil)
	if err != nil {
		// layout defects are already reported; the frame is still usable
		a.log.Printf("loom: tick: %v", err)
	}
	return a.term.WritePatches(patches)
}

func (a *App) drain(events []Event) []Event {
	for {
		select {
		case ev := <-a.inbox:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func (a *App) quits(ev Event) bool {
	k, ok := ev.(KeyEvent)
	if !ok {
		return false
	}
	for _, q := range a.quit {
		if k.Key == q {
			return true
		}
	}
	return false
}
