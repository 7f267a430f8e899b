package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kungfusheep/loom"
	"github.com/kungfusheep/loom/value"
)

// templateChanged carries the new template source.
type templateChanged string

// stateChanged carries the new state root.
type stateChanged struct {
	root value.Value
}

// watcher turns writes to the template and state files into app events.
// Editors often save by renaming over the file, so the parent directories
// are watched rather than the files.
type watcher struct {
	fs       *fsnotify.Watcher
	template string
	state    string
	log      *log.Logger
	send     func(loom.Event) bool
	debounce time.Duration
}

func newWatcher(template, state string, logger *log.Logger, send func(loom.Event) bool) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	w := &watcher{fs: fw, log: logger, send: send, debounce: 50 * time.Millisecond}
	if w.template, err = filepath.Abs(template); err != nil {
		fw.Close()
		return nil, err
	}
	if state != "" {
		if w.state, err = filepath.Abs(state); err != nil {
			fw.Close()
			return nil, err
		}
	}
	dirs := map[string]bool{filepath.Dir(w.template): true}
	if w.state != "" {
		dirs[filepath.Dir(w.state)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

func (w *watcher) close() error {
	return w.fs.Close()
}

// match returns which watched file name refers to, or "".
func (w *watcher) match(name string) string {
	abs, err := filepath.Abs(name)
	if err != nil {
		return ""
	}
	switch abs {
	case w.template, w.state:
		return abs
	}
	return ""
}

// run forwards changes until ctx is done. Bursts of events within the
// debounce window produce one reload per file.
func (w *watcher) run(ctx context.Context) {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := w.match(ev.Name)
			if name == "" {
				continue
			}
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Printf("loom: watch: %v", err)
		case <-fire:
			fire = nil
			w.flush(pending)
			clear(pending)
		}
	}
}

// flush reloads the pending files, template first.
func (w *watcher) flush(pending map[string]bool) {
	if pending[w.template] {
		src, err := os.ReadFile(w.template)
		if err != nil {
			w.log.Printf("loom: reload template: %v", err)
		} else {
			w.forward(templateChanged(src))
		}
	}
	if w.state != "" && pending[w.state] {
		root, err := readState(w.state)
		if err != nil {
			w.log.Printf("loom: reload state: %v", err)
		} else {
			w.forward(stateChanged{root: root})
		}
	}
}

func (w *watcher) forward(payload any) {
	if !w.send(loom.UserEvent{Payload: payload}) {
		w.log.Printf("loom: inbox full, dropped %T", payload)
	}
}
