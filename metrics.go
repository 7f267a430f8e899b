package loom

import (
	"fmt"
	"sync"
	"time"
)

// Metrics observes the pipeline. Implementations must not block; the
// runtime never reads anything back.
type Metrics interface {
	ObserveTick(d time.Duration)
	WidgetsBound(n int)
	CellsPatched(n int)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveTick(time.Duration) {}
func (NopMetrics) WidgetsBound(int)          {}
func (NopMetrics) CellsPatched(int)          {}

// Stats is an in-memory Metrics that keeps totals and the last tick time.
// It is safe for concurrent use.
type Stats struct {
	mu      sync.Mutex
	ticks   int
	total   time.Duration
	last    time.Duration
	worst   time.Duration
	widgets int
	patched int
}

func (s *Stats) ObserveTick(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	s.total += d
	s.last = d
	s.worst = max(s.worst, d)
}

func (s *Stats) WidgetsBound(n int) {
	s.mu.Lock()
	s.widgets += n
	s.mu.Unlock()
}

func (s *Stats) CellsPatched(n int) {
	s.mu.Lock()
	s.patched += n
	s.mu.Unlock()
}

// Snapshot is a copy of the counters in a Stats.
type Snapshot struct {
	Ticks        int
	Last, Worst  time.Duration
	Mean         time.Duration
	WidgetsBound int
	CellsPatched int
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Ticks:        s.ticks,
		Last:         s.last,
		Worst:        s.worst,
		WidgetsBound: s.widgets,
		CellsPatched: s.patched,
	}
	if s.ticks > 0 {
		snap.Mean = s.total / time.Duration(s.ticks)
	}
	return snap
}

// String returns a compact one-line timing summary.
func (s Snapshot) String() string {
	return fmt.Sprintf("ticks:%d last:%s worst:%s mean:%s widgets:%d cells:%d",
		s.Ticks, s.Last, s.Worst, s.Mean, s.WidgetsBound, s.CellsPatched)
}
