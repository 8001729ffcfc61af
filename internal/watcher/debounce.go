package watcher

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// PairKey returns the key shared by a document and its sidecar: the path
// without its extension.
func PairKey(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// settling is one document pair waiting for its events to stop.
type settling struct {
	path  string // most recent path seen for the pair
	timer *time.Timer
	gen   uint64
}

// Debouncer delays a callback until events for a document pair have stopped
// arriving for the configured delay. Events for a document and its sidecar
// restart the same timer and the callback receives the last path seen.
type Debouncer struct {
	delay    time.Duration
	callback func(path string)

	mu      sync.Mutex
	gen     uint64
	pending map[string]*settling
}

// NewDebouncer creates a Debouncer that calls callback once per settled pair.
func NewDebouncer(delay time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		pending:  make(map[string]*settling),
	}
}

// Add records an event for path and restarts the timer of its pair.
func (d *Debouncer) Add(path string) {
	key := PairKey(path)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	s, ok := d.pending[key]
	if ok {
		s.timer.Stop()
	} else {
		s = &settling{}
		d.pending[key] = s
	}
	s.path = path
	s.gen = d.gen

	gen := d.gen
	s.timer = time.AfterFunc(d.delay, func() { d.fire(key, gen) })
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	s, ok := d.pending[key]
	// Stale timer: the pair was cancelled or saw a newer event.
	if !ok || s.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	path := s.path
	d.mu.Unlock()

	if d.callback != nil {
		d.callback(path)
	}
}

// Cancel drops the pair of path. It is a no-op when nothing is pending.
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := PairKey(path)
	if s, ok := d.pending[key]; ok {
		s.timer.Stop()
		delete(d.pending, key)
	}
}

// CancelAll drops every pending pair.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, s := range d.pending {
		s.timer.Stop()
		delete(d.pending, key)
	}
}

// PendingCount returns the number of pairs waiting for their delay.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// IsPending reports whether the pair of path is waiting for its delay.
func (d *Debouncer) IsPending(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[PairKey(path)]
	return ok
}
