// Package watcher encodes intake documents as they arrive.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hukudok/internal/scanner"
)

// WatchConfig contains watcher settings.
type WatchConfig struct {
	DebounceSeconds   int      `json:"debounceSeconds" toml:"debounceSeconds"`                   // Delay before processing (default: 2)
	StableThresholdMs int      `json:"stableThresholdMs" toml:"stableThresholdMs"`               // Size stability threshold (default: 1000)
	IgnorePatterns    []string `json:"ignorePatterns,omitempty" toml:"ignorePatterns,omitempty"` // Globs of files never processed
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceSeconds:   2,
		StableThresholdMs: 1000,
		IgnorePatterns:    DefaultIgnorePatterns(),
	}
}

// Outcome is what a Handler did with a document.
type Outcome string

const (
	OutcomeEncoded   Outcome = "ENCODED"
	OutcomeRejected  Outcome = "REJECTED"
	OutcomeDuplicate Outcome = "DUPLICATE"
)

// Handler processes one complete intake document.
type Handler func(ctx context.Context, p scanner.Pending) (Outcome, error)

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	Encoded    int
	Rejected   int
	Duplicates int
	Errors     int
	Ignored    int
	Duration   time.Duration
}

// Watcher monitors intake directories and hands each document whose sidecar
// and document are both present and stable to its Handler.
type Watcher struct {
	config    *WatchConfig
	extension string
	handler   Handler
	logger    *slog.Logger

	fsWatcher *fsnotify.Watcher
	filter    *FileFilter
	debouncer *Debouncer
	stability *StabilityChecker

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	mu       sync.Mutex
	stopped  bool
	inFlight map[string]bool
	handled  map[string]time.Time // sidecar mod time when last handled
	summary  WatchSummary
}

// New creates a Watcher. A nil config selects the defaults; documentExtension
// includes its dot.
func New(config *WatchConfig, documentExtension string, handler Handler, logger *slog.Logger) *Watcher {
	if config == nil {
		config = DefaultWatchConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		config:    config,
		extension: documentExtension,
		handler:   handler,
		logger:    logger,
		filter:    NewFileFilter(config.IgnorePatterns),
		stability: NewStabilityChecker(time.Duration(config.StableThresholdMs) * time.Millisecond),
		inFlight:  make(map[string]bool),
		handled:   make(map[string]time.Time),
	}
	w.debouncer = NewDebouncer(time.Duration(config.DebounceSeconds)*time.Second, w.settled)
	return w
}

// Start begins watching dirs. It returns once the watches are in place; the
// watcher runs until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context, dirs []string) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			fsWatcher.Close()
			return err
		}
		if err := fsWatcher.Add(absDir); err != nil {
			fsWatcher.Close()
			return err
		}
		w.logger.Info("watching intake directory", "dir", absDir)
	}

	w.fsWatcher = fsWatcher
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.startTime = time.Now()

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts the watcher down, waits for documents being processed and
// returns a summary of the session.
func (w *Watcher) Stop() *WatchSummary {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	w.debouncer.CancelAll()
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	summary := w.summary
	summary.Duration = time.Since(w.startTime)
	return &summary
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleEvent(event.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(path string) {
	if w.filter.ShouldIgnore(path) {
		w.mu.Lock()
		w.summary.Ignored++
		w.mu.Unlock()
		w.logger.Debug("ignoring temporary file", "path", path)
		return
	}
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, scanner.SidecarExtension) && !strings.EqualFold(ext, w.extension) {
		return
	}
	w.debouncer.Add(path)
}

// settled runs once events for path have quieted down.
func (w *Watcher) settled(path string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	if err := w.stability.WaitForStable(w.ctx, path); err != nil {
		if !errors.Is(err, ErrFileNotFound) && !errors.Is(err, context.Canceled) {
			w.logger.Warn("file never settled", "path", path, "error", err)
		}
		return
	}

	p, ok := scanner.PendingFor(path, w.extension)
	if !ok {
		return
	}
	// The event may have come from either file; both must be complete.
	other := p.DocumentPath
	if other == path {
		other = p.SidecarPath
	}
	if err := w.stability.WaitForStable(w.ctx, other); err != nil {
		return
	}

	w.mu.Lock()
	if w.inFlight[p.SidecarPath] {
		w.mu.Unlock()
		return
	}
	w.inFlight[p.SidecarPath] = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inFlight, p.SidecarPath)
		w.mu.Unlock()
	}()

	// The pair may have been handled while this path was settling.
	modTime, ok := sidecarModTime(p)
	if !ok {
		return
	}
	w.mu.Lock()
	seen := w.handled[p.SidecarPath].Equal(modTime)
	w.mu.Unlock()
	if seen {
		return
	}

	w.process(p)

	if modTime, ok := sidecarModTime(p); ok {
		w.mu.Lock()
		w.handled[p.SidecarPath] = modTime
		w.mu.Unlock()
	}
}

func sidecarModTime(p scanner.Pending) (time.Time, bool) {
	if _, ok := scanner.PendingFor(p.SidecarPath, filepath.Ext(p.DocumentPath)); !ok {
		return time.Time{}, false
	}
	info, err := os.Stat(p.SidecarPath)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func (w *Watcher) process(p scanner.Pending) {
	if w.handler == nil {
		return
	}

	outcome, err := w.handler(w.ctx, p)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.summary.Errors++
		w.logger.Error("document failed", "sidecar", p.SidecarPath, "error", err)
		return
	}
	switch outcome {
	case OutcomeEncoded:
		w.summary.Encoded++
	case OutcomeRejected:
		w.summary.Rejected++
	case OutcomeDuplicate:
		w.summary.Duplicates++
	}
}

// Config returns the watcher configuration.
func (w *Watcher) Config() *WatchConfig {
	return w.config
}

// IsRunning reports whether the watcher has been started and not stopped.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsWatcher != nil && !w.stopped
}
