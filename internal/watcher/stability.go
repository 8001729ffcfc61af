package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"
)

var (
	// ErrFileNotFound is returned when the file disappears while waiting.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileUnstable is returned when the file keeps changing past the timeout.
	ErrFileUnstable = errors.New("file did not stabilize within timeout")
)

const stabilityTimeout = 30 * time.Second

// StabilityChecker waits for uploads to finish: a file is stable once its
// size and modification time have held for the threshold.
type StabilityChecker struct {
	threshold time.Duration
	interval  time.Duration
}

// NewStabilityChecker polls four times per threshold, but never more often
// than every 50ms.
func NewStabilityChecker(threshold time.Duration) *StabilityChecker {
	return &StabilityChecker{
		threshold: threshold,
		interval:  max(threshold/4, 50*time.Millisecond),
	}
}

// snapshot is what must stop changing.
type snapshot struct {
	size    int64
	modTime time.Time
}

func (a snapshot) same(b snapshot) bool {
	return a.size == b.size && a.modTime.Equal(b.modTime)
}

func take(path string) (snapshot, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot{}, ErrFileNotFound
	}
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{size: info.Size(), modTime: info.ModTime()}, nil
}

// WaitForStable blocks until path is stable, the timeout passes or ctx is
// done.
func (s *StabilityChecker) WaitForStable(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, stabilityTimeout)
	defer cancel()

	last, err := take(path)
	if err != nil {
		return err
	}
	since := time.Now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFileUnstable
			}
			return ctx.Err()
		case now := <-ticker.C:
			cur, err := take(path)
			if err != nil {
				return err
			}
			if !cur.same(last) {
				last, since = cur, now
				continue
			}
			if now.Sub(since) >= s.threshold {
				return nil
			}
		}
	}
}
