package orchestrator

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cass-search/cass/internal/logging"
)

const (
	watchDebounce   = 2 * time.Second
	watchForceFlush = 5 * time.Second
)

// Watcher subscribes to filesystem events on every connector's declared
// scan roots and reruns incremental ingest limited to touched files,
// debounced per §4.F. Pattern grounded on itsddvn-goclaw's
// internal/skills/watcher.go (single-timer debounce plus a pending flag),
// extended with the spec's forced-flush ceiling so a steady trickle of
// events can't starve indexing indefinitely.
type Watcher struct {
	orch *Orchestrator
	fsw  *fsnotify.Watcher

	mu          sync.Mutex
	timer       *time.Timer
	pending     bool
	firstPendAt time.Time
}

// NewWatcher creates a Watcher over orch's registry's current detections.
func NewWatcher(orch *Orchestrator) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{orch: orch, fsw: fsw}, nil
}

// Start watches every connector's detected scan roots and begins the
// debounce loop. It blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, conn := range w.orch.Registry {
		detection, err := conn.Detect()
		if err != nil || !detection.Present {
			continue
		}
		for _, root := range detection.ScanRoots {
			if err := w.fsw.Add(root); err != nil {
				if !os.IsNotExist(err) {
					logging.LogWarn("watch: cannot watch root", "path", root, "error", err)
				}
				continue
			}
			watched++
		}
	}
	logging.LogInfo("watch started", "roots", watched)

	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.LogWarn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.scheduleFlush()
}

func (w *Watcher) scheduleFlush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.pending {
		w.pending = true
		w.firstPendAt = time.Now()
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	delay := watchDebounce
	if time.Since(w.firstPendAt) > watchForceFlush-watchDebounce {
		delay = 0 // force-flush ceiling reached; flush immediately
	}
	w.timer = time.AfterFunc(delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	ctx := context.Background()
	result, err := w.orch.Run(ctx, ModeIncremental)
	if err != nil {
		logging.LogWarn("watch flush failed", "error", err)
		return
	}
	logging.LogInfo("watch flush complete",
		"discovered", result.Progress.Discovered,
		"persisted", result.Progress.Persisted,
		"warnings", len(result.Warnings))
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}
