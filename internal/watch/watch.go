// Package watch reruns a command when a file changes, such as the job file
// edited while its hint previews are being reviewed.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long writes must settle before a rerun.
const DefaultDelay = 100 * time.Millisecond

// Watcher follows one file.
type Watcher struct {
	path   string
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	runs    int
	lastErr error
}

// State reports the watcher activity.
type State struct {
	Path      string `json:"path"`
	Running   bool   `json:"running"`
	Runs      int    `json:"runs"`
	LastError string `json:"last_error,omitempty"`
}

// New creates a Watcher of path. A zero delay means DefaultDelay.
func New(path string, delay time.Duration, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{path: abs, delay: delay, logger: logger}, nil
}

// Run calls onChange each time the file is written, created or replaced,
// once the writes have settled. The parent directory is watched because
// editors often save by renaming a temporary file. Errors of onChange are
// logged and do not stop the watcher. Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.setRunning(true)
	defer w.setRunning(false)
	w.logger.Debug("watching", "path", w.path)

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("event received", "name", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.delay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			err := onChange(ctx)
			w.recordRun(err)
			if err != nil {
				w.logger.Error("rerun failed", "path", w.path, "error", err)
			}

		case wErr, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// Start runs the watcher in a supervised goroutine. The returned channel
// receives the result of Run once it stops, or the recovered panic.
func (w *Watcher) Start(ctx context.Context, onChange func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		err := w.Run(ctx, onChange)
		done <- err
		return err
	}, lifecycle.WithErrorHandler(func(err error) {
		w.logger.Error("watcher stopped", "error", err)
		// A panic skips the send above; done is buffered so this never blocks.
		select {
		case done <- err:
		default:
		}
	}))
	return done
}

func (w *Watcher) setRunning(v bool) {
	w.mu.Lock()
	w.running = v
	w.mu.Unlock()
}

func (w *Watcher) recordRun(err error) {
	w.mu.Lock()
	w.runs++
	w.lastErr = err
	w.mu.Unlock()
}

// State implements introspection.Introspectable.
func (w *Watcher) State() any {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := State{Path: w.path, Running: w.running, Runs: w.runs}
	if w.lastErr != nil {
		s.LastError = w.lastErr.Error()
	}
	return s
}

// ComponentType implements introspection.Component.
func (w *Watcher) ComponentType() string {
	return "watcher"
}

var _ introspection.Introspectable = (*Watcher)(nil)
var _ introspection.Component = (*Watcher)(nil)
