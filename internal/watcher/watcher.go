package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"media-boards/internal/logging"
	"media-boards/internal/metrics"
)

// DefaultDebounce is the quiet period before a rescan.
const DefaultDebounce = 2 * time.Second

// Refresher rescans the current root.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Watcher follows one root at a time.
type Watcher struct {
	target   Refresher
	debounce time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	setMu sync.Mutex // serializes SetRoot

	mu      sync.Mutex
	session *session
	timer   *time.Timer
}

type session struct {
	root string
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// New creates a watcher that calls target.Refresh after changes settle.
func New(target Refresher, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{target: target, debounce: debounce, ctx: ctx, cancel: cancel}
}

// Root returns the directory being watched, or "".
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return ""
	}
	return w.session.root
}

// SetRoot switches to path. An empty path stops watching.
func (w *Watcher) SetRoot(path string) error {
	w.setMu.Lock()
	defer w.setMu.Unlock()

	w.mu.Lock()
	old := w.session
	w.session = nil
	w.stopTimerLocked()
	w.mu.Unlock()

	if old != nil {
		old.close()
		logging.Debug("Stopped watching %s", old.root)
	}
	if path == "" || w.ctx.Err() != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return err
	}
	if err := fsw.Add(path); err != nil {
		metrics.WatcherErrors.Inc()
		_ = fsw.Close()
		return err
	}

	s := &session{root: path, fsw: fsw, done: make(chan struct{})}
	w.mu.Lock()
	w.session = s
	w.mu.Unlock()

	go w.loop(s)
	logging.Info("Watching %s for external changes (debounce %v)", path, w.debounce)
	return nil
}

// Stop ends watching and abandons any pending rescan.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.SetRoot("")
}

func (s *session) close() {
	if err := s.fsw.Close(); err != nil {
		logging.Warn("failed to close file watcher: %v", err)
	}
	<-s.done
}

func (w *Watcher) loop(s *session) {
	defer close(s.done)

	for {
		select {
		case event, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			metrics.WatcherEventsTotal.WithLabelValues(eventType(event.Op)).Inc()
			if relevant(event) {
				w.schedule(s)
			}

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

// schedule restarts the debounce timer for s.
func (w *Watcher) schedule(s *session) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session != s {
		return
	}
	w.stopTimerLocked()
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(s) })
}

func (w *Watcher) fire(s *session) {
	w.mu.Lock()
	current := w.session == s
	w.timer = nil
	w.mu.Unlock()
	if !current {
		return
	}

	metrics.WatcherRescansTriggered.Inc()
	logging.Debug("External change in %s, rescanning", s.root)
	if err := w.target.Refresh(w.ctx); err != nil {
		logging.Warn("Rescan after external change failed: %v", err)
	}
}

func (w *Watcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// relevant keeps entry additions, removals, and renames of visible names.
// Writes are ignored since the grid shows names, not contents.
func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}

func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}
