package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roelfdiedericks/floragate/internal/logging"
)

// Watcher reports edits to the config file. It watches the directory so
// editors that replace the file by rename are seen.
type Watcher struct {
	watcher      *fsnotify.Watcher
	name         string
	debounce     time.Duration
	onChange     func()
	stopCh       chan struct{}
	stopOnce     sync.Once
	mu           sync.Mutex
	pendingTimer *time.Timer
}

// NewWatcher watches path. onChange runs on its own goroutine after the
// debounce window closes.
func NewWatcher(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		watcher:  fsWatcher,
		name:     filepath.Base(abs),
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
	go w.run()

	logging.L_debug("config: watching for changes", "path", abs)
	return w, nil
}

// Stop ends the watch. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()

		w.mu.Lock()
		if w.pendingTimer != nil {
			w.pendingTimer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.L_trace("config: file event", "path", event.Name, "op", event.Op.String())
			w.trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.L_warn("config: watcher error", "error", err)
		}
	}
}

// trigger schedules onChange, collapsing bursts of events into one call.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pendingTimer != nil {
		w.pendingTimer.Stop()
	}
	w.pendingTimer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.onChange()
	})
}
