// Package reload watches template and asset directories in debug mode and
// notifies connected browsers when something changes.
package reload

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Event describes one change on disk
type Event struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// Invalidator is implemented by render.Renderer
type Invalidator interface {
	Invalidate(name string)
}

type Watcher struct {
	watcher *fsnotify.Watcher

	// template root -> renderer cache to drop on change
	templateDir string
	invalidator Invalidator

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewWatcher watches every directory under templateDir and dirs. Changes
// below templateDir invalidate inv; an empty templateDir watches dirs only.
func NewWatcher(templateDir string, inv Invalidator, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:     fw,
		invalidator: inv,
		subscribers: make(map[chan Event]struct{}),
	}
	if templateDir != "" {
		w.templateDir = filepath.Clean(templateDir)
	}

	roots := append([]string{templateDir}, dirs...)
	for _, root := range roots {
		if root == "" {
			continue
		}
		if err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// fsnotify is not recursive, so every subdirectory is added explicitly
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run processes file system events until ctx is done
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.closeSubscribers()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				w.closeSubscribers()
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.closeSubscribers()
				return
			}
			log.Printf("[Reload] watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}

	// New directories need their own watch
	if ev.Has(fsnotify.Create) {
		if err := w.addTree(ev.Name); err != nil {
			log.Printf("[Reload] %v", err)
		}
	}

	if w.invalidator != nil && w.templateDir != "" {
		if rel, err := filepath.Rel(w.templateDir, ev.Name); err == nil && filepath.IsLocal(rel) {
			w.invalidator.Invalidate(filepath.ToSlash(rel))
		}
	}

	log.Printf("[Reload] %s %s", ev.Op, ev.Name)
	w.Broadcast(Event{Type: "reload", Path: filepath.ToSlash(ev.Name)})
}

// Subscribe returns a channel of change events and a function to release it
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	w.mu.Lock()
	w.subscribers[ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			if _, ok := w.subscribers[ch]; ok {
				delete(w.subscribers, ch)
				close(ch)
			}
			w.mu.Unlock()
		})
	}
}

// Broadcast delivers ev to every subscriber without blocking; a subscriber
// with an event already pending misses this one.
func (w *Watcher) Broadcast(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribers)
}

func (w *Watcher) closeSubscribers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subscribers {
		delete(w.subscribers, ch)
		close(ch)
	}
}
