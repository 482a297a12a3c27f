// Package watcher reports when experiment files change on disk.
//
// Editors commonly save by writing a temporary file and renaming it over the
// original, which drops an fsnotify watch on the file itself. The watcher
// therefore watches each target's directory and filters events by name.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned when operations are called on a closed Watcher.
var ErrClosed = errors.New("watcher: watcher is closed")

// Handler receives the sorted, de-duplicated paths that changed during one
// debounce window.
type Handler func(paths []string)

// ErrorHandler is called when a watch error occurs.
type ErrorHandler func(err error)

// Watcher watches a set of files for content changes.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debouncer    *Debouncer
	handler      Handler
	errorHandler ErrorHandler
	logger       *slog.Logger

	mu      sync.Mutex
	targets map[string]bool
	dirs    map[string]bool
	pending map[string]bool
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period before the handler runs.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debouncer = NewDebouncer(d)
		}
	}
}

// WithErrorHandler sets the error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(w *Watcher) {
		w.errorHandler = handler
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New creates a watcher that calls handler after targets change.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(DefaultDebounceDuration),
		handler:   handler,
		targets:   make(map[string]bool),
		dirs:      make(map[string]bool),
		pending:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	go w.run()
	return w, nil
}

// Add starts watching the file at path. The file's directory must exist.
func (w *Watcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if w.targets[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.targets[abs] = true
	w.logger.Debug("watching file", "path", abs)
	return nil
}

// Targets returns the watched files, sorted.
func (w *Watcher) Targets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.targets))
	for p := range w.targets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close stops the watcher and releases resources. Pending notifications are
// dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.debouncer.Cancel()
	return w.fsWatcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.errorHandler != nil {
				w.errorHandler(err)
			}
		}
	}
}

// contentChange is the set of operations that can alter a file's contents,
// including a rename landing a new file on the watched name.
const contentChange = fsnotify.Create | fsnotify.Write | fsnotify.Rename

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&contentChange == 0 {
		return
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	if w.closed || !w.targets[abs] {
		w.mu.Unlock()
		return
	}
	w.pending[abs] = true
	w.mu.Unlock()

	w.logger.Debug("file changed", "path", abs, "op", ev.Op.String())
	w.debouncer.Trigger(w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	sort.Strings(paths)
	if w.handler != nil {
		w.handler(paths)
	}
}

// Watch calls fn each time any of paths changes, until ctx is done.
// Calls to fn never overlap.
func Watch(ctx context.Context, paths []string, fn func(changed []string), opts ...Option) error {
	changes := make(chan []string, 1)
	w, err := New(func(p []string) {
		select {
		case changes <- p:
		case <-ctx.Done():
		}
	}, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-changes:
			fn(p)
		}
	}
}
