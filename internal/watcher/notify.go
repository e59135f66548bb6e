package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	opts      Options
	files     map[string]struct{}
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// New prepares a watcher for paths. Parent directories are watched so
// files may be created, rotated or replaced while followed.
func New(paths []string, opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	w := &Watcher{
		opts:      opts,
		files:     make(map[string]struct{}, len(paths)),
		debouncer: NewDebouncer(opts.DebounceWindow, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve absolute path: %w", err)
		}
		w.files[abs] = struct{}{}
	}

	if !opts.Polling {
		if err := w.startFsnotify(); err != nil {
			slog.Debug("watch_fallback_polling", slog.String("error", err.Error()))
		}
	}
	return w, nil
}

func (w *Watcher) startFsnotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]struct{})
	for p := range w.files {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.fsw = fsw
	return nil
}

// Mode returns "fsnotify" or "polling".
func (w *Watcher) Mode() string {
	if w.fsw != nil {
		return "fsnotify"
	}
	return "polling"
}

// Run delivers events until ctx is cancelled or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	if w.fsw != nil {
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *Watcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if _, ok := w.files[filepath.Clean(event.Name)]; !ok {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}
	w.debouncer.Add(FileEvent{Path: filepath.Clean(event.Name), Operation: op, Timestamp: time.Now()})
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func (w *Watcher) stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *Watcher) runPolling(ctx context.Context) error {
	last := make(map[string]fileState, len(w.files))
	for p := range w.files {
		last[p] = w.stat(p)
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			for p, prev := range last {
				cur := w.stat(p)
				var op Operation
				switch {
				case cur.exists && !prev.exists:
					op = OpCreate
				case !cur.exists && prev.exists:
					op = OpDelete
				case cur.exists && (cur.size != prev.size || !cur.modTime.Equal(prev.modTime)):
					op = OpModify
				default:
					continue
				}
				last[p] = cur
				w.debouncer.Add(FileEvent{Path: p, Operation: op, Timestamp: time.Now()})
			}
		}
	}
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
		slog.Warn("watch_error_dropped", slog.String("error", err.Error()))
	}
}

// Events returns debounced batches. The channel is closed by Stop.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop releases the watcher. Safe to call multiple times.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.debouncer.Stop()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}
