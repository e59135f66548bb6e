package watcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LineFunc receives one complete line without its terminator. Returning an
// error stops Follow.
type LineFunc func(path string, line []byte) error

// Follower delivers lines appended to a set of files.
type Follower struct {
	paths []string
	opts  Options
	tails map[string]*tail
}

type tail struct {
	info    os.FileInfo
	offset  int64
	partial []byte
}

// NewFollower creates a follower for paths.
func NewFollower(paths []string, opts Options) *Follower {
	return &Follower{paths: paths, opts: opts, tails: make(map[string]*tail)}
}

// Follow reads every existing line, then blocks delivering new ones until
// ctx is cancelled or fn fails. Blank lines are skipped. A trailing line
// without a newline is held back until it is completed.
func (f *Follower) Follow(ctx context.Context, fn LineFunc) error {
	w, err := New(f.paths, f.opts)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	for _, p := range f.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if err := f.drain(abs, fn); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	slog.Debug("follow_started",
		slog.Int("files", len(f.paths)),
		slog.String("mode", w.Mode()))

	for {
		select {
		case batch, ok := <-w.Events():
			if !ok {
				return <-done
			}
			for _, ev := range batch {
				if err := f.drain(ev.Path, fn); err != nil {
					return err
				}
			}
		case err := <-w.Errors():
			slog.Warn("follow_watch_error", slog.String("error", err.Error()))
		case err := <-done:
			return err
		}
	}
}

// drain reads path from the last offset to EOF. A file that shrank or was
// replaced is read again from the start.
func (f *Follower) drain(path string, fn LineFunc) error {
	t, ok := f.tails[path]
	if !ok {
		t = &tail{}
		f.tails[path] = t
	}

	fh, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		*t = tail{}
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()

	info, err := fh.Stat()
	if err != nil {
		return err
	}
	if (t.info != nil && !os.SameFile(t.info, info)) || info.Size() < t.offset {
		slog.Debug("follow_reset", slog.String("path", path))
		*t = tail{}
	}
	t.info = info

	if _, err := fh.Seek(t.offset, io.SeekStart); err != nil {
		return err
	}

	r := bufio.NewReader(fh)
	for {
		chunk, err := r.ReadBytes('\n')
		t.offset += int64(len(chunk))

		if n := len(chunk); n > 0 && chunk[n-1] == '\n' {
			line := append(t.partial, chunk[:n-1]...)
			t.partial = nil
			line = bytes.TrimSuffix(line, []byte{'\r'})
			if len(bytes.TrimSpace(line)) > 0 {
				if ferr := fn(path, line); ferr != nil {
					return ferr
				}
			}
		} else {
			t.partial = append(t.partial, chunk...)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
