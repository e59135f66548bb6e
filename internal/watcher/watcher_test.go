package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{"create", OpCreate, "CREATE"},
		{"modify", OpModify, "MODIFY"},
		{"delete", OpDelete, "DELETE"},
		{"rename", OpRename, "RENAME"},
		{"unknown", Operation(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.WithDefaults())

	custom := Options{DebounceWindow: 5 * time.Millisecond, Polling: true}.WithDefaults()
	assert.Equal(t, 5*time.Millisecond, custom.DebounceWindow)
	assert.Equal(t, time.Second, custom.PollInterval)
	assert.Equal(t, 64, custom.EventBufferSize)
	assert.True(t, custom.Polling)
}

func fastOptions(polling bool) Options {
	return Options{
		DebounceWindow: 10 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		Polling:        polling,
	}
}

func TestWatcher_ReportsOnlyWatchedFiles(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := "fsnotify"
		if polling {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			// Given: a watcher on one file of a directory
			dir := t.TempDir()
			watched := filepath.Join(dir, "watched.ndjson")
			other := filepath.Join(dir, "other.ndjson")
			require.NoError(t, os.WriteFile(watched, nil, 0o644))

			w, err := New([]string{watched}, fastOptions(polling))
			require.NoError(t, err)
			defer func() { _ = w.Stop() }()
			if polling {
				assert.Equal(t, "polling", w.Mode())
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = w.Run(ctx) }()
			time.Sleep(30 * time.Millisecond)

			// When: both files are written
			require.NoError(t, os.WriteFile(other, []byte("x\n"), 0o644))
			require.NoError(t, os.WriteFile(watched, []byte("y\n"), 0o644))

			// Then: only the watched file is reported
			select {
			case batch := <-w.Events():
				require.NotEmpty(t, batch)
				for _, ev := range batch {
					assert.Equal(t, watched, ev.Path)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timeout waiting for event")
			}
		})
	}
}

func TestWatcher_RunReturnsOnCancel(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "f")}, fastOptions(false))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	_, ok := <-w.Events()
	assert.False(t, ok, "events closed after stop")
	assert.NoError(t, w.Stop())
}
