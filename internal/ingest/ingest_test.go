package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/internal/watcher"
	"github.com/Aman-CERP/recdex/pkg/indexer"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

type fixture struct {
	store    *store.Store
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.New()
	require.NoError(t, err)
	idx, err := indexer.New(s)
	require.NoError(t, err)
	sr, err := searcher.New(s)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = idx.Close()
		_ = s.Close()
	})
	return &fixture{store: s, indexer: idx, searcher: sr}
}

func (f *fixture) count(t *testing.T, q string) int {
	t.Helper()
	results, err := f.searcher.Search(context.Background(), q, 100)
	require.NoError(t, err)
	return len(results)
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"id": 9007199254740993, "f": 1.5}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), m["id"])
	assert.Equal(t, json.Number("1.5"), m["f"])

	_, err = Decode([]byte(`{"a":`))
	assert.Equal(t, rxerrors.ErrCodeInvalidInput, rxerrors.GetCode(err))

	_, err = Decode([]byte(`{"a":1} {"b":2}`))
	assert.Equal(t, rxerrors.ErrCodeInvalidInput, rxerrors.GetCode(err))
}

func TestIngester_StreamSkipsBadLines(t *testing.T) {
	// Given: NDJSON with a blank line, a broken line and a mixed-kind list
	f := newFixture(t)
	input := strings.Join([]string{
		`{"level":"INFO","msg":"started","props":{"port":8080}}`,
		``,
		`{"level":"WARN",`,
		`{"tags":[1,"one"]}`,
		`{"level":"ERROR","msg":"crashed","props":{"port":8081}}`,
	}, "\n")

	// When: streaming it
	in := New(f.indexer)
	require.NoError(t, in.Stream(context.Background(), "stdin", strings.NewReader(input)))

	// Then: good records are searchable and bad ones counted
	assert.Equal(t, Stats{Lines: 4, Indexed: 2, Skipped: 2}, in.Stats())
	assert.Equal(t, 2, f.count(t, "*"))
	assert.Equal(t, 1, f.count(t, "props.port:8081"))
}

func TestIngester_StrictAbortsOnFirstBadLine(t *testing.T) {
	f := newFixture(t)
	in := New(f.indexer, WithStrict(true))

	err := in.Stream(context.Background(), "input.ndjson", strings.NewReader("{\"a\":1}\nnot json\n{\"a\":2}\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "input.ndjson record 2")
	assert.Equal(t, 1, in.Stats().Indexed)
}

func TestIngester_ClosedIndexerAborts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.indexer.Close())

	err := New(f.indexer).Stream(context.Background(), "stdin", strings.NewReader("{\"a\":1}\n"))

	assert.ErrorIs(t, err, rxerrors.ErrStoreClosed)
}

func TestIngester_StreamHonoursCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(f.indexer).Stream(ctx, "stdin", strings.NewReader("{\"a\":1}\n"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngester_FollowIndexesAppendedLines(t *testing.T) {
	// Given: a file with one record being followed
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "app.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"n\":1}\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The indexer is single-owner, so searches happen after Follow returns.
	done := make(chan error, 1)
	in := New(f.indexer)
	go func() {
		done <- in.Follow(ctx, []string{path}, watcher.Options{DebounceWindow: 10 * time.Millisecond})
	}()

	// When: another record is appended
	time.Sleep(100 * time.Millisecond)
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString("{\"n\":2}\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())
	time.Sleep(300 * time.Millisecond)
	cancel()

	// Then: both records were indexed
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 2, in.Stats().Indexed)
	assert.Equal(t, 2, f.count(t, "*"))
}
