package store

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/metrics"
	"github.com/Aman-CERP/recdex/internal/record"
)

// Store is the registry of per-fingerprint indexes.
//
// The registry only grows: an index is created on first write of its shape
// and lives until Close. All lookups and creations happen under one mutex, so
// two goroutines never create an index for the same fingerprint.
type Store struct {
	mu      sync.Mutex
	handles map[uint64]*Handle
	dataDir string
	lock    *flock.Flock
	closed  bool

	dataDirSet bool
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDataDir stores indexes on disk under dir instead of in memory.
// An empty dir keeps the store in memory and logs a store_in_memory warning.
func WithDataDir(dir string) Option {
	return func(s *Store) {
		s.dataDir = dir
		s.dataDirSet = true
	}
}

// WithLogger sets the logger for store and index events. The default is the
// slog default logger at the time New runs.
//
// Index events are logged while a record is being written. A logger whose
// handler writes back into this store must not be used here.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a Store. Without WithDataDir every index lives in memory.
//
// With a data directory, New takes an exclusive lock on <dir>/recdex.lock
// and reopens every <fingerprint>.bleve index found there.
func New(opts ...Option) (*Store, error) {
	s := &Store{handles: make(map[uint64]*Handle)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.dataDir == "" {
		if s.dataDirSet {
			s.logger.Warn("store_in_memory",
				slog.String("reason", "data dir is empty"),
				slog.String("effect", "indexes are lost on exit"))
		}
		return s, nil
	}

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return nil, rxerrors.DataDirError(s.dataDir, err)
	}

	s.lock = flock.New(filepath.Join(s.dataDir, lockFileName))
	acquired, err := s.lock.TryLock()
	if err != nil {
		return nil, rxerrors.DataDirError(s.dataDir, err)
	}
	if !acquired {
		return nil, rxerrors.DataDirLockedError(s.dataDir)
	}

	if err := s.reopen(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// reopen loads every index directory in the data dir.
func (s *Store) reopen() error {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return rxerrors.DataDirError(s.dataDir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasSuffix(name, indexExt) {
			continue
		}
		fp, err := strconv.ParseUint(strings.TrimSuffix(name, indexExt), 16, 64)
		if err != nil {
			s.logger.Warn("index_dir_skipped",
				slog.String("dir", name),
				slog.String("reason", "name is not a fingerprint"))
			continue
		}

		h, err := openHandle(fp, filepath.Join(s.dataDir, name), s.logger)
		if err != nil {
			return err
		}
		s.handles[fp] = h
		s.logger.Info("index_opened",
			slog.String("fingerprint", record.FormatFingerprint(fp)),
			slog.Int("fields", h.schema.Len()),
			slog.Uint64("segment", h.Segment()))
	}
	return nil
}

// DataDir returns the on-disk location, or "" for an in-memory store.
func (s *Store) DataDir() string {
	return s.dataDir
}

// GetOrCreateWriter returns a new writer for fp, creating and registering the
// index on first use. An existing index must have been created with an equal
// schema.
func (s *Store) GetOrCreateWriter(fp uint64, schema *record.Schema) (*Writer, error) {
	w, created, err := s.getOrCreateWriter(fp, schema)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("index_created",
			slog.String("fingerprint", record.FormatFingerprint(fp)),
			slog.Int("fields", schema.Len()),
			slog.Bool("persistent", s.dataDir != ""))
	}
	return w, nil
}

func (s *Store) getOrCreateWriter(fp uint64, schema *record.Schema) (*Writer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, rxerrors.ErrStoreClosed
	}

	h, ok := s.handles[fp]
	if !ok {
		var err error
		h, err = createHandle(fp, schema, s.indexPath(fp), s.logger)
		if err != nil {
			return nil, false, err
		}
		s.handles[fp] = h
		metrics.IndexesCreated.Inc()
	} else if !h.schema.Equal(schema) {
		return nil, false, rxerrors.SchemaConflictError("",
			"fingerprint "+record.FormatFingerprint(fp)+" already registered with a different schema")
	}

	w, err := h.OpenWriter()
	return w, !ok, err
}

func (s *Store) indexPath(fp uint64) string {
	if s.dataDir == "" {
		return ""
	}
	return filepath.Join(s.dataDir, record.FormatFingerprint(fp)+indexExt)
}

// Indexes returns a point-in-time snapshot of all handles sorted by
// fingerprint. Indexes created afterwards are not included.
func (s *Store) Indexes() []*Handle {
	s.mu.Lock()
	out := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].fp < out[j].fp })
	return out
}

// Handle returns the handle for fp, if registered.
func (s *Store) Handle(fp uint64) (*Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[fp]
	return h, ok
}

// Len returns the number of registered indexes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stats returns per-index document counts.
func (s *Store) Stats() Stats {
	handles := s.Indexes()
	st := Stats{
		Indexes:  len(handles),
		DataDir:  s.dataDir,
		PerIndex: make([]IndexStats, 0, len(handles)),
	}
	for _, h := range handles {
		is := h.Stats()
		st.Documents += is.Documents
		st.PerIndex = append(st.PerIndex, is)
	}
	return st
}

// Close closes every index and releases the data-dir lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, h := range s.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
