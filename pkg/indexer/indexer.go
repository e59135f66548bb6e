package indexer

import (
	"context"
	"errors"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/metrics"
	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/internal/store"
)

// DefaultMaxOpenWriters bounds the writer cache when no option is given.
const DefaultMaxOpenWriters = 64

// ErrNilStore is returned when attempting to create an Indexer without a store.
var ErrNilStore = errors.New("store is required")

// Indexer routes records to per-shape indexes.
//
// It keeps one Writer per fingerprint in an LRU cache. Evicting a writer
// commits and closes it; the index itself stays in the Store. An Indexer is
// owned by one goroutine.
type Indexer struct {
	store      *store.Store
	maxWriters int
	writers    *lru.Cache[uint64, *store.Writer]
	stats      Stats
	closed     bool
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithMaxOpenWriters bounds the number of cached writers.
// Values <= 0 select DefaultMaxOpenWriters.
func WithMaxOpenWriters(n int) Option {
	return func(i *Indexer) {
		i.maxWriters = n
	}
}

// WithLogger sets the logger for writer events. The default is the slog
// default logger at the time New runs. It must not write back into this
// Indexer.
func WithLogger(l *slog.Logger) Option {
	return func(i *Indexer) {
		i.logger = l
	}
}

// New creates an Indexer writing into s.
//
// Returns ErrNilStore if s is nil.
func New(s *store.Store, opts ...Option) (*Indexer, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	i := &Indexer{store: s}
	for _, opt := range opts {
		opt(i)
	}
	if i.maxWriters <= 0 {
		i.maxWriters = DefaultMaxOpenWriters
	}
	if i.logger == nil {
		i.logger = slog.Default()
	}

	cache, err := lru.NewWithEvict(i.maxWriters, func(fp uint64, w *store.Writer) {
		if err := w.Close(); err != nil {
			i.logger.Warn("writer_close_failed",
				slog.String("fingerprint", record.FormatFingerprint(fp)),
				slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return nil, rxerrors.InternalError("create writer cache", err)
	}
	i.writers = cache
	return i, nil
}

// Index implements RecordIndexer.
func (i *Indexer) Index(ctx context.Context, rec any) error {
	_, err := i.IndexRecord(ctx, rec)
	return err
}

// IndexRecord indexes rec and reports where it was stored.
func (i *Indexer) IndexRecord(ctx context.Context, rec any) (receipt Receipt, err error) {
	defer func() {
		metrics.ObserveIndex(err)
		if err != nil {
			i.stats.Failed++
		}
	}()

	if i.closed {
		return Receipt{}, rxerrors.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	d, err := record.Build(rec)
	if err != nil {
		return Receipt{}, err
	}

	w, err := i.writer(d)
	if err != nil {
		return Receipt{}, err
	}

	doc, err := record.Materialize(d.Fields, w.Schema())
	if err != nil {
		return Receipt{}, err
	}
	addr, err := w.Add(doc)
	if err != nil {
		return Receipt{}, err
	}
	if err := w.Commit(); err != nil {
		return Receipt{}, err
	}

	i.stats.Indexed++
	return Receipt{Fingerprint: d.Fingerprint, Address: addr}, nil
}

// writer returns the cached writer for d's shape, opening one on a miss.
// The cache is only populated after the Store hands out a writer.
func (i *Indexer) writer(d *record.Doc) (*store.Writer, error) {
	if w, ok := i.writers.Get(d.Fingerprint); ok {
		return w, nil
	}

	schema, err := record.BuildSchema(d.Fields)
	if err != nil {
		return nil, err
	}
	w, err := i.store.GetOrCreateWriter(d.Fingerprint, schema)
	if err != nil {
		return nil, err
	}
	i.writers.Add(d.Fingerprint, w)
	return w, nil
}

// Stats returns a snapshot of this session.
func (i *Indexer) Stats() Stats {
	st := i.stats
	st.OpenWriters = i.writers.Len()
	return st
}

// Close commits and closes every cached writer.
//
// This method is idempotent; calling it multiple times is safe.
func (i *Indexer) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true

	var errs []error
	for _, fp := range i.writers.Keys() {
		if w, ok := i.writers.Peek(fp); ok {
			if err := w.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	i.writers.Purge()
	return errors.Join(errs...)
}

// Ensure Indexer implements RecordIndexer at compile time.
var _ RecordIndexer = (*Indexer)(nil)
