package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/sync/errgroup"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/metrics"
	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/internal/store"
)

// DefaultMaxConcurrency bounds how many indexes are queried at once.
const DefaultMaxConcurrency = 8

// Searcher runs one query across every index in a Store and merges the
// hits into a single ranked list.
//
// It keeps no state between calls and is safe for concurrent use, including
// alongside writers.
type Searcher struct {
	store          *store.Store
	maxConcurrency int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithMaxConcurrency bounds the per-index fan-out.
// Values <= 0 select DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option {
	return func(s *Searcher) {
		s.maxConcurrency = n
	}
}

// New creates a Searcher over s.
//
// Returns ErrNilStore if s is nil.
func New(s *store.Store, opts ...Option) (*Searcher, error) {
	if s == nil {
		return nil, ErrNilStore
	}
	sr := &Searcher{store: s}
	for _, opt := range opts {
		opt(sr)
	}
	if sr.maxConcurrency <= 0 {
		sr.maxConcurrency = DefaultMaxConcurrency
	}
	return sr, nil
}

// Search implements RecordSearcher.
//
// The query is parsed for every index before any executes, so a syntax
// error yields no results at all. Each index returns at most limit hits into
// one shared Collector; the survivors are then fetched and rendered.
func (s *Searcher) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	start := time.Now()

	if limit < 1 {
		return nil, rxerrors.New(rxerrors.ErrCodeInvalidLimit,
			fmt.Sprintf("limit must be at least 1, got %d", limit), nil)
	}

	handles := s.store.Indexes()
	queries := make([]query.Query, len(handles))
	for i, h := range handles {
		parsed, err := h.ParseQuery(q)
		if err != nil {
			return nil, err
		}
		queries[i] = parsed
	}

	coll := NewCollector(limit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, h := range handles {
		g.Go(func() error {
			fp := h.Fingerprint()
			return h.Execute(gctx, queries[i], limit, func(hit store.Hit) error {
				coll.Offer(Entry{Fingerprint: fp, Address: hit.Address, Score: hit.Score})
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byFingerprint := make(map[uint64]*store.Handle, len(handles))
	for _, h := range handles {
		byFingerprint[h.Fingerprint()] = h
	}

	entries := coll.Drain()
	results := make([]Result, 0, len(entries))
	resolveErrors := 0
	for _, e := range entries {
		doc, err := resolve(byFingerprint[e.Fingerprint], e)
		if err != nil {
			resolveErrors++
			slog.Warn("search_resolve_failed",
				slog.String("fingerprint", record.FormatFingerprint(e.Fingerprint)),
				slog.String("address", e.Address.String()),
				slog.String("error", err.Error()))
			results = append(results, Result{Err: err})
			continue
		}
		results = append(results, Result{Document: doc})
	}

	metrics.ObserveSearch(start, len(results)-resolveErrors, resolveErrors)
	slog.Debug("search_complete",
		slog.String("query", q),
		slog.Int("limit", limit),
		slog.Int("indexes", len(handles)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func resolve(h *store.Handle, e Entry) (*Document, error) {
	if h == nil {
		return nil, rxerrors.InternalError(
			"no index for fingerprint "+record.FormatFingerprint(e.Fingerprint), nil)
	}
	fields, err := h.Fetch(e.Address)
	if err != nil {
		return nil, err
	}
	return &Document{
		Fingerprint: e.Fingerprint,
		Address:     e.Address,
		Score:       e.Score,
		Fields:      fields,
	}, nil
}

// Ensure Searcher implements RecordSearcher at compile time.
var _ RecordSearcher = (*Searcher)(nil)
