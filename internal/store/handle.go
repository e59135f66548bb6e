package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/record"
)

// Handle wraps the bleve index of one fingerprint.
//
// Handles are safe for concurrent use: searches and fetches may run while a
// Writer commits. Address allocation is atomic, so several writers may share
// one handle.
type Handle struct {
	fp     uint64
	schema *record.Schema
	path   string // empty for in-memory

	// commitMu serializes batch execution with counter persistence.
	commitMu sync.Mutex
	segment  atomic.Uint64
	nextDoc  atomic.Uint64

	mu     sync.RWMutex
	index  bleve.Index
	closed bool

	logger *slog.Logger
}

// createHandle creates a fresh index for fp. An empty path creates an
// in-memory index.
func createHandle(fp uint64, schema *record.Schema, path string, logger *slog.Logger) (*Handle, error) {
	mapping := schema.IndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		idx, err = bleve.New(path, mapping)
	}
	if err != nil {
		return nil, rxerrors.EngineError("create index", err)
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		_ = idx.Close()
		return nil, rxerrors.InternalError("encode schema", err)
	}
	if err := idx.SetInternal([]byte(internalKeySchema), schemaJSON); err != nil {
		_ = idx.Close()
		return nil, rxerrors.EngineError("store schema", err)
	}
	if err := idx.SetInternal([]byte(internalKeyFingerprint), []byte(record.FormatFingerprint(fp))); err != nil {
		_ = idx.Close()
		return nil, rxerrors.EngineError("store fingerprint", err)
	}

	return &Handle{fp: fp, schema: schema, path: path, index: idx, logger: logger}, nil
}

// openHandle reopens an on-disk index written by createHandle and restores
// its schema and address counters.
func openHandle(fp uint64, path string, logger *slog.Logger) (*Handle, error) {
	if err := validateIndexIntegrity(path); err != nil {
		return nil, rxerrors.CorruptIndexError(path, err)
	}

	idx, err := bleve.Open(path)
	if err != nil {
		if isCorruptionError(err) {
			return nil, rxerrors.CorruptIndexError(path, err)
		}
		return nil, rxerrors.EngineError("open index", err)
	}

	h, err := restoreHandle(fp, path, idx)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	h.logger = logger
	return h, nil
}

func restoreHandle(fp uint64, path string, idx bleve.Index) (*Handle, error) {
	rawFP, err := idx.GetInternal([]byte(internalKeyFingerprint))
	if err != nil {
		return nil, rxerrors.EngineError("read fingerprint", err)
	}
	stored, err := strconv.ParseUint(string(rawFP), 16, 64)
	if err != nil || stored != fp {
		return nil, rxerrors.CorruptIndexError(path,
			fmt.Errorf("fingerprint %q does not match directory name", rawFP))
	}

	rawSchema, err := idx.GetInternal([]byte(internalKeySchema))
	if err != nil {
		return nil, rxerrors.EngineError("read schema", err)
	}
	if len(rawSchema) == 0 {
		return nil, rxerrors.CorruptIndexError(path, errors.New("schema missing"))
	}
	schema := &record.Schema{}
	if err := json.Unmarshal(rawSchema, schema); err != nil {
		return nil, rxerrors.CorruptIndexError(path, err)
	}

	h := &Handle{fp: fp, schema: schema, path: path, index: idx}

	rawCounters, err := idx.GetInternal([]byte(internalKeyCounters))
	if err != nil {
		return nil, rxerrors.EngineError("read counters", err)
	}
	if len(rawCounters) > 0 {
		var c counters
		if err := json.Unmarshal(rawCounters, &c); err != nil {
			return nil, rxerrors.CorruptIndexError(path, err)
		}
		h.segment.Store(c.Segment)
		h.nextDoc.Store(c.NextDoc)
	}
	return h, nil
}

// Fingerprint returns the record shape this index serves.
func (h *Handle) Fingerprint() uint64 {
	return h.fp
}

// Schema returns the immutable schema of the index.
func (h *Handle) Schema() *record.Schema {
	return h.schema
}

// Path returns the on-disk location, or "" for in-memory indexes.
func (h *Handle) Path() string {
	return h.path
}

// Segment returns the current commit generation.
func (h *Handle) Segment() uint64 {
	return h.segment.Load()
}

// OpenWriter returns a new Writer staging documents into this index.
func (h *Handle) OpenWriter() (*Writer, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, rxerrors.ErrStoreClosed
	}
	return &Writer{h: h, batch: h.index.NewBatch()}, nil
}

// ParseQuery parses a bleve query string. "" and "*" match everything.
func (h *Handle) ParseQuery(q string) (query.Query, error) {
	return ParseQuery(q)
}

// ParseQuery parses a bleve query string independent of any index.
// "" and "*" match every document.
func ParseQuery(q string) (query.Query, error) {
	q = strings.TrimSpace(q)
	if q == "" || q == "*" {
		return bleve.NewMatchAllQuery(), nil
	}
	parsed, err := bleve.NewQueryStringQuery(q).Parse()
	if err != nil {
		return nil, rxerrors.QuerySetupError(q, err)
	}
	return parsed, nil
}

// Execute runs q and delivers at most size hits to fn, ordered by score
// descending then address ascending.
func (h *Handle) Execute(ctx context.Context, q query.Query, size int, fn HitFunc) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return rxerrors.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// the engine sizes its result heap from the request; never ask for more
	// hits than the index holds
	docs, err := h.index.DocCount()
	if err != nil {
		return rxerrors.EngineError("doc count", err)
	}
	if uint64(size) > docs {
		size = int(docs)
	}
	if size <= 0 {
		return nil
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := h.index.SearchInContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return rxerrors.EngineError("search", err)
	}

	for _, hit := range res.Hits {
		addr, err := ParseAddress(hit.ID)
		if err != nil {
			return rxerrors.CorruptIndexError(h.path, err)
		}
		if err := fn(Hit{Address: addr, Score: hit.Score}); err != nil {
			return err
		}
	}
	return nil
}

// Fetch loads the stored document at addr and decodes it through the schema.
func (h *Handle) Fetch(addr Address) (Fields, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, rxerrors.ErrStoreClosed
	}

	doc, err := h.index.Document(addr.ID())
	if err != nil {
		return nil, rxerrors.EngineError("fetch", err)
	}
	if doc == nil {
		return nil, rxerrors.EngineError("fetch", fmt.Errorf("document %s not found", addr))
	}

	fields := make(Fields)
	var decodeErr error
	doc.VisitFields(func(f index.Field) {
		if decodeErr != nil {
			return
		}
		name := f.Name()
		path, ok := h.schema.ExactPath(name)
		if !ok {
			kind, known := h.schema.Kind(name)
			if !known {
				decodeErr = fmt.Errorf("stored field %q is not in the schema", name)
				return
			}
			if kind == record.FieldSigned || kind == record.FieldUnsigned {
				return
			}
			path = name
		}

		var stored any
		switch tf := f.(type) {
		case index.NumericField:
			n, err := tf.Number()
			if err != nil {
				decodeErr = err
				return
			}
			stored = n
		case index.TextField:
			stored = tf.Text()
		default:
			stored = string(f.Value())
		}

		v, err := h.schema.Decode(path, stored)
		if err != nil {
			decodeErr = err
			return
		}
		fields[path] = append(fields[path], v)
	})
	if decodeErr != nil {
		return nil, rxerrors.EngineError("render", decodeErr)
	}
	return fields, nil
}

// DocCount returns the number of committed documents.
func (h *Handle) DocCount() (uint64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return 0, rxerrors.ErrStoreClosed
	}
	n, err := h.index.DocCount()
	if err != nil {
		return 0, rxerrors.EngineError("doc count", err)
	}
	return n, nil
}

// Stats returns a snapshot of the index.
func (h *Handle) Stats() IndexStats {
	n, _ := h.DocCount()
	return IndexStats{
		Fingerprint: h.fp,
		Documents:   n,
		Fields:      h.schema.Len(),
		Segment:     h.segment.Load(),
	}
}

// allocate reserves the address of the next staged document.
func (h *Handle) allocate() Address {
	return Address{
		Segment: h.segment.Load(),
		Doc:     h.nextDoc.Add(1) - 1,
	}
}

// commit executes batch and advances the commit generation. The next
// counters are written in the same batch so a reopened index never reuses
// an address.
func (h *Handle) commit(batch *bleve.Batch, docs int) error {
	h.commitMu.Lock()
	defer h.commitMu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return rxerrors.ErrStoreClosed
	}

	next := counters{Segment: h.segment.Load() + 1, NextDoc: h.nextDoc.Load()}
	raw, err := json.Marshal(next)
	if err != nil {
		return rxerrors.InternalError("encode counters", err)
	}
	batch.SetInternal([]byte(internalKeyCounters), raw)

	if err := h.index.Batch(batch); err != nil {
		return rxerrors.EngineError("commit", err)
	}
	h.segment.Store(next.Segment)

	h.logger.Debug("index_committed",
		slog.String("fingerprint", record.FormatFingerprint(h.fp)),
		slog.Uint64("segment", next.Segment),
		slog.Int("docs", docs))
	return nil
}

// Close closes the underlying index.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if h.index != nil {
		return h.index.Close()
	}
	return nil
}
