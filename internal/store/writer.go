package store

import (
	"github.com/blevesearch/bleve/v2"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/record"
)

// Writer stages documents for one index and commits them as a bleve batch.
//
// A Writer is owned by a single goroutine. Documents become visible to
// searches only after Commit returns.
type Writer struct {
	h       *Handle
	batch   *bleve.Batch
	pending int
	closed  bool
}

// Fingerprint returns the fingerprint of the index this writer feeds.
func (w *Writer) Fingerprint() uint64 {
	return w.h.fp
}

// Add stages doc and returns the address it will have once committed.
func (w *Writer) Add(doc record.Document) (Address, error) {
	if w.closed {
		return Address{}, rxerrors.ErrStoreClosed
	}

	addr := w.h.allocate()
	if err := w.batch.Index(addr.ID(), map[string]any(doc)); err != nil {
		return Address{}, rxerrors.EngineError("add", err)
	}
	w.pending++
	return addr, nil
}

// Pending returns the number of staged, uncommitted documents.
func (w *Writer) Pending() int {
	return w.pending
}

// Commit executes the staged batch. Committing an empty batch is a no-op.
func (w *Writer) Commit() error {
	if w.closed {
		return rxerrors.ErrStoreClosed
	}
	if w.pending == 0 {
		return nil
	}

	err := w.h.commit(w.batch, w.pending)
	w.batch.Reset()
	w.pending = 0
	return err
}

// Close commits pending documents and releases the writer. The index itself
// stays open in the Store.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Commit()
	w.closed = true
	return err
}

// Schema returns the schema documents must be materialized with.
func (w *Writer) Schema() *record.Schema {
	return w.h.schema
}
