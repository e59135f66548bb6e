package indexer

import (
	"context"

	"github.com/Aman-CERP/recdex/internal/store"
)

// RecordIndexer defines the contract for indexing operations.
//
// Implementations own their writers and are not required to be safe for
// concurrent use; callers that share one serialize access.
type RecordIndexer interface {
	// Index flattens record, routes it to the index of its shape and commits
	// it.
	//
	// Behavior:
	//   - Synchronous: the record is searchable when Index returns nil
	//   - Creates the shape's index on first sight
	//   - On error nothing is committed and no writer is cached
	Index(ctx context.Context, record any) error

	// Close commits and releases every cached writer.
	//
	// Behavior:
	//   - Safe to call multiple times (idempotent)
	//   - Indexes stay registered in the Store
	Close() error
}

// Receipt identifies where a record was stored.
type Receipt struct {
	// Fingerprint is the shape key of the record.
	Fingerprint uint64

	// Address is the location of the record within its index.
	Address store.Address
}

// Stats holds statistics about an indexer session.
type Stats struct {
	// Indexed is the number of records committed.
	Indexed uint64

	// Failed is the number of records rejected.
	Failed uint64

	// OpenWriters is the number of cached writers.
	OpenWriters int
}
