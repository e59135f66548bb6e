package searcher

import (
	"context"
	"errors"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/store"
)

// ErrNilStore is returned when attempting to create a Searcher without a store.
var ErrNilStore = errors.New("store is required")

// ErrInvalidLimit matches errors returned for a limit below 1.
var ErrInvalidLimit = rxerrors.ErrInvalidLimit

// RecordSearcher performs search operations and returns ranked results.
//
// Implementations must be thread-safe for concurrent use.
type RecordSearcher interface {
	// Search executes a query against every index and returns at most
	// limit results in global rank order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and deadlines
	//   - query: bleve query-string syntax; "" and "*" match everything
	//   - limit: Maximum number of results to return, at least 1
	//
	// Returns an empty slice (not nil) if no results match.
	// Returns an error if the query cannot be parsed or an index fails.
	// A result that cannot be resolved carries its own Err.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Document is a resolved hit.
type Document struct {
	// Fingerprint is the shape key of the index the hit came from.
	Fingerprint uint64 `json:"fingerprint"`

	// Address locates the record within its index.
	Address store.Address `json:"address"`

	// Score is the engine relevance score. Scores of different indexes are
	// compared as-is.
	Score float64 `json:"score"`

	// Fields maps dotted paths to stored values in stored order.
	Fields map[string][]any `json:"fields"`
}

// Result is one ranked hit. Exactly one of Document and Err is set.
type Result struct {
	Document *Document
	Err      error
}
