// Package store owns the per-fingerprint bleve indexes of recdex.
// This is the persistence layer for all indexed records: one index per record
// shape, created lazily and kept for the life of the Store.
package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Internal keys stored inside each bleve index.
const (
	// internalKeySchema holds the JSON schema the index was created with.
	internalKeySchema = "recdex:schema"
	// internalKeyCounters holds the next (segment, doc) pair so on-disk
	// indexes resume their address sequence after reopen.
	internalKeyCounters = "recdex:counters"
	// internalKeyFingerprint holds the fingerprint as hex.
	internalKeyFingerprint = "recdex:fingerprint"
)

// indexExt is the directory suffix of on-disk indexes: <fingerprint hex>.bleve
const indexExt = ".bleve"

// lockFileName is the data-dir ownership lock.
const lockFileName = "recdex.lock"

// Address locates a document within one fingerprint's index.
//
// Segment is the commit generation the document was written in; Doc is a
// per-index monotonically increasing id. An Address is only meaningful
// together with its fingerprint.
type Address struct {
	Segment uint64 `json:"segment"`
	Doc     uint64 `json:"doc"`
}

// ID encodes the address as the bleve document ID. Fixed-width hex keeps
// lexicographic ID order equal to (Segment, Doc) order.
func (a Address) ID() string {
	return fmt.Sprintf("%016x.%016x", a.Segment, a.Doc)
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.ID()
}

// Compare orders addresses by segment, then doc.
func (a Address) Compare(b Address) int {
	switch {
	case a.Segment < b.Segment:
		return -1
	case a.Segment > b.Segment:
		return 1
	case a.Doc < b.Doc:
		return -1
	case a.Doc > b.Doc:
		return 1
	}
	return 0
}

// ParseAddress decodes a bleve document ID produced by Address.ID.
func ParseAddress(id string) (Address, error) {
	seg, doc, ok := strings.Cut(id, ".")
	if !ok || len(seg) != 16 || len(doc) != 16 {
		return Address{}, fmt.Errorf("malformed document id %q", id)
	}
	s, err := strconv.ParseUint(seg, 16, 64)
	if err != nil {
		return Address{}, fmt.Errorf("malformed segment in %q: %w", id, err)
	}
	d, err := strconv.ParseUint(doc, 16, 64)
	if err != nil {
		return Address{}, fmt.Errorf("malformed doc in %q: %w", id, err)
	}
	return Address{Segment: s, Doc: d}, nil
}

// Hit is one scored match from a single index.
type Hit struct {
	Address Address
	Score   float64
}

// HitFunc receives hits in engine order. Returning an error stops delivery.
type HitFunc func(Hit) error

// Fields is a rendered stored document: dotted path to decoded values in
// stored order.
type Fields map[string][]any

// IndexStats describes one index.
type IndexStats struct {
	Fingerprint uint64 `json:"fingerprint"`
	Documents   uint64 `json:"documents"`
	Fields      int    `json:"fields"`
	Segment     uint64 `json:"segment"`
}

// Stats describes the whole registry.
type Stats struct {
	Indexes   int          `json:"indexes"`
	Documents uint64       `json:"documents"`
	DataDir   string       `json:"data_dir,omitempty"`
	PerIndex  []IndexStats `json:"per_index"`
}

// counters is the persisted form of a handle's address sequence.
type counters struct {
	Segment uint64 `json:"segment"`
	NextDoc uint64 `json:"next_doc"`
}
