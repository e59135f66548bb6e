package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/record"
)

func TestAddress_IDRoundTripAndOrder(t *testing.T) {
	a := Address{Segment: 1, Doc: 255}
	assert.Equal(t, "0000000000000001.00000000000000ff", a.ID())

	back, err := ParseAddress(a.ID())
	require.NoError(t, err)
	assert.Equal(t, a, back)

	// lexicographic ID order equals (segment, doc) order
	b := Address{Segment: 2, Doc: 0}
	assert.Less(t, a.ID(), b.ID())
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))

	_, err = ParseAddress("nope")
	assert.Error(t, err)
}

func TestHandle_ExecuteFieldQueries(t *testing.T) {
	// Given: records of one shape
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, _ := writeRecord(t, s, map[string]any{"msg": "hello world", "props": map[string]any{"id": 1, "ok": true}})
	writeRecord(t, s, map[string]any{"msg": "goodbye world", "props": map[string]any{"id": 2, "ok": false}})
	writeRecord(t, s, map[string]any{"msg": "hello again", "props": map[string]any{"id": 3, "ok": false}})
	h, ok := s.Handle(fp)
	require.True(t, ok)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"match all star", "*", 3},
		{"match all empty", "", 3},
		{"default field", "hello", 2},
		{"text field", "msg:goodbye", 1},
		{"numeric range", "props.id:>=2", 2},
		{"keyword bool", "props.ok:false", 2},
		{"no match", "msg:absent", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := collectHits(t, h, tt.query, 10)
			assert.Len(t, hits, tt.want)
		})
	}
}

func TestHandle_ExecuteOrdersByScoreThenAddress(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var fp uint64
	for i := 0; i < 5; i++ {
		fp, _ = writeRecord(t, s, map[string]any{"msg": "same"})
	}
	h, _ := s.Handle(fp)

	// Equal scores fall back to address order.
	hits := collectHits(t, h, "*", 10)
	require.Len(t, hits, 5)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		assert.Equal(t, -1, hits[i-1].Address.Compare(hits[i].Address))
	}

	// size bounds the hits delivered
	assert.Len(t, collectHits(t, h, "*", 2), 2)
}

func TestHandle_ExecuteStopsOnCallbackError(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, _ := writeRecord(t, s, map[string]any{"a": 1})
	writeRecord(t, s, map[string]any{"a": 2})
	h, _ := s.Handle(fp)

	stop := errors.New("stop")
	calls := 0
	q, err := h.ParseQuery("*")
	require.NoError(t, err)
	err = h.Execute(context.Background(), q, 10, func(Hit) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestParseQuery_InvalidSyntax(t *testing.T) {
	_, err := ParseQuery("msg:(")
	require.Error(t, err)
	assert.ErrorIs(t, err, rxerrors.ErrQuerySetup)
}

func TestHandle_FetchRendersThroughSchema(t *testing.T) {
	// Given: a record using every kind, including a list
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := map[string]any{
		"b":   []byte{0xde, 0xad},
		"f":   1.25,
		"i":   -3,
		"ok":  true,
		"s":   "text",
		"tag": []string{"x", "y"},
		"u":   uint(9),
	}
	fp, addr := writeRecord(t, s, rec)
	h, _ := s.Handle(fp)

	// When: fetching by address
	fields, err := h.Fetch(addr)
	require.NoError(t, err)

	// Then: values come back with their original Go types
	assert.Equal(t, []any{[]byte{0xde, 0xad}}, fields["b"])
	assert.Equal(t, []any{1.25}, fields["f"])
	assert.Equal(t, []any{int64(-3)}, fields["i"])
	assert.Equal(t, []any{true}, fields["ok"])
	assert.Equal(t, []any{"text"}, fields["s"])
	assert.ElementsMatch(t, []any{"x", "y"}, fields["tag"])
	assert.Equal(t, []any{uint64(9)}, fields["u"])
}

func TestHandle_FetchIntegersBeyondFloatPrecision(t *testing.T) {
	// Given: integers float64 cannot represent exactly
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, addr := writeRecord(t, s, map[string]any{
		"ns":  int64(1760000000123456789),
		"max": int64(math.MaxInt64),
		"min": int64(math.MinInt64),
		"u":   uint64(math.MaxUint64),
	})
	h, _ := s.Handle(fp)

	// When: fetching the document
	fields, err := h.Fetch(addr)
	require.NoError(t, err)

	// Then: every value is rendered exactly
	assert.Equal(t, []any{int64(1760000000123456789)}, fields["ns"])
	assert.Equal(t, []any{int64(math.MaxInt64)}, fields["max"])
	assert.Equal(t, []any{int64(math.MinInt64)}, fields["min"])
	assert.Equal(t, []any{uint64(math.MaxUint64)}, fields["u"])
	assert.Len(t, fields, 4, "exact siblings render under their own path")

	// And: the numeric field still answers range queries
	assert.Len(t, collectHits(t, h, "ns:>1700000000000000000", 10), 1)
}

func TestHandle_DottedKeysAreIndexedAndRendered(t *testing.T) {
	// Given: a record whose key holds a dot
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, addr := writeRecord(t, s, map[string]any{"http.method": "GET", "status": 200})
	h, _ := s.Handle(fp)

	// When/Then: the dotted field answers field and bare queries
	assert.Len(t, collectHits(t, h, "http.method:GET", 10), 1)
	assert.Len(t, collectHits(t, h, "GET", 10), 1)

	// And: it is rendered with the rest of the record
	fields, err := h.Fetch(addr)
	require.NoError(t, err)
	assert.Equal(t, Fields{
		"http.method": {"GET"},
		"status":      {int64(200)},
	}, fields)
}

func TestHandle_EmptyKeysAreIndexedAndRendered(t *testing.T) {
	// Given: a record with an empty key next to a dotted one
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, addr := writeRecord(t, s, map[string]any{
		"e":   map[string]any{"": "empty"},
		"a.b": "dotted",
	})
	h, _ := s.Handle(fp)

	// When/Then: both values are searchable
	assert.Len(t, collectHits(t, h, "empty", 10), 1)
	assert.Len(t, collectHits(t, h, "a.b:dotted", 10), 1)

	// And: both are rendered
	fields, err := h.Fetch(addr)
	require.NoError(t, err)
	assert.Equal(t, Fields{
		"e.":  {"empty"},
		"a.b": {"dotted"},
	}, fields)
}

func TestHandle_FetchRejectsFieldsOutsideSchema(t *testing.T) {
	// Given: an index holding a stored field its schema does not name
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, addr := writeRecord(t, s, map[string]any{"a": "x", "b": "y"})
	h, _ := s.Handle(fp)
	narrow, err := record.BuildSchema([]record.FlatField{{Path: "a", Value: record.Str("x")}})
	require.NoError(t, err)
	h.schema = narrow

	// When: fetching
	_, err = h.Fetch(addr)

	// Then: the unknown field is an error, not a silent drop
	require.Error(t, err)
	assert.ErrorIs(t, err, rxerrors.ErrEngine)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestHandle_ExecuteClampsSizeToDocCount(t *testing.T) {
	// Given: an index with two documents
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, _ := writeRecord(t, s, map[string]any{"msg": "one"})
	writeRecord(t, s, map[string]any{"msg": "two"})
	h, _ := s.Handle(fp)

	// When: asking for far more hits than any index can hold
	hits := collectHits(t, h, "*", 1<<62)

	// Then: every document comes back without sizing the request to the limit
	assert.Len(t, hits, 2)
}

func TestHandle_FetchMissingAddress(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	fp, _ := writeRecord(t, s, map[string]any{"a": 1})
	h, _ := s.Handle(fp)

	_, err = h.Fetch(Address{Segment: 99, Doc: 99})
	assert.ErrorIs(t, err, rxerrors.ErrEngine)
}

func TestWriter_CommitMakesDocumentsVisible(t *testing.T) {
	// Given: a writer with a staged document
	s, err := New()
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	d, err := record.Build(map[string]any{"msg": "staged"})
	require.NoError(t, err)
	schema, err := record.BuildSchema(d.Fields)
	require.NoError(t, err)
	w, err := s.GetOrCreateWriter(d.Fingerprint, schema)
	require.NoError(t, err)
	doc, err := record.Materialize(d.Fields, schema)
	require.NoError(t, err)
	_, err = w.Add(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, w.Pending())

	h, _ := s.Handle(d.Fingerprint)
	assert.Empty(t, collectHits(t, h, "*", 10), "not visible before commit")

	// When: committing
	require.NoError(t, w.Commit())

	// Then: the document is visible and the generation advanced
	assert.Len(t, collectHits(t, h, "*", 10), 1)
	assert.Equal(t, uint64(1), h.Segment())
	assert.Equal(t, 0, w.Pending())

	// And: a closed writer refuses more work
	require.NoError(t, w.Close())
	_, err = w.Add(doc)
	assert.ErrorIs(t, err, rxerrors.ErrStoreClosed)
}
