// Package ingest feeds newline-delimited JSON into an indexer.
//
// Each non-blank line is one record. Numbers keep their JSON spelling so
// integers stay integers through flattening. A line that is not JSON, or a
// record the indexer rejects as malformed, is logged and skipped; any other
// indexing failure aborts the stream.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/watcher"
	"github.com/Aman-CERP/recdex/pkg/indexer"
)

// Stats counts the lines handled by one run.
type Stats struct {
	Lines   int `json:"lines"`
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
}

// Ingester decodes lines and indexes them.
type Ingester struct {
	idx    indexer.RecordIndexer
	strict bool
	stats  Stats
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithStrict makes any rejected line abort the run.
func WithStrict(strict bool) Option {
	return func(in *Ingester) {
		in.strict = strict
	}
}

// New creates an Ingester writing into idx.
func New(idx indexer.RecordIndexer, opts ...Option) *Ingester {
	in := &Ingester{idx: idx}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Stats returns the counts so far.
func (in *Ingester) Stats() Stats {
	return in.stats
}

// Decode parses one NDJSON line.
func Decode(line []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, rxerrors.ValidationError("line is not valid JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, rxerrors.ValidationError("line holds more than one JSON value", nil)
	}
	return v, nil
}

// Line decodes and indexes one line. source names the input in logs.
func (in *Ingester) Line(ctx context.Context, source string, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	in.stats.Lines++

	rec, err := Decode(line)
	if err == nil {
		err = in.idx.Index(ctx, rec)
	}
	if err == nil {
		in.stats.Indexed++
		return nil
	}

	if in.strict || !skippable(err) {
		return fmt.Errorf("%s record %d: %w", source, in.stats.Lines, err)
	}
	in.stats.Skipped++
	slog.Warn("ingest_line_skipped",
		slog.String("source", source),
		slog.Int("record", in.stats.Lines),
		slog.String("code", rxerrors.GetCode(err)),
		slog.String("error", err.Error()))
	return nil
}

// skippable reports record-level failures that leave the indexer usable.
func skippable(err error) bool {
	switch rxerrors.GetCode(err) {
	case rxerrors.ErrCodeInvalidInput, rxerrors.ErrCodeFlatten, rxerrors.ErrCodeSchemaConflict:
		return true
	}
	return false
}

// Stream indexes every line of r.
func (in *Ingester) Stream(ctx context.Context, source string, r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if lerr := in.Line(ctx, source, line); lerr != nil {
				return lerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", source, err)
		}
	}
}

// Follow indexes the existing lines of paths, then every appended line,
// until ctx is cancelled.
func (in *Ingester) Follow(ctx context.Context, paths []string, opts watcher.Options) error {
	f := watcher.NewFollower(paths, opts)
	return f.Follow(ctx, func(path string, line []byte) error {
		return in.Line(ctx, path, line)
	})
}
