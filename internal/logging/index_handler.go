package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/Aman-CERP/recdex/pkg/indexer"
)

// Keys of the record an IndexHandler indexes for every slog record.
const (
	KeyLevel = "level"
	KeyMsg   = "msg"
	KeyTime  = "time"
	KeyProps = "props"
)

// IndexHandlerOptions configures an IndexHandler.
type IndexHandlerOptions struct {
	// Level is the minimum level indexed. Nil means info.
	Level slog.Leveler
}

// indexSink serializes access to an Indexer shared by derived handlers.
type indexSink struct {
	mu  sync.Mutex
	idx indexer.RecordIndexer
}

// IndexHandler is an slog.Handler that indexes each record as
//
//	{level, msg, time, props: {attrs...}}
//
// Records with the same attribute shape land in the same index, so
// "props.user_id:7" or "level:ERROR" can be searched afterwards. Groups nest
// under props as dotted paths.
//
// A record is searchable once Handle returns. Handlers derived through
// WithAttrs and WithGroup share the underlying Indexer.
type IndexHandler struct {
	sink   *indexSink
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewIndexHandler returns a handler indexing into idx.
func NewIndexHandler(idx indexer.RecordIndexer, opts *IndexHandlerOptions) *IndexHandler {
	h := &IndexHandler{sink: &indexSink{idx: idx}, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// Enabled implements slog.Handler.
func (h *IndexHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *IndexHandler) Handle(ctx context.Context, r slog.Record) error {
	rec := h.Record(r)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return h.sink.idx.Index(ctx, rec)
}

// Record builds the value that Handle indexes for r.
func (h *IndexHandler) Record(r slog.Record) map[string]any {
	props := slices.Clone(h.attrs)
	var own []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		own = append(own, a)
		return true
	})
	props = append(props, nest(h.groups, own)...)

	rec := map[string]any{
		KeyLevel: r.Level.String(),
		KeyMsg:   r.Message,
	}
	if !r.Time.IsZero() {
		rec[KeyTime] = r.Time
	}
	if len(props) > 0 {
		rec[KeyProps] = slog.GroupValue(props...)
	}
	return rec
}

// WithAttrs implements slog.Handler.
func (h *IndexHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	h2.attrs = append(h2.attrs, nest(h.groups, attrs)...)
	return h2
}

// WithGroup implements slog.Handler.
func (h *IndexHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *IndexHandler) clone() *IndexHandler {
	return &IndexHandler{
		sink:   h.sink,
		level:  h.level,
		attrs:  slices.Clip(h.attrs),
		groups: slices.Clip(h.groups),
	}
}

// nest wraps attrs in the open groups, innermost last.
func nest(groups []string, attrs []slog.Attr) []slog.Attr {
	if len(attrs) == 0 {
		return nil
	}
	for i := len(groups) - 1; i >= 0; i-- {
		attrs = []slog.Attr{{Key: groups[i], Value: slog.GroupValue(attrs...)}}
	}
	return attrs
}

// Tee returns a handler that passes every record to each of handlers.
func Tee(handlers ...slog.Handler) slog.Handler {
	return teeHandler(slices.Clone(handlers))
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
