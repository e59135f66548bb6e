// Package indexer routes arbitrary records to the index of their shape.
//
// # Architecture
//
//	record ──▶ Flatten ──▶ Fingerprint ──┬─ cached writer ──▶ Materialize ──▶ Add ──▶ Commit
//	                                     │
//	                                     └─ miss: BuildSchema ──▶ Store.GetOrCreateWriter
//
// Each [Indexer] is a session with its own LRU of writers. Writers are never
// shared between sessions; indexes are shared through the [store.Store].
//
// # Usage
//
//	s, _ := store.New()
//	idx, err := indexer.New(s, indexer.WithMaxOpenWriters(32))
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	err = idx.Index(ctx, map[string]any{"msg": "hello", "id": 1})
//
// # Thread Safety
//
// An Indexer is not safe for concurrent use. Wrap it with a mutex, as the
// logging sink does, or give each goroutine its own session.
package indexer
