// Package logging configures slog for recdex.
//
// Two kinds of output exist. Diagnostic logs go to a size-rotated JSON file
// (optionally mirrored to stderr). Application records can additionally be
// sent to an IndexHandler, which indexes every slog record into a Store so
// it can be queried later with the searcher.
//
//	logger := slog.New(logging.Tee(fileHandler, logging.NewIndexHandler(idx, nil)))
//	logger.Info("user_login", slog.Int("user_id", 7))
//
// The handler may also become the process logger. The Store and Indexer
// capture their own logger when they are created, so build them first (or
// pass store.WithLogger and indexer.WithLogger) and install the handler
// afterwards:
//
//	s, _ := store.New()
//	idx, _ := indexer.New(s)
//	slog.SetDefault(slog.New(logging.NewIndexHandler(idx, nil)))
package logging
