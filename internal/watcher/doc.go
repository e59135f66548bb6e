// Package watcher follows growing files.
//
// A Watcher reports changes to a fixed set of files, using fsnotify on their
// parent directories and falling back to polling where fsnotify is
// unavailable (network mounts, some container volumes). Events are debounced
// so a burst of appends costs one read.
//
// A Follower builds on a Watcher to deliver complete new lines, the way
// `tail -F` does: it survives truncation and replacement of the file.
//
//	f := watcher.NewFollower([]string{"app.ndjson"}, watcher.DefaultOptions())
//	err := f.Follow(ctx, func(path string, line []byte) error {
//	    return handle(line)
//	})
package watcher
