// Package bookmarks tracks per-source incremental extraction checkpoints.
// A bookmark is an opaque cursor string (usually the latest extracted
// timestamp) keyed by source name.
package bookmarks

import "context"

// Store persists per-source extraction cursors
type Store interface {
	// Get returns the cursor for a source, or "" when no bookmark exists
	Get(ctx context.Context, source string) (string, error)
	// Set records the cursor for a source, replacing any previous value
	Set(ctx context.Context, source, cursor string) error
}
