package directory

import (
	"context"
	"time"
)

// Expiring hides records not seen within ttl. Stale rows stay in the backend
// until the sweep prunes them, but they no longer count as known contacts.
type Expiring struct {
	Directory
	ttl time.Duration
	now func() time.Time
}

// WithTTL wraps dir so Lookup treats records older than ttl as unknown.
// A non-positive ttl returns dir unchanged.
func WithTTL(dir Directory, ttl time.Duration) Directory {
	if ttl <= 0 {
		return dir
	}
	return &Expiring{Directory: dir, ttl: ttl, now: time.Now}
}

// Lookup returns found=false for records last seen before now-ttl.
func (e *Expiring) Lookup(ctx context.Context, id int64) (Record, bool, error) {
	rec, found, err := e.Directory.Lookup(ctx, id)
	if err != nil || !found {
		return rec, found, err
	}
	if rec.LastSeen.Before(e.now().Add(-e.ttl)) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Prune forwards to the wrapped backend when it supports pruning.
func (e *Expiring) Prune(ctx context.Context, before time.Time) (int, error) {
	if p, ok := e.Directory.(Pruner); ok {
		return p.Prune(ctx, before)
	}
	return 0, nil
}

// Close releases the wrapped backend.
func (e *Expiring) Close() error {
	return Close(e.Directory)
}
