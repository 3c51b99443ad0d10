// Package directory keeps the last-known profile of every user who contacted the bot.
// A record is the only thing that allows an administrator to reply to a user.
package directory

import (
	"context"
	"strings"
	"time"
)

// Record is the last-known profile of a user.
type Record struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// HasHandle reports whether the user exposes a public username.
func (r Record) HasHandle() bool {
	return strings.TrimSpace(r.Handle) != ""
}

// Directory maps user identifiers to their most recent profile.
//
// Lookup returns found=false for users that never wrote to the bot; err is
// reserved for storage faults of durable backends.
type Directory interface {
	Upsert(ctx context.Context, rec Record) error
	Lookup(ctx context.Context, id int64) (Record, bool, error)
}

// Pruner is implemented by backends that can drop records not seen since before.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Closer releases backend resources.
type Closer interface {
	Close() error
}

// Close releases dir resources when the backend holds any.
func Close(dir Directory) error {
	if c, ok := dir.(Closer); ok {
		return c.Close()
	}
	return nil
}
