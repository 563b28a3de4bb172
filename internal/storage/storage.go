package storage

import (
	"context"
)

// Entry is one cached search result row. Entries are immutable after
// insert; they are only ever deleted, never updated in place.
type Entry struct {
	ID         int64
	Query      string
	Embedding  []byte // Serialized float32 vector, little-endian
	Result     string
	SearchType string
	Timestamp  int64 // Insert time, ms since epoch
	TTL        int64 // Time-to-live, ms
}

// Live reports whether the entry is still within its TTL at the given
// time (ms since epoch).
func (e *Entry) Live(nowMs int64) bool {
	return nowMs < e.Timestamp+e.TTL
}

// Store defines the persistence interface for cached search results
type Store interface {
	// InsertEntry persists a new cache entry and assigns its ID
	InsertEntry(ctx context.Context, entry *Entry) error

	// RecentEntries returns up to limit entries for the given search
	// type, most recently inserted first
	RecentEntries(ctx context.Context, searchType string, limit int) ([]*Entry, error)

	// DeleteExpired removes all entries whose TTL elapsed before nowMs
	// and returns the number deleted
	DeleteExpired(ctx context.Context, nowMs int64) (int, error)

	// CountEntries returns the total number of stored entries
	CountEntries(ctx context.Context) (int, error)

	// DeleteAll removes every entry
	DeleteAll(ctx context.Context) error

	// Close releases the underlying database
	Close() error
}
