// Package storage provides SQLite-based persistence for cached search
// results and their query embeddings.
//
// The schema is a single cache_entries table:
//   - query: the original query text
//   - embedding: the query vector as a little-endian float32 blob
//   - result: the fully formatted result payload
//   - search_type: partition key; lookups never cross types
//   - timestamp, ttl: liveness window in milliseconds
//
// An index on (search_type, timestamp) supports the recency-bounded
// candidate scan the cache layer performs: lookups read only the N most
// recently inserted entries per type rather than the whole table.
//
// # Build Tags
//
// Two build configurations select the SQLite driver:
//
// Pure Go build (default):
//
//	CGO_ENABLED=0 go build ./...
//
// CGO build (sqlite_fast tag), for faster scans on large caches:
//
//	CGO_ENABLED=1 go build -tags "sqlite_fast" ./...
package storage
