package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertEntry persists a new cache entry and assigns its ID
func (s *SQLiteStore) InsertEntry(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO cache_entries (query, embedding, result, search_type, timestamp, ttl)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.Query, entry.Embedding, entry.Result,
		entry.SearchType, entry.Timestamp, entry.TTL)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// RecentEntries returns up to limit entries for the given search type,
// most recently inserted first. The (search_type, timestamp) index keeps
// this scan bounded regardless of total cache size.
func (s *SQLiteStore) RecentEntries(ctx context.Context, searchType string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		return []*Entry{}, nil
	}

	query := `
		SELECT id, query, embedding, result, search_type, timestamp, ttl
		FROM cache_entries
		WHERE search_type = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, searchType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		err := rows.Scan(
			&entry.ID, &entry.Query, &entry.Embedding, &entry.Result,
			&entry.SearchType, &entry.Timestamp, &entry.TTL,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// DeleteExpired removes all entries whose TTL elapsed before nowMs
func (s *SQLiteStore) DeleteExpired(ctx context.Context, nowMs int64) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE timestamp + ttl <= ?`, nowMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}

// CountEntries returns the total number of stored entries
func (s *SQLiteStore) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_entries").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteAll removes every entry
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries")
	return err
}
