// Package cache persists one raw fetch result per feed URL with staleness
// metadata. Entries survive restarts; a missing or unreadable entry is a
// cache miss, never a fatal error.
package cache

import (
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/deechtejoao/tuifeed/logger"
)

//go:embed schema.sql
var schemaSQL string

// Entry is the cached fetch result for one feed URL. It is overwritten on
// every successful fetch and never explicitly deleted.
type Entry struct {
	URL         string
	FetchedAt   time.Time
	Validator   string // opaque etag/last-modified token, may be empty
	Payload     []byte
	PayloadHash string
}

// Fresh reports whether the entry is within the configured TTL. Pure
// function of (FetchedAt, now, ttl).
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) < ttl
}

// Hash returns the sha256 hex digest used for Entry.PayloadHash.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Store is the per-URL persistence contract. The scheduler issues at most
// one fetch per URL per run, so writes to the same key are already
// serialized by the caller.
type Store interface {
	Get(url string) (Entry, bool, error)
	Put(entry Entry) error
	Clear() error
}

// SQLite is the on-disk Store, one row per feed URL.
type SQLite struct {
	db *sql.DB
}

// Stats contains cache statistics.
type Stats struct {
	Entries     int
	OldestFetch time.Time
}

// New initializes the cache database at the given path.
func New(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get returns the most recent stored entry for url. Read errors degrade to
// a cache miss so a corrupt record only affects its own URL.
func (s *SQLite) Get(url string) (Entry, bool, error) {
	entry := Entry{URL: url}
	var fetchedAt int64

	err := s.db.QueryRow(
		"SELECT fetched_at, validator, payload, payload_hash FROM feed_cache WHERE url = ?",
		url,
	).Scan(&fetchedAt, &entry.Validator, &entry.Payload, &entry.PayloadHash)

	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		logger.Warnf("cache read error for %s: %v", truncate(url, 50), err)
		return Entry{}, false, nil // treat errors as cache miss
	}
	entry.FetchedAt = time.Unix(fetchedAt, 0)

	_, _ = s.db.Exec(
		"UPDATE feed_cache SET accessed_at = ? WHERE url = ?",
		time.Now().Unix(), url,
	)

	return entry, true, nil
}

// Put upserts the entry by URL.
func (s *SQLite) Put(entry Entry) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO feed_cache
		(url, fetched_at, validator, payload, payload_hash, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.URL, entry.FetchedAt.Unix(), entry.Validator, entry.Payload, entry.PayloadHash, time.Now().Unix())

	if err != nil {
		logger.Warnf("cache write error for %s: %v", truncate(entry.URL, 50), err)
		return err
	}

	return nil
}

// Clear removes all cache entries.
func (s *SQLite) Clear() error {
	if _, err := s.db.Exec("DELETE FROM feed_cache"); err != nil {
		return fmt.Errorf("failed to clear feed cache: %w", err)
	}
	return nil
}

// Stats returns cache statistics.
func (s *SQLite) Stats() (Stats, error) {
	var stats Stats

	err := s.db.QueryRow("SELECT COUNT(*) FROM feed_cache").Scan(&stats.Entries)
	if err != nil {
		return stats, err
	}

	var oldestUnix sql.NullInt64
	err = s.db.QueryRow("SELECT MIN(fetched_at) FROM feed_cache").Scan(&oldestUnix)
	if err != nil && err != sql.ErrNoRows {
		return stats, err
	}
	if oldestUnix.Valid && oldestUnix.Int64 > 0 {
		stats.OldestFetch = time.Unix(oldestUnix.Int64, 0)
	}

	return stats, nil
}

// Close closes the cache database.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
