// Package cache implements the durable request cache: content-hashed keys,
// lazy read-side expiry, and best-effort hit counting.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL applies when Set is called without a positive ttl.
const DefaultTTL = time.Hour

// Entry is one cached result.
type Entry struct {
	Hash       string
	ResultJSON string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	HitCount   int64
}

// Store persists cache entries in the metadata database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// NewStore creates a cache store with the default TTL.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, ttl: DefaultTTL}
}

// Get returns the cached value for hash, decoded into out. It reports false
// on a miss. Entries past their expiry are deleted on read; there is no
// background sweep. Hit counting is best-effort and never fails the read.
func (s *Store) Get(ctx context.Context, hash string, out any) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT result_json, expires_at, hit_count FROM cache_entries WHERE hash=?`, hash)

	var resultJSON string
	var expiresAt, hitCount int64
	if err := row.Scan(&resultJSON, &expiresAt, &hitCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read cache entry: %w", err)
	}

	if time.Now().UnixMilli() > expiresAt {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE hash=?`, hash); err != nil {
			return false, fmt.Errorf("evict expired entry: %w", err)
		}
		return false, nil
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE cache_entries SET hit_count=? WHERE hash=?`, hitCount+1, hash); err != nil {
		log.Warn().Err(err).Str("hash", hash).Msg("cache: hit count update failed")
	}

	if err := json.Unmarshal([]byte(resultJSON), out); err != nil {
		return false, fmt.Errorf("decode cached result: %w", err)
	}
	return true, nil
}

// Set stores value under hash, overwriting any previous entry. A ttl <= 0
// falls back to the default.
func (s *Store) Set(ctx context.Context, hash string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}

	resultJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	now := time.Now()
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO cache_entries(hash, result_json, created_at, expires_at, hit_count)
		VALUES(?, ?, ?, ?, 0)`,
		hash, string(resultJSON), now.UnixMilli(), now.Add(ttl).UnixMilli()); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Entry returns the raw entry for hash, regardless of expiry. Used for
// inspection; callers wanting expiry semantics should use Get.
func (s *Store) Entry(ctx context.Context, hash string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT hash, result_json, created_at, expires_at, hit_count FROM cache_entries WHERE hash=?`, hash)

	var e Entry
	var createdAt, expiresAt int64
	if err := row.Scan(&e.Hash, &e.ResultJSON, &createdAt, &expiresAt, &e.HitCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("cache entry %q not found", hash)
		}
		return Entry{}, fmt.Errorf("read cache entry: %w", err)
	}
	e.CreatedAt = time.UnixMilli(createdAt)
	e.ExpiresAt = time.UnixMilli(expiresAt)
	return e, nil
}
