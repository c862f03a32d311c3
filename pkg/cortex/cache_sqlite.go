package cortex

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS cortex_cache (
	key        TEXT PRIMARY KEY,
	response   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	hit_count  INTEGER NOT NULL DEFAULT 0
)`

// SQLiteCache persists Cortex replies in a SQLite database so repeated CLI
// runs can reuse them.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// OpenSQLiteCache opens (or creates) a cache database at path
func OpenSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// One writer at a time keeps SQLite from reporting SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure cache database: %w", err)
	}
	if _, err := db.Exec(sqliteCacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get retrieves a cached reply if available
func (c *SQLiteCache) Get(key string) (string, bool) {
	var (
		response  string
		createdAt int64
	)
	err := c.db.QueryRow("SELECT response, created_at FROM cortex_cache WHERE key = ?", key).Scan(&response, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Warn().Err(err).Msg("Cortex cache lookup failed")
		}
		c.misses.Add(1)
		return "", false
	}

	if c.ttl > 0 && time.Since(time.Unix(createdAt, 0)) > c.ttl {
		if _, err := c.db.Exec("DELETE FROM cortex_cache WHERE key = ?", key); err != nil {
			log.Warn().Err(err).Msg("Cortex cache eviction failed")
		}
		c.misses.Add(1)
		return "", false
	}

	if _, err := c.db.Exec("UPDATE cortex_cache SET hit_count = hit_count + 1 WHERE key = ?", key); err != nil {
		log.Warn().Err(err).Msg("Cortex cache hit count update failed")
	}
	c.hits.Add(1)

	return response, true
}

// Set stores a reply in the cache
func (c *SQLiteCache) Set(key string, response string) {
	_, err := c.db.Exec(
		`INSERT INTO cortex_cache (key, response, created_at, hit_count) VALUES (?, ?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET response = excluded.response, created_at = excluded.created_at, hit_count = 0`,
		key, response, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("cache_key", keyPreview(key)).Msg("Cortex cache write failed")
	}
}

// Clear removes all entries from the cache
func (c *SQLiteCache) Clear() {
	if _, err := c.db.Exec("DELETE FROM cortex_cache"); err != nil {
		log.Warn().Err(err).Msg("Cortex cache clear failed")
	}
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics
func (c *SQLiteCache) Stats() CacheStats {
	var (
		entries int
		size    sql.NullInt64
	)
	if err := c.db.QueryRow("SELECT COUNT(*), SUM(LENGTH(response)) FROM cortex_cache").Scan(&entries, &size); err != nil {
		log.Warn().Err(err).Msg("Cortex cache stats failed")
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	return CacheStats{
		Hits:        hits,
		Misses:      misses,
		Entries:     entries,
		HitRate:     hitRate(hits, misses),
		TotalSizeKB: size.Int64 / 1024,
	}
}

// Close closes the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
