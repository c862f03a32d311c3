package cortex

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CacheEntry represents a cached Cortex reply with metadata
type CacheEntry struct {
	Response  string
	Timestamp time.Time
	HitCount  int
}

// Cache stores raw Cortex replies keyed by request fingerprint
type Cache interface {
	// Get retrieves a cached reply if available
	Get(key string) (string, bool)

	// Set stores a reply in the cache
	Set(key string, response string)

	// Clear removes all entries from the cache
	Clear()

	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats provides statistics about cache performance
type CacheStats struct {
	Hits        int64
	Misses      int64
	Entries     int
	HitRate     float64
	TotalSizeKB int64
}

// CacheConfig holds configuration for the in-memory cache
type CacheConfig struct {
	// Enabled controls whether caching is active
	Enabled bool

	// TTL expires entries older than this. Zero keeps entries forever.
	TTL time.Duration
}

// inMemoryCache implements the Cache interface with thread-safe in-memory storage
type inMemoryCache struct {
	entries map[string]*CacheEntry
	mu      sync.RWMutex
	hits    int64
	misses  int64
	enabled bool
	ttl     time.Duration
}

// NewCache creates an in-memory cache
func NewCache(config CacheConfig) Cache {
	return &inMemoryCache{
		entries: make(map[string]*CacheEntry),
		enabled: config.Enabled,
		ttl:     config.TTL,
	}
}

// Get retrieves a cached reply if available
func (c *inMemoryCache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok && c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		return "", false
	}

	c.hits++
	entry.HitCount++

	log.Debug().
		Str("cache_key", keyPreview(key)).
		Int("hit_count", entry.HitCount).
		Msg("Cortex cache hit")

	return entry.Response, true
}

// Set stores a reply in the cache
func (c *inMemoryCache) Set(key string, response string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &CacheEntry{
		Response:  response,
		Timestamp: time.Now(),
	}

	log.Debug().
		Str("cache_key", keyPreview(key)).
		Int("total_entries", len(c.entries)).
		Msg("Cortex reply cached")
}

// Clear removes all entries from the cache
func (c *inMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics
func (c *inMemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalSize int64
	for _, entry := range c.entries {
		totalSize += int64(len(entry.Response))
	}

	return CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Entries:     len(c.entries),
		HitRate:     hitRate(c.hits, c.misses),
		TotalSizeKB: totalSize / 1024,
	}
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func keyPreview(key string) string {
	if len(key) > 16 {
		return key[:16] + "..."
	}
	return key
}

// cacheKey fingerprints a bound statement. Args hold the model, message JSON
// and options JSON, so two requests share a key only when all three match.
func cacheKey(stmt statement) string {
	data, err := json.Marshal(stmt.Args)
	if err != nil {
		data = []byte(fmt.Sprint(stmt.Args...))
	}
	hash := sha256.Sum256([]byte(stmt.SQL + "\x00" + string(data)))
	return hex.EncodeToString(hash[:])
}
