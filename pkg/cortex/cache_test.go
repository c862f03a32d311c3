package cortex

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	tests := []struct {
		name    string
		config  CacheConfig
		enabled bool
	}{
		{
			name:    "enabled cache",
			config:  CacheConfig{Enabled: true},
			enabled: true,
		},
		{
			name:    "disabled cache",
			config:  CacheConfig{Enabled: false},
			enabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(tt.config)
			require.NotNil(t, cache)

			cache.Set("key", "value")
			_, found := cache.Get("key")
			assert.Equal(t, tt.enabled, found)
		})
	}
}

func TestCache_StatsAndClear(t *testing.T) {
	cache := NewCache(CacheConfig{Enabled: true})

	cache.Set("a", "1")
	_, _ = cache.Get("a")
	_, _ = cache.Get("a")
	_, _ = cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)

	cache.Clear()
	stats = cache.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestCache_TTL(t *testing.T) {
	cache := NewCache(CacheConfig{Enabled: true, TTL: time.Millisecond})
	cache.Set("k", "v")

	time.Sleep(5 * time.Millisecond)

	_, found := cache.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(CacheConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			cache.Set(key, "value")
			_, _ = cache.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, cache.Stats().Entries)
}

func TestCacheKey(t *testing.T) {
	msgs := []MessageDict{{Role: "user", Content: "hi"}}
	opts := completionOptions{TopP: 1, MaxTokens: 2048}

	a, err := buildStatement("complete", "mistral-large", msgs, opts)
	require.NoError(t, err)
	b, err := buildStatement("complete", "mistral-large", msgs, opts)
	require.NoError(t, err)
	c, err := buildStatement("complete", "llama3-8b", msgs, opts)
	require.NoError(t, err)
	opts.Temperature = 0.5
	d, err := buildStatement("complete", "mistral-large", msgs, opts)
	require.NoError(t, err)

	assert.Equal(t, cacheKey(a), cacheKey(b))
	assert.NotEqual(t, cacheKey(a), cacheKey(c))
	assert.NotEqual(t, cacheKey(a), cacheKey(d))
	assert.Len(t, cacheKey(a), 64)
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "cortex.db")
	cache, err := OpenSQLiteCache(path, 0)
	require.NoError(t, err)
	defer cache.Close()

	_, found := cache.Get("k")
	assert.False(t, found)

	cache.Set("k", "reply-1")
	got, found := cache.Get("k")
	require.True(t, found)
	assert.Equal(t, "reply-1", got)

	cache.Set("k", "reply-2")
	got, _ = cache.Get("k")
	assert.Equal(t, "reply-2", got)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestSQLiteCache_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.db")

	first, err := OpenSQLiteCache(path, 0)
	require.NoError(t, err)
	first.Set("k", "persisted")
	require.NoError(t, first.Close())

	second, err := OpenSQLiteCache(path, 0)
	require.NoError(t, err)
	defer second.Close()

	got, found := second.Get("k")
	require.True(t, found)
	assert.Equal(t, "persisted", got)
}

func TestSQLiteCache_TTL(t *testing.T) {
	cache, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "cortex.db"), time.Nanosecond)
	require.NoError(t, err)
	defer cache.Close()

	cache.Set("k", "v")
	time.Sleep(1100 * time.Millisecond)

	_, found := cache.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Stats().Entries)
}
