package enrichment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Cache stores driver responses on disk so reruns over unchanged inputs
// skip the assistant. Keys are content hashes of the full request, so any
// change to the asset or options produces a fresh entry.
type Cache struct {
	dir    string
	ttl    time.Duration
	mu     sync.Mutex
	hits   int
	misses int
}

// CacheStats summarizes cache contents and this process's hit rate.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type cacheEntry struct {
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// NewCache creates a file cache rooted at dir. A zero TTL means entries
// never expire.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// CacheKey derives the key for a driver request. The driver name is part
// of the hash so switching assistants invalidates prior entries.
func CacheKey(driver string, request any) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("hashing cache key: %w", err)
	}
	sum := sha256.Sum256(append([]byte(driver+"\n"), payload...))
	return hex.EncodeToString(sum[:]), nil
}

// Get loads the entry for key into out and reports whether it was found.
// Expired and corrupt entries are removed and count as misses.
func (c *Cache) Get(key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.filename(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.misses++
			return false, nil
		}
		return false, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		c.misses++
		return false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		c.misses++
		return false, nil
	}

	if err := json.Unmarshal(entry.Payload, out); err != nil {
		return false, fmt.Errorf("decoding cache payload: %w", err)
	}
	c.hits++
	return true, nil
}

// Put stores value under key.
func (c *Cache) Put(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache payload: %w", err)
	}

	now := time.Now()
	entry := cacheEntry{CreatedAt: now, Payload: payload}
	if c.ttl > 0 {
		entry.ExpiresAt = now.Add(c.ttl)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(c.filename(key), data, 0o600); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry and resets the counters.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("removing cache entry: %w", err)
		}
	}

	c.hits = 0
	c.misses = 0
	return nil
}

// Stats counts entries on disk and reports this process's hit rate.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{Hits: c.hits, Misses: c.misses}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			stats.Entries++
		}
	}
	return stats
}

func (c *Cache) filename(key string) string {
	return filepath.Join(c.dir, key+".json")
}
