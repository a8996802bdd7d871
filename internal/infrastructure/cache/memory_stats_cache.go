package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	appstats "github.com/agency/backoffice/internal/application/stats"
)

const cleanupInterval = 30 * time.Second

// MemoryStatsCache implements the stats cache port in process memory.
// Values are stored JSON-encoded so Get/Set behave identically to the
// Redis implementation. A background goroutine evicts expired entries;
// Stop terminates it.
type MemoryStatsCache struct {
	entries sync.Map // map[string]*memoryEntry
	ttl     time.Duration
	stopCh  chan struct{}
	stopped atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// NewMemoryStatsCache creates an in-memory stats cache with the given TTL
func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &MemoryStatsCache{
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get unmarshals the cached value into dest and reports whether the key
// was present and fresh
func (c *MemoryStatsCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*memoryEntry)
		if !entry.expired(time.Now()) {
			c.hits.Add(1)
			return true, json.Unmarshal(entry.raw, dest)
		}
		c.entries.Delete(key)
	}
	c.misses.Add(1)
	return false, nil
}

// Set stores the value under key, overwriting any previous entry
func (c *MemoryStatsCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries.Store(key, &memoryEntry{raw: raw, expiresAt: time.Now().Add(c.ttl)})
	return nil
}

// Invalidate removes the given keys; missing keys are ignored
func (c *MemoryStatsCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.entries.Delete(key)
	}
	return nil
}

// Stats returns the hit and miss counters
func (c *MemoryStatsCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (c *MemoryStatsCache) Stop() {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
}

func (c *MemoryStatsCache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case now := <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(*memoryEntry).expired(now) {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

var _ appstats.StatsCache = (*MemoryStatsCache)(nil)
