package service

import (
	"sync"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
)

// scanCache is a small TTL cache for scan results keyed by raw QR text, so a
// rescan of the same code within the window skips the upstream calls.
type scanCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]scanCacheEntry
	nowFn   func() time.Time
}

type scanCacheEntry struct {
	result    domain.ScanResult
	expiresAt time.Time
}

func newScanCache(ttl time.Duration) *scanCache {
	return &scanCache{
		ttl:     ttl,
		entries: make(map[string]scanCacheEntry),
		nowFn:   time.Now,
	}
}

func (c *scanCache) get(key string) (domain.ScanResult, bool) {
	if c.ttl <= 0 {
		return domain.ScanResult{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return domain.ScanResult{}, false
	}
	if c.nowFn().After(entry.expiresAt) {
		delete(c.entries, key)
		return domain.ScanResult{}, false
	}
	return entry.result, true
}

func (c *scanCache) set(key string, result domain.ScanResult) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Opportunistic sweep keeps the map from growing unbounded.
	now := c.nowFn()
	if len(c.entries) > 4096 {
		for k, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, k)
			}
		}
	}

	c.entries[key] = scanCacheEntry{
		result:    result,
		expiresAt: now.Add(c.ttl),
	}
}
