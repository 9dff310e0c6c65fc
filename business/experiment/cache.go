package experiment

import (
	"sync"
	"time"

	"newsRanker/domain"
)

// definitionCache is a read-mostly TTL cache over experiment definitions.
// It is purely an optimization: a miss or an expired entry falls through to
// the repository, and writes to a definition invalidate its entry.
type definitionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	experiment *domain.Experiment // nil caches a confirmed miss
	expiresAt  time.Time
}

func newDefinitionCache(ttl time.Duration) *definitionCache {
	return &definitionCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *definitionCache) get(key string) (*domain.Experiment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.experiment, true
}

func (c *definitionCache) put(key string, exp *domain.Experiment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		experiment: exp,
		expiresAt:  time.Now().Add(c.ttl),
	}
}

func (c *definitionCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}
