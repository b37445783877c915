package cache

import (
	"context"
	"encoding/json"
	"time"

	"product-detector/internal/metrics"
	"product-detector/internal/types"
)

// entry is the stored envelope. Timestamp is epoch milliseconds.
type entry struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Cache adds time-boxed entries on top of a Store. Expired entries are removed
// when read; there is no background sweep.
type Cache struct {
	store  Store
	logger types.Logger
	now    func() time.Time
}

// NewCache wraps store
func NewCache(store Store, logger types.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for timestamps and expiry
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get decodes the entry stored under key into out. It reports false when the
// entry is missing, older than ttl, or unreadable.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, out interface{}) bool {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Errorf("Cache read failed for %q: %v", key, err)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warnf("Dropping corrupt cache entry %q: %v", key, err)
		c.remove(ctx, key)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	age := c.now().Sub(time.UnixMilli(e.Timestamp))
	if age > ttl {
		c.logger.Debugf("Cache entry %q expired (age %s, ttl %s)", key, age, ttl)
		c.remove(ctx, key)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return false
	}

	if err := json.Unmarshal(e.Data, out); err != nil {
		c.logger.Warnf("Dropping undecodable cache entry %q: %v", key, err)
		c.remove(ctx, key)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

// Set stores data under key stamped with the current time
func (c *Cache) Set(ctx context.Context, key string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.logger.Errorf("Failed to encode cache entry %q: %v", key, err)
		return
	}

	raw, err := json.Marshal(entry{Timestamp: c.now().UnixMilli(), Data: payload})
	if err != nil {
		c.logger.Errorf("Failed to encode cache entry %q: %v", key, err)
		return
	}

	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.logger.Errorf("Cache write failed for %q: %v", key, err)
	}
}

// Close closes the underlying store
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) remove(ctx context.Context, key string) {
	if err := c.store.Remove(ctx, key); err != nil {
		c.logger.Errorf("Failed to remove cache entry %q: %v", key, err)
	}
}
