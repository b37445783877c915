package adapters

import (
	"context"
	"strings"
	"time"

	"product-detector/internal/cache"
	"product-detector/internal/config"
	"product-detector/internal/types"
)

// BaseAdapter provides common functionality for search adapters: config,
// logging and the time-boxed cache every lookup goes through.
type BaseAdapter struct {
	config *config.Config
	logger types.Logger
	cache  *cache.Cache
}

// NewBaseAdapter creates a new base adapter. A nil cache disables caching.
func NewBaseAdapter(cfg *config.Config, logger types.Logger, c *cache.Cache) *BaseAdapter {
	return &BaseAdapter{
		config: cfg,
		logger: logger,
		cache:  c,
	}
}

// BuildQuery returns the GTIN when known, otherwise "brand title mpn" with
// empty parts skipped.
func BuildQuery(details types.ProductDetails) string {
	if gtin := strings.TrimSpace(details.GTIN); gtin != "" {
		return gtin
	}

	var parts []string
	for _, part := range []string{details.Brand, details.Title, details.MPN} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

func (b *BaseAdapter) fromCache(ctx context.Context, key string, ttl time.Duration, out interface{}) bool {
	if b.cache == nil {
		return false
	}
	if !b.cache.Get(ctx, key, ttl, out) {
		return false
	}
	b.logger.Debugf("Cache hit for key: %s", key)
	return true
}

func (b *BaseAdapter) toCache(ctx context.Context, key string, data interface{}) {
	if b.cache == nil {
		return
	}
	b.cache.Set(ctx, key, data)
	b.logger.Debugf("Cached data for key: %s", key)
}
