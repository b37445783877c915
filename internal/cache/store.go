package cache

import (
	"context"
	"errors"
	"fmt"

	"product-detector/internal/config"
	"product-detector/internal/types"
)

// ErrUnsupportedType is returned by New for an unknown cache.type
var ErrUnsupportedType = errors.New("unsupported cache type")

// Store is a string key/value store. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// New creates the store selected by cfg.Type
func New(cfg config.CacheConfig, logger types.Logger) (Store, error) {
	logger.Infof("Creating %s cache store", cfg.Type)

	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "mysql":
		return NewMySQLStore(cfg.MySQLDSN)
	case "redis":
		return NewRedisStore(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}
