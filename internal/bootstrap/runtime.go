// Package bootstrap wires the configured document store and Redis so the
// server and the seeder initialize them the same way.
package bootstrap

import (
	"fmt"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/store"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the shared process dependencies.
type Runtime struct {
	Store store.Store
	DB    *gorm.DB // nil with the memory driver
	Redis *redis.Client
}

// InitRuntime connects Redis and opens the document store for the configured
// driver. The Redis client may be nil when the broker is unreachable; the
// Postgres store then falls back to local-only change notifications.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		var feed store.Changefeed
		if r != nil {
			feed = store.NewRedisChangefeed(r)
		}
		st, err := store.NewGormStore(db, feed)
		if err != nil {
			return nil, fmt.Errorf("store init failed: %w", err)
		}
		return &Runtime{Store: st, DB: db, Redis: r}, nil
	case config.StoreDriverMemory, "":
		return &Runtime{Store: store.NewMemoryStore(), Redis: r}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases the runtime's connections.
func (rt *Runtime) Close() error {
	var firstErr error
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil && firstErr == nil {
				firstErr = cerr
			}
		}
	}
	if rt.Redis != nil {
		if cerr := rt.Redis.Close(); cerr != nil && firstErr == nil {
			firstErr = cerr
		}
	}
	return firstErr
}
