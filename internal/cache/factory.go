package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BackendType selects which concrete Cache implementation New builds.
type BackendType string

const (
	BackendMemory BackendType = "memory"
	// BackendMongoDB is the externally-backed cache option; it is
	// realized here by a Redis client rather than a Mongo driver, since
	// Redis is the persistent key-value store available to this service.
	BackendMongoDB BackendType = "mongodb"
)

// Config describes how to construct the directions cache.
type Config struct {
	Enabled  bool
	Backend  BackendType
	Capacity int           // memory backend only
	TTL      time.Duration // uniform TTL for both backends; 0 = never expire
	Redis    *redis.Client // required when Backend == BackendMongoDB
}

// New builds the configured Cache. When Enabled is false, it returns a
// no-op cache: every lookup misses, every write is dropped.
func New(cfg Config) (Cache, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryCache(cfg.Capacity, cfg.TTL), nil
	case BackendMongoDB:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("cache: mongodb backend requires a redis client")
		}
		return NewRedisCache(cfg.Redis, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}
}
