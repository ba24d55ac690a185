package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"animesanta/internal/config"
)

// Store is a byte cache with per-key expiry. A ttl of zero means no expiry.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New picks the backend named in cfg. A redis backend without an address
// falls back to memory.
func New(cfg config.CacheConfig, logger *zap.Logger) Store {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			if logger != nil {
				logger.Warn("cache backend is redis but redis_addr is empty; falling back to memory")
			}
			return NewMemoryStore()
		}
		return NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case "", "memory":
		return NewMemoryStore()
	default:
		if logger != nil {
			logger.Warn("unknown cache backend; using memory", zap.String("backend", cfg.Backend))
		}
		return NewMemoryStore()
	}
}

func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cache key %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache key %s: %w", key, err)
	}
	return s.Set(ctx, key, raw, ttl)
}
