package shikimori

import (
	"context"
	"time"

	"go.uber.org/zap"

	"animesanta/internal/cache"
	"animesanta/internal/restriction"
)

// Cached keeps found titles in a cache.Store. Misses and errors are not cached.
type Cached struct {
	Next   restriction.MetadataService
	Cache  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

var _ restriction.MetadataService = (*Cached)(nil)

func (c *Cached) Lookup(ctx context.Context, titleID string) (*restriction.Title, error) {
	key := "title:" + titleID
	var hit restriction.Title
	found, err := cache.GetJSON(ctx, c.Cache, key, &hit)
	if err != nil && c.Logger != nil {
		c.Logger.Warn("title cache read failed", zap.String("title_id", titleID), zap.Error(err))
	}
	if found {
		return &hit, nil
	}
	title, err := c.Next.Lookup(ctx, titleID)
	if err != nil || title == nil {
		return title, err
	}
	if err := cache.SetJSON(ctx, c.Cache, key, title, c.TTL); err != nil && c.Logger != nil {
		c.Logger.Warn("title cache write failed", zap.String("title_id", titleID), zap.Error(err))
	}
	return title, nil
}
