package repositories

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type noopCache struct{}

// NewNoopCache returns a cache that stores nothing, used when Redis is disabled.
func NewNoopCache() CacheRepositoryInterface {
	return noopCache{}
}

func (noopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

func (noopCache) Get(context.Context, string) (string, error) {
	return "", ErrCacheMiss
}

func (noopCache) Del(context.Context, ...string) error {
	return nil
}
