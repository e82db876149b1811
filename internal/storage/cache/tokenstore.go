// Package cache adds a Redis read-aside layer in front of a dispatch.TokenStore.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-fcm-dispatch/pkg/dispatch"
)

// CacheClient is the subset of cache commands the store needs.
type CacheClient interface {
	// Get decodes the value into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedTokenStore decorates a TokenStore: reads go through the cache, writes invalidate it.
type CachedTokenStore struct {
	realStore dispatch.TokenStore
	cache     CacheClient
	ttl       time.Duration
	logger    *slog.Logger
}

func NewCachedTokenStore(realStore dispatch.TokenStore, cache CacheClient, ttl time.Duration, logger *slog.Logger) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
		logger:    logger.With("component", "CachedTokenStore"),
	}
}

func (s *CachedTokenStore) Fetch(ctx context.Context, user urn.URN) ([]string, error) {
	key := cacheKey(user)

	var cached []string
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.logger.Warn("Cache read failed, falling back to store", "key", key, "err", err)
	}

	tokens, err := s.realStore.Fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	// A failed refill only costs a store read next time.
	if err := s.cache.Set(ctx, key, tokens, s.ttl); err != nil {
		s.logger.Warn("Cache refill failed", "key", key, "err", err)
	}
	return tokens, nil
}

func (s *CachedTokenStore) RegisterFCM(ctx context.Context, user urn.URN, token string) error {
	if err := s.realStore.RegisterFCM(ctx, user, token); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

// UnregisterFCM clears the cached token list even when it is still fresh, so a removed
// device stops receiving pushes immediately.
func (s *CachedTokenStore) UnregisterFCM(ctx context.Context, user urn.URN, token string) error {
	if err := s.realStore.UnregisterFCM(ctx, user, token); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, user urn.URN) error {
	if err := s.cache.Del(ctx, cacheKey(user)); err != nil {
		return fmt.Errorf("failed to invalidate token cache: %w", err)
	}
	return nil
}

func cacheKey(user urn.URN) string {
	return fmt.Sprintf("notify:tokens:%s", user.String())
}
