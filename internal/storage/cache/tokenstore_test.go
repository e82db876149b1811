package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-fcm-dispatch/internal/storage/cache"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest any) error {
	return m.Called(ctx, key, dest).Error(0)
}
func (m *MockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRealStore struct {
	mock.Mock
}

func (m *MockRealStore) RegisterFCM(ctx context.Context, user urn.URN, token string) error {
	return m.Called(ctx, user, token).Error(0)
}
func (m *MockRealStore) UnregisterFCM(ctx context.Context, user urn.URN, token string) error {
	return m.Called(ctx, user, token).Error(0)
}
func (m *MockRealStore) Fetch(ctx context.Context, user urn.URN) ([]string, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func TestCachedTokenStore(t *testing.T) {
	ctx := context.Background()
	userURN, err := urn.Parse("urn:sm:user:annoyed-user")
	require.NoError(t, err)
	cacheKey := "notify:tokens:urn:sm:user:annoyed-user"

	t.Run("Happy Path - Cache hit skips the store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Run(func(args mock.Arguments) {
			*(args.Get(2).(*[]string)) = []string{"cached-token"}
		}).Return(nil)

		tokens, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, []string{"cached-token"}, tokens)
		mockDB.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Cache miss reads the store and refills", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		fresh := []string{"t1", "t2"}
		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(cache.ErrMiss)
		mockDB.On("Fetch", ctx, userURN).Return(fresh, nil)
		mockCache.On("Set", ctx, cacheKey, fresh, time.Hour).Return(nil)

		tokens, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, fresh, tokens)
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Broken cache still serves from the store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(errors.New("connection refused"))
		mockDB.On("Fetch", ctx, userURN).Return([]string{"t1"}, nil)
		mockCache.On("Set", ctx, cacheKey, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

		tokens, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, []string{"t1"}, tokens)
	})

	t.Run("Store failure is returned", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(cache.ErrMiss)
		mockDB.On("Fetch", ctx, userURN).Return(nil, assert.AnError)

		_, err := store.Fetch(ctx, userURN)
		assert.ErrorIs(t, err, assert.AnError)
		mockCache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unregister invalidates cache immediately", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockDB.On("UnregisterFCM", ctx, userURN, "old-token").Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		require.NoError(t, store.UnregisterFCM(ctx, userURN, "old-token"))
		mockDB.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("Register invalidates cache", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockDB.On("RegisterFCM", ctx, userURN, "new-token").Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		require.NoError(t, store.RegisterFCM(ctx, userURN, "new-token"))
		mockCache.AssertExpectations(t)
	})

	t.Run("Failed store write leaves cache alone", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour, newTestLogger())

		mockDB.On("RegisterFCM", ctx, userURN, "x").Return(assert.AnError)

		err := store.RegisterFCM(ctx, userURN, "x")
		assert.ErrorIs(t, err, assert.AnError)
		mockCache.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
	})
}
