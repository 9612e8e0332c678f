package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ameliorate/application/ports/mocks"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
)

func TestInMemoryCacheExpiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	now := time.Now()
	c := NewInMemoryCache[string](ctx, time.Hour)
	c.now = func() time.Time { return now }

	c.Set("a", "alpha", time.Minute)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired")
	assert.Equal(t, 1, c.Len())

	c.sweep()
	assert.Zero(t, c.Len())

	c.Set("b", "beta", time.Minute)
	c.Delete("b")
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestUserCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	username, err := valueobjects.NewUsername("alice")
	require.NoError(t, err)
	alice, err := entities.NewUser("sub-1", username, "")
	require.NoError(t, err)

	t.Run("lookups hit the store once", func(t *testing.T) {
		repo := new(mocks.MockUserRepository)
		repo.On("GetByUsername", ctx, "alice").Return(alice, nil).Once()
		c := NewUserCache(ctx, repo, time.Minute)

		for i := 0; i < 3; i++ {
			user, err := c.GetByUsername(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, "sub-1", user.ID())
		}
		user, err := c.GetByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Same(t, alice, user)
		repo.AssertExpectations(t)
	})

	t.Run("misses are not cached", func(t *testing.T) {
		repo := new(mocks.MockUserRepository)
		repo.On("GetByID", ctx, "sub-9").Return(nil, pkgerrors.NewNotFoundError("user")).Twice()
		c := NewUserCache(ctx, repo, time.Minute)

		for i := 0; i < 2; i++ {
			_, err := c.GetByID(ctx, "sub-9")
			assert.True(t, pkgerrors.IsNotFound(err))
		}
		repo.AssertExpectations(t)
	})

	t.Run("create primes the cache", func(t *testing.T) {
		repo := new(mocks.MockUserRepository)
		repo.On("Create", ctx, alice).Return(nil).Once()
		c := NewUserCache(ctx, repo, time.Minute)

		require.NoError(t, c.Create(ctx, alice))
		user, err := c.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Same(t, alice, user)
		repo.AssertExpectations(t)
	})
}
