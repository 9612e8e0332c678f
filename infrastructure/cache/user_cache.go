package cache

import (
	"context"
	"time"

	"ameliorate/application/ports"
	"ameliorate/domain/core/entities"
)

// UserCache implements ports.UserRepository, caching successful lookups.
// Users cannot be renamed or deleted, so entries only expire.
type UserCache struct {
	next  ports.UserRepository
	items *InMemoryCache[*entities.User]
	ttl   time.Duration
}

// NewUserCache wraps next. The sweeper stops when ctx is done.
func NewUserCache(ctx context.Context, next ports.UserRepository, ttl time.Duration) *UserCache {
	return &UserCache{
		next:  next,
		items: NewInMemoryCache[*entities.User](ctx, time.Minute),
		ttl:   ttl,
	}
}

// Create stores the user and caches it
func (c *UserCache) Create(ctx context.Context, user *entities.User) error {
	if err := c.next.Create(ctx, user); err != nil {
		return err
	}
	c.put(user)
	return nil
}

// GetByID finds a user by auth subject
func (c *UserCache) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if user, ok := c.items.Get("id:" + id); ok {
		return user, nil
	}
	user, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(user)
	return user, nil
}

// GetByUsername finds a user by username
func (c *UserCache) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	if user, ok := c.items.Get("name:" + username); ok {
		return user, nil
	}
	user, err := c.next.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	c.put(user)
	return user, nil
}

func (c *UserCache) put(user *entities.User) {
	c.items.Set("id:"+user.ID(), user, c.ttl)
	c.items.Set("name:"+user.Username().String(), user, c.ttl)
}
