package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// SlidingWindowLimiter allows at most limit requests per key inside any
// window of windowSize.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

type window struct {
	mu       sync.Mutex
	requests []time.Time
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow records a request for key and reports whether it fits the window.
// A non-positive limit disables limiting.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	kept := w.requests[:0]
	for _, t := range w.requests {
		if t.After(windowStart) {
			kept = append(kept, t)
		}
	}
	w.requests = kept

	if len(w.requests) >= l.limit {
		return false, nil
	}
	w.requests = append(w.requests, now)
	return true, nil
}

// Reset forgets all requests recorded for key
func (l *SlidingWindowLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
	return nil
}

// Limit returns the configured number of requests per window
func (l *SlidingWindowLimiter) Limit() int {
	return l.limit
}

// IPRateLimiter limits requests per client IP
type IPRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewIPRateLimiter creates a per-IP limiter over a one minute window
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// Allow checks if a request from ip is allowed
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.Allow(ctx, "ip:"+ip)
}

// Limit returns the requests-per-minute budget
func (l *IPRateLimiter) Limit() int { return l.limiter.Limit() }

// UserRateLimiter limits requests per authenticated user
type UserRateLimiter struct {
	limiter *SlidingWindowLimiter
}

// NewUserRateLimiter creates a per-user limiter over a one minute window
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute)}
}

// Allow checks if a request from userID is allowed
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.Allow(ctx, "user:"+userID)
}

// Limit returns the requests-per-minute budget
func (l *UserRateLimiter) Limit() int { return l.limiter.Limit() }
