package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Query represents a read-only query
type Query interface {
	Validate() error
}

// QueryHandler handles a specific query type
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc is an adapter to allow functions to be used as handlers
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler
func (f QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return f(ctx, query)
}

// HandlerFor adapts a handler method taking a concrete query type
func HandlerFor[Q Query, R any](fn func(ctx context.Context, query Q) (R, error)) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrInvalidQuery, query)
		}
		return fn(ctx, typed)
	})
}

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

// NewQueryBus creates a new query bus
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

// Register registers a handler for the type of queryType
func (b *QueryBus) Register(queryType Query, handler QueryHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(queryType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t)
	}
	b.handlers[t] = handler
	return nil
}

// Ask validates query and returns its handler's result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	result, err := handler.Handle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query handler failed: %w", err)
	}
	return result, nil
}

// Ask is a typed wrapper over QueryBus.Ask
func Ask[R any](ctx context.Context, b *QueryBus, query Query) (R, error) {
	var zero R
	result, err := b.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("%w: query %T returned %T", ErrUnexpectedResult, query, result)
	}
	return typed, nil
}

// Errors
var (
	ErrHandlerNotFound  = errors.New("query handler not found")
	ErrInvalidQuery     = errors.New("invalid query type")
	ErrUnexpectedResult = errors.New("unexpected query result type")
)
