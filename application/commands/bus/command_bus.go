package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Command represents a command that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// HandlerFor adapts a handler method taking a concrete command type.
func HandlerFor[C Command](fn func(ctx context.Context, cmd C) error) CommandHandler {
	return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrInvalidCommand, cmd)
		}
		return fn(ctx, typed)
	})
}

// Middleware wraps command handling
type Middleware func(next CommandHandler) CommandHandler

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	mu          sync.RWMutex
	handlers    map[reflect.Type]CommandHandler
	middlewares []Middleware
}

// NewCommandBus creates a new command bus
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers:    make(map[reflect.Type]CommandHandler),
		middlewares: middlewares,
	}
}

// Register registers a handler for the type of cmdType
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", CommandName(cmdType))
	}
	b.handlers[t] = handler
	return nil
}

// Send validates cmd and dispatches it through the middleware chain
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	for i := len(b.middlewares) - 1; i >= 0; i-- {
		handler = b.middlewares[i](handler)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("command handler failed: %w", err)
	}
	return nil
}

// CommandName is the bare type name of cmd, without package or pointer
func CommandName(cmd Command) string {
	t := reflect.TypeOf(cmd)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			name := CommandName(cmd)
			logger.Debug("Executing command", zap.String("type", name))

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Warn("Command failed", zap.String("type", name), zap.Error(err))
				return err
			}
			logger.Info("Command succeeded", zap.String("type", name))
			return nil
		})
	}
}

// MetricsRecorder receives one observation per handled command
type MetricsRecorder interface {
	RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error)
}

// MetricsMiddleware times every command and reports it to each recorder
func MetricsMiddleware(recorders ...MetricsRecorder) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)
			for _, r := range recorders {
				r.RecordCommandExecution(ctx, CommandName(cmd), time.Since(start), err)
			}
			return err
		})
	}
}

// Tracer runs a function inside a trace span
type Tracer interface {
	TraceFunction(ctx context.Context, name string, fn func(context.Context) error) error
}

// TracingMiddleware wraps each command in a span named after it
func TracingMiddleware(tracer Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			return tracer.TraceFunction(ctx, "command."+CommandName(cmd), func(ctx context.Context) error {
				return next.Handle(ctx, cmd)
			})
		})
	}
}

// Errors
var (
	ErrHandlerNotFound = errors.New("command handler not found")
	ErrInvalidCommand  = errors.New("invalid command type")
)
