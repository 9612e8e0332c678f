// Package messaging delivers domain events raised by the command handlers.
package messaging

import (
	"context"

	"go.uber.org/zap"

	"ameliorate/domain/events"
)

// LogPublisher implements ports.EventPublisher by logging each event. It is
// used when no event bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single event
func (p *LogPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.logger.Debug("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch logs every event
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		_ = p.Publish(ctx, e)
	}
	return nil
}
