package handlers

import (
	"context"

	"go.uber.org/zap"

	"ameliorate/application/ports"
	"ameliorate/domain/events"
)

// eventSource is an aggregate that buffers the events it raises
type eventSource interface {
	GetUncommittedEvents() []events.DomainEvent
	MarkEventsAsCommitted()
}

// publishEvents sends the aggregate's events after its changes are stored.
// Publishing failures are logged and do not fail the command.
func publishEvents(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, source eventSource) {
	pending := source.GetUncommittedEvents()
	if len(pending) == 0 {
		return
	}
	if err := publisher.PublishBatch(ctx, pending); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("count", len(pending)),
			zap.String("aggregate_id", pending[0].GetAggregateID()),
			zap.Error(err),
		)
	}
	source.MarkEventsAsCommitted()
}

// recordActivity bumps one activity counter per recorder
func recordActivity(ctx context.Context, recorders []ports.ActivityRecorder, activity string, times int) {
	for i := 0; i < times; i++ {
		for _, r := range recorders {
			r.RecordTopicActivity(ctx, activity)
		}
	}
}
