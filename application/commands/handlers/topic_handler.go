package handlers

import (
	"context"

	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/application/ports"
	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
	"ameliorate/pkg/observability"
)

// TopicHandler handles topic lifecycle commands
type TopicHandler struct {
	topics    ports.TopicRepository
	users     ports.UserRepository
	publisher ports.EventPublisher
	activity  []ports.ActivityRecorder
	logger    *zap.Logger
}

// NewTopicHandler creates a new handler instance
func NewTopicHandler(
	topics ports.TopicRepository,
	users ports.UserRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	activity ...ports.ActivityRecorder,
) *TopicHandler {
	return &TopicHandler{
		topics:    topics,
		users:     users,
		publisher: publisher,
		activity:  activity,
		logger:    logger,
	}
}

// Register adds the topic commands to b
func (h *TopicHandler) Register(b *bus.CommandBus) error {
	if err := b.Register(&commands.CreateTopicCommand{}, bus.HandlerFor(h.HandleCreate)); err != nil {
		return err
	}
	if err := b.Register(&commands.UpdateTopicCommand{}, bus.HandlerFor(h.HandleUpdate)); err != nil {
		return err
	}
	return b.Register(&commands.DeleteTopicCommand{}, bus.HandlerFor(h.HandleDelete))
}

// HandleCreate creates a topic for an existing user
func (h *TopicHandler) HandleCreate(ctx context.Context, cmd *commands.CreateTopicCommand) error {
	topicID, err := valueobjects.NewTopicIDFromString(cmd.TopicID)
	if err != nil {
		return err
	}
	title, err := valueobjects.NewTitle(cmd.Title)
	if err != nil {
		return err
	}
	if _, err := h.users.GetByID(ctx, cmd.UserID); err != nil {
		return pkgerrors.Wrap(err, "topic creator")
	}

	topic, err := aggregates.NewTopic(topicID, cmd.UserID, title)
	if err != nil {
		return err
	}
	if err := h.topics.Create(ctx, topic); err != nil {
		return err
	}

	h.logger.Info("Topic created",
		zap.String("topic_id", topicID.String()),
		zap.String("creator_id", cmd.UserID),
	)
	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityTopicCreated, 1)
	return nil
}

// HandleUpdate renames a topic
func (h *TopicHandler) HandleUpdate(ctx context.Context, cmd *commands.UpdateTopicCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	title, err := valueobjects.NewTitle(cmd.Title)
	if err != nil {
		return err
	}
	if err := topic.Rename(cmd.UserID, title); err != nil {
		return err
	}
	if len(topic.GetUncommittedEvents()) == 0 {
		return nil
	}
	if err := h.topics.UpdateTitle(ctx, topic); err != nil {
		return err
	}

	publishEvents(ctx, h.publisher, h.logger, topic)
	return nil
}

// HandleDelete deletes a topic and everything in it
func (h *TopicHandler) HandleDelete(ctx context.Context, cmd *commands.DeleteTopicCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	if err := topic.MarkDeleted(cmd.UserID); err != nil {
		return err
	}
	if err := h.topics.Delete(ctx, topic.ID()); err != nil {
		return err
	}

	h.logger.Info("Topic deleted",
		zap.String("topic_id", topic.ID().String()),
		zap.Int("nodes", len(topic.Nodes())),
		zap.Int("edges", len(topic.Edges())),
	)
	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityTopicDeleted, 1)
	return nil
}

func loadTopic(ctx context.Context, topics ports.TopicRepository, rawID string) (*aggregates.Topic, error) {
	id, err := valueobjects.NewTopicIDFromString(rawID)
	if err != nil {
		return nil, err
	}
	return topics.GetByID(ctx, id)
}
