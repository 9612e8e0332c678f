package ports

import (
	"context"
	"time"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/events"
)

// TopicRepository persists topics and their parts. Lookups that miss
// return a NOT_FOUND AppError; a duplicate (creator, title) returns a
// CONFLICT AppError.
type TopicRepository interface {
	// Create stores a new topic without parts
	Create(ctx context.Context, topic *aggregates.Topic) error

	// GetByID loads a topic with its nodes, edges and scores
	GetByID(ctx context.Context, id valueobjects.TopicID) (*aggregates.Topic, error)

	// FindByCreatorAndTitle loads a topic with its nodes, edges and scores
	FindByCreatorAndTitle(ctx context.Context, creatorID, title string) (*aggregates.Topic, error)

	// ListByCreator returns one page of a user's topics, without parts,
	// newest first, and the total number of topics the user has.
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*aggregates.Topic, int, error)

	// UpdateTitle stores the topic's current title
	UpdateTitle(ctx context.Context, topic *aggregates.Topic) error

	// Delete removes a topic with all of its parts and scores
	Delete(ctx context.Context, id valueobjects.TopicID) error

	// SaveParts inserts new nodes and edges in one transaction
	SaveParts(ctx context.Context, topicID valueobjects.TopicID, nodes []*entities.Node, edges []*entities.Edge) error

	// RemoveParts deletes nodes, edges and any scores on them
	RemoveParts(ctx context.Context, topicID valueobjects.TopicID, removal aggregates.PartRemoval) error

	// SaveScore inserts or replaces a user's score for a part
	SaveScore(ctx context.Context, score entities.UserScore) error
}

// UserRepository persists user profiles
type UserRepository interface {
	// Create stores a new user; the id and username must be unused
	Create(ctx context.Context, user *entities.User) error

	// GetByID finds a user by auth subject
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByUsername finds a user by username
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// ActivityRecorder counts business activity such as topics created
type ActivityRecorder interface {
	RecordTopicActivity(ctx context.Context, activity string)
}

// CommandRecorder records command timings
type CommandRecorder interface {
	RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error)
}

// HealthChecker is implemented by stores that can report readiness
type HealthChecker interface {
	Ping(ctx context.Context) error
}
