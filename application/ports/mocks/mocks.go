// Package mocks provides testify mocks of the application ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/events"
)

// MockTopicRepository mocks ports.TopicRepository
type MockTopicRepository struct {
	mock.Mock
}

func (m *MockTopicRepository) Create(ctx context.Context, topic *aggregates.Topic) error {
	args := m.Called(ctx, topic)
	return args.Error(0)
}

func (m *MockTopicRepository) GetByID(ctx context.Context, id valueobjects.TopicID) (*aggregates.Topic, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.Topic), args.Error(1)
}

func (m *MockTopicRepository) FindByCreatorAndTitle(ctx context.Context, creatorID, title string) (*aggregates.Topic, error) {
	args := m.Called(ctx, creatorID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*aggregates.Topic), args.Error(1)
}

func (m *MockTopicRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*aggregates.Topic, int, error) {
	args := m.Called(ctx, creatorID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*aggregates.Topic), args.Int(1), args.Error(2)
}

func (m *MockTopicRepository) UpdateTitle(ctx context.Context, topic *aggregates.Topic) error {
	args := m.Called(ctx, topic)
	return args.Error(0)
}

func (m *MockTopicRepository) Delete(ctx context.Context, id valueobjects.TopicID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTopicRepository) SaveParts(ctx context.Context, topicID valueobjects.TopicID, nodes []*entities.Node, edges []*entities.Edge) error {
	args := m.Called(ctx, topicID, nodes, edges)
	return args.Error(0)
}

func (m *MockTopicRepository) RemoveParts(ctx context.Context, topicID valueobjects.TopicID, removal aggregates.PartRemoval) error {
	args := m.Called(ctx, topicID, removal)
	return args.Error(0)
}

func (m *MockTopicRepository) SaveScore(ctx context.Context, score entities.UserScore) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

// MockUserRepository mocks ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

// MockEventPublisher mocks ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockActivityRecorder mocks ports.ActivityRecorder
type MockActivityRecorder struct {
	mock.Mock
}

func (m *MockActivityRecorder) RecordTopicActivity(ctx context.Context, activity string) {
	m.Called(ctx, activity)
}

// MockCommandRecorder mocks ports.CommandRecorder
type MockCommandRecorder struct {
	mock.Mock
}

func (m *MockCommandRecorder) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	m.Called(ctx, commandName, duration, err)
}
