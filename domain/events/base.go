package events

import (
	"time"

	"ameliorate/domain/core/valueobjects"
)

// DomainEvent is something that happened to an aggregate.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string { return e.AggregateID }
func (e BaseEvent) GetEventType() string { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int { return e.Version }

const (
	TypeTopicCreated = "topic.created"
	TypeTopicRenamed = "topic.renamed"
	TypeTopicDeleted = "topic.deleted"
	TypeNodeAdded    = "node.added"
	TypeNodeRemoved  = "node.removed"
	TypeEdgeAdded    = "edge.added"
	TypeEdgeRemoved  = "edge.removed"
	TypeScoreSet     = "score.set"
	TypeUserCreated  = "user.created"
)

func newBase(aggregateID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{AggregateID: aggregateID, EventType: eventType, Timestamp: at, Version: 1}
}

// TopicCreated is raised when a user creates a topic
type TopicCreated struct {
	BaseEvent
	CreatorID string `json:"creator_id"`
	Title     string `json:"title"`
}

func NewTopicCreated(topicID valueobjects.TopicID, creatorID, title string, at time.Time) TopicCreated {
	return TopicCreated{BaseEvent: newBase(topicID.String(), TypeTopicCreated, at), CreatorID: creatorID, Title: title}
}

// TopicRenamed is raised when the creator changes the title
type TopicRenamed struct {
	BaseEvent
	OldTitle string `json:"old_title"`
	NewTitle string `json:"new_title"`
}

func NewTopicRenamed(topicID valueobjects.TopicID, oldTitle, newTitle string, at time.Time) TopicRenamed {
	return TopicRenamed{BaseEvent: newBase(topicID.String(), TypeTopicRenamed, at), OldTitle: oldTitle, NewTitle: newTitle}
}

// TopicDeleted is raised when the creator deletes a topic
type TopicDeleted struct {
	BaseEvent
	DeletedBy string `json:"deleted_by"`
}

func NewTopicDeleted(topicID valueobjects.TopicID, deletedBy string, at time.Time) TopicDeleted {
	return TopicDeleted{BaseEvent: newBase(topicID.String(), TypeTopicDeleted, at), DeletedBy: deletedBy}
}

// NodeAdded is raised for every node added to a topic
type NodeAdded struct {
	BaseEvent
	NodeID              string `json:"node_id"`
	NodeType            string `json:"node_type"`
	ArguedDiagramPartID string `json:"argued_diagram_part_id,omitempty"`
}

func NewNodeAdded(topicID valueobjects.TopicID, nodeID valueobjects.NodeID, nodeType valueobjects.NodeType, argued string, at time.Time) NodeAdded {
	return NodeAdded{
		BaseEvent:           newBase(topicID.String(), TypeNodeAdded, at),
		NodeID:              nodeID.String(),
		NodeType:            nodeType.String(),
		ArguedDiagramPartID: argued,
	}
}

// NodeRemoved is raised for every node removed from a topic, including
// nodes of claim trees removed along with their argued part.
type NodeRemoved struct {
	BaseEvent
	NodeID string `json:"node_id"`
}

func NewNodeRemoved(topicID valueobjects.TopicID, nodeID valueobjects.NodeID, at time.Time) NodeRemoved {
	return NodeRemoved{BaseEvent: newBase(topicID.String(), TypeNodeRemoved, at), NodeID: nodeID.String()}
}

// EdgeAdded is raised for every edge added to a topic
type EdgeAdded struct {
	BaseEvent
	EdgeID   string `json:"edge_id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Label    string `json:"label"`
}

func NewEdgeAdded(topicID valueobjects.TopicID, edgeID valueobjects.EdgeID, source, target valueobjects.NodeID, label valueobjects.RelationName, at time.Time) EdgeAdded {
	return EdgeAdded{
		BaseEvent: newBase(topicID.String(), TypeEdgeAdded, at),
		EdgeID:    edgeID.String(),
		SourceID:  source.String(),
		TargetID:  target.String(),
		Label:     label.String(),
	}
}

// EdgeRemoved is raised for every edge removed from a topic
type EdgeRemoved struct {
	BaseEvent
	EdgeID string `json:"edge_id"`
}

func NewEdgeRemoved(topicID valueobjects.TopicID, edgeID valueobjects.EdgeID, at time.Time) EdgeRemoved {
	return EdgeRemoved{BaseEvent: newBase(topicID.String(), TypeEdgeRemoved, at), EdgeID: edgeID.String()}
}

// ScoreSet is raised when a user scores a node or edge
type ScoreSet struct {
	BaseEvent
	UserID      string `json:"user_id"`
	GraphPartID string `json:"graph_part_id"`
	Value       int    `json:"value"`
}

func NewScoreSet(topicID valueobjects.TopicID, userID, partID string, value valueobjects.ScoreValue, at time.Time) ScoreSet {
	return ScoreSet{
		BaseEvent:   newBase(topicID.String(), TypeScoreSet, at),
		UserID:      userID,
		GraphPartID: partID,
		Value:       value.Int(),
	}
}

// UserCreated is raised when a profile is created for a subject
type UserCreated struct {
	BaseEvent
	Username string `json:"username"`
}

func NewUserCreated(userID, username string, at time.Time) UserCreated {
	return UserCreated{BaseEvent: newBase(userID, TypeUserCreated, at), Username: username}
}
