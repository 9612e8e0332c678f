// Package records holds the flat row shapes shared by the stores and the
// mapping between them and the domain model.
package records

import (
	"fmt"
	"time"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
)

// TopicRecord is a stored topic without its parts
type TopicRecord struct {
	ID        string    `dynamodbav:"TopicID"`
	CreatorID string    `dynamodbav:"CreatorID"`
	Title     string    `dynamodbav:"Title"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt time.Time `dynamodbav:"UpdatedAt"`
}

// NodeRecord is a stored node
type NodeRecord struct {
	ID                  string    `dynamodbav:"NodeID"`
	TopicID             string    `dynamodbav:"TopicID"`
	Type                string    `dynamodbav:"NodeType"`
	Text                string    `dynamodbav:"Text"`
	ArguedDiagramPartID string    `dynamodbav:"ArguedDiagramPartID"`
	CreatedAt           time.Time `dynamodbav:"CreatedAt"`
	UpdatedAt           time.Time `dynamodbav:"UpdatedAt"`
}

// EdgeRecord is a stored edge
type EdgeRecord struct {
	ID                  string    `dynamodbav:"EdgeID"`
	TopicID             string    `dynamodbav:"TopicID"`
	SourceID            string    `dynamodbav:"SourceID"`
	TargetID            string    `dynamodbav:"TargetID"`
	Label               string    `dynamodbav:"Label"`
	ArguedDiagramPartID string    `dynamodbav:"ArguedDiagramPartID"`
	CreatedAt           time.Time `dynamodbav:"CreatedAt"`
}

// ScoreRecord is a stored user score
type ScoreRecord struct {
	TopicID     string `dynamodbav:"TopicID"`
	UserID      string `dynamodbav:"UserID"`
	GraphPartID string `dynamodbav:"GraphPartID"`
	Value       int    `dynamodbav:"Value"`
}

// UserRecord is a stored user
type UserRecord struct {
	ID        string    `dynamodbav:"UserID"`
	Username  string    `dynamodbav:"Username"`
	AuthID    string    `dynamodbav:"AuthID"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

func FromTopic(t *aggregates.Topic) TopicRecord {
	return TopicRecord{
		ID:        t.ID().String(),
		CreatorID: t.CreatorID(),
		Title:     t.Title().String(),
		CreatedAt: t.CreatedAt().UTC(),
		UpdatedAt: t.UpdatedAt().UTC(),
	}
}

func FromNode(n *entities.Node) NodeRecord {
	return NodeRecord{
		ID:                  n.ID().String(),
		TopicID:             n.TopicID().String(),
		Type:                n.Type().String(),
		Text:                n.Text(),
		ArguedDiagramPartID: n.ArguedDiagramPartID(),
		CreatedAt:           n.CreatedAt().UTC(),
		UpdatedAt:           n.UpdatedAt().UTC(),
	}
}

func FromEdge(e *entities.Edge) EdgeRecord {
	return EdgeRecord{
		ID:                  e.ID().String(),
		TopicID:             e.TopicID().String(),
		SourceID:            e.SourceID().String(),
		TargetID:            e.TargetID().String(),
		Label:               e.Label().String(),
		ArguedDiagramPartID: e.ArguedDiagramPartID(),
		CreatedAt:           e.CreatedAt().UTC(),
	}
}

func FromScore(s entities.UserScore) ScoreRecord {
	return ScoreRecord{
		TopicID:     s.TopicID.String(),
		UserID:      s.UserID,
		GraphPartID: s.GraphPartID,
		Value:       s.Value.Int(),
	}
}

func FromUser(u *entities.User) UserRecord {
	return UserRecord{
		ID:        u.ID(),
		Username:  u.Username().String(),
		AuthID:    u.AuthID(),
		CreatedAt: u.CreatedAt().UTC(),
	}
}

// Topic rebuilds a topic without parts
func (r TopicRecord) Topic() (*aggregates.Topic, error) {
	id, err := valueobjects.NewTopicIDFromString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("stored topic: %w", err)
	}
	title, err := valueobjects.NewTitle(r.Title)
	if err != nil {
		return nil, fmt.Errorf("stored topic %s: %w", r.ID, err)
	}
	return aggregates.ReconstructTopic(id, r.CreatorID, title, r.CreatedAt, r.UpdatedAt), nil
}

// Node rebuilds a node
func (r NodeRecord) Node() (*entities.Node, error) {
	id, err := valueobjects.NewNodeIDFromString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("stored node: %w", err)
	}
	topicID, err := valueobjects.NewTopicIDFromString(r.TopicID)
	if err != nil {
		return nil, fmt.Errorf("stored node %s: %w", r.ID, err)
	}
	nodeType, err := valueobjects.ParseNodeType(r.Type)
	if err != nil {
		return nil, fmt.Errorf("stored node %s: %w", r.ID, err)
	}
	return entities.ReconstructNode(id, topicID, nodeType, r.Text, r.ArguedDiagramPartID, r.CreatedAt, r.UpdatedAt)
}

// Edge rebuilds an edge
func (r EdgeRecord) Edge() (*entities.Edge, error) {
	id, err := valueobjects.NewEdgeIDFromString(r.ID)
	if err != nil {
		return nil, fmt.Errorf("stored edge: %w", err)
	}
	topicID, err := valueobjects.NewTopicIDFromString(r.TopicID)
	if err != nil {
		return nil, fmt.Errorf("stored edge %s: %w", r.ID, err)
	}
	source, err := valueobjects.NewNodeIDFromString(r.SourceID)
	if err != nil {
		return nil, fmt.Errorf("stored edge %s: %w", r.ID, err)
	}
	target, err := valueobjects.NewNodeIDFromString(r.TargetID)
	if err != nil {
		return nil, fmt.Errorf("stored edge %s: %w", r.ID, err)
	}
	label, err := valueobjects.ParseRelationName(r.Label)
	if err != nil {
		return nil, fmt.Errorf("stored edge %s: %w", r.ID, err)
	}
	return entities.ReconstructEdge(id, topicID, source, target, label, r.ArguedDiagramPartID, r.CreatedAt)
}

// Score rebuilds a user score
func (r ScoreRecord) Score() (entities.UserScore, error) {
	topicID, err := valueobjects.NewTopicIDFromString(r.TopicID)
	if err != nil {
		return entities.UserScore{}, fmt.Errorf("stored score: %w", err)
	}
	value, err := valueobjects.NewScoreValue(r.Value)
	if err != nil {
		return entities.UserScore{}, fmt.Errorf("stored score: %w", err)
	}
	return entities.UserScore{TopicID: topicID, UserID: r.UserID, GraphPartID: r.GraphPartID, Value: value}, nil
}

// User rebuilds a user
func (r UserRecord) User() (*entities.User, error) {
	username, err := valueobjects.NewUsername(r.Username)
	if err != nil {
		return nil, fmt.Errorf("stored user %s: %w", r.ID, err)
	}
	return entities.ReconstructUser(r.ID, username, r.AuthID, r.CreatedAt)
}

// AssembleTopic rebuilds a topic with all of its parts
func AssembleTopic(t TopicRecord, nodes []NodeRecord, edges []EdgeRecord, scores []ScoreRecord) (*aggregates.Topic, error) {
	topic, err := t.Topic()
	if err != nil {
		return nil, err
	}
	for _, r := range nodes {
		node, err := r.Node()
		if err != nil {
			return nil, err
		}
		if err := topic.LoadNode(node); err != nil {
			return nil, err
		}
	}
	for _, r := range edges {
		edge, err := r.Edge()
		if err != nil {
			return nil, err
		}
		if err := topic.LoadEdge(edge); err != nil {
			return nil, err
		}
	}
	for _, r := range scores {
		score, err := r.Score()
		if err != nil {
			return nil, err
		}
		topic.LoadScore(score)
	}
	return topic, nil
}

// ToMillis and FromMillis convert timestamps for stores that keep them as
// integer unix milliseconds.
func ToMillis(t time.Time) int64 { return t.UnixMilli() }

func FromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
