package valueobjects

import (
	"encoding/json"

	"github.com/google/uuid"

	pkgerrors "ameliorate/pkg/errors"
)

// TopicID identifies a topic.
type TopicID struct {
	value string
}

// NewTopicID creates a new random TopicID
func NewTopicID() TopicID {
	return TopicID{value: uuid.NewString()}
}

// NewTopicIDFromString parses an existing topic id
func NewTopicIDFromString(id string) (TopicID, error) {
	v, err := parseUUID("topic ID", id)
	return TopicID{value: v}, err
}

func (id TopicID) String() string { return id.value }
func (id TopicID) Equals(other TopicID) bool { return id.value == other.value }
func (id TopicID) IsZero() bool { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id TopicID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

// NodeID identifies a node within a topic.
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.NewString()}
}

// NewNodeIDFromString parses an existing node id
func NewNodeIDFromString(id string) (NodeID, error) {
	v, err := parseUUID("node ID", id)
	return NodeID{value: v}, err
}

func (id NodeID) String() string { return id.value }
func (id NodeID) Equals(other NodeID) bool { return id.value == other.value }
func (id NodeID) IsZero() bool { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

// EdgeID identifies an edge within a topic.
type EdgeID struct {
	value string
}

// NewEdgeID creates a new random EdgeID
func NewEdgeID() EdgeID {
	return EdgeID{value: uuid.NewString()}
}

// NewEdgeIDFromString parses an existing edge id
func NewEdgeIDFromString(id string) (EdgeID, error) {
	v, err := parseUUID("edge ID", id)
	return EdgeID{value: v}, err
}

func (id EdgeID) String() string { return id.value }
func (id EdgeID) Equals(other EdgeID) bool { return id.value == other.value }
func (id EdgeID) IsZero() bool { return id.value == "" }

// MarshalJSON implements json.Marshaler
func (id EdgeID) MarshalJSON() ([]byte, error) { return json.Marshal(id.value) }

func parseUUID(kind, s string) (string, error) {
	if s == "" {
		return "", pkgerrors.NewValidationError(kind + " cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", pkgerrors.NewValidationError(kind + " must be a valid UUID")
	}
	return s, nil
}
