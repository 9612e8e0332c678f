package entities

import (
	"fmt"
	"time"

	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
)

// Edge connects a parent node (source) to a child node (target).
type Edge struct {
	id                  valueobjects.EdgeID
	topicID             valueobjects.TopicID
	sourceID            valueobjects.NodeID
	targetID            valueobjects.NodeID
	label               valueobjects.RelationName
	arguedDiagramPartID string
	createdAt           time.Time
}

// NewEdgeWithID creates an edge whose id was chosen by the caller
func NewEdgeWithID(
	id valueobjects.EdgeID,
	topicID valueobjects.TopicID,
	sourceID, targetID valueobjects.NodeID,
	label valueobjects.RelationName,
	arguedDiagramPartID string,
) (*Edge, error) {
	return ReconstructEdge(id, topicID, sourceID, targetID, label, arguedDiagramPartID, time.Now().UTC())
}

// ReconstructEdge rebuilds an edge from storage
func ReconstructEdge(
	id valueobjects.EdgeID,
	topicID valueobjects.TopicID,
	sourceID, targetID valueobjects.NodeID,
	label valueobjects.RelationName,
	arguedDiagramPartID string,
	createdAt time.Time,
) (*Edge, error) {
	if id.IsZero() || topicID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge requires an id and a topic")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge requires a source and a target")
	}
	if sourceID.Equals(targetID) {
		return nil, pkgerrors.NewValidationError("edge cannot connect a node to itself")
	}
	if !label.IsValid() {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid relation %q", label))
	}
	if err := ValidateArguedPart(label.IsClaimRelation(), arguedDiagramPartID); err != nil {
		return nil, err
	}
	return &Edge{
		id:                  id,
		topicID:             topicID,
		sourceID:            sourceID,
		targetID:            targetID,
		label:               label,
		arguedDiagramPartID: arguedDiagramPartID,
		createdAt:           createdAt,
	}, nil
}

func (e *Edge) ID() valueobjects.EdgeID { return e.id }
func (e *Edge) TopicID() valueobjects.TopicID { return e.topicID }
func (e *Edge) SourceID() valueobjects.NodeID { return e.sourceID }
func (e *Edge) TargetID() valueobjects.NodeID { return e.targetID }
func (e *Edge) Label() valueobjects.RelationName { return e.label }
func (e *Edge) ArguedDiagramPartID() string { return e.arguedDiagramPartID }
func (e *Edge) CreatedAt() time.Time { return e.createdAt }

// Touches reports whether the edge has nodeID at either end
func (e *Edge) Touches(nodeID valueobjects.NodeID) bool {
	return e.sourceID.Equals(nodeID) || e.targetID.Equals(nodeID)
}
