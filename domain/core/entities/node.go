package entities

import (
	"fmt"
	"time"
	"unicode/utf8"

	"ameliorate/domain/config"
	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
)

// Node is a typed statement in a topic. Claim nodes carry the id of the
// node or edge their claim tree argues about.
type Node struct {
	id                  valueobjects.NodeID
	topicID             valueobjects.TopicID
	nodeType            valueobjects.NodeType
	text                string
	arguedDiagramPartID string
	createdAt           time.Time
	updatedAt           time.Time
}

// NewNode creates a node with a fresh id
func NewNode(topicID valueobjects.TopicID, nodeType valueobjects.NodeType, text, arguedDiagramPartID string) (*Node, error) {
	return NewNodeWithID(valueobjects.NewNodeID(), topicID, nodeType, text, arguedDiagramPartID)
}

// NewNodeWithID creates a node whose id was chosen by the caller
func NewNodeWithID(id valueobjects.NodeID, topicID valueobjects.TopicID, nodeType valueobjects.NodeType, text, arguedDiagramPartID string) (*Node, error) {
	if err := validateNode(id, topicID, nodeType, text, arguedDiagramPartID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Node{
		id:                  id,
		topicID:             topicID,
		nodeType:            nodeType,
		text:                text,
		arguedDiagramPartID: arguedDiagramPartID,
		createdAt:           now,
		updatedAt:           now,
	}, nil
}

// ReconstructNode rebuilds a node from storage, keeping its timestamps
func ReconstructNode(
	id valueobjects.NodeID,
	topicID valueobjects.TopicID,
	nodeType valueobjects.NodeType,
	text, arguedDiagramPartID string,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if err := validateNode(id, topicID, nodeType, text, arguedDiagramPartID); err != nil {
		return nil, err
	}
	return &Node{
		id:                  id,
		topicID:             topicID,
		nodeType:            nodeType,
		text:                text,
		arguedDiagramPartID: arguedDiagramPartID,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}, nil
}

func validateNode(id valueobjects.NodeID, topicID valueobjects.TopicID, nodeType valueobjects.NodeType, text, argued string) error {
	if id.IsZero() || topicID.IsZero() {
		return pkgerrors.NewValidationError("node requires an id and a topic")
	}
	if !nodeType.IsValid() {
		return pkgerrors.NewValidationError(fmt.Sprintf("invalid node type %q", nodeType))
	}
	if limit := config.DefaultDomainConfig().MaxNodeTextLength; utf8.RuneCountInString(text) > limit {
		return pkgerrors.NewValidationError(fmt.Sprintf("node text exceeds maximum length of %d characters", limit))
	}
	return ValidateArguedPart(nodeType.IsClaimType(), argued)
}

// ValidateArguedPart keeps topic parts and claim parts disjoint: only claim
// parts point at an argued part.
func ValidateArguedPart(isClaim bool, argued string) error {
	if isClaim && argued == "" {
		return pkgerrors.NewValidationError("claim parts must reference the part they argue")
	}
	if !isClaim && argued != "" {
		return pkgerrors.NewValidationError("topic parts cannot reference an argued part")
	}
	return nil
}

func (n *Node) ID() valueobjects.NodeID { return n.id }
func (n *Node) TopicID() valueobjects.TopicID { return n.topicID }
func (n *Node) Type() valueobjects.NodeType { return n.nodeType }
func (n *Node) Text() string { return n.text }
func (n *Node) ArguedDiagramPartID() string { return n.arguedDiagramPartID }
func (n *Node) CreatedAt() time.Time { return n.createdAt }
func (n *Node) UpdatedAt() time.Time { return n.updatedAt }
func (n *Node) IsClaim() bool { return n.nodeType.IsClaimType() }
func (n *Node) ArguesAbout(partID string) bool { return n.arguedDiagramPartID == partID }
