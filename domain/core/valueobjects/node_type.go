package valueobjects

import (
	"fmt"
	"slices"

	pkgerrors "ameliorate/pkg/errors"
)

// NodeType is the kind of a node. Topic node types make up the topic
// diagram; claim node types only appear inside claim trees.
type NodeType string

const (
	NodeTypeProblem           NodeType = "problem"
	NodeTypeSolution          NodeType = "solution"
	NodeTypeSolutionComponent NodeType = "solutionComponent"
	NodeTypeCriterion         NodeType = "criterion"
	NodeTypeEffect            NodeType = "effect"

	NodeTypeRootClaim NodeType = "rootClaim"
	NodeTypeSupport   NodeType = "support"
	NodeTypeCritique  NodeType = "critique"
)

var (
	topicNodeTypes = []NodeType{
		NodeTypeProblem,
		NodeTypeSolution,
		NodeTypeSolutionComponent,
		NodeTypeCriterion,
		NodeTypeEffect,
	}
	claimNodeTypes = []NodeType{
		NodeTypeRootClaim,
		NodeTypeSupport,
		NodeTypeCritique,
	}
)

// TopicNodeTypes returns the node types shown in the topic diagram
func TopicNodeTypes() []NodeType { return slices.Clone(topicNodeTypes) }

// ClaimNodeTypes returns the node types shown in claim trees
func ClaimNodeTypes() []NodeType { return slices.Clone(claimNodeTypes) }

// ParseNodeType validates a node type name
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.IsValid() {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid node type %q", s))
	}
	return t, nil
}

func (t NodeType) String() string { return string(t) }

// IsValid reports whether t is a known node type
func (t NodeType) IsValid() bool { return t.IsTopicType() || t.IsClaimType() }

// IsTopicType reports whether nodes of this type belong to the topic diagram
func (t NodeType) IsTopicType() bool { return slices.Contains(topicNodeTypes, t) }

// IsClaimType reports whether nodes of this type belong to a claim tree
func (t NodeType) IsClaimType() bool { return slices.Contains(claimNodeTypes, t) }
