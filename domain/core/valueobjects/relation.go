package valueobjects

import (
	"fmt"
	"slices"

	pkgerrors "ameliorate/pkg/errors"
)

// RelationName labels an edge.
type RelationName string

const (
	RelationCauses       RelationName = "causes"
	RelationSolves       RelationName = "solves"
	RelationHas          RelationName = "has"
	RelationCriterionFor RelationName = "criterionFor"
	RelationCreates      RelationName = "creates"
	RelationEmbodies     RelationName = "embodies"

	RelationSupports  RelationName = "supports"
	RelationCritiques RelationName = "critiques"
)

var (
	topicRelationNames = []RelationName{
		RelationCauses,
		RelationSolves,
		RelationHas,
		RelationCriterionFor,
		RelationCreates,
		RelationEmbodies,
	}
	claimRelationNames = []RelationName{
		RelationSupports,
		RelationCritiques,
	}
)

// TopicRelationNames returns the labels of edges in the topic diagram
func TopicRelationNames() []RelationName { return slices.Clone(topicRelationNames) }

// ClaimRelationNames returns the labels of edges in claim trees
func ClaimRelationNames() []RelationName { return slices.Clone(claimRelationNames) }

// ParseRelationName validates a relation name
func ParseRelationName(s string) (RelationName, error) {
	r := RelationName(s)
	if !r.IsValid() {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid relation %q", s))
	}
	return r, nil
}

func (r RelationName) String() string { return string(r) }

// IsValid reports whether r is a known relation name
func (r RelationName) IsValid() bool { return r.IsTopicRelation() || r.IsClaimRelation() }

// IsTopicRelation reports whether r connects topic nodes
func (r RelationName) IsTopicRelation() bool { return slices.Contains(topicRelationNames, r) }

// IsClaimRelation reports whether r connects claim nodes
func (r RelationName) IsClaimRelation() bool { return slices.Contains(claimRelationNames, r) }

// RelationDirection says which end of a new edge an existing node sits on.
type RelationDirection string

const (
	DirectionParent RelationDirection = "parent"
	DirectionChild  RelationDirection = "child"
)

// IsValid reports whether d is parent or child
func (d RelationDirection) IsValid() bool {
	return d == DirectionParent || d == DirectionChild
}

// Relation is an allowed edge between two node types. Edges point from
// the parent node (source) to the child node (target).
type Relation struct {
	Parent NodeType
	Child  NodeType
	Name   RelationName
}

var relations = []Relation{
	{Parent: NodeTypeProblem, Child: NodeTypeProblem, Name: RelationCauses},
	{Parent: NodeTypeProblem, Child: NodeTypeSolution, Name: RelationSolves},
	{Parent: NodeTypeProblem, Child: NodeTypeCriterion, Name: RelationCriterionFor},
	{Parent: NodeTypeProblem, Child: NodeTypeEffect, Name: RelationCauses},
	{Parent: NodeTypeSolution, Child: NodeTypeSolutionComponent, Name: RelationHas},
	{Parent: NodeTypeSolution, Child: NodeTypeEffect, Name: RelationCreates},
	{Parent: NodeTypeSolutionComponent, Child: NodeTypeEffect, Name: RelationCreates},
	{Parent: NodeTypeCriterion, Child: NodeTypeSolution, Name: RelationEmbodies},
	{Parent: NodeTypeEffect, Child: NodeTypeProblem, Name: RelationCreates},

	{Parent: NodeTypeRootClaim, Child: NodeTypeSupport, Name: RelationSupports},
	{Parent: NodeTypeRootClaim, Child: NodeTypeCritique, Name: RelationCritiques},
	{Parent: NodeTypeSupport, Child: NodeTypeSupport, Name: RelationSupports},
	{Parent: NodeTypeSupport, Child: NodeTypeCritique, Name: RelationCritiques},
	{Parent: NodeTypeCritique, Child: NodeTypeSupport, Name: RelationSupports},
	{Parent: NodeTypeCritique, Child: NodeTypeCritique, Name: RelationCritiques},
}

// Relations returns every allowed relation
func Relations() []Relation { return slices.Clone(relations) }

// FindRelation returns the relation allowed between parent and child node
// types, if any.
func FindRelation(parent, child NodeType) (Relation, bool) {
	for _, r := range relations {
		if r.Parent == parent && r.Child == child {
			return r, true
		}
	}
	return Relation{}, false
}

// ValidateRelation checks that name is the allowed label between parent
// and child. An empty name accepts whatever relation the table defines.
func ValidateRelation(parent, child NodeType, name RelationName) (Relation, error) {
	r, ok := FindRelation(parent, child)
	if !ok {
		return Relation{}, pkgerrors.NewValidationError(
			fmt.Sprintf("%s cannot be connected to %s", child, parent))
	}
	if name != "" && name != r.Name {
		return Relation{}, pkgerrors.NewValidationError(
			fmt.Sprintf("relation between %s and %s must be %q", parent, child, r.Name))
	}
	return r, nil
}
