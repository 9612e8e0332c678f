package queries

import (
	"fmt"

	"ameliorate/domain/config"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/diagram"
	pkgerrors "ameliorate/pkg/errors"
	"ameliorate/pkg/utils"

	// registers the domain validation tags
	_ "ameliorate/domain/core/valueobjects"
)

// FindTopicByUsernameAndTitleQuery finds a topic by its URL path
type FindTopicByUsernameAndTitleQuery struct {
	Username string `json:"username" validate:"required,username"`
	Title    string `json:"title" validate:"required,topic_title"`
}

// Validate validates the query
func (q *FindTopicByUsernameAndTitleQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetTopicDataQuery loads a topic with every node, edge and score
type GetTopicDataQuery struct {
	Username string `json:"username" validate:"required,username"`
	Title    string `json:"title" validate:"required,topic_title"`
}

// Validate validates the query
func (q *GetTopicDataQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetDiagramQuery derives the diagram being viewed: the claim tree of
// ClaimTreeID when set, otherwise the topic diagram. SelectedID, when set,
// is marked selected.
type GetDiagramQuery struct {
	Username    string `json:"username" validate:"required,username"`
	Title       string `json:"title" validate:"required,topic_title"`
	ClaimTreeID string `json:"claim_tree_id" validate:"omitempty,uuid"`
	SelectedID  string `json:"selected_id" validate:"omitempty,uuid"`
}

// Validate validates the query
func (q *GetDiagramQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListClaimTreesQuery lists the parts of a topic that can be argued
type ListClaimTreesQuery struct {
	Username string `json:"username" validate:"required,username"`
	Title    string `json:"title" validate:"required,topic_title"`
}

// Validate validates the query
func (q *ListClaimTreesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListUserTopicsQuery pages through the topics a user created
type ListUserTopicsQuery struct {
	Username string `json:"username" validate:"required,username"`
	Page     int    `json:"page" validate:"min=1"`
	PageSize int    `json:"page_size" validate:"min=1,max=100"`
}

// Validate validates the query
func (q *ListUserTopicsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// DerivePlaygroundDiagramQuery derives a diagram from a graph held only by
// the client. Nothing is loaded or stored.
type DerivePlaygroundDiagramQuery struct {
	State      diagram.TopicState `json:"state"`
	SelectedID string             `json:"selected_id"`
}

// Validate checks that the state is a playground topic made of known node
// types and relations, within the per-topic limits. Part ids must be unique
// across nodes and edges, and only claim parts may reference an argued part.
func (q *DerivePlaygroundDiagramQuery) Validate() error {
	if !diagram.IsPlaygroundTopic(q.State) {
		return pkgerrors.NewValidationError("playground topics cannot have an id")
	}

	cfg := config.DefaultDomainConfig()
	if len(q.State.Graph.Nodes) > cfg.MaxNodesPerTopic {
		return pkgerrors.NewValidationError(fmt.Sprintf("topic cannot have more than %d nodes", cfg.MaxNodesPerTopic))
	}
	if len(q.State.Graph.Edges) > cfg.MaxEdgesPerTopic {
		return pkgerrors.NewValidationError(fmt.Sprintf("topic cannot have more than %d edges", cfg.MaxEdgesPerTopic))
	}
	seen := make(map[string]bool, len(q.State.Graph.Nodes)+len(q.State.Graph.Edges))
	for i, n := range q.State.Graph.Nodes {
		if n == nil || n.ID == "" || !n.Type.IsValid() {
			return pkgerrors.NewValidationError(fmt.Sprintf("node %d is not a valid node", i))
		}
		if seen[n.ID] {
			return pkgerrors.NewValidationError(fmt.Sprintf("duplicate graph part id %q", n.ID))
		}
		seen[n.ID] = true
		if err := entities.ValidateArguedPart(n.Type.IsClaimType(), n.ArguedDiagramPartID); err != nil {
			return pkgerrors.NewValidationError(fmt.Sprintf("node %d: %s", i, pkgerrors.GetAppError(err).Message))
		}
	}
	for i, e := range q.State.Graph.Edges {
		if e == nil || e.ID == "" || !e.Label.IsValid() {
			return pkgerrors.NewValidationError(fmt.Sprintf("edge %d is not a valid edge", i))
		}
		if seen[e.ID] {
			return pkgerrors.NewValidationError(fmt.Sprintf("duplicate graph part id %q", e.ID))
		}
		seen[e.ID] = true
		if err := entities.ValidateArguedPart(e.Label.IsClaimRelation(), e.ArguedDiagramPartID); err != nil {
			return pkgerrors.NewValidationError(fmt.Sprintf("edge %d: %s", i, pkgerrors.GetAppError(err).Message))
		}
	}
	return nil
}
