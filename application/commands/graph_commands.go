package commands

import (
	"ameliorate/pkg/utils"
)

// AddNodeCommand adds a node to a topic. With FromNodeID set, the node is
// connected to that node as its parent or child (As) and joins the same
// diagram; otherwise it is a standalone topic node.
type AddNodeCommand struct {
	TopicID    string `json:"topic_id" validate:"required,uuid"`
	UserID     string `json:"user_id" validate:"required"`
	NodeID     string `json:"node_id" validate:"required,uuid"`
	EdgeID     string `json:"edge_id" validate:"required_with=FromNodeID,omitempty,uuid"`
	FromNodeID string `json:"from_node_id" validate:"omitempty,uuid"`
	As         string `json:"as" validate:"required_with=FromNodeID,omitempty,relation_direction"`
	ToNodeType string `json:"to_node_type" validate:"required,node_type"`
	Relation   string `json:"relation" validate:"omitempty,relation_name"`
	Text       string `json:"text" validate:"max=200"`
}

// Validate validates the command
func (c *AddNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// CreateRootClaimCommand starts the claim tree arguing about a topic node
// or edge. NodeID is used for the root claim if the tree does not exist.
type CreateRootClaimCommand struct {
	TopicID      string `json:"topic_id" validate:"required,uuid"`
	UserID       string `json:"user_id" validate:"required"`
	ArguedPartID string `json:"argued_part_id" validate:"required,uuid"`
	NodeID       string `json:"node_id" validate:"required,uuid"`
}

// Validate validates the command
func (c *CreateRootClaimCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ConnectNodesCommand adds an edge from ParentID to ChildID. An empty
// Relation takes the one defined between the two node types.
type ConnectNodesCommand struct {
	TopicID  string `json:"topic_id" validate:"required,uuid"`
	UserID   string `json:"user_id" validate:"required"`
	EdgeID   string `json:"edge_id" validate:"required,uuid"`
	ParentID string `json:"parent_id" validate:"required,uuid"`
	ChildID  string `json:"child_id" validate:"required,uuid,nefield=ParentID"`
	Relation string `json:"relation" validate:"omitempty,relation_name"`
}

// Validate validates the command
func (c *ConnectNodesCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteNodeCommand removes a node with its edges and dependent claim trees
type DeleteNodeCommand struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
	NodeID  string `json:"node_id" validate:"required,uuid"`
}

// Validate validates the command
func (c *DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteEdgeCommand removes an edge and the claim tree arguing about it
type DeleteEdgeCommand struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
	EdgeID  string `json:"edge_id" validate:"required,uuid"`
}

// Validate validates the command
func (c *DeleteEdgeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetUserScoreCommand records the caller's score for a node or edge
type SetUserScoreCommand struct {
	TopicID     string `json:"topic_id" validate:"required,uuid"`
	UserID      string `json:"user_id" validate:"required"`
	GraphPartID string `json:"graph_part_id" validate:"required,uuid"`
	Value       int    `json:"value" validate:"min=1,max=10"`
}

// Validate validates the command
func (c *SetUserScoreCommand) Validate() error {
	return utils.ValidateStruct(c)
}
