package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// GraphPartHandler handles node, edge, claim tree and score requests
type GraphPartHandler struct {
	commandBus *bus.CommandBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewGraphPartHandler creates a new graph part handler
func NewGraphPartHandler(commandBus *bus.CommandBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *GraphPartHandler {
	return &GraphPartHandler{
		commandBus: commandBus,
		errors:     errors,
		logger:     logger,
	}
}

// AddNodeRequest is the body of POST /topics/{topicID}/nodes. Without
// fromNodeId the node is added on its own.
type AddNodeRequest struct {
	FromNodeID string `json:"fromNodeId,omitempty"`
	As         string `json:"as,omitempty"`
	ToNodeType string `json:"toNodeType"`
	Relation   string `json:"relation,omitempty"`
	Text       string `json:"text,omitempty"`
}

// AddNode handles POST /topics/{topicID}/nodes
func (h *GraphPartHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req AddNodeRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.AddNodeCommand{
		TopicID:    topicID,
		UserID:     userID,
		NodeID:     uuid.NewString(),
		FromNodeID: req.FromNodeID,
		As:         req.As,
		ToNodeType: req.ToNodeType,
		Relation:   req.Relation,
		Text:       req.Text,
	}
	if req.FromNodeID != "" {
		cmd.EdgeID = uuid.NewString()
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	response := map[string]string{"nodeId": cmd.NodeID}
	if cmd.EdgeID != "" {
		response["edgeId"] = cmd.EdgeID
	}
	common.RespondJSON(w, http.StatusCreated, response)
}

// DeleteNode handles DELETE /topics/{topicID}/nodes/{nodeID}
func (h *GraphPartHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}
	nodeID, err := pathParam(r, "nodeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.commandBus.Send(r.Context(), &commands.DeleteNodeCommand{TopicID: topicID, UserID: userID, NodeID: nodeID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConnectNodesRequest is the body of POST /topics/{topicID}/edges
type ConnectNodesRequest struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
	Relation string `json:"relation,omitempty"`
}

// ConnectNodes handles POST /topics/{topicID}/edges
func (h *GraphPartHandler) ConnectNodes(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req ConnectNodesRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.ConnectNodesCommand{
		TopicID:  topicID,
		UserID:   userID,
		EdgeID:   uuid.NewString(),
		ParentID: req.ParentID,
		ChildID:  req.ChildID,
		Relation: req.Relation,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, map[string]string{"edgeId": cmd.EdgeID})
}

// DeleteEdge handles DELETE /topics/{topicID}/edges/{edgeID}
func (h *GraphPartHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}
	edgeID, err := pathParam(r, "edgeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.commandBus.Send(r.Context(), &commands.DeleteEdgeCommand{TopicID: topicID, UserID: userID, EdgeID: edgeID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClaimTreeRequest is the body of POST /topics/{topicID}/claim-trees
type ClaimTreeRequest struct {
	ArguedPartID string `json:"arguedPartId"`
}

// CreateClaimTree handles POST /topics/{topicID}/claim-trees. Creating a
// claim tree that already exists succeeds without changes. The claim tree
// is identified by the part it argues about.
func (h *GraphPartHandler) CreateClaimTree(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req ClaimTreeRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.CreateRootClaimCommand{
		TopicID:      topicID,
		UserID:       userID,
		ArguedPartID: req.ArguedPartID,
		NodeID:       uuid.NewString(),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"claimTreeId": cmd.ArguedPartID})
}

// ScoreRequest is the body of PUT /topics/{topicID}/scores
type ScoreRequest struct {
	GraphPartID string `json:"graphPartId"`
	Value       int    `json:"value"`
}

// SetScore handles PUT /topics/{topicID}/scores
func (h *GraphPartHandler) SetScore(w http.ResponseWriter, r *http.Request) {
	userID, topicID, ok := h.target(w, r)
	if !ok {
		return
	}

	var req ScoreRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.SetUserScoreCommand{
		TopicID:     topicID,
		UserID:      userID,
		GraphPartID: req.GraphPartID,
		Value:       req.Value,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// target resolves the caller and the topic of the request, writing the
// error response when either is missing.
func (h *GraphPartHandler) target(w http.ResponseWriter, r *http.Request) (userID, topicID string, ok bool) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return "", "", false
	}
	topicID, err = pathParam(r, "topicID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return "", "", false
	}
	return userID, topicID, true
}
