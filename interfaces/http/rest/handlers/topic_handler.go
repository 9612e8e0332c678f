package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/application/queries"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// TopicHandler handles topic-related HTTP requests
type TopicHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *TopicHandler {
	return &TopicHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errors,
		logger:     logger,
	}
}

// TopicRequest is the body of POST /topics and PUT /topics/{topicID}
type TopicRequest struct {
	Title string `json:"title"`
}

// CreateTopic handles POST /topics
func (h *TopicHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req TopicRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.CreateTopicCommand{
		TopicID: uuid.NewString(),
		UserID:  userID,
		Title:   req.Title,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Topic created",
		zap.String("topic_id", cmd.TopicID),
		zap.String("user_id", userID),
	)
	common.RespondJSON(w, http.StatusCreated, map[string]string{
		"id":    cmd.TopicID,
		"title": cmd.Title,
	})
}

// UpdateTopic handles PUT /topics/{topicID}
func (h *TopicHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	topicID, err := pathParam(r, "topicID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req TopicRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.UpdateTopicCommand{TopicID: topicID, UserID: userID, Title: req.Title}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"id":    topicID,
		"title": cmd.Title,
	})
}

// DeleteTopic handles DELETE /topics/{topicID}
func (h *TopicHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	topicID, err := pathParam(r, "topicID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.commandBus.Send(r.Context(), &commands.DeleteTopicCommand{TopicID: topicID, UserID: userID}); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Topic deleted",
		zap.String("topic_id", topicID),
		zap.String("user_id", userID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// GetTopic handles GET /topics/{username}/{title}
func (h *TopicHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	username, title := chiTopicPath(r)
	view, err := querybus.Ask[queries.TopicView](r.Context(), h.queryBus,
		&queries.FindTopicByUsernameAndTitleQuery{Username: username, Title: title})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// GetTopicData handles GET /topics/{username}/{title}/data
func (h *TopicHandler) GetTopicData(w http.ResponseWriter, r *http.Request) {
	username, title := chiTopicPath(r)
	data, err := querybus.Ask[*queries.TopicData](r.Context(), h.queryBus,
		&queries.GetTopicDataQuery{Username: username, Title: title})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, data)
}

// GetDiagram handles GET /topics/{username}/{title}/diagram. The claimTree
// parameter switches to the claim tree arguing about that part; selected
// marks one part as selected.
func (h *TopicHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	username, title := chiTopicPath(r)
	query := &queries.GetDiagramQuery{
		Username:    username,
		Title:       title,
		ClaimTreeID: r.URL.Query().Get("claimTree"),
		SelectedID:  r.URL.Query().Get("selected"),
	}
	result, err := querybus.Ask[*queries.DiagramResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ListClaimTrees handles GET /topics/{username}/{title}/claim-trees
func (h *TopicHandler) ListClaimTrees(w http.ResponseWriter, r *http.Request) {
	username, title := chiTopicPath(r)
	result, err := querybus.Ask[*queries.ClaimTreesResult](r.Context(), h.queryBus,
		&queries.ListClaimTreesQuery{Username: username, Title: title})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
