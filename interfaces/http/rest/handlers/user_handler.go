package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/application/queries"
	querybus "ameliorate/application/queries/bus"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// UserHandler handles user profile requests
type UserHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errors,
		logger:     logger,
	}
}

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Username string `json:"username"`
}

// CreateUser handles POST /users. The profile is created for the token's
// subject.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req CreateUserRequest
	if err := common.ParseJSONBody(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := &commands.CreateUserCommand{UserID: userID, Username: req.Username, AuthID: userID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("User created", zap.String("user_id", userID), zap.String("username", req.Username))
	common.RespondJSON(w, http.StatusCreated, map[string]string{
		"id":       userID,
		"username": req.Username,
	})
}

// GetUser handles GET /users/{username}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	view, err := querybus.Ask[queries.UserView](r.Context(), h.queryBus,
		&queries.FindUserByUsernameQuery{Username: chi.URLParam(r, "username")})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, view)
}

// ListUserTopics handles GET /users/{username}/topics?page=&page_size=
func (h *UserHandler) ListUserTopics(w http.ResponseWriter, r *http.Request) {
	params := common.ExtractPaginationParams(r)
	query := &queries.ListUserTopicsQuery{
		Username: chi.URLParam(r, "username"),
		Page:     params.Page,
		PageSize: params.PageSize,
	}
	page, err := querybus.Ask[*common.PaginatedResult[queries.TopicView]](r.Context(), h.queryBus, query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, page)
}
