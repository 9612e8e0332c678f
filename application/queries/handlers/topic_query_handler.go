package handlers

import (
	"context"

	"go.uber.org/zap"

	"ameliorate/application/ports"
	"ameliorate/application/queries"
	"ameliorate/application/queries/bus"
	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/diagram"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

// TopicQueryHandler answers read queries about topics and users
type TopicQueryHandler struct {
	topics ports.TopicRepository
	users  ports.UserRepository
	logger *zap.Logger
}

// NewTopicQueryHandler creates a new handler instance
func NewTopicQueryHandler(topics ports.TopicRepository, users ports.UserRepository, logger *zap.Logger) *TopicQueryHandler {
	return &TopicQueryHandler{topics: topics, users: users, logger: logger}
}

// Register adds every query to b
func (h *TopicQueryHandler) Register(b *bus.QueryBus) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{&queries.FindTopicByUsernameAndTitleQuery{}, bus.HandlerFor(h.HandleFindTopic)},
		{&queries.GetTopicDataQuery{}, bus.HandlerFor(h.HandleGetTopicData)},
		{&queries.GetDiagramQuery{}, bus.HandlerFor(h.HandleGetDiagram)},
		{&queries.ListClaimTreesQuery{}, bus.HandlerFor(h.HandleListClaimTrees)},
		{&queries.ListUserTopicsQuery{}, bus.HandlerFor(h.HandleListUserTopics)},
		{&queries.FindUserByUsernameQuery{}, bus.HandlerFor(h.HandleFindUser)},
		{&queries.DerivePlaygroundDiagramQuery{}, bus.HandlerFor(h.HandlePlaygroundDiagram)},
	}
	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleFindTopic returns a topic without its parts
func (h *TopicQueryHandler) HandleFindTopic(ctx context.Context, q *queries.FindTopicByUsernameAndTitleQuery) (queries.TopicView, error) {
	topic, err := h.resolve(ctx, q.Username, q.Title)
	if err != nil {
		return queries.TopicView{}, err
	}
	return queries.NewTopicView(topic, q.Username), nil
}

// HandleGetTopicData returns a topic with its nodes, edges and scores
func (h *TopicQueryHandler) HandleGetTopicData(ctx context.Context, q *queries.GetTopicDataQuery) (*queries.TopicData, error) {
	topic, err := h.resolve(ctx, q.Username, q.Title)
	if err != nil {
		return nil, err
	}
	return queries.NewTopicData(topic, q.Username), nil
}

// HandleGetDiagram derives the requested diagram of a stored topic
func (h *TopicQueryHandler) HandleGetDiagram(ctx context.Context, q *queries.GetDiagramQuery) (*queries.DiagramResult, error) {
	topic, err := h.resolve(ctx, q.Username, q.Title)
	if err != nil {
		return nil, err
	}
	if q.ClaimTreeID != "" && !topic.HasPart(q.ClaimTreeID) {
		return nil, pkgerrors.NewNotFoundError("claim tree")
	}

	state := diagram.TopicState{
		ID:                topic.ID().String(),
		Title:             topic.Title().String(),
		Graph:             queries.ToGraph(topic),
		ActiveClaimTreeID: q.ClaimTreeID,
	}
	result := derive(state, q.SelectedID)
	if result.Title == "" {
		result.Title = state.Title
	}
	return result, nil
}

// HandleListClaimTrees lists the arguable parts of a topic
func (h *TopicQueryHandler) HandleListClaimTrees(ctx context.Context, q *queries.ListClaimTreesQuery) (*queries.ClaimTreesResult, error) {
	topic, err := h.resolve(ctx, q.Username, q.Title)
	if err != nil {
		return nil, err
	}
	return &queries.ClaimTreesResult{
		TopicID: topic.ID().String(),
		Parts:   diagram.ArguableParts(queries.ToGraph(topic)),
	}, nil
}

// HandleListUserTopics returns one page of a user's topics
func (h *TopicQueryHandler) HandleListUserTopics(ctx context.Context, q *queries.ListUserTopicsQuery) (*common.PaginatedResult[queries.TopicView], error) {
	user, err := h.users.GetByUsername(ctx, q.Username)
	if err != nil {
		return nil, err
	}

	params := common.PaginationParams{Page: q.Page, PageSize: q.PageSize}
	topics, total, err := h.topics.ListByCreator(ctx, user.ID(), params.PageSize, params.Offset())
	if err != nil {
		return nil, err
	}

	views := make([]queries.TopicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, queries.NewTopicView(t, q.Username))
	}
	return common.NewPaginatedResult(views, params.Page, params.PageSize, total), nil
}

// HandleFindUser returns a public user profile
func (h *TopicQueryHandler) HandleFindUser(ctx context.Context, q *queries.FindUserByUsernameQuery) (queries.UserView, error) {
	user, err := h.users.GetByUsername(ctx, q.Username)
	if err != nil {
		return queries.UserView{}, err
	}
	return queries.NewUserView(user), nil
}

// HandlePlaygroundDiagram derives a diagram from a client-held graph
func (h *TopicQueryHandler) HandlePlaygroundDiagram(_ context.Context, q *queries.DerivePlaygroundDiagramQuery) (*queries.DiagramResult, error) {
	return derive(q.State, q.SelectedID), nil
}

func (h *TopicQueryHandler) resolve(ctx context.Context, username, title string) (*aggregates.Topic, error) {
	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	topic, err := h.topics.FindByCreatorAndTitle(ctx, user.ID(), title)
	if err != nil {
		h.logger.Debug("Topic lookup failed",
			zap.String("username", username),
			zap.String("title", title),
			zap.Error(err),
		)
		return nil, err
	}
	return topic, nil
}

func derive(state diagram.TopicState, selectedID string) *queries.DiagramResult {
	d := diagram.GetActiveDiagram(state)
	diagram.SetSelected(selectedID, d)
	return &queries.DiagramResult{
		TopicID:     state.ID,
		Title:       diagram.GetDiagramTitle(d),
		ClaimTreeID: state.ActiveClaimTreeID,
		Diagram:     d,
	}
}
