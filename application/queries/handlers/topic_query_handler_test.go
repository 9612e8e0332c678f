package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ameliorate/application/ports/mocks"
	"ameliorate/application/queries"
	"ameliorate/application/queries/bus"
	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/diagram"
	"ameliorate/pkg/common"
	pkgerrors "ameliorate/pkg/errors"
)

const ownerID = "owner-1"

type queryFixture struct {
	topics *mocks.MockTopicRepository
	users  *mocks.MockUserRepository
	bus    *bus.QueryBus
	topic  *aggregates.Topic
	// problem -> solution, with a claim tree on the problem
	problem, solution, root *entities.Node
	edge                    *entities.Edge
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	f := &queryFixture{
		topics: new(mocks.MockTopicRepository),
		users:  new(mocks.MockUserRepository),
		bus:    bus.NewQueryBus(),
	}
	require.NoError(t, NewTopicQueryHandler(f.topics, f.users, zap.NewNop()).Register(f.bus))

	title, _ := valueobjects.NewTitle("traffic")
	topic, err := aggregates.NewTopic(valueobjects.NewTopicID(), ownerID, title)
	require.NoError(t, err)
	f.problem, err = topic.AddNode(ownerID, valueobjects.NewNodeID(), valueobjects.NodeTypeProblem, "traffic jams")
	require.NoError(t, err)
	f.solution, f.edge, err = topic.AddConnectedNode(ownerID, aggregates.ConnectedNodeSpec{
		NodeID:     valueobjects.NewNodeID(),
		EdgeID:     valueobjects.NewEdgeID(),
		FromNodeID: f.problem.ID(),
		As:         valueobjects.DirectionChild,
		ToNodeType: valueobjects.NodeTypeSolution,
		Text:       "bike lanes",
	})
	require.NoError(t, err)
	f.root, _, err = topic.CreateRootClaim(ownerID, valueobjects.NewNodeID(), f.problem.ID().String())
	require.NoError(t, err)
	_, err = topic.SetScore("visitor", f.problem.ID().String(), mustScore(t, 8))
	require.NoError(t, err)
	topic.MarkEventsAsCommitted()
	f.topic = topic

	username, _ := valueobjects.NewUsername("alice")
	user, _ := entities.NewUser(ownerID, username, "")
	f.users.On("GetByUsername", mock.Anything, "alice").Return(user, nil)
	f.users.On("GetByUsername", mock.Anything, "nobody").Return(nil, pkgerrors.NewNotFoundError("user"))
	f.topics.On("FindByCreatorAndTitle", mock.Anything, ownerID, "traffic").Return(topic, nil)
	f.topics.On("FindByCreatorAndTitle", mock.Anything, ownerID, "missing").Return(nil, pkgerrors.NewNotFoundError("topic"))
	return f
}

func mustScore(t *testing.T, v int) valueobjects.ScoreValue {
	t.Helper()
	s, err := valueobjects.NewScoreValue(v)
	require.NoError(t, err)
	return s
}

func TestFindTopic(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	view, err := bus.Ask[queries.TopicView](ctx, f.bus, &queries.FindTopicByUsernameAndTitleQuery{Username: "alice", Title: "traffic"})
	require.NoError(t, err)
	assert.Equal(t, f.topic.ID().String(), view.ID)
	assert.Equal(t, "alice", view.Username)

	_, err = f.bus.Ask(ctx, &queries.FindTopicByUsernameAndTitleQuery{Username: "alice", Title: "missing"})
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.bus.Ask(ctx, &queries.FindTopicByUsernameAndTitleQuery{Username: "nobody", Title: "traffic"})
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = f.bus.Ask(ctx, &queries.FindTopicByUsernameAndTitleQuery{Username: "alice", Title: "a/b"})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGetTopicData(t *testing.T) {
	f := newQueryFixture(t)

	data, err := bus.Ask[*queries.TopicData](context.Background(), f.bus, &queries.GetTopicDataQuery{Username: "alice", Title: "traffic"})
	require.NoError(t, err)

	assert.Len(t, data.Nodes, 3)
	assert.Len(t, data.Edges, 1)
	require.Len(t, data.UserScores, 1)
	assert.Equal(t, 8, data.UserScores[0].Value)
	assert.Equal(t, f.problem.ID().String(), data.Edges[0].SourceID)
}

func TestGetDiagram(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	t.Run("topic diagram with selection", func(t *testing.T) {
		result, err := bus.Ask[*queries.DiagramResult](ctx, f.bus, &queries.GetDiagramQuery{
			Username:   "alice",
			Title:      "traffic",
			SelectedID: f.solution.ID().String(),
		})
		require.NoError(t, err)

		assert.Equal(t, diagram.TypeTopicDiagram, result.Diagram.Type)
		assert.Len(t, result.Diagram.Nodes, 2)
		assert.Equal(t, "traffic jams", result.Title)
		for _, n := range result.Diagram.Nodes {
			assert.Equal(t, n.ID == f.solution.ID().String(), n.Selected)
		}
	})

	t.Run("claim tree", func(t *testing.T) {
		result, err := bus.Ask[*queries.DiagramResult](ctx, f.bus, &queries.GetDiagramQuery{
			Username:    "alice",
			Title:       "traffic",
			ClaimTreeID: f.problem.ID().String(),
		})
		require.NoError(t, err)

		assert.Equal(t, diagram.TypeClaimTree, result.Diagram.Type)
		assert.Equal(t, diagram.OrientationRight, result.Diagram.Orientation)
		require.Len(t, result.Diagram.Nodes, 1)
		assert.Equal(t, f.root.ID().String(), result.Diagram.Nodes[0].ID)
	})

	t.Run("unknown claim tree", func(t *testing.T) {
		_, err := f.bus.Ask(ctx, &queries.GetDiagramQuery{
			Username:    "alice",
			Title:       "traffic",
			ClaimTreeID: valueobjects.NewNodeID().String(),
		})
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestListClaimTrees(t *testing.T) {
	f := newQueryFixture(t)

	result, err := bus.Ask[*queries.ClaimTreesResult](context.Background(), f.bus, &queries.ListClaimTreesQuery{Username: "alice", Title: "traffic"})
	require.NoError(t, err)

	require.Len(t, result.Parts, 3)
	for _, p := range result.Parts {
		assert.Equal(t, p.PartID == f.problem.ID().String(), p.HasClaimTree)
	}
}

func TestListUserTopics(t *testing.T) {
	f := newQueryFixture(t)
	f.topics.On("ListByCreator", mock.Anything, ownerID, 2, 2).Return([]*aggregates.Topic{f.topic}, 3, nil)

	page, err := bus.Ask[*common.PaginatedResult[queries.TopicView]](context.Background(), f.bus, &queries.ListUserTopicsQuery{
		Username: "alice",
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
}

func TestFindUser(t *testing.T) {
	f := newQueryFixture(t)

	user, err := bus.Ask[queries.UserView](context.Background(), f.bus, &queries.FindUserByUsernameQuery{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, ownerID, user.ID)

	_, err = f.bus.Ask(context.Background(), &queries.FindUserByUsernameQuery{Username: "nobody"})
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestPlaygroundDiagram(t *testing.T) {
	f := newQueryFixture(t)
	state := diagram.TopicState{Graph: queries.ToGraph(f.topic)}

	result, err := bus.Ask[*queries.DiagramResult](context.Background(), f.bus, &queries.DerivePlaygroundDiagramQuery{
		State:      state,
		SelectedID: f.problem.ID().String(),
	})
	require.NoError(t, err)
	assert.Empty(t, result.TopicID)
	assert.Equal(t, "traffic jams", result.Title)
	assert.True(t, result.Diagram.Nodes[0].Selected)

	state.ID = f.topic.ID().String()
	_, err = f.bus.Ask(context.Background(), &queries.DerivePlaygroundDiagramQuery{State: state})
	assert.True(t, pkgerrors.IsValidation(err), "stored topics are not playground topics")

	bad := diagram.TopicState{Graph: diagram.Graph{Nodes: []*diagram.Node{{ID: "n1", Type: "idea"}}}}
	_, err = f.bus.Ask(context.Background(), &queries.DerivePlaygroundDiagramQuery{State: bad})
	assert.True(t, pkgerrors.IsValidation(err))
}
