// Package repotest holds behaviour tests every repository implementation
// must pass.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ameliorate/application/ports"
	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
)

// Stores is a fresh, empty pair of repositories
type Stores struct {
	Topics ports.TopicRepository
	Users  ports.UserRepository
}

// RunContract runs the repository behaviour tests. newStores is called once
// per subtest and must return empty stores.
func RunContract(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStores(t)) })
	t.Run("topic lifecycle", func(t *testing.T) { testTopicLifecycle(t, newStores(t)) })
	t.Run("parts and scores", func(t *testing.T) { testParts(t, newStores(t)) })
	t.Run("list by creator", func(t *testing.T) { testList(t, newStores(t)) })
	t.Run("delete cascades", func(t *testing.T) { testDelete(t, newStores(t)) })
}

func newUser(t *testing.T, id, name string) *entities.User {
	t.Helper()
	username, err := valueobjects.NewUsername(name)
	require.NoError(t, err)
	user, err := entities.NewUser(id, username, "")
	require.NoError(t, err)
	return user
}

func newTopic(t *testing.T, creatorID, title string) *aggregates.Topic {
	t.Helper()
	tt, err := valueobjects.NewTitle(title)
	require.NoError(t, err)
	topic, err := aggregates.NewTopic(valueobjects.NewTopicID(), creatorID, tt)
	require.NoError(t, err)
	return topic
}

func testUsers(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-1", "alice")))

	err := s.Users.Create(ctx, newUser(t, "sub-2", "alice"))
	assert.True(t, pkgerrors.IsConflict(err), "duplicate username: %v", err)
	err = s.Users.Create(ctx, newUser(t, "sub-1", "bob"))
	assert.True(t, pkgerrors.IsConflict(err), "duplicate id: %v", err)

	byName, err := s.Users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", byName.ID())
	assert.Equal(t, "sub-1", byName.AuthID())

	byID, err := s.Users.GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username().String())

	_, err = s.Users.GetByUsername(ctx, "carol")
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = s.Users.GetByID(ctx, "sub-9")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testTopicLifecycle(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-1", "alice")))
	topic := newTopic(t, "sub-1", "traffic")
	require.NoError(t, s.Topics.Create(ctx, topic))

	err := s.Topics.Create(ctx, newTopic(t, "sub-1", "traffic"))
	assert.True(t, pkgerrors.IsConflict(err), "duplicate title: %v", err)

	loaded, err := s.Topics.GetByID(ctx, topic.ID())
	require.NoError(t, err)
	assert.Equal(t, "traffic", loaded.Title().String())
	assert.Equal(t, "sub-1", loaded.CreatorID())
	assert.Empty(t, loaded.Nodes())
	assert.WithinDuration(t, topic.CreatedAt(), loaded.CreatedAt(), time.Second)

	require.NoError(t, loaded.Rename("sub-1", mustTitle(t, "city traffic")))
	require.NoError(t, s.Topics.UpdateTitle(ctx, loaded))

	found, err := s.Topics.FindByCreatorAndTitle(ctx, "sub-1", "city traffic")
	require.NoError(t, err)
	assert.True(t, found.ID().Equals(topic.ID()))

	_, err = s.Topics.FindByCreatorAndTitle(ctx, "sub-1", "traffic")
	assert.True(t, pkgerrors.IsNotFound(err), "old title is free")

	other := newTopic(t, "sub-1", "bikes")
	require.NoError(t, s.Topics.Create(ctx, other))
	require.NoError(t, other.Rename("sub-1", mustTitle(t, "city traffic")))
	err = s.Topics.UpdateTitle(ctx, other)
	assert.True(t, pkgerrors.IsConflict(err), "rename onto an existing title: %v", err)

	_, err = s.Topics.GetByID(ctx, valueobjects.NewTopicID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testParts(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-1", "alice")))
	topic := newTopic(t, "sub-1", "traffic")
	require.NoError(t, s.Topics.Create(ctx, topic))

	problem, err := topic.AddNode("sub-1", valueobjects.NewNodeID(), valueobjects.NodeTypeProblem, "jams")
	require.NoError(t, err)
	solution, edge, err := topic.AddConnectedNode("sub-1", aggregates.ConnectedNodeSpec{
		NodeID:     valueobjects.NewNodeID(),
		EdgeID:     valueobjects.NewEdgeID(),
		FromNodeID: problem.ID(),
		As:         valueobjects.DirectionChild,
		ToNodeType: valueobjects.NodeTypeSolution,
		Text:       "bikes",
	})
	require.NoError(t, err)
	root, _, err := topic.CreateRootClaim("sub-1", valueobjects.NewNodeID(), edge.ID().String())
	require.NoError(t, err)

	require.NoError(t, s.Topics.SaveParts(ctx, topic.ID(), []*entities.Node{problem, solution}, []*entities.Edge{edge}))
	require.NoError(t, s.Topics.SaveParts(ctx, topic.ID(), []*entities.Node{root}, nil))

	for _, v := range []int{4, 9} {
		score, err := topic.SetScore("sub-2", solution.ID().String(), mustScore(t, v))
		require.NoError(t, err)
		require.NoError(t, s.Topics.SaveScore(ctx, score))
	}
	score, err := topic.SetScore("sub-2", problem.ID().String(), mustScore(t, 3))
	require.NoError(t, err)
	require.NoError(t, s.Topics.SaveScore(ctx, score))

	loaded, err := s.Topics.GetByID(ctx, topic.ID())
	require.NoError(t, err)
	require.Len(t, loaded.Nodes(), 3)
	require.Len(t, loaded.Edges(), 1)
	assert.True(t, loaded.Edges()[0].SourceID().Equals(problem.ID()))
	assert.Equal(t, valueobjects.RelationSolves, loaded.Edges()[0].Label())
	loadedRoot, ok := loaded.ClaimTreeRoot(edge.ID().String())
	require.True(t, ok)
	assert.True(t, loadedRoot.ID().Equals(root.ID()))
	assert.Equal(t, map[string]int{solution.ID().String(): 9, problem.ID().String(): 3}, scoresByPart(loaded))

	removal, err := loaded.RemoveNode("sub-1", solution.ID())
	require.NoError(t, err)
	require.NoError(t, s.Topics.RemoveParts(ctx, topic.ID(), removal))

	after, err := s.Topics.GetByID(ctx, topic.ID())
	require.NoError(t, err)
	require.Len(t, after.Nodes(), 1, "solution, its edge and the claim tree on the edge are gone")
	assert.True(t, after.Nodes()[0].ID().Equals(problem.ID()))
	assert.Empty(t, after.Edges())
	assert.Equal(t, map[string]int{problem.ID().String(): 3}, scoresByPart(after))
}

func testList(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-1", "alice")))
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-2", "bob")))
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Topics.Create(ctx, newTopic(t, "sub-1", fmt.Sprintf("topic %d", i))))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, s.Topics.Create(ctx, newTopic(t, "sub-2", "topic 0")))

	page, total, err := s.Topics.ListByCreator(ctx, "sub-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "topic 4", page[0].Title().String(), "newest first")

	last, _, err := s.Topics.ListByCreator(ctx, "sub-1", 2, 4)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "topic 0", last[0].Title().String())

	none, total, err := s.Topics.ListByCreator(ctx, "sub-3", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, s Stores) {
	ctx := context.Background()
	require.NoError(t, s.Users.Create(ctx, newUser(t, "sub-1", "alice")))
	topic := newTopic(t, "sub-1", "traffic")
	require.NoError(t, s.Topics.Create(ctx, topic))
	problem, err := topic.AddNode("sub-1", valueobjects.NewNodeID(), valueobjects.NodeTypeProblem, "jams")
	require.NoError(t, err)
	require.NoError(t, s.Topics.SaveParts(ctx, topic.ID(), []*entities.Node{problem}, nil))
	score, err := topic.SetScore("sub-1", problem.ID().String(), mustScore(t, 5))
	require.NoError(t, err)
	require.NoError(t, s.Topics.SaveScore(ctx, score))

	require.NoError(t, s.Topics.Delete(ctx, topic.ID()))

	_, err = s.Topics.GetByID(ctx, topic.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	require.NoError(t, s.Topics.Create(ctx, newTopic(t, "sub-1", "traffic")), "title is free again")

	err = s.Topics.Delete(ctx, valueobjects.NewTopicID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func scoresByPart(topic *aggregates.Topic) map[string]int {
	out := map[string]int{}
	for _, s := range topic.Scores() {
		out[s.GraphPartID] = s.Value.Int()
	}
	return out
}

func mustTitle(t *testing.T, s string) valueobjects.Title {
	t.Helper()
	title, err := valueobjects.NewTitle(s)
	require.NoError(t, err)
	return title
}

func mustScore(t *testing.T, v int) valueobjects.ScoreValue {
	t.Helper()
	score, err := valueobjects.NewScoreValue(v)
	require.NoError(t, err)
	return score
}
