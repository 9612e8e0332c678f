package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/events"
	pkgerrors "ameliorate/pkg/errors"
)

const owner = "user-owner"

func newTestTopic(t *testing.T) *Topic {
	t.Helper()
	title, err := valueobjects.NewTitle("cars")
	require.NoError(t, err)
	topic, err := NewTopic(valueobjects.NewTopicID(), owner, title)
	require.NoError(t, err)
	return topic
}

func addProblem(t *testing.T, topic *Topic, text string) valueobjects.NodeID {
	t.Helper()
	node, err := topic.AddNode(owner, valueobjects.NewNodeID(), valueobjects.NodeTypeProblem, text)
	require.NoError(t, err)
	return node.ID()
}

func addChild(t *testing.T, topic *Topic, from valueobjects.NodeID, nodeType valueobjects.NodeType) (valueobjects.NodeID, valueobjects.EdgeID) {
	t.Helper()
	node, edge, err := topic.AddConnectedNode(owner, ConnectedNodeSpec{
		NodeID:     valueobjects.NewNodeID(),
		EdgeID:     valueobjects.NewEdgeID(),
		FromNodeID: from,
		As:         valueobjects.DirectionChild,
		ToNodeType: nodeType,
	})
	require.NoError(t, err)
	return node.ID(), edge.ID()
}

func eventTypes(topic *Topic) []string {
	var types []string
	for _, e := range topic.GetUncommittedEvents() {
		types = append(types, e.GetEventType())
	}
	return types
}

func TestNewTopic(t *testing.T) {
	topic := newTestTopic(t)

	assert.Equal(t, owner, topic.CreatorID())
	assert.Equal(t, "cars", topic.Title().String())
	assert.Equal(t, []string{events.TypeTopicCreated}, eventTypes(topic))

	topic.MarkEventsAsCommitted()
	assert.Empty(t, topic.GetUncommittedEvents())
}

func TestTopic_OwnershipGating(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	other := "user-other"
	newTitle, _ := valueobjects.NewTitle("bikes")

	assert.False(t, topic.CanBeModifiedBy(other))
	assert.False(t, topic.CanBeModifiedBy(""))

	tests := []struct {
		name string
		op   func() error
	}{
		{"rename", func() error { return topic.Rename(other, newTitle) }},
		{"delete", func() error { return topic.MarkDeleted(other) }},
		{"add node", func() error {
			_, err := topic.AddNode(other, valueobjects.NewNodeID(), valueobjects.NodeTypeProblem, "")
			return err
		}},
		{"remove node", func() error {
			_, err := topic.RemoveNode(other, problem)
			return err
		}},
		{"start claim tree", func() error {
			_, _, err := topic.CreateRootClaim(other, valueobjects.NewNodeID(), problem.String())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, pkgerrors.IsForbidden(tt.op()))
		})
	}
	assert.Equal(t, "cars", topic.Title().String())
}

func TestTopic_Rename(t *testing.T) {
	topic := newTestTopic(t)
	topic.MarkEventsAsCommitted()

	same, _ := valueobjects.NewTitle("cars")
	require.NoError(t, topic.Rename(owner, same))
	assert.Empty(t, topic.GetUncommittedEvents())

	renamed, _ := valueobjects.NewTitle("bikes")
	require.NoError(t, topic.Rename(owner, renamed))
	assert.Equal(t, "bikes", topic.Title().String())
	assert.Equal(t, []string{events.TypeTopicRenamed}, eventTypes(topic))
}

func TestTopic_AddConnectedNode(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")

	t.Run("child gets edge from parent", func(t *testing.T) {
		solution, edgeID := addChild(t, topic, problem, valueobjects.NodeTypeSolution)
		edge, ok := topic.Edge(edgeID)
		require.True(t, ok)
		assert.Equal(t, problem, edge.SourceID())
		assert.Equal(t, solution, edge.TargetID())
		assert.Equal(t, valueobjects.RelationSolves, edge.Label())
	})

	t.Run("parent direction reverses the edge", func(t *testing.T) {
		node, edge, err := topic.AddConnectedNode(owner, ConnectedNodeSpec{
			NodeID:     valueobjects.NewNodeID(),
			EdgeID:     valueobjects.NewEdgeID(),
			FromNodeID: problem,
			As:         valueobjects.DirectionParent,
			ToNodeType: valueobjects.NodeTypeProblem,
			Relation:   valueobjects.RelationCauses,
		})
		require.NoError(t, err)
		assert.Equal(t, node.ID(), edge.SourceID())
		assert.Equal(t, problem, edge.TargetID())
	})

	t.Run("disallowed relation", func(t *testing.T) {
		_, _, err := topic.AddConnectedNode(owner, ConnectedNodeSpec{
			NodeID:     valueobjects.NewNodeID(),
			EdgeID:     valueobjects.NewEdgeID(),
			FromNodeID: problem,
			As:         valueobjects.DirectionChild,
			ToNodeType: valueobjects.NodeTypeSupport,
		})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("unknown from node", func(t *testing.T) {
		_, _, err := topic.AddConnectedNode(owner, ConnectedNodeSpec{
			NodeID:     valueobjects.NewNodeID(),
			EdgeID:     valueobjects.NewEdgeID(),
			FromNodeID: valueobjects.NewNodeID(),
			As:         valueobjects.DirectionChild,
			ToNodeType: valueobjects.NodeTypeSolution,
		})
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestTopic_ClaimTree(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")

	root, created, err := topic.CreateRootClaim(owner, valueobjects.NewNodeID(), problem.String())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, valueobjects.NodeTypeRootClaim, root.Type())
	assert.Equal(t, "traffic", root.Text())
	assert.Equal(t, problem.String(), root.ArguedDiagramPartID())

	again, created, err := topic.CreateRootClaim(owner, valueobjects.NewNodeID(), problem.String())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, root.ID(), again.ID())

	support, _ := addChild(t, topic, root.ID(), valueobjects.NodeTypeSupport)
	node, ok := topic.Node(support)
	require.True(t, ok)
	assert.Equal(t, problem.String(), node.ArguedDiagramPartID(), "claims inherit the argued part")

	_, _, err = topic.CreateRootClaim(owner, valueobjects.NewNodeID(), support.String())
	assert.True(t, pkgerrors.IsValidation(err), "claims are not arguable")

	_, _, err = topic.CreateRootClaim(owner, valueobjects.NewNodeID(), valueobjects.NewNodeID().String())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTopic_EdgeRootClaimLabel(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	solution, edgeID := addChild(t, topic, problem, valueobjects.NodeTypeSolution)
	_ = solution

	root, _, err := topic.CreateRootClaim(owner, valueobjects.NewNodeID(), edgeID.String())
	require.NoError(t, err)
	assert.Equal(t, " solves traffic", root.Text())
}

func TestTopic_RemoveNodeCascades(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	solution, solvesEdge := addChild(t, topic, problem, valueobjects.NodeTypeSolution)
	component, hasEdge := addChild(t, topic, solution, valueobjects.NodeTypeSolutionComponent)

	root, _, err := topic.CreateRootClaim(owner, valueobjects.NewNodeID(), solvesEdge.String())
	require.NoError(t, err)
	critique, critiqueEdge := addChild(t, topic, root.ID(), valueobjects.NodeTypeCritique)

	_, err = topic.SetScore("someone", solution.String(), 7)
	require.NoError(t, err)
	_, err = topic.SetScore("someone", component.String(), 3)
	require.NoError(t, err)

	removal, err := topic.RemoveNode(owner, solution)
	require.NoError(t, err)

	assert.ElementsMatch(t, []valueobjects.NodeID{solution, root.ID(), critique}, removal.NodeIDs)
	assert.ElementsMatch(t, []valueobjects.EdgeID{solvesEdge, hasEdge, critiqueEdge}, removal.EdgeIDs)

	_, ok := topic.Node(component)
	assert.True(t, ok, "disconnected nodes stay")
	assert.Len(t, topic.Nodes(), 2)
	assert.Empty(t, topic.Edges())
	require.Len(t, topic.Scores(), 1)
	assert.Equal(t, component.String(), topic.Scores()[0].GraphPartID)
}

func TestTopic_RemoveRootClaimRemovesTree(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	root, _, err := topic.CreateRootClaim(owner, valueobjects.NewNodeID(), problem.String())
	require.NoError(t, err)
	addChild(t, topic, root.ID(), valueobjects.NodeTypeSupport)

	removal, err := topic.RemoveNode(owner, root.ID())
	require.NoError(t, err)

	assert.Len(t, removal.NodeIDs, 2)
	assert.Len(t, removal.EdgeIDs, 1)
	assert.Len(t, topic.Nodes(), 1)
}

func TestTopic_RemoveEdge(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	_, edgeID := addChild(t, topic, problem, valueobjects.NodeTypeCriterion)

	removal, err := topic.RemoveEdge(owner, edgeID)
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.EdgeID{edgeID}, removal.EdgeIDs)
	assert.Empty(t, removal.NodeIDs)
	assert.Len(t, topic.Nodes(), 2)

	_, err = topic.RemoveEdge(owner, edgeID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTopic_ConnectNodes(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")
	cause := addProblem(t, topic, "cheap fuel")

	edge, err := topic.ConnectNodes(owner, valueobjects.NewEdgeID(), problem, cause, "")
	require.NoError(t, err)
	assert.Equal(t, valueobjects.RelationCauses, edge.Label())

	_, err = topic.ConnectNodes(owner, valueobjects.NewEdgeID(), problem, cause, "")
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestTopic_SetScore(t *testing.T) {
	topic := newTestTopic(t)
	problem := addProblem(t, topic, "traffic")

	_, err := topic.SetScore("reader", problem.String(), 4)
	require.NoError(t, err)
	_, err = topic.SetScore("reader", problem.String(), 9)
	require.NoError(t, err)

	require.Len(t, topic.Scores(), 1)
	assert.Equal(t, valueobjects.ScoreValue(9), topic.Scores()[0].Value)

	_, err = topic.SetScore("reader", "missing", 4)
	assert.True(t, pkgerrors.IsNotFound(err))
}
