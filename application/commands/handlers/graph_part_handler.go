package handlers

import (
	"context"

	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/application/ports"
	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/pkg/observability"
)

// GraphPartHandler handles commands that change a topic's nodes, edges and
// scores.
type GraphPartHandler struct {
	topics    ports.TopicRepository
	publisher ports.EventPublisher
	activity  []ports.ActivityRecorder
	logger    *zap.Logger
}

// NewGraphPartHandler creates a new handler instance
func NewGraphPartHandler(
	topics ports.TopicRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
	activity ...ports.ActivityRecorder,
) *GraphPartHandler {
	return &GraphPartHandler{
		topics:    topics,
		publisher: publisher,
		activity:  activity,
		logger:    logger,
	}
}

// Register adds the graph part commands to b
func (h *GraphPartHandler) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{&commands.AddNodeCommand{}, bus.HandlerFor(h.HandleAddNode)},
		{&commands.CreateRootClaimCommand{}, bus.HandlerFor(h.HandleCreateRootClaim)},
		{&commands.ConnectNodesCommand{}, bus.HandlerFor(h.HandleConnectNodes)},
		{&commands.DeleteNodeCommand{}, bus.HandlerFor(h.HandleDeleteNode)},
		{&commands.DeleteEdgeCommand{}, bus.HandlerFor(h.HandleDeleteEdge)},
		{&commands.SetUserScoreCommand{}, bus.HandlerFor(h.HandleSetUserScore)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// HandleAddNode adds a standalone node, or a node connected to FromNodeID
func (h *GraphPartHandler) HandleAddNode(ctx context.Context, cmd *commands.AddNodeCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}
	nodeType, err := valueobjects.ParseNodeType(cmd.ToNodeType)
	if err != nil {
		return err
	}

	var (
		node  *entities.Node
		edges []*entities.Edge
	)
	if cmd.FromNodeID == "" {
		node, err = topic.AddNode(cmd.UserID, nodeID, nodeType, cmd.Text)
		if err != nil {
			return err
		}
	} else {
		spec, err := connectedNodeSpec(cmd, nodeID, nodeType)
		if err != nil {
			return err
		}
		var edge *entities.Edge
		node, edge, err = topic.AddConnectedNode(cmd.UserID, spec)
		if err != nil {
			return err
		}
		edges = append(edges, edge)
	}

	if err := h.topics.SaveParts(ctx, topic.ID(), []*entities.Node{node}, edges); err != nil {
		return err
	}

	h.logger.Debug("Node added",
		zap.String("topic_id", topic.ID().String()),
		zap.String("node_id", node.ID().String()),
		zap.String("type", node.Type().String()),
	)
	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityNodeAdded, 1)
	return nil
}

func connectedNodeSpec(cmd *commands.AddNodeCommand, nodeID valueobjects.NodeID, nodeType valueobjects.NodeType) (aggregates.ConnectedNodeSpec, error) {
	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return aggregates.ConnectedNodeSpec{}, err
	}
	fromID, err := valueobjects.NewNodeIDFromString(cmd.FromNodeID)
	if err != nil {
		return aggregates.ConnectedNodeSpec{}, err
	}
	return aggregates.ConnectedNodeSpec{
		NodeID:     nodeID,
		EdgeID:     edgeID,
		FromNodeID: fromID,
		As:         valueobjects.RelationDirection(cmd.As),
		ToNodeType: nodeType,
		Relation:   valueobjects.RelationName(cmd.Relation),
		Text:       cmd.Text,
	}, nil
}

// HandleCreateRootClaim starts a claim tree. An existing tree is left as is.
func (h *GraphPartHandler) HandleCreateRootClaim(ctx context.Context, cmd *commands.CreateRootClaimCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}

	root, created, err := topic.CreateRootClaim(cmd.UserID, nodeID, cmd.ArguedPartID)
	if err != nil {
		return err
	}
	if !created {
		h.logger.Debug("Claim tree already exists",
			zap.String("topic_id", topic.ID().String()),
			zap.String("argued_part_id", cmd.ArguedPartID),
		)
		return nil
	}
	if err := h.topics.SaveParts(ctx, topic.ID(), []*entities.Node{root}, nil); err != nil {
		return err
	}

	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityNodeAdded, 1)
	return nil
}

// HandleConnectNodes adds an edge between two existing nodes
func (h *GraphPartHandler) HandleConnectNodes(ctx context.Context, cmd *commands.ConnectNodesCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}
	parentID, err := valueobjects.NewNodeIDFromString(cmd.ParentID)
	if err != nil {
		return err
	}
	childID, err := valueobjects.NewNodeIDFromString(cmd.ChildID)
	if err != nil {
		return err
	}

	edge, err := topic.ConnectNodes(cmd.UserID, edgeID, parentID, childID, valueobjects.RelationName(cmd.Relation))
	if err != nil {
		return err
	}
	if err := h.topics.SaveParts(ctx, topic.ID(), nil, []*entities.Edge{edge}); err != nil {
		return err
	}

	h.logger.Debug("Nodes connected",
		zap.String("topic_id", topic.ID().String()),
		zap.String("edge_id", edge.ID().String()),
		zap.String("label", edge.Label().String()),
	)
	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityEdgeAdded, 1)
	return nil
}

// HandleDeleteNode removes a node and everything that depends on it
func (h *GraphPartHandler) HandleDeleteNode(ctx context.Context, cmd *commands.DeleteNodeCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return err
	}

	removal, err := topic.RemoveNode(cmd.UserID, nodeID)
	if err != nil {
		return err
	}
	return h.storeRemoval(ctx, topic, removal)
}

// HandleDeleteEdge removes an edge and the claim tree arguing about it
func (h *GraphPartHandler) HandleDeleteEdge(ctx context.Context, cmd *commands.DeleteEdgeCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	edgeID, err := valueobjects.NewEdgeIDFromString(cmd.EdgeID)
	if err != nil {
		return err
	}

	removal, err := topic.RemoveEdge(cmd.UserID, edgeID)
	if err != nil {
		return err
	}
	return h.storeRemoval(ctx, topic, removal)
}

func (h *GraphPartHandler) storeRemoval(ctx context.Context, topic *aggregates.Topic, removal aggregates.PartRemoval) error {
	if err := h.topics.RemoveParts(ctx, topic.ID(), removal); err != nil {
		return err
	}

	h.logger.Debug("Graph parts removed",
		zap.String("topic_id", topic.ID().String()),
		zap.Int("nodes", len(removal.NodeIDs)),
		zap.Int("edges", len(removal.EdgeIDs)),
	)
	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityNodeRemoved, len(removal.NodeIDs))
	return nil
}

// HandleSetUserScore records the caller's score for a part
func (h *GraphPartHandler) HandleSetUserScore(ctx context.Context, cmd *commands.SetUserScoreCommand) error {
	topic, err := loadTopic(ctx, h.topics, cmd.TopicID)
	if err != nil {
		return err
	}
	value, err := valueobjects.NewScoreValue(cmd.Value)
	if err != nil {
		return err
	}

	score, err := topic.SetScore(cmd.UserID, cmd.GraphPartID, value)
	if err != nil {
		return err
	}
	if err := h.topics.SaveScore(ctx, score); err != nil {
		return err
	}

	publishEvents(ctx, h.publisher, h.logger, topic)
	recordActivity(ctx, h.activity, observability.ActivityScoreSet, 1)
	return nil
}
