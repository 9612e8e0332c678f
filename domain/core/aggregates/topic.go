package aggregates

import (
	"fmt"
	"time"
	"unicode/utf8"

	"ameliorate/domain/config"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/events"
	pkgerrors "ameliorate/pkg/errors"
)

// Topic is the aggregate root for one user's diagram: its nodes, edges and
// everyone's scores on them. Only the creator may change its structure.
type Topic struct {
	id        valueobjects.TopicID
	creatorID string
	title     valueobjects.Title
	nodes     []*entities.Node
	edges     []*entities.Edge
	scores    []entities.UserScore
	createdAt time.Time
	updatedAt time.Time

	cfg    *config.DomainConfig
	events []events.DomainEvent
}

// NewTopic creates a topic owned by creatorID
func NewTopic(id valueobjects.TopicID, creatorID string, title valueobjects.Title) (*Topic, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("topic id cannot be empty")
	}
	if creatorID == "" {
		return nil, pkgerrors.NewValidationError("creator cannot be empty")
	}
	if title.String() == "" {
		return nil, pkgerrors.NewValidationError("title cannot be empty")
	}

	now := time.Now().UTC()
	t := ReconstructTopic(id, creatorID, title, now, now)
	t.addEvent(events.NewTopicCreated(id, creatorID, title.String(), now))
	return t, nil
}

// ReconstructTopic recreates a topic from stored data without raising
// events. Parts are attached with LoadNode, LoadEdge and LoadScore.
func ReconstructTopic(id valueobjects.TopicID, creatorID string, title valueobjects.Title, createdAt, updatedAt time.Time) *Topic {
	return &Topic{
		id:        id,
		creatorID: creatorID,
		title:     title,
		createdAt: createdAt,
		updatedAt: updatedAt,
		cfg:       config.DefaultDomainConfig(),
	}
}

// LoadNode attaches a stored node
func (t *Topic) LoadNode(node *entities.Node) error {
	if !node.TopicID().Equals(t.id) {
		return pkgerrors.NewValidationError("node belongs to another topic")
	}
	t.nodes = append(t.nodes, node)
	return nil
}

// LoadEdge attaches a stored edge
func (t *Topic) LoadEdge(edge *entities.Edge) error {
	if !edge.TopicID().Equals(t.id) {
		return pkgerrors.NewValidationError("edge belongs to another topic")
	}
	t.edges = append(t.edges, edge)
	return nil
}

// LoadScore attaches a stored score
func (t *Topic) LoadScore(score entities.UserScore) {
	t.scores = append(t.scores, score)
}

func (t *Topic) ID() valueobjects.TopicID { return t.id }
func (t *Topic) CreatorID() string { return t.creatorID }
func (t *Topic) Title() valueobjects.Title { return t.title }
func (t *Topic) CreatedAt() time.Time { return t.createdAt }
func (t *Topic) UpdatedAt() time.Time { return t.updatedAt }
func (t *Topic) Nodes() []*entities.Node { return append([]*entities.Node(nil), t.nodes...) }
func (t *Topic) Edges() []*entities.Edge { return append([]*entities.Edge(nil), t.edges...) }
func (t *Topic) Scores() []entities.UserScore { return append([]entities.UserScore(nil), t.scores...) }

// CanBeModifiedBy reports whether userID owns the topic
func (t *Topic) CanBeModifiedBy(userID string) bool {
	return userID != "" && userID == t.creatorID
}

func (t *Topic) ensureOwner(actorID string) error {
	if !t.CanBeModifiedBy(actorID) {
		return pkgerrors.NewForbiddenError("only the creator can modify this topic")
	}
	return nil
}

// Rename changes the title. Renaming to the current title is a no-op.
func (t *Topic) Rename(actorID string, title valueobjects.Title) error {
	if err := t.ensureOwner(actorID); err != nil {
		return err
	}
	if t.title.Equals(title) {
		return nil
	}

	old := t.title
	t.title = title
	t.touch()
	t.addEvent(events.NewTopicRenamed(t.id, old.String(), title.String(), t.updatedAt))
	return nil
}

// MarkDeleted records the deletion of the topic by actorID
func (t *Topic) MarkDeleted(actorID string) error {
	if err := t.ensureOwner(actorID); err != nil {
		return err
	}
	t.addEvent(events.NewTopicDeleted(t.id, actorID, time.Now().UTC()))
	return nil
}

// Node looks up a node by id
func (t *Topic) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	for _, n := range t.nodes {
		if n.ID().Equals(id) {
			return n, true
		}
	}
	return nil, false
}

// Edge looks up an edge by id
func (t *Topic) Edge(id valueobjects.EdgeID) (*entities.Edge, bool) {
	for _, e := range t.edges {
		if e.ID().Equals(id) {
			return e, true
		}
	}
	return nil, false
}

// HasPart reports whether partID names a node or an edge of the topic
func (t *Topic) HasPart(partID string) bool {
	return t.nodeByString(partID) != nil || t.edgeByString(partID) != nil
}

func (t *Topic) nodeByString(id string) *entities.Node {
	for _, n := range t.nodes {
		if n.ID().String() == id {
			return n
		}
	}
	return nil
}

func (t *Topic) edgeByString(id string) *entities.Edge {
	for _, e := range t.edges {
		if e.ID().String() == id {
			return e
		}
	}
	return nil
}

// AddNode adds an unconnected topic node, such as the first problem of a
// new topic.
func (t *Topic) AddNode(actorID string, nodeID valueobjects.NodeID, nodeType valueobjects.NodeType, text string) (*entities.Node, error) {
	if err := t.ensureOwner(actorID); err != nil {
		return nil, err
	}
	if !nodeType.IsTopicType() {
		return nil, pkgerrors.NewValidationError("claims can only be added to a claim tree")
	}
	if err := t.checkCapacity(1, 0); err != nil {
		return nil, err
	}

	node, err := entities.NewNodeWithID(nodeID, t.id, nodeType, text, "")
	if err != nil {
		return nil, err
	}
	t.appendNode(node)
	return node, nil
}

// ConnectedNodeSpec describes a node added next to an existing one. As is
// the role of the new node: "parent" puts it above FromNodeID, "child"
// below it.
type ConnectedNodeSpec struct {
	NodeID     valueobjects.NodeID
	EdgeID     valueobjects.EdgeID
	FromNodeID valueobjects.NodeID
	As         valueobjects.RelationDirection
	ToNodeType valueobjects.NodeType
	Relation   valueobjects.RelationName
	Text       string
}

// AddConnectedNode adds a node and the edge linking it to an existing
// node. The new node joins the same diagram as the existing one.
func (t *Topic) AddConnectedNode(actorID string, spec ConnectedNodeSpec) (*entities.Node, *entities.Edge, error) {
	if err := t.ensureOwner(actorID); err != nil {
		return nil, nil, err
	}
	from, ok := t.Node(spec.FromNodeID)
	if !ok {
		return nil, nil, pkgerrors.NewNotFoundError("node")
	}
	if !spec.As.IsValid() {
		return nil, nil, pkgerrors.NewValidationError(fmt.Sprintf("invalid relation direction %q", spec.As))
	}
	if spec.ToNodeType == valueobjects.NodeTypeRootClaim {
		return nil, nil, pkgerrors.NewValidationError("root claims are created by starting a claim tree")
	}

	parentType, childType := from.Type(), spec.ToNodeType
	if spec.As == valueobjects.DirectionParent {
		parentType, childType = spec.ToNodeType, from.Type()
	}
	relation, err := valueobjects.ValidateRelation(parentType, childType, spec.Relation)
	if err != nil {
		return nil, nil, err
	}
	if err := t.checkCapacity(1, 1); err != nil {
		return nil, nil, err
	}

	node, err := entities.NewNodeWithID(spec.NodeID, t.id, spec.ToNodeType, spec.Text, from.ArguedDiagramPartID())
	if err != nil {
		return nil, nil, err
	}

	source, target := from.ID(), node.ID()
	if spec.As == valueobjects.DirectionParent {
		source, target = node.ID(), from.ID()
	}
	edge, err := entities.NewEdgeWithID(spec.EdgeID, t.id, source, target, relation.Name, from.ArguedDiagramPartID())
	if err != nil {
		return nil, nil, err
	}

	t.appendNode(node)
	t.appendEdge(edge)
	return node, edge, nil
}

// ConnectNodes adds an edge between two existing nodes of the same diagram.
func (t *Topic) ConnectNodes(actorID string, edgeID valueobjects.EdgeID, parentID, childID valueobjects.NodeID, name valueobjects.RelationName) (*entities.Edge, error) {
	if err := t.ensureOwner(actorID); err != nil {
		return nil, err
	}
	parent, ok := t.Node(parentID)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("parent node")
	}
	child, ok := t.Node(childID)
	if !ok {
		return nil, pkgerrors.NewNotFoundError("child node")
	}
	if parent.ArguedDiagramPartID() != child.ArguedDiagramPartID() {
		return nil, pkgerrors.NewValidationError("nodes belong to different diagrams")
	}
	for _, e := range t.edges {
		if e.SourceID().Equals(parentID) && e.TargetID().Equals(childID) {
			return nil, pkgerrors.NewConflictError("nodes are already connected")
		}
	}
	relation, err := valueobjects.ValidateRelation(parent.Type(), child.Type(), name)
	if err != nil {
		return nil, err
	}
	if err := t.checkCapacity(0, 1); err != nil {
		return nil, err
	}

	edge, err := entities.NewEdgeWithID(edgeID, t.id, parentID, childID, relation.Name, parent.ArguedDiagramPartID())
	if err != nil {
		return nil, err
	}
	t.appendEdge(edge)
	return edge, nil
}

// ClaimTreeRoot returns the root claim arguing about partID, if any
func (t *Topic) ClaimTreeRoot(partID string) (*entities.Node, bool) {
	for _, n := range t.nodes {
		if n.Type() == valueobjects.NodeTypeRootClaim && n.ArguesAbout(partID) {
			return n, true
		}
	}
	return nil, false
}

// IsArguable reports whether a claim tree can be started for partID:
// topic nodes and topic edges can be argued, claims cannot.
func (t *Topic) IsArguable(partID string) bool {
	if n := t.nodeByString(partID); n != nil {
		return n.Type().IsTopicType()
	}
	if e := t.edgeByString(partID); e != nil {
		return e.Label().IsTopicRelation()
	}
	return false
}

// CreateRootClaim starts the claim tree for a topic node or edge. When the
// tree already exists its root is returned and created is false.
func (t *Topic) CreateRootClaim(actorID string, nodeID valueobjects.NodeID, arguedPartID string) (root *entities.Node, created bool, err error) {
	if err := t.ensureOwner(actorID); err != nil {
		return nil, false, err
	}
	if !t.HasPart(arguedPartID) {
		return nil, false, pkgerrors.NewNotFoundError("graph part")
	}
	if !t.IsArguable(arguedPartID) {
		return nil, false, pkgerrors.NewValidationError("claims cannot be argued in their own claim tree")
	}
	if existing, ok := t.ClaimTreeRoot(arguedPartID); ok {
		return existing, false, nil
	}
	if err := t.checkCapacity(1, 0); err != nil {
		return nil, false, err
	}

	root, err = entities.NewNodeWithID(nodeID, t.id, valueobjects.NodeTypeRootClaim, t.partLabel(arguedPartID), arguedPartID)
	if err != nil {
		return nil, false, err
	}
	t.appendNode(root)
	return root, true, nil
}

// partLabel is the text a root claim starts with: the node's text, or
// "source relation target" for an edge.
func (t *Topic) partLabel(partID string) string {
	label := ""
	if n := t.nodeByString(partID); n != nil {
		label = n.Text()
	} else if e := t.edgeByString(partID); e != nil {
		var source, target string
		if n, ok := t.Node(e.SourceID()); ok {
			source = n.Text()
		}
		if n, ok := t.Node(e.TargetID()); ok {
			target = n.Text()
		}
		label = fmt.Sprintf("%s %s %s", target, e.Label(), source)
	}

	limit := t.cfg.MaxNodeTextLength
	if utf8.RuneCountInString(label) > limit {
		label = string([]rune(label)[:limit])
	}
	return label
}

// PartRemoval lists every node and edge removed by one operation.
type PartRemoval struct {
	NodeIDs []valueobjects.NodeID
	EdgeIDs []valueobjects.EdgeID
}

// PartIDs returns the removed ids as plain strings, nodes first
func (r PartRemoval) PartIDs() []string {
	ids := make([]string, 0, len(r.NodeIDs)+len(r.EdgeIDs))
	for _, id := range r.NodeIDs {
		ids = append(ids, id.String())
	}
	for _, id := range r.EdgeIDs {
		ids = append(ids, id.String())
	}
	return ids
}

// IsEmpty reports whether nothing was removed
func (r PartRemoval) IsEmpty() bool {
	return len(r.NodeIDs) == 0 && len(r.EdgeIDs) == 0
}

// RemoveNode removes a node, the edges touching it and every claim tree
// arguing about any removed part. Removing a root claim removes its tree.
func (t *Topic) RemoveNode(actorID string, nodeID valueobjects.NodeID) (PartRemoval, error) {
	if err := t.ensureOwner(actorID); err != nil {
		return PartRemoval{}, err
	}
	node, ok := t.Node(nodeID)
	if !ok {
		return PartRemoval{}, pkgerrors.NewNotFoundError("node")
	}

	c := newRemovalCollector(t)
	if node.Type() == valueobjects.NodeTypeRootClaim {
		c.addTree(node.ArguedDiagramPartID())
	}
	c.addNode(node.ID().String())
	return t.applyRemoval(c), nil
}

// RemoveEdge removes an edge and the claim tree arguing about it
func (t *Topic) RemoveEdge(actorID string, edgeID valueobjects.EdgeID) (PartRemoval, error) {
	if err := t.ensureOwner(actorID); err != nil {
		return PartRemoval{}, err
	}
	if _, ok := t.Edge(edgeID); !ok {
		return PartRemoval{}, pkgerrors.NewNotFoundError("edge")
	}

	c := newRemovalCollector(t)
	c.addEdge(edgeID.String())
	return t.applyRemoval(c), nil
}

type removalCollector struct {
	topic *Topic
	nodes map[string]bool
	edges map[string]bool
	queue []string
}

func newRemovalCollector(t *Topic) *removalCollector {
	return &removalCollector{topic: t, nodes: map[string]bool{}, edges: map[string]bool{}}
}

func (c *removalCollector) addNode(id string) {
	if c.nodes[id] {
		return
	}
	c.nodes[id] = true
	c.queue = append(c.queue, id)
	for _, e := range c.topic.edges {
		if e.SourceID().String() == id || e.TargetID().String() == id {
			c.addEdge(e.ID().String())
		}
	}
}

func (c *removalCollector) addEdge(id string) {
	if c.edges[id] {
		return
	}
	c.edges[id] = true
	c.queue = append(c.queue, id)
}

// addTree marks every part of the claim tree arguing about partID
func (c *removalCollector) addTree(partID string) {
	for _, n := range c.topic.nodes {
		if n.ArguesAbout(partID) {
			c.addNode(n.ID().String())
		}
	}
	for _, e := range c.topic.edges {
		if e.ArguedDiagramPartID() == partID {
			c.addEdge(e.ID().String())
		}
	}
}

// drain follows claim trees of removed parts until nothing new is marked
func (c *removalCollector) drain() {
	for len(c.queue) > 0 {
		partID := c.queue[0]
		c.queue = c.queue[1:]
		c.addTree(partID)
	}
}

func (t *Topic) applyRemoval(c *removalCollector) PartRemoval {
	c.drain()

	var removal PartRemoval
	now := time.Now().UTC()

	keptNodes := t.nodes[:0]
	for _, n := range t.nodes {
		if c.nodes[n.ID().String()] {
			removal.NodeIDs = append(removal.NodeIDs, n.ID())
			t.addEvent(events.NewNodeRemoved(t.id, n.ID(), now))
			continue
		}
		keptNodes = append(keptNodes, n)
	}
	t.nodes = keptNodes

	keptEdges := t.edges[:0]
	for _, e := range t.edges {
		if c.edges[e.ID().String()] {
			removal.EdgeIDs = append(removal.EdgeIDs, e.ID())
			t.addEvent(events.NewEdgeRemoved(t.id, e.ID(), now))
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	t.edges = keptEdges

	keptScores := t.scores[:0]
	for _, s := range t.scores {
		if !c.nodes[s.GraphPartID] && !c.edges[s.GraphPartID] {
			keptScores = append(keptScores, s)
		}
	}
	t.scores = keptScores

	t.touch()
	return removal
}

// SetScore records userID's score for a node or edge, replacing any
// previous score. Any user may score any topic.
func (t *Topic) SetScore(userID, partID string, value valueobjects.ScoreValue) (entities.UserScore, error) {
	if userID == "" {
		return entities.UserScore{}, pkgerrors.NewUnauthorizedError("scores require a user")
	}
	if !t.HasPart(partID) {
		return entities.UserScore{}, pkgerrors.NewNotFoundError("graph part")
	}

	score := entities.UserScore{TopicID: t.id, UserID: userID, GraphPartID: partID, Value: value}
	replaced := false
	for i, s := range t.scores {
		if s.UserID == userID && s.GraphPartID == partID {
			t.scores[i] = score
			replaced = true
			break
		}
	}
	if !replaced {
		t.scores = append(t.scores, score)
	}

	t.addEvent(events.NewScoreSet(t.id, userID, partID, value, time.Now().UTC()))
	return score, nil
}

func (t *Topic) checkCapacity(newNodes, newEdges int) error {
	if len(t.nodes)+newNodes > t.cfg.MaxNodesPerTopic {
		return pkgerrors.NewValidationError(fmt.Sprintf("topic cannot have more than %d nodes", t.cfg.MaxNodesPerTopic))
	}
	if len(t.edges)+newEdges > t.cfg.MaxEdgesPerTopic {
		return pkgerrors.NewValidationError(fmt.Sprintf("topic cannot have more than %d edges", t.cfg.MaxEdgesPerTopic))
	}
	return nil
}

func (t *Topic) appendNode(n *entities.Node) {
	t.nodes = append(t.nodes, n)
	t.touch()
	t.addEvent(events.NewNodeAdded(t.id, n.ID(), n.Type(), n.ArguedDiagramPartID(), n.CreatedAt()))
}

func (t *Topic) appendEdge(e *entities.Edge) {
	t.edges = append(t.edges, e)
	t.touch()
	t.addEvent(events.NewEdgeAdded(t.id, e.ID(), e.SourceID(), e.TargetID(), e.Label(), e.CreatedAt()))
}

func (t *Topic) touch() {
	t.updatedAt = time.Now().UTC()
}

// GetUncommittedEvents returns the events raised since the last commit
func (t *Topic) GetUncommittedEvents() []events.DomainEvent {
	return append([]events.DomainEvent(nil), t.events...)
}

// MarkEventsAsCommitted clears the uncommitted events
func (t *Topic) MarkEventsAsCommitted() {
	t.events = nil
}

func (t *Topic) addEvent(e events.DomainEvent) {
	t.events = append(t.events, e)
}
