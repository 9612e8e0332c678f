// Package diagram derives the diagrams shown to users from a topic's full
// graph. Everything here is pure: derived diagrams share the node and edge
// values of the graph they were filtered from.
package diagram

import (
	"slices"

	"ameliorate/domain/core/valueobjects"
)

// Node is the view of a node inside a diagram.
type Node struct {
	ID                  string                `json:"id"`
	Type                valueobjects.NodeType `json:"type"`
	Label               string                `json:"label"`
	ArguedDiagramPartID string                `json:"arguedDiagramPartId,omitempty"`
	Selected            bool                  `json:"selected"`
}

// Edge is the view of an edge inside a diagram. Source is the parent node.
type Edge struct {
	ID                  string                    `json:"id"`
	Source              string                    `json:"source"`
	Target              string                    `json:"target"`
	Label               valueobjects.RelationName `json:"label"`
	ArguedDiagramPartID string                    `json:"arguedDiagramPartId,omitempty"`
	Selected            bool                      `json:"selected"`
}

// Graph is every node and edge of a topic.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Orientation is the layout direction of a diagram.
type Orientation string

const (
	OrientationDown  Orientation = "DOWN"
	OrientationRight Orientation = "RIGHT"
)

// Type distinguishes the topic diagram from claim trees.
type Type string

const (
	TypeTopicDiagram Type = "topicDiagram"
	TypeClaimTree    Type = "claimTree"
)

// Diagram is a filtered view of a Graph.
type Diagram struct {
	Nodes       []*Node     `json:"nodes"`
	Edges       []*Edge     `json:"edges"`
	Orientation Orientation `json:"orientation"`
	Type        Type        `json:"type"`
}

// TopicState is what a client holds for one topic: the graph plus which
// claim tree, if any, is being viewed. ID is empty for playground topics.
type TopicState struct {
	ID                string `json:"id,omitempty"`
	Title             string `json:"title,omitempty"`
	Graph             Graph  `json:"graph"`
	ActiveClaimTreeID string `json:"activeClaimTreeId,omitempty"`
}

// GetActiveDiagram returns the claim tree being viewed, or the topic
// diagram when no claim tree is active.
func GetActiveDiagram(state TopicState) *Diagram {
	if state.ActiveClaimTreeID != "" {
		return GetClaimTree(state.Graph, state.ActiveClaimTreeID)
	}
	return GetTopicDiagram(state.Graph)
}

// GetTopicDiagram keeps topic-typed nodes and topic relations
func GetTopicDiagram(g Graph) *Diagram {
	d := &Diagram{
		Nodes:       []*Node{},
		Edges:       []*Edge{},
		Orientation: OrientationDown,
		Type:        TypeTopicDiagram,
	}
	topicTypes := valueobjects.TopicNodeTypes()
	for _, n := range g.Nodes {
		if slices.Contains(topicTypes, n.Type) {
			d.Nodes = append(d.Nodes, n)
		}
	}
	topicRelations := valueobjects.TopicRelationNames()
	for _, e := range g.Edges {
		if slices.Contains(topicRelations, e.Label) {
			d.Edges = append(d.Edges, e)
		}
	}
	return d
}

// GetClaimTree keeps the parts arguing about arguedPartID
func GetClaimTree(g Graph, arguedPartID string) *Diagram {
	d := &Diagram{
		Nodes:       []*Node{},
		Edges:       []*Edge{},
		Orientation: OrientationRight,
		Type:        TypeClaimTree,
	}
	for _, n := range g.Nodes {
		if n.ArguedDiagramPartID == arguedPartID {
			d.Nodes = append(d.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if e.ArguedDiagramPartID == arguedPartID {
			d.Edges = append(d.Edges, e)
		}
	}
	return d
}

// GetClaimEdges returns the edges a claim tree can be started for: those
// labelled with a topic relation.
func GetClaimEdges(edges []*Edge) []*Edge {
	topicRelations := valueobjects.TopicRelationNames()
	out := []*Edge{}
	for _, e := range edges {
		if slices.Contains(topicRelations, e.Label) {
			out = append(out, e)
		}
	}
	return out
}

// SetSelected selects the part with partID and deselects every other part
// of the diagram, writing only the flags that change. An unknown or empty
// partID clears the selection. It returns the number of parts changed.
func SetSelected(partID string, d *Diagram) int {
	changed := 0
	for _, n := range d.Nodes {
		want := partID != "" && n.ID == partID
		if n.Selected != want {
			n.Selected = want
			changed++
		}
	}
	for _, e := range d.Edges {
		want := partID != "" && e.ID == partID
		if e.Selected != want {
			e.Selected = want
			changed++
		}
	}
	return changed
}

// GetDiagramTitle is the label of the first problem node of a topic
// diagram, or of the root claim of a claim tree.
func GetDiagramTitle(d *Diagram) string {
	rootType := valueobjects.NodeTypeProblem
	if d.Type == TypeClaimTree {
		rootType = valueobjects.NodeTypeRootClaim
	}
	for _, n := range d.Nodes {
		if n.Type == rootType {
			return n.Label
		}
	}
	return ""
}

// GetTopicTitle is the title of the topic diagram of state
func GetTopicTitle(state TopicState) string {
	return GetDiagramTitle(GetTopicDiagram(state.Graph))
}

// IsPlaygroundTopic reports whether the topic only exists on the client
func IsPlaygroundTopic(state TopicState) bool {
	return state.ID == ""
}

// ArguablePart summarizes a node or edge that can have a claim tree.
type ArguablePart struct {
	PartID       string `json:"partId"`
	PartType     string `json:"partType"`
	Label        string `json:"label"`
	HasClaimTree bool   `json:"hasClaimTree"`
	ClaimCount   int    `json:"claimCount"`
}

// ArguableParts lists the topic nodes and claim edges of g with the size
// of the claim tree arguing about each.
func ArguableParts(g Graph) []ArguablePart {
	claims := map[string]int{}
	for _, n := range g.Nodes {
		if n.ArguedDiagramPartID != "" {
			claims[n.ArguedDiagramPartID]++
		}
	}

	topic := GetTopicDiagram(g)
	parts := make([]ArguablePart, 0, len(topic.Nodes)+len(topic.Edges))
	for _, n := range topic.Nodes {
		parts = append(parts, ArguablePart{
			PartID:       n.ID,
			PartType:     "node",
			Label:        n.Label,
			HasClaimTree: claims[n.ID] > 0,
			ClaimCount:   claims[n.ID],
		})
	}
	for _, e := range GetClaimEdges(g.Edges) {
		parts = append(parts, ArguablePart{
			PartID:       e.ID,
			PartType:     "edge",
			Label:        string(e.Label),
			HasClaimTree: claims[e.ID] > 0,
			ClaimCount:   claims[e.ID],
		})
	}
	return parts
}
