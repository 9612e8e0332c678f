package queries

import (
	"time"

	"ameliorate/domain/core/aggregates"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/diagram"
)

// TopicView is a topic without its parts
type TopicView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatorID string    `json:"creatorId"`
	Username  string    `json:"creatorName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NodeView is a stored node
type NodeView struct {
	ID                  string    `json:"id"`
	TopicID             string    `json:"topicId"`
	Type                string    `json:"type"`
	Text                string    `json:"text"`
	ArguedDiagramPartID string    `json:"arguedDiagramPartId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// EdgeView is a stored edge. SourceID is the parent node.
type EdgeView struct {
	ID                  string    `json:"id"`
	TopicID             string    `json:"topicId"`
	SourceID            string    `json:"sourceId"`
	TargetID            string    `json:"targetId"`
	Label               string    `json:"label"`
	ArguedDiagramPartID string    `json:"arguedDiagramPartId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ScoreView is one user's score for one part
type ScoreView struct {
	UserID      string `json:"userId"`
	GraphPartID string `json:"graphPartId"`
	Value       int    `json:"value"`
}

// TopicData is a topic with every part and score
type TopicData struct {
	TopicView
	Nodes      []NodeView  `json:"nodes"`
	Edges      []EdgeView  `json:"edges"`
	UserScores []ScoreView `json:"userScores"`
}

// DiagramResult is a derived diagram ready for display
type DiagramResult struct {
	TopicID     string           `json:"topicId,omitempty"`
	Title       string           `json:"title"`
	ClaimTreeID string           `json:"claimTreeId,omitempty"`
	Diagram     *diagram.Diagram `json:"diagram"`
}

// ClaimTreesResult lists the arguable parts of a topic
type ClaimTreesResult struct {
	TopicID string                 `json:"topicId"`
	Parts   []diagram.ArguablePart `json:"parts"`
}

// UserView is a public user profile
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTopicView maps a topic aggregate
func NewTopicView(topic *aggregates.Topic, username string) TopicView {
	return TopicView{
		ID:        topic.ID().String(),
		Title:     topic.Title().String(),
		CreatorID: topic.CreatorID(),
		Username:  username,
		CreatedAt: topic.CreatedAt(),
		UpdatedAt: topic.UpdatedAt(),
	}
}

// NewTopicData maps a topic aggregate with its parts
func NewTopicData(topic *aggregates.Topic, username string) *TopicData {
	data := &TopicData{
		TopicView:  NewTopicView(topic, username),
		Nodes:      make([]NodeView, 0, len(topic.Nodes())),
		Edges:      make([]EdgeView, 0, len(topic.Edges())),
		UserScores: make([]ScoreView, 0, len(topic.Scores())),
	}
	for _, n := range topic.Nodes() {
		data.Nodes = append(data.Nodes, NodeView{
			ID:                  n.ID().String(),
			TopicID:             n.TopicID().String(),
			Type:                n.Type().String(),
			Text:                n.Text(),
			ArguedDiagramPartID: n.ArguedDiagramPartID(),
			CreatedAt:           n.CreatedAt(),
			UpdatedAt:           n.UpdatedAt(),
		})
	}
	for _, e := range topic.Edges() {
		data.Edges = append(data.Edges, EdgeView{
			ID:                  e.ID().String(),
			TopicID:             e.TopicID().String(),
			SourceID:            e.SourceID().String(),
			TargetID:            e.TargetID().String(),
			Label:               e.Label().String(),
			ArguedDiagramPartID: e.ArguedDiagramPartID(),
			CreatedAt:           e.CreatedAt(),
		})
	}
	for _, s := range topic.Scores() {
		data.UserScores = append(data.UserScores, ScoreView{
			UserID:      s.UserID,
			GraphPartID: s.GraphPartID,
			Value:       s.Value.Int(),
		})
	}
	return data
}

// NewUserView maps a user entity
func NewUserView(user *entities.User) UserView {
	return UserView{
		ID:        user.ID(),
		Username:  user.Username().String(),
		CreatedAt: user.CreatedAt(),
	}
}

// ToGraph builds the diagram graph of a topic. Every call returns fresh
// view values, so selecting parts never leaks between requests.
func ToGraph(topic *aggregates.Topic) diagram.Graph {
	g := diagram.Graph{
		Nodes: make([]*diagram.Node, 0, len(topic.Nodes())),
		Edges: make([]*diagram.Edge, 0, len(topic.Edges())),
	}
	for _, n := range topic.Nodes() {
		g.Nodes = append(g.Nodes, &diagram.Node{
			ID:                  n.ID().String(),
			Type:                n.Type(),
			Label:               n.Text(),
			ArguedDiagramPartID: n.ArguedDiagramPartID(),
		})
	}
	for _, e := range topic.Edges() {
		g.Edges = append(g.Edges, &diagram.Edge{
			ID:                  e.ID().String(),
			Source:              e.SourceID().String(),
			Target:              e.TargetID().String(),
			Label:               e.Label(),
			ArguedDiagramPartID: e.ArguedDiagramPartID(),
		})
	}
	return g
}
