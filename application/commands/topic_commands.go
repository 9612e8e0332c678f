package commands

import (
	"ameliorate/pkg/utils"

	// registers the domain validation tags
	_ "ameliorate/domain/core/valueobjects"
)

// CreateTopicCommand creates a topic owned by UserID
type CreateTopicCommand struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"required,topic_title"`
}

// Validate validates the command
func (c *CreateTopicCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdateTopicCommand renames a topic
type UpdateTopicCommand struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
	Title   string `json:"title" validate:"required,topic_title"`
}

// Validate validates the command
func (c *UpdateTopicCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeleteTopicCommand deletes a topic with its nodes, edges and scores
type DeleteTopicCommand struct {
	TopicID string `json:"topic_id" validate:"required,uuid"`
	UserID  string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (c *DeleteTopicCommand) Validate() error {
	return utils.ValidateStruct(c)
}
