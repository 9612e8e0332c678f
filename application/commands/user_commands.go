package commands

import (
	"ameliorate/pkg/utils"
)

// CreateUserCommand creates the profile of an authenticated subject
type CreateUserCommand struct {
	UserID   string `json:"user_id" validate:"required,max=255"`
	Username string `json:"username" validate:"required,username"`
	AuthID   string `json:"auth_id" validate:"max=255"`
}

// Validate validates the command
func (c *CreateUserCommand) Validate() error {
	return utils.ValidateStruct(c)
}
