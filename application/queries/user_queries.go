package queries

import (
	"ameliorate/pkg/utils"
)

// FindUserByUsernameQuery finds a user profile
type FindUserByUsernameQuery struct {
	Username string `json:"username" validate:"required,username"`
}

// Validate validates the query
func (q *FindUserByUsernameQuery) Validate() error {
	return utils.ValidateStruct(q)
}
