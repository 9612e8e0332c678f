package entities

import (
	"time"

	"ameliorate/domain/core/valueobjects"
	pkgerrors "ameliorate/pkg/errors"
)

// User is the public profile behind an authenticated subject.
type User struct {
	id        string
	username  valueobjects.Username
	authID    string
	createdAt time.Time
}

// NewUser creates a profile for an authenticated subject
func NewUser(id string, username valueobjects.Username, authID string) (*User, error) {
	return ReconstructUser(id, username, authID, time.Now().UTC())
}

// ReconstructUser rebuilds a user from storage
func ReconstructUser(id string, username valueobjects.Username, authID string, createdAt time.Time) (*User, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("user id cannot be empty")
	}
	if username.String() == "" {
		return nil, pkgerrors.NewValidationError("username cannot be empty")
	}
	if authID == "" {
		authID = id
	}
	return &User{id: id, username: username, authID: authID, createdAt: createdAt}, nil
}

func (u *User) ID() string { return u.id }
func (u *User) Username() valueobjects.Username { return u.username }
func (u *User) AuthID() string { return u.authID }
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UserScore is one user's rating of one node or edge of a topic.
type UserScore struct {
	TopicID     valueobjects.TopicID
	UserID      string
	GraphPartID string
	Value       valueobjects.ScoreValue
}
