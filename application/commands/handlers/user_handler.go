package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ameliorate/application/commands"
	"ameliorate/application/commands/bus"
	"ameliorate/application/ports"
	"ameliorate/domain/core/entities"
	"ameliorate/domain/core/valueobjects"
	"ameliorate/domain/events"
)

// UserHandler handles user profile commands
type UserHandler struct {
	users     ports.UserRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
}

// NewUserHandler creates a new handler instance
func NewUserHandler(users ports.UserRepository, publisher ports.EventPublisher, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, publisher: publisher, logger: logger}
}

// Register adds the user commands to b
func (h *UserHandler) Register(b *bus.CommandBus) error {
	return b.Register(&commands.CreateUserCommand{}, bus.HandlerFor(h.HandleCreate))
}

// HandleCreate creates a user profile
func (h *UserHandler) HandleCreate(ctx context.Context, cmd *commands.CreateUserCommand) error {
	username, err := valueobjects.NewUsername(cmd.Username)
	if err != nil {
		return err
	}
	user, err := entities.NewUser(cmd.UserID, username, cmd.AuthID)
	if err != nil {
		return err
	}
	if err := h.users.Create(ctx, user); err != nil {
		return err
	}

	h.logger.Info("User created", zap.String("user_id", user.ID()), zap.String("username", username.String()))
	event := events.NewUserCreated(user.ID(), username.String(), time.Now().UTC())
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish user created event", zap.String("user_id", user.ID()), zap.Error(err))
	}
	return nil
}
