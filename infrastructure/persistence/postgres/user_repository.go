package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ameliorate/domain/core/entities"
	"ameliorate/infrastructure/persistence/records"
	pkgerrors "ameliorate/pkg/errors"
)

// UserRepository implements ports.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	rec := records.FromUser(user)
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO users (id, username, auth_id, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Username, rec.AuthID, rec.CreatedAt)
	if isUniqueViolation(err) {
		return pkgerrors.NewConflictError("user or username already exists")
	}
	if err != nil {
		return pkgerrors.NewDatabaseError("create user", err)
	}
	return nil
}

// GetByID finds a user by auth subject
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return r.getOne(ctx, `SELECT id, username, auth_id, created_at FROM users WHERE id = $1`, id)
}

// GetByUsername finds a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.getOne(ctx, `SELECT id, username, auth_id, created_at FROM users WHERE username = $1`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query, arg string) (*entities.User, error) {
	var rec records.UserRecord
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(&rec.ID, &rec.Username, &rec.AuthID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec.User()
}
