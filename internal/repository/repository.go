package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user
	// If user with username exists already has to return error apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, name string, username string, hashedPassword string) (models.User, error)

	// Get user by it's id or username
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)

	// List users ordered by creation time
	ListUsers(ctx context.Context) ([]models.User, error)

	// Update fields that are not nil and return the updated user
	// Same errors as CreateUser and GetUserByID
	UpdateUser(ctx context.Context, userID uuid.UUID, changes UserChanges) (models.User, error)

	// If user not found must return apperrors.ErrUserNotFound
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserChanges holds columns to update, nil keeps current value
type UserChanges struct {
	Name           *string
	Username       *string
	HashedPassword *string
}

// RefreshLedger remembers refresh tokens that were exchanged already
type RefreshLedger interface {
	// Record the token id as used
	// If the token was used before, must return apperrors.ErrRefreshTokenIsUsed
	Use(ctx context.Context, tokenID string, userID uuid.UUID, expiresAt time.Time) error

	// Delete tokens expired before the time, they can't be presented anyway
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type Storage interface {
	User() UserRepo
	Ledger() RefreshLedger

	// Run fn in transaction: commit if fn returns nil, rollback otherwise
	InTx(ctx context.Context, fn func(Storage) error) error
}
