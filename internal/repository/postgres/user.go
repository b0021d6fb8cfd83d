package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (id, name, username, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, name, username, password_hash
`

func (r *UserRepo) CreateUser(ctx context.Context, name string, username string, hashedPassword string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, uuid.New(), name, username, hashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, userError(err)
}

const getUserByID = `-- name: GetUserByID
SELECT id, created_at, name, username, password_hash FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, id)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, userError(err)
}

const getUserByUsername = `-- name: GetUserByUsername
SELECT id, created_at, name, username, password_hash FROM users
WHERE username = $1
`

func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByUsername, username)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, userError(err)
}

const listUsers = `-- name: ListUsers
SELECT id, created_at, name, username, password_hash FROM users
ORDER BY created_at, id
`

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, _ := r.DB.Query(ctx, listUsers)
	users, err := pgx.CollectRows(rows, rowToUser)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

const updateUser = `-- name: UpdateUser
UPDATE users
SET
	name = COALESCE($2, name),
	username = COALESCE($3, username),
	password_hash = COALESCE($4, password_hash)
WHERE id = $1
RETURNING id, created_at, name, username, password_hash
`

func (r *UserRepo) UpdateUser(ctx context.Context, id uuid.UUID, changes repository.UserChanges) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateUser, id, changes.Name, changes.Username, changes.HashedPassword)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	return user, userError(err)
}

const deleteUser = `-- name: DeleteUser
DELETE FROM users
WHERE id = $1
`

func (r *UserRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteUser, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Name, &u.Username, &u.HashedPassword)
	return u, err
}

// Translate db errors to the well known ones
func userError(err error) error {
	var pgErr *pgconn.PgError

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.ErrUserNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return apperrors.ErrUserAlreadyExists
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
