package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/repository"
)

// Service is the user directory: it owns users and their password hashes
// Users leave it as models.PublicUser only
type Service struct {
	hasher  PasswordHasher
	storage repository.Storage
	logger  logger.Logger

	// Compared against when user is not found, so unknown usernames take as long as wrong passwords
	dummyOnce sync.Once
	dummyHash string
}

func NewService(hasher PasswordHasher, storage repository.Storage, l logger.Logger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &Service{
		hasher:  hasher,
		storage: storage,
		logger:  l.With("component", "directory"),
	}
}

func (s *Service) Create(ctx context.Context, name string, username string, password string) (models.PublicUser, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.PublicUser{}, apperrors.Internal(fmt.Errorf("can't use this as password, Err: %w", err))
	}

	user, err := s.storage.User().CreateUser(ctx, name, username, hash)
	if err != nil {
		return models.PublicUser{}, translate(err)
	}

	s.logger.Info("User created", "user_id", user.ID)
	return user.Public(), nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (models.PublicUser, error) {
	user, err := s.storage.User().GetUserByID(ctx, id)
	if err != nil {
		return models.PublicUser{}, translate(err)
	}

	return user.Public(), nil
}

func (s *Service) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.storage.User().ListUsers(ctx)
	if err != nil {
		return nil, translate(err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	return public, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, update models.UserUpdate) (models.PublicUser, error) {
	changes := repository.UserChanges{Name: update.Name, Username: update.Username}

	if update.Password != nil {
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return models.PublicUser{}, apperrors.Internal(fmt.Errorf("can't use this as password, Err: %w", err))
		}
		changes.HashedPassword = &hash
	}

	user, err := s.storage.User().UpdateUser(ctx, id, changes)
	if err != nil {
		return models.PublicUser{}, translate(err)
	}

	return user.Public(), nil
}

// Delete removes user and returns it as it was before removal
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (models.PublicUser, error) {
	var deleted models.User

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err := storage.User().GetUserByID(ctx, id)
		if err != nil {
			return err
		}

		deleted = user
		return storage.User().DeleteUser(ctx, id)
	})
	if err != nil {
		return models.PublicUser{}, translate(err)
	}

	s.logger.Info("User deleted", "user_id", id)
	return deleted.Public(), nil
}

// ValidateLogin checks username and password
// Unknown username and wrong password are the same apperrors.ErrUnauthorized
func (s *Service) ValidateLogin(ctx context.Context, username string, password string) (models.PublicUser, error) {
	user, err := s.storage.User().GetUserByUsername(ctx, username)

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrUserNotFound):
		_ = s.hasher.Compare(s.dummy(), password)
		return models.PublicUser{}, apperrors.Unauthorized("Invalid credentials")
	default:
		return models.PublicUser{}, translate(err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.PublicUser{}, apperrors.Unauthorized("Invalid credentials")
	}

	return user.Public(), nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

// Translate storage errors to the ones allowed to leave the service
func translate(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return apperrors.NotFound("User not found").WithCause(err)
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		return apperrors.Conflict("User already exists").WithCause(err)
	default:
		return apperrors.Internal(err)
	}
}
