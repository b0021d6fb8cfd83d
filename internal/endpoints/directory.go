package endpoints

import (
	"context"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/rpc"
	"github.com/nkiryanov/passgate/internal/topics"
)

type Directory interface {
	Create(ctx context.Context, name string, username string, password string) (models.PublicUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.PublicUser, error)
	FindAll(ctx context.Context) ([]models.PublicUser, error)
	Update(ctx context.Context, id uuid.UUID, update models.UserUpdate) (models.PublicUser, error)
	Delete(ctx context.Context, id uuid.UUID) (models.PublicUser, error)
	ValidateLogin(ctx context.Context, username string, password string) (models.PublicUser, error)
}

// RegisterDirectory serves user directory topics
func RegisterDirectory(s *rpc.Server, dir Directory) {
	s.Handle(topics.UserCreate, rpc.Typed(func(ctx context.Context, req messages.CreateUserRequest) (any, error) {
		return dir.Create(ctx, req.Name, req.Username, req.Password)
	}))

	s.Handle(topics.UserFindAll, rpc.Typed(func(ctx context.Context, _ messages.FindAllRequest) (any, error) {
		return dir.FindAll(ctx)
	}))

	s.Handle(topics.UserFindOne, rpc.Typed(func(ctx context.Context, req messages.UserIDRequest) (any, error) {
		id, err := parseID(req.ID)
		if err != nil {
			return nil, err
		}
		return dir.FindByID(ctx, id)
	}))

	s.Handle(topics.UserUpdate, rpc.Typed(func(ctx context.Context, req messages.UpdateUserRequest) (any, error) {
		id, err := parseID(req.ID)
		if err != nil {
			return nil, err
		}
		return dir.Update(ctx, id, models.UserUpdate{Name: req.Name, Username: req.Username, Password: req.Password})
	}))

	s.Handle(topics.UserDelete, rpc.Typed(func(ctx context.Context, req messages.UserIDRequest) (any, error) {
		id, err := parseID(req.ID)
		if err != nil {
			return nil, err
		}
		return dir.Delete(ctx, id)
	}))

	s.Handle(topics.UserValidateLogin, rpc.Typed(func(ctx context.Context, req messages.ValidateLoginRequest) (any, error) {
		return dir.ValidateLogin(ctx, req.Username, req.Password)
	}))
}

func parseID(value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("Request validation failed: id: Value must be UUID").WithCause(err)
	}
	return id, nil
}
