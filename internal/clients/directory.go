package clients

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/bridge"
	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/topics"
)

// Directory is the user directory served by usersvc
// Replies of topics.AuthDirectory have to be subscribed by the caller
type Directory struct {
	caller  bridge.Caller
	timeout time.Duration
}

// Zero timeout means the bridge default
func NewDirectory(caller bridge.Caller, timeout time.Duration) *Directory {
	return &Directory{caller: caller, timeout: timeout}
}

func (d *Directory) Create(ctx context.Context, name string, username string, password string) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, d.caller, topics.UserCreate, messages.CreateUserRequest{
		Name:     name,
		Username: username,
		Password: password,
	}, d.timeout)
}

func (d *Directory) FindByID(ctx context.Context, id uuid.UUID) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, d.caller, topics.UserFindOne, messages.UserIDRequest{ID: id.String()}, d.timeout)
}

func (d *Directory) ValidateLogin(ctx context.Context, username string, password string) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, d.caller, topics.UserValidateLogin, messages.ValidateLoginRequest{
		Username: username,
		Password: password,
	}, d.timeout)
}
