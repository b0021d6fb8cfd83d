package clients

import (
	"context"
	"time"

	"github.com/nkiryanov/passgate/internal/bridge"
	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/topics"
)

// Session is authsvc as seen from the gateway
type Session struct {
	caller  bridge.Caller
	timeout time.Duration
}

func NewSession(caller bridge.Caller, timeout time.Duration) *Session {
	return &Session{caller: caller, timeout: timeout}
}

func (s *Session) Register(ctx context.Context, req messages.RegisterRequest) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, s.caller, topics.AuthRegister, req, s.timeout)
}

func (s *Session) Login(ctx context.Context, req messages.LoginRequest) (models.TokenPair, error) {
	return bridge.Call[models.TokenPair](ctx, s.caller, topics.AuthLogin, req, s.timeout)
}

func (s *Session) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return bridge.Call[models.TokenPair](ctx, s.caller, topics.AuthRefreshToken, messages.RefreshTokenRequest{RefreshToken: refreshToken}, s.timeout)
}

// ValidateToken asks authsvc whether access token is valid
func (s *Session) ValidateToken(ctx context.Context, token string) (bool, error) {
	return bridge.Call[bool](ctx, s.caller, topics.ValidateToken, messages.ValidateTokenRequest{Token: token}, s.timeout)
}

// Users is usersvc as seen from the gateway
type Users struct {
	caller  bridge.Caller
	timeout time.Duration
}

func NewUsers(caller bridge.Caller, timeout time.Duration) *Users {
	return &Users{caller: caller, timeout: timeout}
}

func (u *Users) Create(ctx context.Context, req messages.CreateUserRequest) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, u.caller, topics.UserCreate, req, u.timeout)
}

func (u *Users) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	return bridge.Call[[]models.PublicUser](ctx, u.caller, topics.UserFindAll, messages.FindAllRequest{}, u.timeout)
}

func (u *Users) FindOne(ctx context.Context, id string) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, u.caller, topics.UserFindOne, messages.UserIDRequest{ID: id}, u.timeout)
}

func (u *Users) Update(ctx context.Context, req messages.UpdateUserRequest) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, u.caller, topics.UserUpdate, req, u.timeout)
}

func (u *Users) Delete(ctx context.Context, id string) (models.PublicUser, error) {
	return bridge.Call[models.PublicUser](ctx, u.caller, topics.UserDelete, messages.UserIDRequest{ID: id}, u.timeout)
}
