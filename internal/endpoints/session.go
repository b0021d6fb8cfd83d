package endpoints

import (
	"context"

	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/rpc"
	"github.com/nkiryanov/passgate/internal/topics"
)

type Session interface {
	Register(ctx context.Context, name string, username string, password string) (models.PublicUser, error)
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	ValidateToken(ctx context.Context, accessToken string) bool
}

// RegisterSession serves session topics
func RegisterSession(s *rpc.Server, session Session) {
	s.Handle(topics.AuthRegister, rpc.Typed(func(ctx context.Context, req messages.RegisterRequest) (any, error) {
		return session.Register(ctx, req.Name, req.Username, req.Password)
	}))

	s.Handle(topics.AuthLogin, rpc.Typed(func(ctx context.Context, req messages.LoginRequest) (any, error) {
		return session.Login(ctx, req.Username, req.Password)
	}))

	s.Handle(topics.AuthRefreshToken, rpc.Typed(func(ctx context.Context, req messages.RefreshTokenRequest) (any, error) {
		return session.Refresh(ctx, req.RefreshToken)
	}))

	s.Handle(topics.ValidateToken, rpc.Typed(func(ctx context.Context, req messages.ValidateTokenRequest) (any, error) {
		return session.ValidateToken(ctx, req.Token), nil
	}))
}
