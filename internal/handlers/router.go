package handlers

import (
	"context"
	"net/http"

	"github.com/nkiryanov/passgate/internal/guard"
	"github.com/nkiryanov/passgate/internal/handlers/middleware"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/messages"
	"github.com/nkiryanov/passgate/internal/models"
)

// Routes is the policy table of the gateway
// Routes not listed here are protected
var Routes = guard.Routes{
	"POST /auth/register":      guard.Public,
	"POST /auth/login":         guard.Public,
	"GET /auth/refresh-token":  guard.Public,
	"POST /auth/refresh-token": guard.Public,
	"POST /auth/logout":        guard.Public,
	"GET /healthz":             guard.Public,
	"GET /metrics":             guard.Public,

	"GET /auth/profile": guard.Protected,
	"POST /user/create": guard.Protected,
	"GET /user/all":     guard.Protected,
	"GET /user/{id}":    guard.Protected,
	"PUT /user/{id}":    guard.Protected,
	"DELETE /user/{id}": guard.Protected,
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type RouterConfig struct {
	Cookies Cookies

	// Served on /metrics if set
	Metrics http.Handler

	// Middlewares applied to every request before routing
	Middlewares []func(http.Handler) http.Handler
}

func NewRouter(
	cfg RouterConfig,
	sessions sessionService,
	users userService,
	accessGuard *guard.Guard,
	logger logger.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Every route goes through the guard with its policy from the table
	handle := func(pattern string, h http.Handler) {
		policy := Routes.Policy(pattern)
		mux.Handle(pattern, middleware.GuardMiddleware(accessGuard, policy, cfg.Cookies.AccessName)(h))
	}

	handle("POST /auth/register", handleRegister(sessions, logger))
	handle("POST /auth/login", handleLogin(sessions, cfg.Cookies, logger))
	handle("GET /auth/refresh-token", handleRefreshToken(sessions, cfg.Cookies, logger))
	handle("POST /auth/refresh-token", handleRefreshToken(sessions, cfg.Cookies, logger))
	handle("POST /auth/logout", handleLogout(cfg.Cookies))
	handle("GET /auth/profile", handleProfile(users, cfg.Cookies, logger))

	handle("POST /user/create", handleCreateUser(users, logger))
	handle("GET /user/all", handleListUsers(users, logger))
	handle("GET /user/{id}", handleGetUser(users, logger))
	handle("PUT /user/{id}", handleUpdateUser(users, logger))
	handle("DELETE /user/{id}", handleDeleteUser(users, logger))

	handle("GET /healthz", handleHealth())
	if cfg.Metrics != nil {
		handle("GET /metrics", cfg.Metrics)
	}

	mds := append([]func(http.Handler) http.Handler{middleware.LoggerMiddleware(logger)}, cfg.Middlewares...)
	return chain(mux, mds...)
}

type sessionService interface {
	// Register user, tokens are not issued
	Register(ctx context.Context, req messages.RegisterRequest) (models.PublicUser, error)

	// Login with username and password
	// Has to return apperrors.ErrUnauthorized if credentials are invalid
	Login(ctx context.Context, req messages.LoginRequest) (models.TokenPair, error)

	// Exchange refresh token for a new pair
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

type userService interface {
	Create(ctx context.Context, req messages.CreateUserRequest) (models.PublicUser, error)
	FindAll(ctx context.Context) ([]models.PublicUser, error)
	FindOne(ctx context.Context, id string) (models.PublicUser, error)
	Update(ctx context.Context, req messages.UpdateUserRequest) (models.PublicUser, error)
	Delete(ctx context.Context, id string) (models.PublicUser, error)
}
