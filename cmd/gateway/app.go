package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/passgate/internal/bridge"
	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/clients"
	"github.com/nkiryanov/passgate/internal/guard"
	"github.com/nkiryanov/passgate/internal/handlers"
	"github.com/nkiryanov/passgate/internal/handlers/middleware"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/metrics"
	"github.com/nkiryanov/passgate/internal/topics"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	bridge *bridge.Client
	bus    bus.Conn
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := c.Logger()
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the bus
	conn, err := c.OpenBus(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to bus. Err: %w", err)
	}

	reg := metrics.NewRegistry()

	// Bridge to auth and user services
	client := bridge.New(conn, logger, bridge.WithTimeout(c.RPCTimeout), bridge.WithMetrics(bridge.NewMetrics(reg)))
	if err := client.SubscribeToResponseOf(topics.Gateway...); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error while connecting bridge. Err: %w", err)
	}

	sessions := clients.NewSession(client, c.RPCTimeout)
	users := clients.NewUsers(client, c.RPCTimeout)

	router := handlers.NewRouter(
		handlers.RouterConfig{
			Cookies:     handlers.NewCookies(c.AccessCookieName, c.RefreshCookieName, c.CookieSecure),
			Metrics:     metrics.Handler(reg),
			Middlewares: []func(http.Handler) http.Handler{middleware.MetricsMiddleware(reg)},
		},
		sessions,
		users,
		guard.New(sessions, logger),
		logger,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     logger,
		bridge:     client,
		bus:        conn,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	// Nobody sends requests over the bridge anymore
	if closeErr := s.bridge.Close(); closeErr != nil {
		s.logger.Warn("Bridge close error", "error", closeErr)
	}
	if closeErr := s.bus.Close(); closeErr != nil {
		s.logger.Warn("Bus close error", "error", closeErr)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
