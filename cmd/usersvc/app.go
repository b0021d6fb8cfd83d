package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/db"
	"github.com/nkiryanov/passgate/internal/endpoints"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/metrics"
	"github.com/nkiryanov/passgate/internal/repository/postgres"
	"github.com/nkiryanov/passgate/internal/rpc"
	"github.com/nkiryanov/passgate/internal/service/directory"
)

type ServiceApp struct {
	server  *rpc.Server
	metrics *metrics.Server // nil if disabled

	logger logger.Logger
	bus    bus.Conn
	pool   *pgxpool.Pool
}

func NewServiceApp(ctx context.Context, c *Config) (*ServiceApp, error) {
	// Initialize logger
	logger, err := c.Logger()
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN, c.Workers)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	conn, err := c.OpenBus(ctx, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while connecting to bus. Err: %w", err)
	}

	// Initialize repositories and services
	storage := postgres.NewStorage(pool)
	users := directory.NewService(directory.BcryptHasher{Cost: c.HashCost}, storage, logger)

	reg := metrics.NewRegistry()
	server := rpc.NewServer(conn, logger, rpc.WithWorkers(c.Workers), rpc.WithMetrics(reg))
	endpoints.RegisterDirectory(server, users)

	app := &ServiceApp{
		server: server,
		logger: logger,
		bus:    conn,
		pool:   pool,
	}
	if c.MetricsAddr != "" {
		app.metrics = metrics.NewServer(c.MetricsAddr, reg, logger)
	}

	return app, nil
}

// Run handles requests until context is cancelled
func (a *ServiceApp) Run(ctx context.Context) error {
	defer a.pool.Close()
	defer func() {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("Bus close error", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metricsStopped := closedChan()
	if a.metrics != nil {
		var err error
		if metricsStopped, err = a.metrics.Serve(ctx); err != nil {
			return err
		}
	}

	stopped, err := a.server.Serve(ctx)
	if err != nil {
		return err
	}
	<-stopped
	<-metricsStopped

	a.logger.Info("User service stopped")
	return nil
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
