package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/passgate/internal/bridge"
	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/clients"
	"github.com/nkiryanov/passgate/internal/db"
	"github.com/nkiryanov/passgate/internal/endpoints"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/metrics"
	"github.com/nkiryanov/passgate/internal/repository/postgres"
	"github.com/nkiryanov/passgate/internal/rpc"
	"github.com/nkiryanov/passgate/internal/service/session"
	"github.com/nkiryanov/passgate/internal/tokencodec"
	"github.com/nkiryanov/passgate/internal/topics"
)

type ServiceApp struct {
	server  *rpc.Server
	janitor *session.Janitor
	metrics *metrics.Server // nil if disabled

	logger logger.Logger
	bridge *bridge.Client
	bus    bus.Conn
	pool   *pgxpool.Pool
}

func NewServiceApp(ctx context.Context, c *Config) (_ *ServiceApp, err error) {
	// Initialize logger
	logger, err := c.Logger()
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	codec, err := tokencodec.New(tokencodec.Config{SecretKey: c.SecretKey, Issuer: c.Issuer})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	if c.ReuseDetection && c.DatabaseDSN == "" {
		return nil, errors.New("reuse detection requires database to be set")
	}

	app := &ServiceApp{logger: logger}
	reg := metrics.NewRegistry()
	if c.MetricsAddr != "" {
		app.metrics = metrics.NewServer(c.MetricsAddr, reg, logger)
	}

	// Release whatever was acquired if app not initialized
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	// Connect to the bus
	app.bus, err = c.OpenBus(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to bus. Err: %w", err)
	}

	// User directory is the user service behind the bridge
	app.bridge = bridge.New(app.bus, logger, bridge.WithTimeout(c.RPCTimeout), bridge.WithMetrics(bridge.NewMetrics(reg)))
	if err = app.bridge.SubscribeToResponseOf(topics.AuthDirectory...); err != nil {
		return nil, err
	}
	if err = app.bridge.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error while connecting bridge. Err: %w", err)
	}
	directory := clients.NewDirectory(app.bridge, c.RPCTimeout)

	var opts []session.Option
	if c.ReuseDetection {
		app.pool, err = db.ConnectAndMigrate(ctx, c.DatabaseDSN, c.Workers+1) // workers and janitor
		if err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}

		ledger := postgres.NewStorage(app.pool).Ledger()
		opts = append(opts, session.WithReuseDetection(ledger))
		app.janitor = session.NewJanitor(ledger, 0, logger)
	}

	sessions, err := session.NewService(
		session.Config{AccessTTL: c.AccessTTL, RefreshTTL: c.RefreshTTL},
		codec,
		directory,
		logger,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating session service. Err: %w", err)
	}

	app.server = rpc.NewServer(app.bus, logger, rpc.WithWorkers(c.Workers), rpc.WithMetrics(reg))
	endpoints.RegisterSession(app.server, sessions)

	return app, nil
}

// Run handles requests until context is cancelled
func (a *ServiceApp) Run(ctx context.Context) error {
	defer a.close()

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

	if a.janitor != nil {
		<-a.janitor.Run(ctx)
	}
	<-stopped
	<-metricsStopped

	a.logger.Info("Auth service stopped")
	return nil
}

func (a *ServiceApp) close() {
	if a.bridge != nil {
		if err := a.bridge.Close(); err != nil {
			a.logger.Warn("Bridge close error", "error", err)
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("Bus close error", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
