// Package e2e runs the gateway, the auth service and the user service in one process
// connected by in-memory bus, so tests may talk to the gateway over HTTP
package e2e

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/passgate/internal/bus/memory"
	"github.com/nkiryanov/passgate/internal/clients"
	"github.com/nkiryanov/passgate/internal/endpoints"
	"github.com/nkiryanov/passgate/internal/guard"
	"github.com/nkiryanov/passgate/internal/handlers"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/repository/postgres"
	"github.com/nkiryanov/passgate/internal/rpc"
	"github.com/nkiryanov/passgate/internal/service/directory"
	"github.com/nkiryanov/passgate/internal/service/session"
	"github.com/nkiryanov/passgate/internal/testutil"
	"github.com/nkiryanov/passgate/internal/tokencodec"
	"github.com/nkiryanov/passgate/internal/topics"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 24 * time.Hour
)

// Clock tokens are signed and verified with
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type Options struct {
	// Accept every refresh token once
	ReuseDetection bool
}

type Env struct {
	// Gateway url
	URL string

	// Client keeping cookies between requests
	Client *http.Client

	Bus   *memory.Bus
	Clock *Clock
}

// NewClient with own cookie jar, so every client is separate browser
func (e Env) NewClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &http.Client{Jar: jar}
}

// Create db transaction and run all services with that connection (one connection cause one transaction)
// So the database remains unchanged when test stops
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, opts Options, fn func(env Env)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		l := logger.NewNoOpLogger()
		b := testutil.NewBus(t)
		clock := &Clock{now: time.Now()}
		storage := postgres.NewStorage(tx)

		// User service; one worker, the transaction can't be shared
		users := directory.NewService(directory.BcryptHasher{Cost: bcrypt.MinCost}, storage, l)
		usersvc := rpc.NewServer(b, l, rpc.WithWorkers(1))
		endpoints.RegisterDirectory(usersvc, users)
		testutil.Serve(t, usersvc)

		// Auth service calls user service as its directory
		codec, err := tokencodec.New(tokencodec.Config{SecretKey: "test-secret"}, tokencodec.WithClock(clock.Now))
		require.NoError(t, err, "token codec should be created without errors")

		var sessionOpts []session.Option
		if opts.ReuseDetection {
			sessionOpts = append(sessionOpts, session.WithReuseDetection(storage.Ledger()))
		}

		authBridge := testutil.Connect(t, b, topics.AuthDirectory...)
		sessions, err := session.NewService(
			session.Config{AccessTTL: AccessTTL, RefreshTTL: RefreshTTL},
			codec,
			clients.NewDirectory(authBridge, time.Second),
			l,
			sessionOpts...,
		)
		require.NoError(t, err, "session service starting error")

		authsvc := rpc.NewServer(b, l, rpc.WithWorkers(4))
		endpoints.RegisterSession(authsvc, sessions)
		testutil.Serve(t, authsvc)

		// Gateway
		gatewayBridge := testutil.Connect(t, b, topics.Gateway...)
		sessionClient := clients.NewSession(gatewayBridge, time.Second)

		router := handlers.NewRouter(
			handlers.RouterConfig{Cookies: handlers.NewCookies("", "", false)},
			sessionClient,
			clients.NewUsers(gatewayBridge, time.Second),
			guard.New(sessionClient, l),
			l,
		)

		srv := httptest.NewServer(router)
		defer srv.Close()

		env := Env{URL: srv.URL, Bus: b, Clock: clock}
		env.Client = env.NewClient(t)

		fn(env)
	})
}
