package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/bridge"
	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/bus/memory"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/rpc"
)

// In-process bus closed at test end
func NewBus(t *testing.T) *memory.Bus {
	t.Helper()

	b := memory.New()
	t.Cleanup(func() { _ = b.Close() })

	return b
}

// Serve rpc server until test end
func Serve(t *testing.T, s *rpc.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	stopped, err := s.Serve(ctx)
	require.NoError(t, err, "rpc server should start")

	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

// Bridge client connected to replies of topics, closed at test end
func Connect(t *testing.T, b bus.Transport, topics ...string) *bridge.Client {
	t.Helper()

	c := bridge.New(b, logger.NewNoOpLogger(), bridge.WithTimeout(time.Second))
	require.NoError(t, c.SubscribeToResponseOf(topics...))
	require.NoError(t, c.Connect(t.Context()))
	t.Cleanup(func() { _ = c.Close() })

	return c
}
