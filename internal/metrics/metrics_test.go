package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/logger"
)

func scrape(t *testing.T, url string) string {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}

func TestServer(t *testing.T) {
	t.Run("serve registry", func(t *testing.T) {
		reg := NewRegistry()
		handled := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_handled_total", Help: "Handled"})
		reg.MustRegister(handled)
		handled.Add(3)

		ctx, cancel := context.WithCancel(t.Context())
		s := NewServer("127.0.0.1:0", reg, logger.NewNoOpLogger())
		stopped, err := s.Serve(ctx)
		require.NoError(t, err)

		body := scrape(t, "http://"+s.Addr()+"/metrics")
		require.Contains(t, body, "test_handled_total 3")
		require.Contains(t, body, "go_goroutines", "runtime collector is registered")

		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("server should stop when context is done")
		}

		_, err = http.Get("http://" + s.Addr() + "/metrics")
		require.Error(t, err, "stopped server does not accept connections")
	})

	t.Run("address in use", func(t *testing.T) {
		first := NewServer("127.0.0.1:0", NewRegistry(), logger.NewNoOpLogger())
		_, err := first.Serve(t.Context())
		require.NoError(t, err)

		second := NewServer(first.Addr(), NewRegistry(), logger.NewNoOpLogger())
		_, err = second.Serve(t.Context())
		require.Error(t, err)
	})
}
