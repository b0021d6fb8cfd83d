// Package metrics exposes prometheus registry of a service over http
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nkiryanov/passgate/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// NewRegistry with go runtime and process collectors registered
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves registry in prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Server serves GET /metrics on its own address
// Used by services that have no http surface otherwise
type Server struct {
	addr   string
	reg    *prometheus.Registry
	logger logger.Logger

	ln net.Listener
}

func NewServer(addr string, reg *prometheus.Registry, l logger.Logger) *Server {
	return &Server{
		addr:   addr,
		reg:    reg,
		logger: l.With("component", "metrics"),
	}
}

// Addr the server listens on, known after Serve
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Serve listens on the address and serves until ctx is done
// Returned channel is closed when server stopped
func (s *Server) Serve(ctx context.Context) (<-chan struct{}, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen error: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(s.reg))
	httpServer := &http.Server{Handler: mux}

	stopped := make(chan struct{})
	served := make(chan struct{})

	go func() {
		defer close(served)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", "error", err)
		}
	}()

	go func() {
		defer close(stopped)
		<-ctx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("Metrics server shutdown timeout exceeded, forcing shutdown...")
		}
		<-served
		s.logger.Debug("Metrics server stopped")
	}()

	s.logger.Info("Serving metrics", "address", s.Addr())
	return stopped, nil
}
