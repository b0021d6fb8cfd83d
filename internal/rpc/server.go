package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/logger"
)

const defaultCountWorkers = 10

// HandlerFunc handles request payload and returns value sent back as reply payload
// Errors are sent back as {status, message} of apperrors.As(err)
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Server answers requests received over the bus
type Server struct {
	transport    bus.Transport
	logger       logger.Logger
	countWorkers int
	handled      *prometheus.CounterVec
	inFlight     prometheus.Gauge

	handlers map[string]HandlerFunc
}

type Option func(*Server)

func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.countWorkers = n
		}
	}
}

// WithMetrics counts handled requests by topic and reply status
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Server) {
		s.handled = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rpc_handled_total",
				Help: "Total number of handled bus requests by topic and reply status",
			},
			[]string{"topic", "status"},
		)
		s.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpc_requests_in_flight",
			Help: "Number of bus requests being handled",
		})
		reg.MustRegister(s.handled, s.inFlight)
	}
}

func NewServer(t bus.Transport, l logger.Logger, opts ...Option) *Server {
	s := &Server{
		transport:    t,
		logger:       l.With("component", "rpc"),
		countWorkers: defaultCountWorkers,
		handlers:     make(map[string]HandlerFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handle registers handler for topic; has to be called before Serve
func (s *Server) Handle(topic string, h HandlerFunc) {
	s.handlers[topic] = h
}

// Serve consumes all registered topics and handles requests until ctx is done
// Servers of the same topics share requests, each request is handled once
// Returned channel is closed when all workers stopped
func (s *Server) Serve(ctx context.Context) (<-chan struct{}, error) {
	if len(s.handlers) == 0 {
		return nil, errors.New("no handlers registered")
	}

	topics := make([]string, 0, len(s.handlers))
	for topic := range s.handlers {
		topics = append(topics, topic)
	}

	in := make(chan bus.Envelope)
	sub, err := s.transport.Consume(ctx, topics, func(_ context.Context, env bus.Envelope) {
		select {
		case in <- env:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("rpc subscribe error: %w", err)
	}
	s.logger.Info("RPC server started", "topics", topics, "workers", s.countWorkers)

	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < s.countWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		if err := sub.Close(); err != nil {
			s.logger.Warn("RPC subscription close error", "error", err)
		}
		s.logger.Debug("RPC server stopped")
	}()

	return idleStopped, nil
}

func (s *Server) worker(ctx context.Context, in <-chan bus.Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-in:
			s.dispatch(ctx, env)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, env bus.Envelope) {
	reply := bus.Envelope{CorrelationID: env.CorrelationID, Topic: env.Topic}

	if s.inFlight != nil {
		s.inFlight.Inc()
		defer s.inFlight.Dec()
	}

	result, err := s.call(ctx, env)
	if err == nil {
		reply.Payload, err = json.Marshal(result)
	}

	status := "ok"
	if err != nil {
		appErr := apperrors.As(err)
		if appErr.Kind == apperrors.KindInternal {
			s.logger.Error("Request handling failed", "topic", env.Topic, "correlation_id", env.CorrelationID, "error", err)
		}

		reply.Payload = nil
		reply.Error = &bus.ReplyError{Status: appErr.Status, Message: appErr.Message}
		status = fmt.Sprint(appErr.Status)
	}

	if s.handled != nil {
		s.handled.WithLabelValues(env.Topic, status).Inc()
	}
	s.logger.Debug("Request handled", "topic", env.Topic, "correlation_id", env.CorrelationID, "status", status)

	// Nobody waits for reply
	if env.ReplyTo == "" {
		return
	}

	if err := s.transport.Publish(ctx, env.ReplyTo, reply); err != nil {
		s.logger.Warn("Reply publish failed", "topic", env.Topic, "correlation_id", env.CorrelationID, "error", err)
	}
}

func (s *Server) call(ctx context.Context, env bus.Envelope) (result any, err error) {
	h, ok := s.handlers[env.Topic]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("No handler for topic %q", env.Topic))
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Internal(fmt.Errorf("handler panic: %v", r))
		}
	}()

	return h(ctx, env.Payload)
}
