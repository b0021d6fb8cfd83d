package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/logger"
)

const defaultTimeout = 5 * time.Second

// Outstanding call waiting for reply
type pendingCall struct {
	topic  string
	result chan result
}

type result struct {
	env bus.Envelope
	err error
}

// Client sends requests over the bus and matches replies to them
//
// Usage: SubscribeToResponseOf for every topic the client is going to call,
// then Connect, then Call. Client is safe for concurrent use.
type Client struct {
	transport bus.Transport
	logger    logger.Logger
	metrics   *Metrics
	timeout   time.Duration

	mu        sync.Mutex
	topics    map[string]struct{}
	connected bool
	sub       bus.Subscription
	pending   map[string]pendingCall
}

type Option func(*Client)

// WithTimeout sets timeout used when Call receives zero timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(t bus.Transport, l logger.Logger, opts ...Option) *Client {
	c := &Client{
		transport: t,
		logger:    l.With("component", "bridge"),
		timeout:   defaultTimeout,
		topics:    make(map[string]struct{}),
		pending:   make(map[string]pendingCall),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SubscribeToResponseOf registers interest in replies on topics
// Has to be called before Connect
func (c *Client) SubscribeToResponseOf(topics ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return errors.New("bridge already connected, subscribe before connect")
	}

	for _, topic := range topics {
		c.topics[topic] = struct{}{}
	}

	return nil
}

// Connect subscribes to reply topics of all registered topics
// Calls made before Connect fail with apperrors.ErrNotConnected
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if len(c.topics) == 0 {
		return errors.New("no topics to subscribe to, call SubscribeToResponseOf first")
	}

	replyTopics := make([]string, 0, len(c.topics))
	for topic := range c.topics {
		replyTopics = append(replyTopics, bus.ReplyTopic(topic))
	}

	sub, err := c.transport.Subscribe(ctx, replyTopics, c.onReply)
	if err != nil {
		return fmt.Errorf("bridge connect error: %w", err)
	}

	c.sub = sub
	c.connected = true
	c.logger.Info("Bridge connected", "reply_topics", replyTopics)

	return nil
}

// Close unsubscribes from replies
// Calls waiting for reply resolve with apperrors.ErrNotConnected
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}

	c.connected = false
	sub := c.sub
	c.sub = nil

	pending := c.pending
	c.pending = make(map[string]pendingCall)
	c.metrics.addPending(-float64(len(pending)))
	c.mu.Unlock()

	for _, call := range pending {
		call.result <- result{err: apperrors.Transport(apperrors.ReasonNotConnected, errors.New("bridge closed"))}
	}

	return sub.Close()
}

// Call sends payload to topic and waits for exactly one reply
// Zero timeout means the client default
func (c *Client) Call(ctx context.Context, topic string, payload any, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("payload encoding error: %w", err))
	}

	id := uuid.NewString()
	call := pendingCall{topic: topic, result: make(chan result, 1)}

	if err := c.register(id, call); err != nil {
		return nil, err
	}
	defer c.unregister(id)

	start := time.Now()
	reply, err := c.await(ctx, id, topic, data, call, timeout)

	outcome := outcomeOK
	var appErr *apperrors.Error
	switch {
	case err == nil:
	case errors.As(err, &appErr) && appErr.Kind == apperrors.KindTransport && appErr.Reason != "":
		outcome = appErr.Reason
	default:
		outcome = outcomeRemoteError
	}
	c.metrics.observe(topic, outcome, time.Since(start))

	return reply, err
}

func (c *Client) await(ctx context.Context, id string, topic string, data []byte, call pendingCall, timeout time.Duration) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Transport(apperrors.ReasonCanceled, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	err := c.transport.Send(ctx, topic, bus.Envelope{
		CorrelationID: id,
		Topic:         topic,
		ReplyTo:       bus.ReplyTopic(topic),
		Payload:       data,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Transport(apperrors.ReasonCanceled, ctx.Err())
		}
		return nil, apperrors.Transport(apperrors.ReasonUnavailable, err)
	}

	select {
	case res := <-call.result:
		if res.err != nil {
			return nil, res.err
		}
		if res.env.Error != nil {
			return nil, apperrors.FromStatus(res.env.Error.Status, res.env.Error.Message)
		}
		return res.env.Payload, nil

	case <-timer.C:
		c.logger.Warn("Call timed out", "topic", topic, "correlation_id", id, "timeout", timeout)
		return nil, apperrors.Transport(apperrors.ReasonTimeout, fmt.Errorf("no reply on %q in %s", topic, timeout))

	case <-ctx.Done():
		return nil, apperrors.Transport(apperrors.ReasonCanceled, ctx.Err())
	}
}

func (c *Client) register(id string, call pendingCall) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return apperrors.ErrNotConnected
	}

	if _, ok := c.topics[call.topic]; !ok {
		return apperrors.Transport(apperrors.ReasonNotSubscribed, fmt.Errorf("replies of %q are not subscribed", call.topic))
	}

	c.pending[id] = call
	c.metrics.addPending(1)

	return nil
}

func (c *Client) unregister(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pending[id]; ok {
		delete(c.pending, id)
		c.metrics.addPending(-1)
	}
}

// take removes the call so reply is matched once at most
func (c *Client) take(id string) (pendingCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		c.metrics.addPending(-1)
	}

	return call, ok
}

func (c *Client) onReply(ctx context.Context, env bus.Envelope) {
	call, ok := c.take(env.CorrelationID)
	if !ok {
		c.metrics.droppedReply()
		c.logger.Debug("Dropped reply without waiting call", "topic", env.Topic, "correlation_id", env.CorrelationID)
		return
	}

	if env.Topic != call.topic {
		call.result <- result{err: apperrors.Transport(
			apperrors.ReasonCorrelationMismatch,
			fmt.Errorf("reply for %q came from %q", call.topic, env.Topic),
		)}
		return
	}

	// Buffered for exactly one result, never blocks
	call.result <- result{env: env}
}
