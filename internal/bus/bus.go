package bus

import (
	"context"
	"encoding/json"
	"errors"
)

const replySuffix = ".reply"

var ErrClosed = errors.New("bus is closed")

// Envelope travels over the bus both as request and as reply
type Envelope struct {
	CorrelationID string          `json:"correlationId"`
	Topic         string          `json:"topic"`
	ReplyTo       string          `json:"replyTo,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Error         *ReplyError     `json:"error,omitempty"`
}

// Error reply of the remote handler
type ReplyError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ReplyTopic returns the topic replies to requests on topic are published to
func ReplyTopic(topic string) string {
	return topic + replySuffix
}

// Handler is called for every message received by subscription
// Handlers may be called concurrently
type Handler func(ctx context.Context, env Envelope)

type Subscription interface {
	Close() error
}

// Transport carries requests over queues and replies over broadcast topics
// Delivery is fire and forget: no error means the bus accepted the message
type Transport interface {
	// Publish envelope to every subscriber of the topic
	Publish(ctx context.Context, topic string, env Envelope) error

	// Subscribe for messages published on topics
	// Subscription is active when method returns
	Subscribe(ctx context.Context, topics []string, h Handler) (Subscription, error)

	// Send envelope to the queue of the topic
	Send(ctx context.Context, topic string, env Envelope) error

	// Consume messages sent to topics
	// Consumers of a topic compete: every message is handled by one of them only
	// Consumer is active when method returns
	Consume(ctx context.Context, topics []string, h Handler) (Subscription, error)
}

// Conn is transport owning its connection to the bus
type Conn interface {
	Transport
	Close() error
}
