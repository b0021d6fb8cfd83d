// Package redisbus is bus transport over redis
// Broadcast topics are pub/sub channels, queues are streams read by a consumer group
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/passgate/internal/bus"
	"github.com/nkiryanov/passgate/internal/logger"
)

const (
	consumerGroup = "consumers"
	envelopeField = "envelope"

	// Oldest entries are trimmed, requests that old have timed out anyway
	streamMaxLen = 10000
	readBlock    = 250 * time.Millisecond
	readCount    = 16
)

func streamKey(topic string) string {
	return "queue:" + topic
}

type Bus struct {
	client *redis.Client
	logger logger.Logger
}

// Connect to redis by url like 'redis://localhost:6379/0' and check it answers
func Connect(ctx context.Context, url string, l logger.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url. Err: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis is not reachable. Err: %w", err)
	}

	return New(client, l), nil
}

func New(client *redis.Client, l logger.Logger) *Bus {
	return &Bus{
		client: client,
		logger: l.With("component", "redisbus"),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, env bus.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("envelope encoding error: %w", err)
	}

	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}

	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topics []string, h bus.Handler) (bus.Subscription, error) {
	ps := b.client.Subscribe(ctx, topics...)

	// Wait for confirmation, so subscription is active when we return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe error: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		ps:      ps,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(s.stopped)

		for msg := range ps.Channel() {
			var env bus.Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("Dropped message that is not an envelope", "channel", msg.Channel, "error", err)
				continue
			}
			h(subCtx, env)
		}
	}()

	return s, nil
}

// Send appends envelope to the topic stream
func (b *Bus) Send(ctx context.Context, topic string, env bus.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("envelope encoding error: %w", err)
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(topic),
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{envelopeField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis send error: %w", err)
	}

	return nil
}

// Consume reads topic streams as a member of the shared consumer group
// Entries are acknowledged before handling, so every entry is handled once at most
func (b *Bus) Consume(ctx context.Context, topics []string, h bus.Handler) (bus.Subscription, error) {
	streams := make([]string, 0, 2*len(topics))
	for _, topic := range topics {
		key := streamKey(topic)
		err := b.client.XGroupCreateMkStream(ctx, key, consumerGroup, "$").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("redis consumer group error: %w", err)
		}
		streams = append(streams, key)
	}
	for range topics {
		streams = append(streams, ">")
	}

	subCtx, cancel := context.WithCancel(context.Background())
	c := &consumer{
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	name := uuid.NewString()
	go func() {
		defer close(c.stopped)

		for subCtx.Err() == nil {
			res, err := b.client.XReadGroup(subCtx, &redis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: name,
				Streams:  streams,
				Count:    readCount,
				Block:    readBlock,
			}).Result()
			switch {
			case errors.Is(err, redis.Nil):
				continue
			case err != nil:
				if subCtx.Err() != nil || errors.Is(err, redis.ErrClosed) {
					return
				}
				b.logger.Warn("Redis stream read failed", "consumer", name, "error", err)
				sleep(subCtx, readBlock)
				continue
			}

			for _, stream := range res {
				for _, msg := range stream.Messages {
					b.handle(subCtx, stream.Stream, msg, h)
				}
			}
		}
	}()

	return c, nil
}

func (b *Bus) handle(ctx context.Context, stream string, msg redis.XMessage, h bus.Handler) {
	if err := b.client.XAck(ctx, stream, consumerGroup, msg.ID).Err(); err != nil {
		b.logger.Warn("Redis stream ack failed", "stream", stream, "id", msg.ID, "error", err)
	}

	raw, _ := msg.Values[envelopeField].(string)
	var env bus.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		b.logger.Warn("Dropped message that is not an envelope", "stream", stream, "id", msg.ID, "error", err)
		return
	}

	h(ctx, env)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Close the underlying redis client
func (b *Bus) Close() error {
	return b.client.Close()
}

type subscription struct {
	ps      *redis.PubSub
	cancel  context.CancelFunc
	once    sync.Once
	stopped chan struct{}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.stopped
	})
	return err
}

type consumer struct {
	cancel  context.CancelFunc
	once    sync.Once
	stopped chan struct{}
}

func (c *consumer) Close() error {
	c.once.Do(func() {
		c.cancel()
		<-c.stopped
	})
	return nil
}
