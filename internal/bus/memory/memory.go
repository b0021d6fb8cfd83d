// Package memory is in-process bus transport
// Used to run all services in one process and in tests
package memory

import (
	"context"
	"sync"

	"github.com/nkiryanov/passgate/internal/bus"
)

type subscription struct {
	bus     *Bus
	queue   bool
	topics  []string
	handler bus.Handler

	ctx    context.Context
	cancel context.CancelFunc
}

func (s *subscription) Close() error {
	s.bus.unsubscribe(s)
	return nil
}

type Bus struct {
	mu        sync.Mutex
	subs      map[string][]*subscription
	consumers map[string][]*subscription
	next      map[string]int
	down      bool
	closed    bool

	wg sync.WaitGroup
}

func New() *Bus {
	return &Bus{
		subs:      make(map[string][]*subscription),
		consumers: make(map[string][]*subscription),
		next:      make(map[string]int),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, env bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.down {
		return bus.ErrClosed
	}

	// Nobody listens: message is lost like on a real bus
	for _, s := range b.subs[topic] {
		b.deliver(s, env)
	}

	return nil
}

// Send hands envelope to consumers of the topic in turn
func (b *Bus) Send(ctx context.Context, topic string, env bus.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.down {
		return bus.ErrClosed
	}

	consumers := b.consumers[topic]
	if len(consumers) == 0 {
		return nil
	}

	i := b.next[topic] % len(consumers)
	b.next[topic] = i + 1
	b.deliver(consumers[i], env)

	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topics []string, h bus.Handler) (bus.Subscription, error) {
	return b.add(ctx, false, topics, h)
}

func (b *Bus) Consume(ctx context.Context, topics []string, h bus.Handler) (bus.Subscription, error) {
	return b.add(ctx, true, topics, h)
}

// SetDown makes publishing fail until called with false
// Existing subscriptions are kept
func (b *Bus) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// Close drops all subscriptions and waits for handlers in flight
func (b *Bus) Close() error {
	b.mu.Lock()
	b.closed = true
	for _, registry := range []map[string][]*subscription{b.subs, b.consumers} {
		for topic, subs := range registry {
			for _, s := range subs {
				s.cancel()
			}
			delete(registry, topic)
		}
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Has to be called with mu held
func (b *Bus) deliver(s *subscription, env bus.Envelope) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		s.handler(s.ctx, env)
	}()
}

func (b *Bus) add(ctx context.Context, queue bool, topics []string, h bus.Handler) (bus.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.down {
		return nil, bus.ErrClosed
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		bus:     b,
		queue:   queue,
		topics:  append([]string(nil), topics...),
		handler: h,
		ctx:     subCtx,
		cancel:  cancel,
	}

	registry := b.registry(queue)
	for _, topic := range topics {
		registry[topic] = append(registry[topic], s)
	}

	return s, nil
}

func (b *Bus) registry(queue bool) map[string][]*subscription {
	if queue {
		return b.consumers
	}
	return b.subs
}

func (b *Bus) unsubscribe(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s.cancel()
	registry := b.registry(s.queue)
	for _, topic := range s.topics {
		subs := registry[topic]
		for i, other := range subs {
			if other == s {
				registry[topic] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}
