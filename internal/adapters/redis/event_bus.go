package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/convenios-ui/internal/domain/auth"
	"github.com/target/convenios-ui/internal/ports"
)

var _ ports.EventBus = (*EventBus)(nil)

// EventBus fans provider events out over a Redis pub/sub channel.
// One Redis subscription per process feeds every local subscriber; Run owns it.
type EventBus struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger

	mu      sync.RWMutex
	subs    map[int]func(domainauth.ProviderEvent)
	nextSub int

	readyOnce sync.Once
	ready     chan struct{}
}

// EventBusOptions groups configuration for NewEventBus.
type EventBusOptions struct {
	Channel string
	Logger  *slog.Logger
}

// NewEventBus creates an event bus on the given channel.
func NewEventBus(client redis.UniversalClient, opts EventBusOptions) *EventBus {
	if opts.Channel == "" {
		opts.Channel = defaultKeyPrefix + "auth_events"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &EventBus{
		client:  client,
		channel: opts.Channel,
		logger:  opts.Logger,
		subs:    make(map[int]func(domainauth.ProviderEvent)),
		ready:   make(chan struct{}),
	}
}

// Publish sends ev to every process subscribed to the channel.
func (b *EventBus) Publish(ctx context.Context, ev domainauth.ProviderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe registers fn for events received by Run. The returned func removes it.
func (b *EventBus) Subscribe(_ context.Context, fn func(domainauth.ProviderEvent)) (func(), error) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}, nil
}

// Ready is closed once the first Redis subscription is confirmed.
func (b *EventBus) Ready() <-chan struct{} {
	return b.ready
}

// Run receives events until ctx is done, resubscribing when the channel drops.
func (b *EventBus) Run(ctx context.Context) error {
	for {
		if err := b.receive(ctx); err != nil {
			b.logger.WarnContext(ctx, "auth event subscription lost, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (b *EventBus) receive(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.DebugContext(ctx, "close pubsub", "error", err)
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("confirm subscription: %w", err)
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("pubsub channel %s closed", b.channel)
			}
			var ev domainauth.ProviderEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.logger.WarnContext(ctx, "unable to parse auth event", "error", err)
				continue
			}
			b.dispatch(ev)
		}
	}
}

func (b *EventBus) dispatch(ev domainauth.ProviderEvent) {
	b.mu.RLock()
	fns := make([]func(domainauth.ProviderEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
