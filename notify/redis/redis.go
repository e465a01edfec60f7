// Package redis provides a notify.Broadcaster on Redis pub/sub for
// horizontally scaled deployments. Every broadcaster instance carries a
// unique identity and filters out its own publications, so a node that
// reloads its schema directory wakes the other nodes without re-waking
// itself.
package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/VoiSmart/hermes-mcp/notify"
)

// Config contains configuration options for the Redis broadcaster.
type Config struct {
	// Client is the Redis client to use. If nil, a default localhost client
	// is created.
	Client redis.UniversalClient
	// KeyPrefix is prepended to all pub/sub channel names. Defaults to
	// "hermes:notify:" if empty.
	KeyPrefix string
}

// Broadcaster implements notify.Broadcaster over Redis pub/sub.
type Broadcaster struct {
	client     redis.UniversalClient
	keyPrefix  string
	instanceID string
}

// New creates a Redis-backed broadcaster.
func New(config Config) *Broadcaster {
	client := config.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	}
	keyPrefix := config.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "hermes:notify:"
	}
	return &Broadcaster{
		client:     client,
		keyPrefix:  keyPrefix,
		instanceID: uuid.NewString(),
	}
}

// Close closes the underlying Redis connection.
func (b *Broadcaster) Close() error { return b.client.Close() }

// Publish implements notify.Broadcaster. The payload is this instance's
// identity so subscribers on the same instance can drop the echo.
func (b *Broadcaster) Publish(ctx context.Context, channel string) error {
	if err := b.client.Publish(ctx, b.channelKey(channel), b.instanceID).Err(); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe implements notify.Broadcaster.
func (b *Broadcaster) Subscribe(ctx context.Context, channel string) (notify.Subscription, error) {
	ps := b.client.Subscribe(ctx, b.channelKey(channel))
	// Force the subscription onto the wire before returning so published
	// events from this point on are observed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("notify: subscribe to %s: %w", channel, err)
	}

	s := &subscription{ps: ps, events: make(chan struct{}, 1)}
	go s.pump(b.instanceID)
	return s, nil
}

func (b *Broadcaster) channelKey(channel string) string {
	return b.keyPrefix + channel
}

type subscription struct {
	ps     *redis.PubSub
	events chan struct{}
}

func (s *subscription) Events() <-chan struct{} { return s.events }

func (s *subscription) Close() error {
	return s.ps.Close()
}

// pump converts pub/sub messages into coalesced wake-ups, dropping this
// instance's own publications.
func (s *subscription) pump(selfID string) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		if msg.Payload == selfID {
			continue
		}
		select {
		case s.events <- struct{}{}:
		default:
		}
	}
}
