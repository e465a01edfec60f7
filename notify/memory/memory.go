// Package memory provides an in-process Broadcaster built on channels. It is
// suitable for single-node servers and tests; state never leaves the process.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/VoiSmart/hermes-mcp/notify"
)

// Broadcaster implements notify.Broadcaster with per-channel subscriber sets.
type Broadcaster struct {
	mu       sync.RWMutex
	channels map[string]map[*subscription]struct{}
	closed   bool
}

// New returns an empty in-memory broadcaster.
func New() *Broadcaster {
	return &Broadcaster{channels: make(map[string]map[*subscription]struct{})}
}

type subscription struct {
	owner   *Broadcaster
	channel string
	ch      chan struct{}
	once    sync.Once
}

func (s *subscription) Events() <-chan struct{} { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.owner.mu.Lock()
		if subs, ok := s.owner.channels[s.channel]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.owner.channels, s.channel)
			}
		}
		s.owner.mu.Unlock()
		close(s.ch)
	})
	return nil
}

// Publish implements notify.Broadcaster. Sends are non-blocking: a subscriber
// that has not drained its previous event coalesces with this one.
func (b *Broadcaster) Publish(ctx context.Context, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.New("notify: broadcaster closed")
	}
	for s := range b.channels[channel] {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe implements notify.Broadcaster.
func (b *Broadcaster) Subscribe(ctx context.Context, channel string) (notify.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("notify: broadcaster closed")
	}
	s := &subscription{owner: b, channel: channel, ch: make(chan struct{}, 1)}
	if b.channels[channel] == nil {
		b.channels[channel] = make(map[*subscription]struct{})
	}
	b.channels[channel][s] = struct{}{}
	return s, nil
}

// Close ends every subscription and rejects further use.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscription
	for _, subs := range b.channels {
		for s := range subs {
			all = append(all, s)
		}
	}
	b.channels = make(map[string]map[*subscription]struct{})
	b.mu.Unlock()

	for _, s := range all {
		s.once.Do(func() { close(s.ch) })
	}
	return nil
}
