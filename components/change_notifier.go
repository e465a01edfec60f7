package components

import (
	"context"
	"sync"

	"github.com/VoiSmart/hermes-mcp/notify"
)

// ChangeNotifier tells interested parties that a container's component set
// changed, both inside this process and — when linked to a
// notify.Broadcaster — across server instances. Containers embed it; callers
// use it to drive listChanged notifications.
//
// Delivery is pulse-based: Changed returns a channel that is closed on the
// next change, and the caller re-arms by calling Changed again once woken.
// A burst of mutations between two Changed calls therefore collapses into a
// single wake-up, the same way the schemafile watcher settles a burst of
// file events before reloading. No pulse is allocated until someone is
// actually waiting.
type ChangeNotifier struct {
	mu     sync.Mutex
	pulse  chan struct{}
	closed bool

	bc      notify.Broadcaster
	channel string
}

// Changed returns a channel that is closed when the component set next
// changes. After a wake-up, call Changed again for the following one. Once
// the notifier is closed, the returned channel is already closed.
func (cn *ChangeNotifier) Changed() <-chan struct{} {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		done := make(chan struct{})
		close(done)
		return done
	}
	if cn.pulse == nil {
		cn.pulse = make(chan struct{})
	}
	return cn.pulse
}

// changed records a local mutation: it wakes local waiters and forwards the
// event to the linked broadcaster, if any.
func (cn *ChangeNotifier) changed() {
	cn.mu.Lock()
	cn.fireLocked()
	bc, channel := cn.bc, cn.channel
	cn.mu.Unlock()
	if bc != nil {
		go func() { _ = bc.Publish(context.Background(), channel) }()
	}
}

// wake wakes local waiters without publishing. Remote events arrive through
// this path, so an instance never re-broadcasts what it just received.
func (cn *ChangeNotifier) wake() {
	cn.mu.Lock()
	cn.fireLocked()
	cn.mu.Unlock()
}

func (cn *ChangeNotifier) fireLocked() {
	if cn.closed || cn.pulse == nil {
		return
	}
	close(cn.pulse)
	cn.pulse = nil
}

// Close wakes any current waiters and makes every future Changed channel
// come back already closed.
func (cn *ChangeNotifier) Close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		return
	}
	cn.closed = true
	if cn.pulse != nil {
		close(cn.pulse)
		cn.pulse = nil
	}
}

// ChangeSubscriber is implemented by containers whose component set can be
// watched for changes.
type ChangeSubscriber interface {
	Changed() <-chan struct{}
}

// AttachBroadcaster links this notifier to a cross-instance broadcaster.
// Local mutations publish to the channel; remote events wake local waiters
// until ctx is cancelled.
func (cn *ChangeNotifier) AttachBroadcaster(ctx context.Context, bc notify.Broadcaster, channel string) error {
	sub, err := bc.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	cn.mu.Lock()
	cn.bc = bc
	cn.channel = channel
	cn.mu.Unlock()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events():
				if !ok {
					return
				}
				cn.wake()
			}
		}
	}()
	return nil
}
