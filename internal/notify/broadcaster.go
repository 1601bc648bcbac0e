// Package notify fans mutation signals out to change-stream consumers.
//
// Each subscriber gets its own capacity-1 channel, so a burst of mutations
// coalesces into at least one wakeup per subscriber and a slow consumer
// never blocks a mutator or starves the other consumers.
package notify

import (
	"context"
	"sync"
)

// Broadcaster delivers "something changed" signals to all current
// subscribers. The zero value is not usable; call NewBroadcaster.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer. The caller must Close the returned
// subscription when done with it.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{b: b, ch: make(chan struct{}, 1)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Notify signals every subscriber that a mutation occurred. The send is
// non-blocking: a subscriber that already has a pending signal absorbs the
// new one.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is one consumer's view of the change stream.
type Subscription struct {
	b    *Broadcaster
	ch   chan struct{}
	once sync.Once
}

// C exposes the signal channel for use in select loops.
func (s *Subscription) C() <-chan struct{} { return s.ch }

// Wait blocks until a change is signalled or ctx is done.
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close detaches the subscription from the broadcaster.
func (s *Subscription) Close() {
	s.once.Do(func() { s.b.remove(s) })
}
