package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyWakesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer sub.Close()

	woke := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		woke <- sub.Wait(ctx)
	}()

	// Give the waiter a moment to block, then signal.
	time.Sleep(10 * time.Millisecond)
	b.Notify()

	require.NoError(t, <-woke)
}

func TestNotifyReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	s1 := b.Subscribe()
	defer s1.Close()
	s2 := b.Subscribe()
	defer s2.Close()

	b.Notify()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s1.Wait(ctx))
	require.NoError(t, s2.Wait(ctx))
}

func TestBurstCoalesces(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		b.Notify()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sub.Wait(ctx), "burst must deliver at least one signal")

	// The burst coalesced into a single pending signal, so a second wait
	// times out.
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, sub.Wait(short), context.DeadlineExceeded)
}

func TestWaitHonoursCancellation(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sub.Wait(ctx), context.Canceled)
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	sub.Close()
	sub.Close() // idempotent

	b.Notify()

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, sub.Wait(short))
}
