package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (r *recorder) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func TestBrokerDelivers(t *testing.T) {
	b := NewBroker(nil)
	a, c := &recorder{}, &recorder{}

	// subscribing and publishing before Run must not block
	b.Subscribe(a)
	b.Subscribe(c)
	b.Publish(SyncStarted, map[string]any{"job": "1"})
	assert.Equal(t, 2, b.SubscriberCount())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.Publish(SyncFinished, nil)
	require.Eventually(t, func() bool { return len(c.types()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Type{SyncStarted, SyncFinished}, a.types())

	b.Unsubscribe(c)
	assert.True(t, c.isClosed())
	assert.Equal(t, 1, b.SubscriberCount())

	cancel()
	<-done
	assert.True(t, a.isClosed())
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker(nil)
	for range cap(b.events) + 10 {
		b.Publish(SyncProgress, nil)
	}
	assert.Len(t, b.events, cap(b.events))
}
