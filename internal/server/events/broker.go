package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/lineup/pkg/constants"
	"github.com/agentstation/utc"
)

// Broker distributes published events to its subscribers.
type Broker struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	events      chan Event
	logger      *zerolog.Logger
	now         func() utc.Time
}

// NewBroker creates a broker. Events published before Run starts are
// buffered.
func NewBroker(logger *zerolog.Logger) *Broker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broker{
		events: make(chan Event, constants.ChannelBufferSize),
		logger: logger,
		now:    utc.Now,
	}
}

// Run delivers events until ctx is done, then closes every subscriber.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Debug().Msg("Event broker stopped")
			return

		case event := <-b.events:
			b.mu.RLock()
			subs := append([]Subscriber(nil), b.subscribers...)
			b.mu.RUnlock()

			for _, sub := range subs {
				if err := sub.Send(event); err != nil {
					b.logger.Warn().Err(err).Str("event_type", string(event.Type)).Msg("Failed to deliver event")
				}
			}
		}
	}
}

// Publish queues an event. When the queue is full the event is dropped.
func (b *Broker) Publish(t Type, data any) {
	event := Event{Type: t, Timestamp: b.now(), Data: data}
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Str("event_type", string(t)).Msg("Event queue full, event dropped")
	}
}

// Subscribe adds sub. It is safe to call before Run.
func (b *Broker) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Unsubscribe removes and closes sub.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			_ = s.Close()
			return
		}
	}
}

// SubscriberCount returns the number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
