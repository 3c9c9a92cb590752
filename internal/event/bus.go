// Package event provides an in-process pub/sub bus built on watermill's gochannel.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic names a stream of events.
type Topic string

const (
	SessionUpdated Topic = "session.updated"
)

// For scopes the topic to a single publisher, e.g. one session.
func (t Topic) For(id string) Topic {
	return t + "." + Topic(id)
}

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// Event is one delivery. The payload is JSON.
type Event struct {
	ID      string
	Topic   Topic
	Payload []byte
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", e.Topic, err)
	}
	return nil
}

// Bus fans events out to subscribers. Publish never waits for subscribers, so delivery
// order across events is not guaranteed; payloads that need ordering carry a version.
type Bus struct {
	mu     sync.RWMutex
	pubsub *gochannel.GoChannel
	closed bool
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
	}
}

// Publish sends payload, encoded as JSON, to every current subscriber of topic.
func (b *Bus) Publish(topic Topic, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubsub.Publish(string(topic), msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of events on topic. The channel is closed when ctx is
// done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) (<-chan Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrClosed
	}

	messages, err := b.pubsub.Subscribe(ctx, string(topic))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for msg := range messages {
			ev := Event{ID: msg.UUID, Topic: topic, Payload: msg.Payload}
			msg.Ack()

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.pubsub.Close()
}
