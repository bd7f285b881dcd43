package mqtt

import (
	"context"
	"errors"
)

// ErrPublishFailed is returned when a message could not be delivered to the
// broker after all retries.
var ErrPublishFailed = errors.New("mqtt publish failed")

// Message is a payload routed to a topic suffix under the configured prefix.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// Publisher sends simulation messages to the broker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Message) error { return nil }
