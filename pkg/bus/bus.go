// Package bus carries messages between the supervisor and the robot's
// other processes.
//
// Every message is a JSON envelope {topic, ts, data}. Two implementations
// are provided: Redis pub/sub for the robot, and an in-process bus for
// tests and single-binary setups.
package bus

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing or subscribing on a closed bus.
var ErrClosed = errors.New("bus: closed")

// Handler receives messages for one subscription. Handlers for a topic
// are called sequentially.
type Handler func(msg *Message)

// Publisher writes payloads to topics.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Subscriber delivers messages from a topic to a handler until the
// subscription is closed.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, h Handler) (Subscription, error)
}

// Subscription is an active subscription.
type Subscription interface {
	Close() error
}

// Bus is a publisher and subscriber.
type Bus interface {
	Publisher
	Subscriber
	Stats() Stats
	Close() error
}

// Stats contains bus counters.
type Stats struct {
	Connected        bool  `json:"connected"`
	MessagesSent     int64 `json:"messages_sent"`
	MessagesReceived int64 `json:"messages_received"`
	DecodeErrors     int64 `json:"decode_errors"`
}
