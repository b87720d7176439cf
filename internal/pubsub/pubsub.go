// Package pubsub provides the fire-and-forget transport used for realtime
// fan-out. Publishes are at-most-once; a failed publish is the caller's to
// log, never to retry.
package pubsub

import "context"

// Delivery is a single message received from the transport, either a topic
// broadcast (Topic set) or a user-addressed delivery (User and Dest set).
type Delivery struct {
	Topic   string `json:"topic,omitempty"`
	User    string `json:"user,omitempty"`
	Dest    string `json:"dest,omitempty"`
	Payload []byte `json:"payload"`
}

type Broker interface {
	PublishToTopic(ctx context.Context, topic string, payload []byte) error
	PublishToUser(ctx context.Context, user, dest string, payload []byte) error
	// Subscribe returns a channel carrying all chat traffic published through
	// the broker. The channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan Delivery, error)
	Close() error
}
