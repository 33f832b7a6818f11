package messaging

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when publishing to or consuming from a closed queue
var ErrClosed = errors.New("queue closed")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// PublishAfter adds a message once delay elapses
	PublishAfter(ctx context.Context, t *T, delay time.Duration) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)

	// Close releases pending deliveries
	Close() error
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}

// DeadLetters is implemented by queues keeping payloads of messages that failed processing
type DeadLetters[T any] interface {
	DeadLetters() []T
}
