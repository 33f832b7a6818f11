package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/fleurflow/internal/clock"
	"github.com/viant/fleurflow/internal/idgen"
	"github.com/viant/fleurflow/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
	lastErr    error
}

// ID returns message id, stable across redeliveries
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	return nil
}

// Nack redelivers the message after the retry delay, or moves it to the dead letter list once retries are exhausted
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message %v already processed", m.id)
	}
	m.processed = true
	m.lastErr = err
	if m.retryCount < m.queue.config.MaxRetries {
		redelivery := &Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      m.queue,
			retryCount: m.retryCount + 1,
			createdAt:  clock.Now(),
		}
		m.queue.deliverAfter(redelivery, m.queue.config.RetryDelay)
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue implements an in-memory messaging.Queue on a buffered channel
type Queue[T any] struct {
	messages  chan *Message[T]
	dlq       []*Message[T]
	config    Config
	dlqMu     sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	pending   sync.WaitGroup
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
		done:     make(chan struct{}),
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := q.checkOpen(ctx); err != nil {
		return err
	}
	select {
	case q.messages <- q.newMessage(t):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return messaging.ErrClosed
	}
}

// PublishAfter adds an item to the queue once delay elapses; the delivery is dropped when the queue is closed first
func (q *Queue[T]) PublishAfter(ctx context.Context, t *T, delay time.Duration) error {
	if delay <= 0 {
		return q.Publish(ctx, t)
	}
	if err := q.checkOpen(ctx); err != nil {
		return err
	}
	q.deliverAfter(q.newMessage(t), delay)
	return nil
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, messaging.ErrClosed
	}
}

// Close stops delayed deliveries and unblocks consumers
func (q *Queue[T]) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	q.pending.Wait()
	return nil
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// DeadLetters returns payloads of dead lettered messages
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	ret := make([]T, len(q.dlq))
	for i, msg := range q.dlq {
		ret[i] = msg.payload
	}
	return ret
}

func (q *Queue[T]) newMessage(t *T) *Message[T] {
	return &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: clock.Now(),
	}
}

func (q *Queue[T]) checkOpen(ctx context.Context) error {
	select {
	case <-q.done:
		return messaging.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (q *Queue[T]) deliverAfter(msg *Message[T], delay time.Duration) {
	q.pending.Add(1)
	go func() {
		defer q.pending.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-q.done:
			return
		}
		select {
		case q.messages <- msg:
		case <-q.done:
		}
	}()
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
var _ messaging.DeadLetters[any] = (*Queue[any])(nil)
