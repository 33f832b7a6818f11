package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/service/messaging"
	"go.uber.org/goleak"
)

type ticket struct {
	JobID string
}

func TestQueue(t *testing.T) {
	queue := NewQueue[ticket](DefaultConfig())
	defer queue.Close()
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &ticket{JobID: "job-1"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "job-1", message.T().JobID)
	assert.Equal(t, 0, queue.Size())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
	assert.Error(t, message.Nack(nil))
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[ticket](config)
	defer queue.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &ticket{JobID: "job-1"}))
	var ids []string
	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		ids = append(ids, message.(*Message[ticket]).ID())
		require.NoError(t, message.Nack(errors.New("busy")))
	}
	assert.Equal(t, ids[0], ids[2], "redelivery keeps message id")
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, []ticket{{JobID: "job-1"}}, queue.DeadLetters())
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_PublishAfter(t *testing.T) {
	queue := NewQueue[ticket](DefaultConfig())
	defer queue.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	started := time.Now()
	require.NoError(t, queue.PublishAfter(ctx, &ticket{JobID: "delayed"}, 20*time.Millisecond))
	assert.Equal(t, 0, queue.Size())
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "delayed", message.T().JobID)
	assert.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)
}

func TestQueue_Close(t *testing.T) {
	defer goleak.VerifyNone(t)
	queue := NewQueue[ticket](DefaultConfig())
	ctx := context.Background()
	require.NoError(t, queue.PublishAfter(ctx, &ticket{JobID: "never"}, time.Hour))
	require.NoError(t, queue.Close())

	_, err := queue.Consume(ctx)
	assert.True(t, errors.Is(err, messaging.ErrClosed))
	assert.True(t, errors.Is(queue.Publish(ctx, &ticket{}), messaging.ErrClosed))
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[ticket](DefaultConfig())
	defer queue.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producers, perProducer := 10, 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := map[string]bool{}
	for i := 0; i < producers; i++ {
		wg.Add(2)
		go func(producer int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &ticket{JobID: fmt.Sprintf("p%d-%d", producer, j)}))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, message.Ack())
				mu.Lock()
				consumed[message.T().JobID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, consumed, producers*perProducer)
}

func TestQueue_ContextCancellation(t *testing.T) {
	queue := NewQueue[ticket](DefaultConfig())
	defer queue.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(ctx, &ticket{JobID: "x"}))

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeoutCtx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NoError(t, queue.Publish(context.Background(), &ticket{JobID: "x"}))
	message, err := queue.Consume(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, message)
}
