package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})

	q := NewQueue("ticks", func(ctx context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, job.Type)
		if len(seen) == 3 {
			close(done)
		}
		return nil
	}, QueueConfig{BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	for _, typ := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{Type: typ}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs not processed")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue("ticks", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "advance_week"}))
	assert.Error(t, q.TryEnqueue(Job{Type: "advance_week"}))
}

func TestTryEnqueueDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("ticks", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.TryEnqueue(Job{Type: "advance_week"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{Type: "advance_week"}))
	assert.Equal(t, 1, q.Pending())

	err := q.TryEnqueue(Job{Type: "advance_week"})
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestQueueSkipsRetryForPermanentErrors(t *testing.T) {
	permanent := errors.New("permanent")
	var calls int32
	q := NewQueue("ticks", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return permanent
	}, QueueConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		Retryable:  func(err error) bool { return !errors.Is(err, permanent) },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "advance_week"}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueRetriesTransientErrors(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("ticks", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "advance_week"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
