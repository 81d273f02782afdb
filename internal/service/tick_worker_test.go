package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/jobs"
)

type countingTicker struct {
	calls int32
	err   error
}

func (c *countingTicker) AdvanceWeek(context.Context) (*models.TickResult, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.TickResult{Success: true}, nil
}

func TestTickWorkerHandle(t *testing.T) {
	ticks := &countingTicker{}
	worker := NewTickWorker(ticks, nil)

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{Type: JobTypeAdvanceWeek}))
	assert.Error(t, worker.Handle(context.Background(), jobs.Job{Type: "reseed"}))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ticks.calls))
}

func TestRetryableTickError(t *testing.T) {
	assert.False(t, RetryableTickError(appErrors.ErrTickInProgress))
	assert.False(t, RetryableTickError(appErrors.Clone(appErrors.ErrNotSeeded, "")))
	assert.True(t, RetryableTickError(errors.New("db down")))
}

func TestRunAutoTickEnqueuesUntilCancelled(t *testing.T) {
	ticks := &countingTicker{}
	queue := jobs.NewQueue("ticks", NewTickWorker(ticks, nil).Handle, jobs.QueueConfig{BufferSize: 1, Retryable: RetryableTickError})
	queue.Start(context.Background())
	defer queue.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunAutoTick(ctx, queue, 5*time.Millisecond, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks.calls) >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRunAutoTickDisabled(t *testing.T) {
	RunAutoTick(context.Background(), nil, 0, nil)
}
