package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
	"github.com/noah-isme/campus-sim/pkg/jobs"
)

// JobTypeAdvanceWeek is the queue job type that runs one tick.
const JobTypeAdvanceWeek = "advance_week"

type tickDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

// TickWorker bridges queue jobs to TickService.
type TickWorker struct {
	ticks  ticker
	logger *zap.Logger
}

type ticker interface {
	AdvanceWeek(ctx context.Context) (*models.TickResult, error)
}

// NewTickWorker constructs a worker.
func NewTickWorker(ticks ticker, logger *zap.Logger) *TickWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TickWorker{ticks: ticks, logger: logger}
}

// Handle processes a queue job.
func (w *TickWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeAdvanceWeek {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	res, err := w.ticks.AdvanceWeek(ctx)
	if err != nil {
		return err
	}
	w.logger.Sugar().Infow("scheduled tick complete", "job_id", job.ID, "new_date", res.NewDate.Format(time.DateOnly))
	return nil
}

// RetryableTickError reports whether a failed tick is worth requeueing. A
// held lock means someone else is ticking and a missing seed will not fix
// itself.
func RetryableTickError(err error) bool {
	return !errors.Is(err, appErrors.ErrTickInProgress) && !errors.Is(err, appErrors.ErrNotSeeded)
}

// RunAutoTick enqueues one advance_week job every interval until ctx ends.
// Intervals that find a tick still queued are skipped.
func RunAutoTick(ctx context.Context, queue tickDispatcher, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := queue.TryEnqueue(jobs.Job{Type: JobTypeAdvanceWeek}); err != nil {
				if errors.Is(err, jobs.ErrQueueFull) {
					logger.Debug("auto tick skipped: previous tick pending")
					continue
				}
				logger.Warn("auto tick enqueue failed", zap.Error(err))
			}
		}
	}
}
