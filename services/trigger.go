package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// TriggerReport aggregates the per-post outcomes of one trigger run.
type TriggerReport struct {
	Attempted int           `json:"attempted"`
	Published int           `json:"published"`
	Skipped   int           `json:"skipped"`
	Failed    []PostFailure `json:"failed,omitempty"`
}

// PostFailure records a post that could not be reconciled.
type PostFailure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// TriggerService reconciles due scheduled posts against wall-clock time. It
// is stateless: every run re-reads the candidate set from the store, so two
// back-to-back runs publish each due post exactly once.
type TriggerService struct {
	Lifecycle *LifecycleService
	Logger    *zap.Logger

	// perPostTimeout bounds a single reconciliation so one slow post cannot
	// stall the rest of the batch.
	perPostTimeout time.Duration
	now            func() time.Time
}

// NewTriggerService creates the trigger around the lifecycle service.
func NewTriggerService(lifecycle *LifecycleService, perPostTimeout time.Duration, logger *zap.Logger) *TriggerService {
	if perPostTimeout <= 0 {
		perPostTimeout = 10 * time.Second
	}
	return &TriggerService{
		Lifecycle:      lifecycle,
		Logger:         logger,
		perPostTimeout: perPostTimeout,
		now:            time.Now,
	}
}

// Run publishes every scheduled post whose due date has passed. Reading the
// candidate set is all-or-nothing; per-post failures are collected and do
// not abort the batch.
func (t *TriggerService) Run(ctx context.Context) (TriggerReport, error) {
	now := t.now().UTC()

	due, err := t.Lifecycle.Store.ListDueScheduled(ctx, now)
	if err != nil {
		return TriggerReport{}, err
	}

	report := TriggerReport{Attempted: len(due)}
	for _, post := range due {
		postCtx, cancel := context.WithTimeout(ctx, t.perPostTimeout)
		published, err := t.Lifecycle.Reconcile(postCtx, post, now)
		cancel()

		switch {
		case err == nil && published:
			report.Published++
		case err == nil:
			// Re-checked precondition no longer held.
			report.Skipped++
		case errors.Is(err, ErrConcurrentModification):
			// Someone else already moved the post on; nothing lost.
			report.Skipped++
			t.Logger.Debug("Post reconciled by concurrent writer", zap.Uint("id", post.ID))
		default:
			report.Failed = append(report.Failed, PostFailure{ID: post.ID, Reason: err.Error()})
			t.Logger.Warn("Failed to publish scheduled post", zap.Uint("id", post.ID), zap.Error(err))
		}
	}

	t.Logger.Info("Publication trigger run completed",
		zap.Int("attempted", report.Attempted),
		zap.Int("published", report.Published),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}
