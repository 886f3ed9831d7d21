package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"inkwell/models"
)

// LifecycleService is the single writer of the publication lifecycle fields.
// Every status transition runs through it and commits via a conditional
// write, so a concurrent writer on the same post loses cleanly instead of
// corrupting state.
type LifecycleService struct {
	Store    PostStore
	Logger   *zap.Logger
	notifier Notifier

	// now is the injected clock; tests override it.
	now func() time.Time
}

// NewLifecycleService creates the lifecycle service. notifier may be nil.
func NewLifecycleService(store PostStore, notifier Notifier, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		Store:    store,
		Logger:   logger,
		notifier: notifier,
		now:      time.Now,
	}
}

// Schedule moves a draft or scheduled post to scheduled for the given date.
// The date must be strictly in the future at the moment of the call.
func (s *LifecycleService) Schedule(ctx context.Context, id uint, at time.Time) (models.Post, error) {
	post, err := s.Store.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	if post.Status == models.StatusPublished {
		return models.Post{}, newError(CodeInvalidTransition, "post %d is published and cannot be scheduled", id)
	}
	if !at.After(s.now()) {
		return models.Post{}, newError(CodePastSchedule, "scheduled date %s is not in the future", at.Format(time.RFC3339))
	}

	at = at.UTC()
	change := StatusChange{Status: models.StatusScheduled, ScheduledFor: &at}
	if err := s.Store.CompareAndSwapStatus(ctx, id, post.Status, change); err != nil {
		return models.Post{}, err
	}

	s.Logger.Info("Post scheduled",
		zap.Uint("id", id),
		zap.String("from", post.Status),
		zap.Time("scheduled_for", at))

	post.Status = models.StatusScheduled
	post.ScheduledFor = &at
	post.PublishedAt = nil
	return post, nil
}

// PublishNow publishes a draft or scheduled post immediately.
func (s *LifecycleService) PublishNow(ctx context.Context, id uint) (models.Post, error) {
	post, err := s.Store.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	if post.Status == models.StatusPublished {
		return models.Post{}, newError(CodeAlreadyPublished, "post %d is already published", id)
	}

	publishedAt := s.now().UTC()
	change := StatusChange{Status: models.StatusPublished, PublishedAt: &publishedAt}
	if err := s.Store.CompareAndSwapStatus(ctx, id, post.Status, change); err != nil {
		return models.Post{}, err
	}

	s.Logger.Info("Post published",
		zap.Uint("id", id),
		zap.String("from", post.Status),
		zap.Time("published_at", publishedAt))

	post.Status = models.StatusPublished
	post.PublishedAt = &publishedAt
	post.ScheduledFor = nil
	s.notifyPublished(post)
	return post, nil
}

// Reconcile publishes a scheduled post whose due date has passed. A post
// that is no longer scheduled or not yet due is a no-op, not an error: the
// trigger hands over candidates that may have been handled concurrently.
// Returns true when this call performed the transition.
func (s *LifecycleService) Reconcile(ctx context.Context, post models.Post, now time.Time) (bool, error) {
	if post.Status != models.StatusScheduled || post.ScheduledFor == nil || post.ScheduledFor.After(now) {
		return false, nil
	}

	publishedAt := now.UTC()
	change := StatusChange{Status: models.StatusPublished, PublishedAt: &publishedAt}
	if err := s.Store.CompareAndSwapStatus(ctx, post.ID, models.StatusScheduled, change); err != nil {
		return false, err
	}

	s.Logger.Info("Scheduled post published",
		zap.Uint("id", post.ID),
		zap.Time("was_scheduled_for", *post.ScheduledFor),
		zap.Time("published_at", publishedAt))

	post.Status = models.StatusPublished
	post.PublishedAt = &publishedAt
	post.ScheduledFor = nil
	s.notifyPublished(post)
	return true, nil
}

// notifyPublished hands the post to the notifier without waiting on it.
func (s *LifecycleService) notifyPublished(post models.Post) {
	if s.notifier == nil {
		return
	}
	go s.notifier.PostPublished(context.Background(), post)
}
