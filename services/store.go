package services

import (
	"context"
	"time"

	"inkwell/models"
)

// StatusChange is the full set of lifecycle fields written in one transition.
// Exactly one of ScheduledFor/PublishedAt is set for scheduled/published
// targets; both are nil for a draft.
type StatusChange struct {
	Status       string
	ScheduledFor *time.Time
	PublishedAt  *time.Time
}

// PostStore is the persistence boundary used by the publishing services.
// Implemented by storage.GormStore; tests substitute an in-memory fake.
type PostStore interface {
	GetPost(ctx context.Context, id uint) (models.Post, error)

	// CompareAndSwapStatus applies the change only if the stored status still
	// equals expected, returning ErrConcurrentModification otherwise. This is
	// the sole write path for lifecycle fields.
	CompareAndSwapStatus(ctx context.Context, id uint, expected string, change StatusChange) error

	// ListDueScheduled returns scheduled posts whose scheduled_for is at or
	// before now, ordered by scheduled_for ascending.
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.Post, error)

	// ListPosts returns all posts regardless of status.
	ListPosts(ctx context.Context) ([]models.Post, error)

	// ListSeriesPublished returns the published members of a series ordered
	// by series_order ascending.
	ListSeriesPublished(ctx context.Context, seriesID uint) ([]models.Post, error)

	GetSeries(ctx context.Context, id uint) (models.Series, error)
}

// Notifier delivers fire-and-forget publication notices. Failures are logged
// and never propagate into a transition.
type Notifier interface {
	PostPublished(ctx context.Context, post models.Post)
}
