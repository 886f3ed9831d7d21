package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"inkwell/models"
	"inkwell/services"
)

// GormStore implements services.PostStore on PostgreSQL via gorm, plus the
// plain CRUD used by the HTTP layer.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

var _ services.PostStore = (*GormStore)(nil)

// GetPost fetches a post by id.
func (s *GormStore) GetPost(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Post{}, fmt.Errorf("post %d: %w", id, services.ErrNotFound)
		}
		return models.Post{}, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return post, nil
}

// CompareAndSwapStatus writes the lifecycle fields in one conditional
// UPDATE keyed on the expected prior status. The WHERE clause carries the
// precondition, so a stale writer affects zero rows and is rejected instead
// of clobbering a concurrent transition.
func (s *GormStore) CompareAndSwapStatus(ctx context.Context, id uint, expected string, change services.StatusChange) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]any{
			"status":        change.Status,
			"scheduled_for": change.ScheduledFor,
			"published_at":  change.PublishedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or its status moved under us.
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
		}
		if count == 0 {
			return fmt.Errorf("post %d: %w", id, services.ErrNotFound)
		}
		return fmt.Errorf("post %d no longer %s: %w", id, expected, services.ErrConcurrentModification)
	}
	return nil
}

// ListDueScheduled returns scheduled posts due at or before now.
func (s *GormStore) ListDueScheduled(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", models.StatusScheduled, now).
		Order("scheduled_for asc").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return posts, nil
}

// ListPosts returns every post regardless of status.
func (s *GormStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return posts, nil
}

// ListSeriesPublished returns the published members of a series in reading order.
func (s *GormStore) ListSeriesPublished(ctx context.Context, seriesID uint) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("series_id = ? AND status = ?", seriesID, models.StatusPublished).
		Order("series_order asc").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return posts, nil
}

// GetSeries fetches a series by id.
func (s *GormStore) GetSeries(ctx context.Context, id uint) (models.Series, error) {
	var series models.Series
	if err := s.db.WithContext(ctx).First(&series, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Series{}, fmt.Errorf("series %d: %w", id, services.ErrNotFound)
		}
		return models.Series{}, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return series, nil
}

// CreatePost inserts a new post. New posts always start as drafts with the
// lifecycle fields unset, whatever the request claimed.
func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	post.Status = models.StatusDraft
	post.ScheduledFor = nil
	post.PublishedAt = nil
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return nil
}

// PostQuery filters for QueryPosts; zero values are ignored.
type PostQuery struct {
	Status   string `json:"status"`
	Category string `json:"category"`
	SeriesID *uint  `json:"series_id"`
	Limit    int    `json:"limit"`
}

// QueryPosts runs a body-driven filter query.
func (s *GormStore) QueryPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.SeriesID != nil {
		query = query.Where("series_id = ?", *q.SeriesID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var posts []models.Post
	if err := query.Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return posts, nil
}

// UpdatePostFields patches non-lifecycle columns on a post.
func (s *GormStore) UpdatePostFields(ctx context.Context, id uint, updates map[string]any) (models.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	if err := s.db.WithContext(ctx).Model(&post).Updates(updates).Error; err != nil {
		return models.Post{}, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return post, nil
}

// CreateSeries inserts a new series.
func (s *GormStore) CreateSeries(ctx context.Context, series *models.Series) error {
	if err := s.db.WithContext(ctx).Create(series).Error; err != nil {
		return fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return nil
}

// ListSeries returns all series.
func (s *GormStore) ListSeries(ctx context.Context) ([]models.Series, error) {
	var series []models.Series
	if err := s.db.WithContext(ctx).Order("name asc").Find(&series).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrPersistenceUnavailable, err)
	}
	return series, nil
}
