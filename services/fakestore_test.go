package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"inkwell/models"
)

// memStore is an in-memory PostStore with the same compare-and-swap
// semantics as the gorm implementation. Error injection hooks let tests
// exercise outage and race paths.
type memStore struct {
	mu     sync.Mutex
	posts  map[uint]models.Post
	series map[uint]models.Series

	casErr  map[uint]error // forced CompareAndSwapStatus failure per post
	listErr error          // forced failure for every list/read call
}

func newMemStore() *memStore {
	return &memStore{
		posts:  map[uint]models.Post{},
		series: map[uint]models.Series{},
		casErr: map[uint]error{},
	}
}

func (m *memStore) putPost(p models.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[p.ID] = p
}

func (m *memStore) putSeries(s models.Series) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[s.ID] = s
}

func (m *memStore) post(id uint) models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id]
}

func (m *memStore) GetPost(ctx context.Context, id uint) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return models.Post{}, m.listErr
	}
	post, ok := m.posts[id]
	if !ok {
		return models.Post{}, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	return post, nil
}

func (m *memStore) CompareAndSwapStatus(ctx context.Context, id uint, expected string, change StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.casErr[id]; err != nil {
		return err
	}
	post, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if post.Status != expected {
		return fmt.Errorf("post %d no longer %s: %w", id, expected, ErrConcurrentModification)
	}
	post.Status = change.Status
	post.ScheduledFor = change.ScheduledFor
	post.PublishedAt = change.PublishedAt
	m.posts[id] = post
	return nil
}

func (m *memStore) ListDueScheduled(ctx context.Context, now time.Time) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var due []models.Post
	for _, post := range m.posts {
		if post.Status == models.StatusScheduled && post.ScheduledFor != nil && !post.ScheduledFor.After(now) {
			due = append(due, post)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].ScheduledFor.Before(*due[b].ScheduledFor) })
	return due, nil
}

func (m *memStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	posts := make([]models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(a, b int) bool { return posts[a].ID < posts[b].ID })
	return posts, nil
}

func (m *memStore) ListSeriesPublished(ctx context.Context, seriesID uint) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var members []models.Post
	for _, post := range m.posts {
		if post.SeriesID != nil && *post.SeriesID == seriesID && post.Status == models.StatusPublished {
			members = append(members, post)
		}
	}
	sort.Slice(members, func(a, b int) bool {
		oa, ob := 0, 0
		if members[a].SeriesOrder != nil {
			oa = *members[a].SeriesOrder
		}
		if members[b].SeriesOrder != nil {
			ob = *members[b].SeriesOrder
		}
		return oa < ob
	})
	return members, nil
}

func (m *memStore) GetSeries(ctx context.Context, id uint) (models.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return models.Series{}, m.listErr
	}
	series, ok := m.series[id]
	if !ok {
		return models.Series{}, fmt.Errorf("series %d: %w", id, ErrNotFound)
	}
	return series, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(i int) *int { return &i }

func uintPtr(u uint) *uint { return &u }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
