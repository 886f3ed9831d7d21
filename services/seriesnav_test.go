package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkwell/models"
)

func seriesFixture() *memStore {
	store := newMemStore()
	store.putSeries(models.Series{ID: 10, Name: "Building a Compiler", Slug: "building-a-compiler"})
	published := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i, slug := range []string{"part-1", "part-2", "part-3"} {
		store.putPost(models.Post{
			ID:          uint(i + 1),
			Title:       "Part " + slug[len(slug)-1:],
			Slug:        slug,
			Category:    "compilers",
			Status:      models.StatusPublished,
			PublishedAt: timePtr(published.AddDate(0, 0, i)),
			SeriesID:    uintPtr(10),
			SeriesOrder: intPtr(i + 1),
		})
	}
	return store
}

func TestResolveNeighbors(t *testing.T) {
	store := seriesFixture()
	nav := NewSeriesNavService(store, zap.NewNop())

	tests := []struct {
		name     string
		postID   uint
		current  int
		previous *uint
		next     *uint
	}{
		{"first has no previous", 1, 1, nil, uintPtr(2)},
		{"middle has both", 2, 2, uintPtr(1), uintPtr(3)},
		{"last has no next", 3, 3, uintPtr(2), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := store.post(tt.postID)
			result, err := nav.Resolve(context.Background(), post)
			require.NoError(t, err)

			assert.Equal(t, "Building a Compiler", result.SeriesName)
			assert.Equal(t, tt.current, result.Current)
			assert.Equal(t, 3, result.Total)

			if tt.previous == nil {
				assert.Nil(t, result.Previous)
			} else {
				require.NotNil(t, result.Previous)
				assert.Equal(t, *tt.previous, result.Previous.ID)
				assert.NotEmpty(t, result.Previous.Slug)
				assert.NotEmpty(t, result.Previous.Title)
			}
			if tt.next == nil {
				assert.Nil(t, result.Next)
			} else {
				require.NotNil(t, result.Next)
				assert.Equal(t, *tt.next, result.Next.ID)
			}
		})
	}
}

// A scheduled member is invisible: its published neighbors link across it.
func TestResolveSkipsUnpublishedMembers(t *testing.T) {
	store := seriesFixture()
	middle := store.post(2)
	middle.Status = models.StatusScheduled
	middle.PublishedAt = nil
	middle.ScheduledFor = timePtr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	store.putPost(middle)

	nav := NewSeriesNavService(store, zap.NewNop())
	result, err := nav.Resolve(context.Background(), store.post(1))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Current)
	assert.Nil(t, result.Previous)
	require.NotNil(t, result.Next)
	assert.Equal(t, uint(3), result.Next.ID)
}

func TestResolveRejectsUnpublishedPost(t *testing.T) {
	store := seriesFixture()
	draft := models.Post{ID: 9, Status: models.StatusDraft, SeriesID: uintPtr(10), SeriesOrder: intPtr(4)}
	store.putPost(draft)

	nav := NewSeriesNavService(store, zap.NewNop())
	_, err := nav.Resolve(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, CodeNotInPublishedSet, CodeOf(err))
}

func TestResolveSurfacesDuplicateOrder(t *testing.T) {
	store := seriesFixture()
	dup := store.post(3)
	dup.SeriesOrder = intPtr(2) // collides with part-2
	store.putPost(dup)

	nav := NewSeriesNavService(store, zap.NewNop())
	_, err := nav.Resolve(context.Background(), store.post(1))
	require.Error(t, err)
	assert.Equal(t, CodeSeriesOrderConflict, CodeOf(err))
}

func TestResolveRequiresSeriesMembership(t *testing.T) {
	store := seriesFixture()
	lone := models.Post{ID: 20, Status: models.StatusPublished,
		PublishedAt: timePtr(time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))}
	store.putPost(lone)

	nav := NewSeriesNavService(store, zap.NewNop())
	_, err := nav.Resolve(context.Background(), lone)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
