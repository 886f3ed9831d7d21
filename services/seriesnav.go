package services

import (
	"context"

	"go.uber.org/zap"

	"inkwell/models"
)

// SeriesNeighbor is the lightweight projection of an adjacent series post.
// No body text: navigation links only need title, slug and category.
type SeriesNeighbor struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Slug     string `json:"slug"`
	Category string `json:"category,omitempty"`
}

// SeriesNavigation describes a published post's place within its series.
type SeriesNavigation struct {
	SeriesName string          `json:"series_name"`
	Current    int             `json:"current"`
	Total      int             `json:"total"`
	Previous   *SeriesNeighbor `json:"previous,omitempty"`
	Next       *SeriesNeighbor `json:"next,omitempty"`
}

// SeriesNavService computes previous/next navigation for published series
// members. It only ever reads committed state.
type SeriesNavService struct {
	Store  PostStore
	Logger *zap.Logger
}

// NewSeriesNavService creates the resolver.
func NewSeriesNavService(store PostStore, logger *zap.Logger) *SeriesNavService {
	return &SeriesNavService{Store: store, Logger: logger}
}

// Resolve returns navigation for the given post. The post must be published
// and belong to a series; unpublished members of the series are invisible.
// A duplicate series_order among the published members is a data-integrity
// violation and is surfaced, never silently resolved.
func (s *SeriesNavService) Resolve(ctx context.Context, post models.Post) (SeriesNavigation, error) {
	if !post.IsPublished() {
		return SeriesNavigation{}, newError(CodeNotInPublishedSet, "post %d is not published", post.ID)
	}
	if post.SeriesID == nil {
		return SeriesNavigation{}, newError(CodeNotFound, "post %d does not belong to a series", post.ID)
	}

	series, err := s.Store.GetSeries(ctx, *post.SeriesID)
	if err != nil {
		return SeriesNavigation{}, err
	}

	members, err := s.Store.ListSeriesPublished(ctx, *post.SeriesID)
	if err != nil {
		return SeriesNavigation{}, err
	}

	current := -1
	seen := map[int]uint{}
	for i, member := range members {
		if member.SeriesOrder != nil {
			if other, dup := seen[*member.SeriesOrder]; dup {
				s.Logger.Error("Duplicate series order detected",
					zap.Uint("series_id", *post.SeriesID),
					zap.Int("series_order", *member.SeriesOrder),
					zap.Uint("post_a", other),
					zap.Uint("post_b", member.ID))
				return SeriesNavigation{}, newError(CodeSeriesOrderConflict,
					"series %d has duplicate order %d (posts %d and %d)",
					*post.SeriesID, *member.SeriesOrder, other, member.ID)
			}
			seen[*member.SeriesOrder] = member.ID
		}
		if member.ID == post.ID {
			current = i
		}
	}
	if current < 0 {
		// The post is published and claims membership but the ordered set
		// does not contain it; treat like any other non-published member.
		return SeriesNavigation{}, newError(CodeNotInPublishedSet, "post %d is not in the published set of series %d", post.ID, *post.SeriesID)
	}

	nav := SeriesNavigation{
		SeriesName: series.Name,
		Current:    current + 1,
		Total:      len(members),
	}
	if current > 0 {
		nav.Previous = neighborOf(members[current-1])
	}
	if current < len(members)-1 {
		nav.Next = neighborOf(members[current+1])
	}
	return nav, nil
}

func neighborOf(post models.Post) *SeriesNeighbor {
	return &SeriesNeighbor{
		ID:       post.ID,
		Title:    post.Title,
		Slug:     post.Slug,
		Category: post.Category,
	}
}
