package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"inkwell/models"
)

// weekThemes maps a 1-based week index inside the campaign window to its
// editorial theme. The table is fixed at compile time; weeks beyond it fall
// back to defaultWeekTheme.
var weekThemes = map[int]string{
	1:  "Foundations",
	2:  "Tooling Deep Dive",
	3:  "Behind the Scenes",
	4:  "Case Studies",
	5:  "Reader Questions",
	6:  "Performance Week",
	7:  "Design Patterns",
	8:  "Testing & Quality",
	9:  "Open Source",
	10: "Career Notes",
	11: "Retrospectives",
	12: "Looking Ahead",
}

const defaultWeekTheme = "Open Topic"

// CalendarEntry is a post as it appears on the calendar, status included so
// the frontend can distinguish drafts, scheduled and published posts.
type CalendarEntry struct {
	ID     uint       `json:"id"`
	Title  string     `json:"title"`
	Slug   string     `json:"slug"`
	Status string     `json:"status"`
	Date   *time.Time `json:"date,omitempty"`
}

// CalendarWeek is one 7-day slice of the campaign window.
type CalendarWeek struct {
	Index int             `json:"index"`
	Theme string          `json:"theme"`
	Start time.Time       `json:"start"`
	End   time.Time       `json:"end"`
	Posts []CalendarEntry `json:"posts"`
}

// CalendarProjection is the full week-by-week view. Posts without a
// scheduled or published date cannot be placed and are listed separately
// rather than dropped.
type CalendarProjection struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Weeks    []CalendarWeek  `json:"weeks"`
	Unplaced []CalendarEntry `json:"unplaced"`
}

// CalendarService projects posts onto the fixed campaign window and relays
// reschedules to the lifecycle service. It keeps no state of its own; every
// projection is recomputed from committed data.
type CalendarService struct {
	Store     PostStore
	Lifecycle *LifecycleService
	Logger    *zap.Logger

	start time.Time
	weeks int
}

// NewCalendarService creates the projector for the window starting at start
// (a UTC calendar date) spanning the given number of 7-day weeks.
func NewCalendarService(store PostStore, lifecycle *LifecycleService, start time.Time, weeks int, logger *zap.Logger) *CalendarService {
	if weeks <= 0 {
		weeks = 1
	}
	return &CalendarService{
		Store:     store,
		Lifecycle: lifecycle,
		Logger:    logger,
		start:     start.UTC().Truncate(24 * time.Hour),
		weeks:     weeks,
	}
}

// Project buckets all posts into the campaign weeks. A post belongs to the
// week whose half-open range [start, start+7d) contains its relevant date.
// Posts dated outside the window are reported as unplaced too, so nothing
// silently disappears from the admin view.
func (c *CalendarService) Project(ctx context.Context) (CalendarProjection, error) {
	posts, err := c.Store.ListPosts(ctx)
	if err != nil {
		return CalendarProjection{}, err
	}

	projection := CalendarProjection{
		Start:    c.start,
		End:      c.start.AddDate(0, 0, 7*c.weeks),
		Weeks:    make([]CalendarWeek, c.weeks),
		Unplaced: []CalendarEntry{},
	}
	for i := range projection.Weeks {
		start := c.start.AddDate(0, 0, 7*i)
		projection.Weeks[i] = CalendarWeek{
			Index: i + 1,
			Theme: themeForWeek(i + 1),
			Start: start,
			End:   start.AddDate(0, 0, 7),
			Posts: []CalendarEntry{},
		}
	}

	for _, post := range posts {
		entry := CalendarEntry{ID: post.ID, Title: post.Title, Slug: post.Slug, Status: post.Status}
		date, ok := post.RelevantDate()
		if !ok {
			projection.Unplaced = append(projection.Unplaced, entry)
			continue
		}
		date = date.UTC()
		entry.Date = &date

		idx := c.weekIndex(date)
		if idx < 0 {
			projection.Unplaced = append(projection.Unplaced, entry)
			continue
		}
		projection.Weeks[idx].Posts = append(projection.Weeks[idx].Posts, entry)
	}

	for i := range projection.Weeks {
		posts := projection.Weeks[i].Posts
		sort.SliceStable(posts, func(a, b int) bool {
			return posts[a].Date.Before(*posts[b].Date)
		})
	}

	return projection, nil
}

// Reschedule moves a post to a new date. Validation (future date, not yet
// published) lives entirely in the lifecycle service.
func (c *CalendarService) Reschedule(ctx context.Context, id uint, newDate time.Time) (models.Post, error) {
	return c.Lifecycle.Schedule(ctx, id, newDate)
}

// weekIndex returns the 0-based week slot for a date, or -1 outside the window.
func (c *CalendarService) weekIndex(date time.Time) int {
	if date.Before(c.start) {
		return -1
	}
	idx := int(date.Sub(c.start) / (7 * 24 * time.Hour))
	if idx >= c.weeks {
		return -1
	}
	return idx
}

func themeForWeek(index int) string {
	if theme, ok := weekThemes[index]; ok {
		return theme
	}
	return defaultWeekTheme
}
