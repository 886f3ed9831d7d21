package models

import (
	"time"

	"gorm.io/datatypes"
)

// Lifecycle states for a post. A post starts as a draft, may be scheduled
// for a future date, and ends up published. Published is terminal.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusPublished = "published"
)

// Post represents a blog post or portfolio entry.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Content
	Title   string `json:"title" gorm:"not null"`
	Excerpt string `json:"excerpt,omitempty"`
	Body    string `json:"body" gorm:"type:text"`

	// SEO & Web
	Slug            string `json:"slug" gorm:"uniqueIndex;not null"`
	MetaDescription string `json:"meta_description,omitempty"`

	// Categorization
	Category string         `json:"category,omitempty" gorm:"index"`
	Tags     datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`

	// Publication lifecycle. ScheduledFor is set only while scheduled,
	// PublishedAt only while published. Status transitions go through the
	// lifecycle service, never through plain field updates.
	Status       string     `json:"status" gorm:"index;default:'draft'"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`

	// Series membership. SeriesOrder is unique within a series and defines
	// the reading order for previous/next navigation.
	SeriesID    *uint `json:"series_id,omitempty" gorm:"index"`
	SeriesOrder *int  `json:"series_order,omitempty"`

	// Analytics
	ViewCount int `json:"view_count" gorm:"default:0"`
}

// TableName sets the explicit table name.
func (Post) TableName() string {
	return "posts"
}

// IsPublished reports whether the post is live.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// RelevantDate returns the date the post is anchored to on the editorial
// calendar: the scheduled date if present, otherwise the publication date.
// The second return value is false for posts with neither (unplaced drafts).
func (p *Post) RelevantDate() (time.Time, bool) {
	if p.ScheduledFor != nil {
		return *p.ScheduledFor, true
	}
	if p.PublishedAt != nil {
		return *p.PublishedAt, true
	}
	return time.Time{}, false
}
