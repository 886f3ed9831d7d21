package models

import "time"

// Series groups posts into an ordered collection, e.g. a multi-part tutorial.
type Series struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
}

// TableName sets the explicit table name.
func (Series) TableName() string {
	return "series"
}
