package models

import "time"

// Topic represents a single reviewable subject extracted from a content item
type Topic struct {
	ID        int64     `json:"id" db:"id"`
	ContentID int64     `json:"content_id" db:"content_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"` // order within the source material
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
