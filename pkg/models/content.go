package models

import "time"

// Content represents one piece of uploaded study material. Topics and review
// schedules hang off a content item and are removed with it.
type Content struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	Title      string    `json:"title" db:"title"`
	SourceFile string    `json:"source_file" db:"source_file"` // original filename, empty for manually created content
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
