package models

import "time"

// ScheduleType classifies the review cadence of a schedule. It is set at
// creation and carried for filtering/display; the update algorithm never
// consults it.
type ScheduleType string

const (
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

// ReviewSchedule is the spaced-repetition state for one (user, topic) pair.
// A schedule is due when NextReviewDate <= now.
type ReviewSchedule struct {
	ID             int64        `json:"id" db:"id"`
	UserID         int64        `json:"user_id" db:"user_id"`
	ContentID      int64        `json:"content_id" db:"content_id"`
	TopicID        int64        `json:"topic_id" db:"topic_id"`
	TopicName      string       `json:"topic_name" db:"topic_name"` // denormalized copy of the topic name at creation time
	ScheduleType   ScheduleType `json:"schedule_type" db:"schedule_type"`
	NextReviewDate time.Time    `json:"next_review_date" db:"next_review_date"`
	LastReviewDate *time.Time   `json:"last_review_date" db:"last_review_date"` // nil before the first review
	ReviewCount    int          `json:"review_count" db:"review_count"`         // completed reviews, failed recalls included
	MasteryLevel   int          `json:"mastery_level" db:"mastery_level"`       // 0-100 display metric
	Interval       int          `json:"interval" db:"interval"`                 // days until next review, >= 1
	EaseFactor     float64      `json:"ease_factor" db:"ease_factor"`           // SM-2 EF parameter, >= 1.3
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}
