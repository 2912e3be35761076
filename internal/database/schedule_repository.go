package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybot/internal/review"
	"github.com/example/studybot/pkg/models"
)

// ScheduleRepository handles database operations for review schedules. It
// implements the store contract the review scheduler is built against.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new repository instance
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Insert persists a new schedule and fills in its assigned ID.
func (r *ScheduleRepository) Insert(ctx context.Context, s *models.ReviewSchedule) error {
	query := r.db.Rebind(`
		INSERT INTO review_schedules (
			user_id, content_id, topic_id, topic_name, schedule_type,
			next_review_date, last_review_date, review_count, mastery_level,
			"interval", ease_factor, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowContext(ctx, query+" RETURNING id",
			s.UserID, s.ContentID, s.TopicID, s.TopicName, s.ScheduleType,
			s.NextReviewDate, s.LastReviewDate, s.ReviewCount, s.MasteryLevel,
			s.Interval, s.EaseFactor, s.CreatedAt, s.UpdatedAt,
		).Scan(&s.ID)
		if err != nil {
			return fmt.Errorf("failed to create schedule: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query,
		s.UserID, s.ContentID, s.TopicID, s.TopicName, s.ScheduleType,
		s.NextReviewDate, s.LastReviewDate, s.ReviewCount, s.MasteryLevel,
		s.Interval, s.EaseFactor, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	s.ID = id

	return nil
}

// GetByID returns the schedule with the given id.
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*models.ReviewSchedule, error) {
	var schedule models.ReviewSchedule
	query := r.db.Rebind(`SELECT * FROM review_schedules WHERE id = ?`)

	err := r.db.GetContext(ctx, &schedule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, review.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

// Update writes the schedule back, conditional on the review count read
// before the update was computed. A row that has moved on since that read is
// left untouched and the write reports review.ErrConflict.
func (r *ScheduleRepository) Update(ctx context.Context, s *models.ReviewSchedule, priorReviewCount int) error {
	query := r.db.Rebind(`
		UPDATE review_schedules SET
			next_review_date = ?,
			last_review_date = ?,
			review_count = ?,
			mastery_level = ?,
			"interval" = ?,
			ease_factor = ?,
			updated_at = ?
		WHERE id = ? AND review_count = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		s.NextReviewDate,
		s.LastReviewDate,
		s.ReviewCount,
		s.MasteryLevel,
		s.Interval,
		s.EaseFactor,
		s.UpdatedAt,
		s.ID,
		priorReviewCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the row is gone or someone updated it first
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
		return review.ErrConflict
	}

	return nil
}

// DeleteByID removes a single schedule.
func (r *ScheduleRepository) DeleteByID(ctx context.Context, id int64) error {
	query := r.db.Rebind(`DELETE FROM review_schedules WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return review.ErrScheduleNotFound
	}

	return nil
}

// GetDueByUser returns the user's schedules due at the reference time,
// most overdue first.
func (r *ScheduleRepository) GetDueByUser(ctx context.Context, userID int64, by time.Time) ([]models.ReviewSchedule, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_schedules
		WHERE user_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC
	`)

	var schedules []models.ReviewSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, userID, by); err != nil {
		return nil, fmt.Errorf("failed to get due schedules: %w", err)
	}
	return schedules, nil
}

// GetByContentID returns every schedule referencing a content item.
func (r *ScheduleRepository) GetByContentID(ctx context.Context, contentID int64) ([]models.ReviewSchedule, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_schedules
		WHERE content_id = ?
		ORDER BY topic_id ASC
	`)

	var schedules []models.ReviewSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, contentID); err != nil {
		return nil, fmt.Errorf("failed to get schedules for content: %w", err)
	}
	return schedules, nil
}

// GetAllByUser returns all of a user's schedules ordered by next review date.
func (r *ScheduleRepository) GetAllByUser(ctx context.Context, userID int64) ([]models.ReviewSchedule, error) {
	query := r.db.Rebind(`
		SELECT * FROM review_schedules
		WHERE user_id = ?
		ORDER BY next_review_date ASC
	`)

	var schedules []models.ReviewSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get schedules: %w", err)
	}
	return schedules, nil
}
