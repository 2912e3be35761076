package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/studybot/pkg/models"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByTelegramID returns a user by Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT * FROM users WHERE telegram_id = ?`)

	err := r.db.GetContext(ctx, &user, query, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateOrUpdate registers a user or refreshes their Telegram profile fields
func (r *UserRepository) CreateOrUpdate(ctx context.Context, user *models.User) error {
	existing, err := r.GetByTelegramID(ctx, user.TelegramID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}

	now := time.Now()
	if existing != nil {
		query := r.db.Rebind(`
			UPDATE users SET username = ?, first_name = ?, updated_at = ?
			WHERE telegram_id = ?
		`)
		if _, err := r.db.ExecContext(ctx, query, user.Username, user.FirstName, now, user.TelegramID); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		user.ID = existing.ID
		user.NotificationEnabled = existing.NotificationEnabled
		user.NotificationHour = existing.NotificationHour
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = now
		return nil
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	query := r.db.Rebind(`
		INSERT INTO users (telegram_id, username, first_name, notification_enabled, notification_hour, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowContext(ctx, query+" RETURNING id",
			user.TelegramID, user.Username, user.FirstName,
			user.NotificationEnabled, user.NotificationHour, user.CreatedAt, user.UpdatedAt,
		).Scan(&user.ID)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName,
		user.NotificationEnabled, user.NotificationHour, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	user.ID = id

	return nil
}

// GetUsersForNotification returns users who have reminders enabled for the
// given hour of day
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	query := r.db.Rebind(`
		SELECT * FROM users
		WHERE notification_enabled = ? AND notification_hour = ?
	`)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}

// SetNotificationHour updates when a user receives review reminders
func (r *UserRepository) SetNotificationHour(ctx context.Context, userID int64, hour int, enabled bool) error {
	query := r.db.Rebind(`
		UPDATE users SET notification_hour = ?, notification_enabled = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, hour, enabled, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update notification settings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}
