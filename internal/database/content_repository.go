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

// ErrContentNotFound is returned when a content id does not exist.
var ErrContentNotFound = errors.New("content not found")

// ContentRepository handles database operations for study content and the
// topics extracted from it.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new repository instance
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// CreateContent inserts a new content item
func (r *ContentRepository) CreateContent(ctx context.Context, content *models.Content) error {
	now := time.Now()
	content.CreatedAt = now
	content.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO contents (user_id, title, source_file, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowContext(ctx, query+" RETURNING id",
			content.UserID, content.Title, content.SourceFile, content.CreatedAt, content.UpdatedAt,
		).Scan(&content.ID)
		if err != nil {
			return fmt.Errorf("failed to create content: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query,
		content.UserID, content.Title, content.SourceFile, content.CreatedAt, content.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	content.ID = id

	return nil
}

// CreateTopic inserts a new topic under a content item
func (r *ContentRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	now := time.Now()
	topic.CreatedAt = now
	topic.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO topics (content_id, user_id, name, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowContext(ctx, query+" RETURNING id",
			topic.ContentID, topic.UserID, topic.Name, topic.Position, topic.CreatedAt, topic.UpdatedAt,
		).Scan(&topic.ID)
		if err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}
		return nil
	}

	result, err := r.db.ExecContext(ctx, query,
		topic.ContentID, topic.UserID, topic.Name, topic.Position, topic.CreatedAt, topic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	topic.ID = id

	return nil
}

// GetContentByID returns a content item by ID
func (r *ContentRepository) GetContentByID(ctx context.Context, id int64) (*models.Content, error) {
	var content models.Content
	query := r.db.Rebind(`SELECT * FROM contents WHERE id = ?`)

	err := r.db.GetContext(ctx, &content, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return &content, nil
}

// GetContentsByUser returns all content items owned by a user, newest first
func (r *ContentRepository) GetContentsByUser(ctx context.Context, userID int64) ([]models.Content, error) {
	query := r.db.Rebind(`
		SELECT * FROM contents
		WHERE user_id = ?
		ORDER BY created_at DESC
	`)

	var contents []models.Content
	if err := r.db.SelectContext(ctx, &contents, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get contents: %w", err)
	}
	return contents, nil
}

// GetTopicsByContent returns a content item's topics in source order
func (r *ContentRepository) GetTopicsByContent(ctx context.Context, contentID int64) ([]models.Topic, error) {
	query := r.db.Rebind(`
		SELECT * FROM topics
		WHERE content_id = ?
		ORDER BY position ASC
	`)

	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, contentID); err != nil {
		return nil, fmt.Errorf("failed to get topics: %w", err)
	}
	return topics, nil
}

// DeleteContent removes a content item and its topics in one transaction.
// Review schedules referencing the content are cascaded separately by the
// review scheduler before this is called.
func (r *ContentRepository) DeleteContent(ctx context.Context, userID, contentID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM topics WHERE content_id = ?"), contentID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete topics: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind("DELETE FROM contents WHERE id = ? AND user_id = ?"), contentID, userID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		tx.Rollback()
		return ErrContentNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
