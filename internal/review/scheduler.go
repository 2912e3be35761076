package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/studybot/internal/spaced_repetition"
	"github.com/example/studybot/pkg/models"
)

var (
	// ErrScheduleNotFound is returned when an operation references a schedule
	// id that does not exist in the store.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrConflict is returned by conditional writes that lost against a
	// concurrent update of the same schedule.
	ErrConflict = errors.New("schedule was modified concurrently")
)

// Store is the persistence contract the scheduler requires. Implementations
// must map a missing row to ErrScheduleNotFound and a lost conditional write
// to ErrConflict.
type Store interface {
	// Insert persists a new schedule and assigns its ID.
	Insert(ctx context.Context, s *models.ReviewSchedule) error
	// GetByID returns the schedule with the given id.
	GetByID(ctx context.Context, id int64) (*models.ReviewSchedule, error)
	// Update writes the schedule back, conditional on the review count the
	// caller read before computing the update.
	Update(ctx context.Context, s *models.ReviewSchedule, priorReviewCount int) error
	// DeleteByID removes a single schedule.
	DeleteByID(ctx context.Context, id int64) error
	// GetDueByUser returns the user's schedules with next_review_date <= by,
	// most overdue first.
	GetDueByUser(ctx context.Context, userID int64, by time.Time) ([]models.ReviewSchedule, error)
	// GetByContentID returns every schedule referencing a content item.
	GetByContentID(ctx context.Context, contentID int64) ([]models.ReviewSchedule, error)
}

// ItemFailure records one topic or schedule that a bulk operation could not
// process.
type ItemFailure struct {
	TopicID    int64
	ScheduleID int64
	TopicName  string
	Err        error
}

// BatchResult reports the outcome of a bulk schedule operation. A failed item
// never aborts the batch; the caller decides whether to retry the gaps.
type BatchResult struct {
	Created []models.ReviewSchedule
	Deleted int
	Failed  []ItemFailure
}

// Scheduler owns the spaced-repetition state machine for every (user, topic)
// pair: initial schedule creation, due-item selection, and review updates.
type Scheduler struct {
	store Store
	sm2   *spaced_repetition.SM2

	// now is the clock used for review timestamps; replaced in tests.
	now func() time.Time
	// maxAttempts bounds the read-compute-write retry loop in RecordReview.
	maxAttempts int
}

// New creates a scheduler backed by the given store.
func New(store Store) *Scheduler {
	return &Scheduler{
		store:       store,
		sm2:         spaced_repetition.NewSM2(),
		now:         time.Now,
		maxAttempts: 3,
	}
}

// CreateSchedulesForContent creates one fresh schedule per topic, all due
// tomorrow. Each topic is an independent unit of work: a failed insert is
// logged, recorded in the result, and skipped.
func (s *Scheduler) CreateSchedulesForContent(ctx context.Context, userID, contentID int64, topics []models.Topic) *BatchResult {
	result := &BatchResult{}
	now := s.now()

	for _, topic := range topics {
		schedule := models.ReviewSchedule{
			UserID:         userID,
			ContentID:      contentID,
			TopicID:        topic.ID,
			TopicName:      topic.Name,
			ScheduleType:   models.ScheduleDaily,
			NextReviewDate: now.AddDate(0, 0, 1),
			ReviewCount:    0,
			MasteryLevel:   0,
			Interval:       spaced_repetition.InitialInterval,
			EaseFactor:     spaced_repetition.InitialEaseFactor,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if err := s.store.Insert(ctx, &schedule); err != nil {
			log.Printf("Failed to create schedule for topic %d (%s): %v", topic.ID, topic.Name, err)
			result.Failed = append(result.Failed, ItemFailure{
				TopicID:   topic.ID,
				TopicName: topic.Name,
				Err:       err,
			})
			continue
		}
		result.Created = append(result.Created, schedule)
	}

	return result
}

// GetDueSchedules returns all of the user's schedules due at the reference
// time, most overdue first. Pure read, no state change.
func (s *Scheduler) GetDueSchedules(ctx context.Context, userID int64, now time.Time) ([]models.ReviewSchedule, error) {
	due, err := s.store.GetDueByUser(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due schedules: %w", err)
	}
	return due, nil
}

// RecordReview applies one SM-2 update to the schedule for a review rated
// quality in [0,5]. The rating is validated before anything is read or
// computed. The write is conditional on the review count read beforehand, so
// a concurrent update of the same schedule cannot be silently lost; the
// read-compute-write cycle is retried a bounded number of times on conflict.
// On any failure the persisted schedule is left exactly as it was.
func (s *Scheduler) RecordReview(ctx context.Context, scheduleID int64, quality spaced_repetition.QualityResponse) (*models.ReviewSchedule, error) {
	if quality < spaced_repetition.QualityBlackout || quality > spaced_repetition.QualityPerfect {
		return nil, spaced_repetition.ErrInvalidQuality
	}

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		prior, err := s.store.GetByID(ctx, scheduleID)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule %d: %w", scheduleID, err)
		}

		updated := *prior
		if err := s.sm2.Apply(&updated, quality, s.now()); err != nil {
			return nil, err
		}

		err = s.store.Update(ctx, &updated, prior.ReviewCount)
		if errors.Is(err, ErrConflict) {
			log.Printf("Concurrent update of schedule %d, retrying", scheduleID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save review for schedule %d: %w", scheduleID, err)
		}
		return &updated, nil
	}

	return nil, fmt.Errorf("failed to save review for schedule %d: %w", scheduleID, ErrConflict)
}

// DeleteSchedulesForContent removes every schedule referencing the content
// item. Deletion is best-effort per schedule; failures are logged and
// reported, not fatal to the cascade.
func (s *Scheduler) DeleteSchedulesForContent(ctx context.Context, contentID int64) (*BatchResult, error) {
	schedules, err := s.store.GetByContentID(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for content %d: %w", contentID, err)
	}

	result := &BatchResult{}
	for _, schedule := range schedules {
		if err := s.store.DeleteByID(ctx, schedule.ID); err != nil {
			log.Printf("Failed to delete schedule %d for content %d: %v", schedule.ID, contentID, err)
			result.Failed = append(result.Failed, ItemFailure{
				ScheduleID: schedule.ID,
				TopicID:    schedule.TopicID,
				TopicName:  schedule.TopicName,
				Err:        err,
			})
			continue
		}
		result.Deleted++
	}

	return result, nil
}

// IsMastered reports whether a schedule has reached the mastered threshold.
func (s *Scheduler) IsMastered(schedule *models.ReviewSchedule) bool {
	return s.sm2.IsMastered(schedule)
}
