package spaced_repetition

import (
	"errors"
	"math"
	"time"

	"github.com/example/studybot/pkg/models"
)

// ErrInvalidQuality is returned when a review is rated outside the 0-5 scale.
// The rating is rejected, never clamped.
var ErrInvalidQuality = errors.New("quality must be between 0 and 5")

// QualityResponse represents the quality of recall in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

const (
	// InitialInterval is the interval in days assigned to a fresh schedule.
	InitialInterval = 1
	// InitialEaseFactor is the SM-2 starting ease factor.
	InitialEaseFactor = 2.5
	// MinEaseFactor is the hard floor the ease factor never drops below.
	MinEaseFactor = 1.3
	// SecondInterval is the interval in days after the second successful review.
	SecondInterval = 6
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Ratings at or above this value count as successful recall
	PassThreshold QualityResponse
}

// NewSM2 creates a new SM2 instance with the standard parameters
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold: QualityCorrectDifficult,
	}
}

// Apply runs one SM-2 update on the schedule for a review completed at now.
// The schedule is mutated in place; callers that need all-or-nothing persistence
// should pass a copy and write it back only after a successful save.
//
// A failed recall (quality < 3) resets the interval to one day but leaves
// ReviewCount and EaseFactor alone: the count keeps tracking total attempts,
// and repeated failures still erode the ease factor through the EF update.
func (sm *SM2) Apply(s *models.ReviewSchedule, quality QualityResponse, now time.Time) error {
	if quality < QualityBlackout || quality > QualityPerfect {
		return ErrInvalidQuality
	}

	// Update the easiness factor (EF)
	q := float64(quality)
	newEase := s.EaseFactor + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if newEase < MinEaseFactor {
		newEase = MinEaseFactor
	}

	// Calculate the next interval
	var newInterval int
	switch {
	case quality < sm.PassThreshold:
		// Failed recall - the item becomes due again tomorrow regardless of history
		newInterval = InitialInterval
	case s.ReviewCount == 0:
		newInterval = InitialInterval
	case s.ReviewCount == 1:
		newInterval = SecondInterval
	default:
		newInterval = int(math.Round(float64(s.Interval) * newEase))
	}

	s.EaseFactor = newEase
	s.Interval = newInterval
	s.MasteryLevel = clampMastery(s.MasteryLevel + masteryDelta(quality))
	s.ReviewCount++
	reviewed := now
	s.LastReviewDate = &reviewed
	s.NextReviewDate = now.AddDate(0, 0, newInterval)
	s.UpdatedAt = now

	return nil
}

// masteryDelta is the mastery change for a rating: (quality - 2.5) * 10.
// Always an integer for integer quality, from -25 (blackout) to +25 (perfect).
func masteryDelta(quality QualityResponse) int {
	return int(quality)*10 - 25
}

func clampMastery(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// IsMastered determines if a topic is considered "mastered"
func (sm *SM2) IsMastered(s *models.ReviewSchedule) bool {
	// A topic is considered mastered if:
	// 1. It has been reviewed at least 5 times
	// 2. Its mastery level is 80 or higher
	// 3. The interval has grown to at least 30 days
	return s.ReviewCount >= 5 &&
		s.MasteryLevel >= 80 &&
		s.Interval >= 30
}
