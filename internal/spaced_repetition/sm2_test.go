package spaced_repetition

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studybot/pkg/models"
)

func newTestSchedule() *models.ReviewSchedule {
	return &models.ReviewSchedule{
		ID:             1,
		UserID:         10,
		ContentID:      20,
		TopicID:        30,
		TopicName:      "Photosynthesis",
		ScheduleType:   models.ScheduleDaily,
		NextReviewDate: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		ReviewCount:    0,
		MasteryLevel:   0,
		Interval:       InitialInterval,
		EaseFactor:     InitialEaseFactor,
	}
}

func TestApply_RejectsOutOfRangeQuality(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	for _, quality := range []QualityResponse{-1, 6, 100} {
		s := newTestSchedule()
		before := *s

		err := sm.Apply(s, quality, now)

		assert.ErrorIs(t, err, ErrInvalidQuality)
		assert.Equal(t, before, *s, "schedule must be untouched for quality %d", quality)
	}
}

func TestApply_FailedRecallResetsInterval(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	for _, quality := range []QualityResponse{QualityBlackout, QualityIncorrect, QualityIncorrectFamiliar} {
		s := newTestSchedule()
		s.ReviewCount = 7
		s.Interval = 42
		s.EaseFactor = 2.1
		s.MasteryLevel = 60

		require.NoError(t, sm.Apply(s, quality, now))

		assert.Equal(t, 1, s.Interval, "quality %d must reset the interval", quality)
		assert.Equal(t, 8, s.ReviewCount, "failed recalls still count as attempts")
		assert.Less(t, s.EaseFactor, 2.1, "failed recalls erode the ease factor")
	}
}

func TestApply_IntervalGrowthCurve(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	for _, quality := range []QualityResponse{QualityCorrectDifficult, QualityCorrectHesitation, QualityPerfect} {
		// First successful review: interval stays at one day
		s := newTestSchedule()
		require.NoError(t, sm.Apply(s, quality, now))
		assert.Equal(t, 1, s.Interval, "first success with quality %d", quality)

		// Second successful review: six days
		s = newTestSchedule()
		s.ReviewCount = 1
		require.NoError(t, sm.Apply(s, quality, now))
		assert.Equal(t, 6, s.Interval, "second success with quality %d", quality)

		// From the third review on: previous interval times the updated ease
		s = newTestSchedule()
		s.ReviewCount = 2
		s.Interval = 6
		priorEase := s.EaseFactor
		require.NoError(t, sm.Apply(s, quality, now))
		q := float64(quality)
		wantEase := priorEase + (0.1 - (5-q)*(0.08+(5-q)*0.02))
		assert.Equal(t, int(math.Round(6*wantEase)), s.Interval, "exponential regime with quality %d", quality)
	}
}

func TestApply_EaseFactorNeverBelowFloor(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	for _, startEase := range []float64{1.3, 1.35, 2.5, 3.0} {
		for quality := QualityBlackout; quality <= QualityPerfect; quality++ {
			s := newTestSchedule()
			s.EaseFactor = startEase

			require.NoError(t, sm.Apply(s, quality, now))

			assert.GreaterOrEqual(t, s.EaseFactor, MinEaseFactor,
				"ease %.2f quality %d", startEase, quality)
		}
	}
}

func TestApply_MasteryStaysClamped(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	for _, startMastery := range []int{0, 10, 50, 95, 100} {
		for quality := QualityBlackout; quality <= QualityPerfect; quality++ {
			s := newTestSchedule()
			s.MasteryLevel = startMastery

			require.NoError(t, sm.Apply(s, quality, now))

			assert.GreaterOrEqual(t, s.MasteryLevel, 0)
			assert.LessOrEqual(t, s.MasteryLevel, 100)
		}
	}
}

func TestApply_MasteryDelta(t *testing.T) {
	tests := []struct {
		quality QualityResponse
		delta   int
	}{
		{QualityBlackout, -25},
		{QualityIncorrect, -15},
		{QualityIncorrectFamiliar, -5},
		{QualityCorrectDifficult, 5},
		{QualityCorrectHesitation, 15},
		{QualityPerfect, 25},
	}

	sm := NewSM2()
	now := time.Now()
	for _, tt := range tests {
		s := newTestSchedule()
		s.MasteryLevel = 50

		require.NoError(t, sm.Apply(s, tt.quality, now))

		assert.Equal(t, 50+tt.delta, s.MasteryLevel, "quality %d", tt.quality)
	}
}

func TestApply_SetsReviewDates(t *testing.T) {
	sm := NewSM2()
	now := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

	s := newTestSchedule()
	s.ReviewCount = 1
	require.NoError(t, sm.Apply(s, QualityPerfect, now))

	require.NotNil(t, s.LastReviewDate)
	assert.Equal(t, now, *s.LastReviewDate)
	assert.Equal(t, now.AddDate(0, 0, s.Interval), s.NextReviewDate)
	assert.Equal(t, 2, s.ReviewCount)
}

// Applying the same rating twice must not produce the same result: the
// review count and interval have advanced in between. Asserted explicitly so
// nobody "fixes" it later.
func TestApply_NotIdempotent(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	s := newTestSchedule()
	require.NoError(t, sm.Apply(s, QualityPerfect, now))
	first := *s

	require.NoError(t, sm.Apply(s, QualityPerfect, now))

	assert.NotEqual(t, first.Interval, s.Interval)
	assert.NotEqual(t, first.ReviewCount, s.ReviewCount)
}

// Walks a fresh schedule through three perfect recalls, then checks the
// failed-recall asymmetry on a mature schedule.
func TestApply_PerfectRecallProgression(t *testing.T) {
	sm := NewSM2()
	now := time.Now()
	s := newTestSchedule()

	require.NoError(t, sm.Apply(s, QualityPerfect, now))
	assert.InDelta(t, 2.6, s.EaseFactor, 1e-9)
	assert.Equal(t, 1, s.Interval)
	assert.Equal(t, 25, s.MasteryLevel)
	assert.Equal(t, 1, s.ReviewCount)

	require.NoError(t, sm.Apply(s, QualityPerfect, now))
	assert.InDelta(t, 2.7, s.EaseFactor, 1e-9)
	assert.Equal(t, 6, s.Interval)
	assert.Equal(t, 50, s.MasteryLevel)
	assert.Equal(t, 2, s.ReviewCount)

	require.NoError(t, sm.Apply(s, QualityPerfect, now))
	assert.InDelta(t, 2.8, s.EaseFactor, 1e-9)
	assert.Equal(t, int(math.Round(6*2.8)), s.Interval)
	assert.Equal(t, 75, s.MasteryLevel)
	assert.Equal(t, 3, s.ReviewCount)
}

func TestApply_FailedRecallOnMatureSchedule(t *testing.T) {
	sm := NewSM2()
	now := time.Now()

	s := newTestSchedule()
	s.ReviewCount = 5
	s.Interval = 20
	s.EaseFactor = 2.5
	s.MasteryLevel = 70

	require.NoError(t, sm.Apply(s, QualityIncorrect, now))

	assert.Equal(t, 1, s.Interval)
	assert.Less(t, s.EaseFactor, 2.5)
	assert.Equal(t, 55, s.MasteryLevel)
	assert.Equal(t, 6, s.ReviewCount)
}

func TestIsMastered(t *testing.T) {
	sm := NewSM2()

	s := newTestSchedule()
	assert.False(t, sm.IsMastered(s))

	s.ReviewCount = 5
	s.MasteryLevel = 85
	s.Interval = 35
	assert.True(t, sm.IsMastered(s))

	s.Interval = 10
	assert.False(t, sm.IsMastered(s))
}
