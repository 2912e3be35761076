package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/studybot/internal/database"
	"github.com/example/studybot/internal/review"
	"github.com/example/studybot/pkg/models"
)

// Notifier interface for sending review reminders
type Notifier interface {
	SendReminder(telegramID int64, dueCount int) error
}

// Scheduler runs the hourly reminder job. Due-item discovery inside the
// review scheduler stays pull-based; this loop only counts what is already
// due and pings the user.
type Scheduler struct {
	scheduler *gocron.Scheduler
	users     *database.UserRepository
	reviews   *review.Scheduler
	notifier  Notifier

	// Reminders are only sent between these hours of day
	startHour int
	endHour   int
}

// New creates a new scheduler instance
func New(users *database.UserRepository, reviews *review.Scheduler, notifier Notifier, startHour, endHour int) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		users:     users,
		reviews:   reviews,
		notifier:  notifier,
		startHour: startHour,
		endHour:   endHour,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Schedule hourly check for users who need reminders
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders checks for users with due reviews and notifies them
func (s *Scheduler) checkAndSendReminders() {
	now := time.Now()
	currentHour := now.Hour()

	if currentHour < s.startHour || currentHour > s.endHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, s.startHour, s.endHour)
		return
	}

	ctx := context.Background()

	users, err := s.users.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		log.Printf("Error getting users for notification: %v", err)
		return
	}

	for _, user := range users {
		due, err := s.reviews.GetDueSchedules(ctx, user.ID, now)
		if err != nil {
			log.Printf("Error getting due schedules for user %d: %v", user.ID, err)
			continue
		}

		if len(due) > 0 {
			if err := s.notifier.SendReminder(user.TelegramID, len(due)); err != nil {
				log.Printf("Error sending reminder to user %d: %v", user.ID, err)
			}
		}
	}
}

// RunManualCheck forces a reminder check for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, user *models.User) error {
	due, err := s.reviews.GetDueSchedules(ctx, user.ID, time.Now())
	if err != nil {
		return err
	}

	if len(due) > 0 {
		return s.notifier.SendReminder(user.TelegramID, len(due))
	}

	return nil
}
