package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/studybot/internal/database"
	"github.com/example/studybot/internal/excel"
	"github.com/example/studybot/internal/review"
	"github.com/example/studybot/pkg/models"
)

// reviewSession tracks a user's ongoing revision session: the due schedules
// fetched at session start and the position within them.
type reviewSession struct {
	Schedules     []models.ReviewSchedule
	CurrentIdx    int
	Completed     int
	FailedRecalls int
	StartedAt     time.Time
}

// Bot represents the Telegram bot application
type Bot struct {
	api       *tgbotapi.BotAPI
	users     *database.UserRepository
	contents  *database.ContentRepository
	schedules *database.ScheduleRepository
	reviews   *review.Scheduler
	importer  *excel.Importer

	// Per-chat revision sessions
	sessions map[int64]*reviewSession
}

// New creates a new bot instance
func New(token string, users *database.UserRepository, contents *database.ContentRepository,
	schedules *database.ScheduleRepository, reviews *review.Scheduler, importer *excel.Importer) (*Bot, error) {

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	return &Bot{
		api:       api,
		users:     users,
		contents:  contents,
		schedules: schedules,
		reviews:   reviews,
		importer:  importer,
		sessions:  make(map[int64]*reviewSession),
	}, nil
}

// Start begins processing Telegram updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the update loop
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

// SendReminder notifies a user about due reviews. Implements the reminder
// scheduler's Notifier interface.
func (b *Bot) SendReminder(telegramID int64, dueCount int) error {
	text := fmt.Sprintf("📚 You have %d topic(s) due for review. Send /review to start a session.", dueCount)
	msg := tgbotapi.NewMessage(telegramID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// ensureUser registers the Telegram sender or refreshes their profile
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	user := &models.User{
		TelegramID:          from.ID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		NotificationEnabled: true,
		NotificationHour:    9,
	}
	if err := b.users.CreateOrUpdate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}
