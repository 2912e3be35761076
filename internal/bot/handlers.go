package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/studybot/internal/excel"
	"github.com/example/studybot/internal/review"
	"github.com/example/studybot/internal/spaced_repetition"
	"github.com/example/studybot/pkg/models"
)

const helpText = `Commands:
/review - start a revision session with your due topics
/stats - show your learning progress
/topics - list your study materials
/help - show this message

Upload an .xlsx or .csv file with one topic per row to add new study material.`

// handleUpdate routes an incoming Telegram update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Document != nil:
		b.handleDocument(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		log.Printf("Failed to register user %d: %v", msg.From.ID, err)
		b.send(msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	switch msg.Command() {
	case "start":
		b.send(msg.Chat.ID, fmt.Sprintf("Hi %s! I track your study topics and tell you when to review them.\n\n%s", user.FirstName, helpText))
	case "help":
		b.send(msg.Chat.ID, helpText)
	case "review":
		b.startReviewSession(ctx, msg.Chat.ID, user)
	case "stats":
		b.sendStats(ctx, msg.Chat.ID, user)
	case "topics":
		b.sendTopicList(ctx, msg.Chat.ID, user)
	default:
		b.send(msg.Chat.ID, "Unknown command. "+helpText)
	}
}

// startReviewSession fetches the user's due schedules once and walks them
// one at a time
func (b *Bot) startReviewSession(ctx context.Context, chatID int64, user *models.User) {
	due, err := b.reviews.GetDueSchedules(ctx, user.ID, time.Now())
	if err != nil {
		log.Printf("Failed to get due schedules for user %d: %v", user.ID, err)
		b.send(chatID, "Could not load your due topics, please try again.")
		return
	}

	if len(due) == 0 {
		b.send(chatID, "🎉 Nothing is due right now. Come back later!")
		return
	}

	b.sessions[chatID] = &reviewSession{
		Schedules: due,
		StartedAt: time.Now(),
	}
	b.send(chatID, fmt.Sprintf("You have %d topic(s) due. Rate how well you recall each one from 0 (blackout) to 5 (perfect).", len(due)))
	b.sendNextReviewPrompt(chatID)
}

func (b *Bot) sendNextReviewPrompt(chatID int64) {
	session, ok := b.sessions[chatID]
	if !ok {
		return
	}

	if session.CurrentIdx >= len(session.Schedules) {
		b.finishReviewSession(chatID, session)
		return
	}

	schedule := session.Schedules[session.CurrentIdx]
	text := fmt.Sprintf("(%d/%d) How well do you recall:\n\n📖 %s\n\nMastery: %d%%, reviewed %d time(s)",
		session.CurrentIdx+1, len(session.Schedules), schedule.TopicName, schedule.MasteryLevel, schedule.ReviewCount)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = ratingKeyboard(schedule.ID)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send review prompt to chat %d: %v", chatID, err)
	}
}

func (b *Bot) finishReviewSession(chatID int64, session *reviewSession) {
	delete(b.sessions, chatID)
	b.send(chatID, fmt.Sprintf("Session complete! Reviewed %d topic(s), %d needed another look. Send /review again to check for newly due items.",
		session.Completed, session.FailedRecalls))
}

// ratingKeyboard builds the 0-5 quality keyboard for one schedule
func ratingKeyboard(scheduleID int64) tgbotapi.InlineKeyboardMarkup {
	labels := []string{"0 ❌", "1", "2", "3", "4", "5 ✅"}
	var row []tgbotapi.InlineKeyboardButton
	for q, label := range labels {
		data := fmt.Sprintf("rate:%d:%d", scheduleID, q)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Acknowledge the button press
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}

	parts := strings.Split(query.Data, ":")
	switch parts[0] {
	case "rate":
		b.handleRating(ctx, query, parts)
	case "delcontent":
		b.handleContentDelete(ctx, query, parts)
	}
}

func (b *Bot) handleRating(ctx context.Context, query *tgbotapi.CallbackQuery, parts []string) {
	chatID := query.Message.Chat.ID
	if len(parts) != 3 {
		return
	}

	scheduleID, err1 := strconv.ParseInt(parts[1], 10, 64)
	quality, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return
	}

	updated, err := b.reviews.RecordReview(ctx, scheduleID, spaced_repetition.QualityResponse(quality))
	if err != nil {
		switch {
		case errors.Is(err, spaced_repetition.ErrInvalidQuality):
			b.send(chatID, "That rating is not valid, use 0 to 5.")
		case errors.Is(err, review.ErrScheduleNotFound):
			b.send(chatID, "That topic no longer exists, skipping it.")
			b.advanceSession(chatID, false)
		default:
			log.Printf("Failed to record review for schedule %d: %v", scheduleID, err)
			b.send(chatID, "The review was not recorded, please tap a rating again.")
		}
		return
	}

	days := "days"
	if updated.Interval == 1 {
		days = "day"
	}
	text := fmt.Sprintf("📖 %s\nNext review in %d %s (%s), mastery %d%%.",
		updated.TopicName, updated.Interval, days,
		updated.NextReviewDate.Format("Jan 2"), updated.MasteryLevel)

	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit review message: %v", err)
	}

	b.advanceSession(chatID, quality < int(spaced_repetition.QualityCorrectDifficult))
}

func (b *Bot) advanceSession(chatID int64, failedRecall bool) {
	session, ok := b.sessions[chatID]
	if !ok {
		return
	}
	session.CurrentIdx++
	session.Completed++
	if failedRecall {
		session.FailedRecalls++
	}
	b.sendNextReviewPrompt(chatID)
}

func (b *Bot) sendStats(ctx context.Context, chatID int64, user *models.User) {
	schedules, err := b.schedules.GetAllByUser(ctx, user.ID)
	if err != nil {
		log.Printf("Failed to get schedules for user %d: %v", user.ID, err)
		b.send(chatID, "Could not load your stats, please try again.")
		return
	}

	if len(schedules) == 0 {
		b.send(chatID, "No topics yet. Upload an .xlsx or .csv file to get started.")
		return
	}

	now := time.Now()
	var due, mastered, masterySum int
	for i := range schedules {
		if !schedules[i].NextReviewDate.After(now) {
			due++
		}
		if b.reviews.IsMastered(&schedules[i]) {
			mastered++
		}
		masterySum += schedules[i].MasteryLevel
	}

	text := fmt.Sprintf("📊 Your progress:\n\nTopics tracked: %d\nDue now: %d\nMastered: %d\nAverage mastery: %d%%",
		len(schedules), due, mastered, masterySum/len(schedules))
	b.send(chatID, text)
}

func (b *Bot) sendTopicList(ctx context.Context, chatID int64, user *models.User) {
	contents, err := b.contents.GetContentsByUser(ctx, user.ID)
	if err != nil {
		log.Printf("Failed to get contents for user %d: %v", user.ID, err)
		b.send(chatID, "Could not load your materials, please try again.")
		return
	}

	if len(contents) == 0 {
		b.send(chatID, "No study materials yet. Upload an .xlsx or .csv file with one topic per row.")
		return
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton
	var sb strings.Builder
	sb.WriteString("Your study materials:\n")
	for _, content := range contents {
		schedules, err := b.schedules.GetByContentID(ctx, content.ID)
		if err != nil {
			log.Printf("Failed to count schedules for content %d: %v", content.ID, err)
			continue
		}
		sb.WriteString(fmt.Sprintf("\n📚 %s — %d topic(s)", content.Title, len(schedules)))
		keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑 Delete %s", content.Title),
				fmt.Sprintf("delcontent:%d", content.ID),
			),
		})
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send topic list: %v", err)
	}
}

// handleContentDelete cascades schedule deletion before removing the content
// item itself
func (b *Bot) handleContentDelete(ctx context.Context, query *tgbotapi.CallbackQuery, parts []string) {
	chatID := query.Message.Chat.ID
	if len(parts) != 2 {
		return
	}

	contentID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	user, err := b.ensureUser(ctx, query.From)
	if err != nil {
		log.Printf("Failed to resolve user %d: %v", query.From.ID, err)
		return
	}

	result, err := b.reviews.DeleteSchedulesForContent(ctx, contentID)
	if err != nil {
		log.Printf("Failed to cascade schedules for content %d: %v", contentID, err)
		b.send(chatID, "Could not delete that material, please try again.")
		return
	}
	if len(result.Failed) > 0 {
		log.Printf("Cascade for content %d left %d schedule(s) behind", contentID, len(result.Failed))
	}

	if err := b.contents.DeleteContent(ctx, user.ID, contentID); err != nil {
		log.Printf("Failed to delete content %d: %v", contentID, err)
		b.send(chatID, "Could not delete that material, please try again.")
		return
	}

	b.send(chatID, fmt.Sprintf("Deleted the material and %d schedule(s).", result.Deleted))
}

// handleDocument imports an uploaded topic outline file
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		log.Printf("Failed to register user %d: %v", msg.From.ID, err)
		return
	}

	doc := msg.Document
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		b.send(msg.Chat.ID, "Please upload an .xlsx or .csv file with one topic per row.")
		return
	}

	localPath, err := b.downloadDocument(doc)
	if err != nil {
		log.Printf("Failed to download document %s: %v", doc.FileName, err)
		b.send(msg.Chat.ID, "Could not download the file, please try again.")
		return
	}
	defer os.Remove(localPath)

	config := excel.DefaultImportConfig()
	config.FilePath = localPath
	config.Title = strings.TrimSuffix(doc.FileName, ext)
	config.StartRow = 1 // topic outlines usually have no header row

	result, err := b.importer.ImportTopics(ctx, user.ID, config)
	if err != nil {
		log.Printf("Failed to import %s: %v", doc.FileName, err)
		b.send(msg.Chat.ID, "Import failed, please check the file format.")
		return
	}

	text := fmt.Sprintf("Imported %d topic(s) from %q, all scheduled for review tomorrow.", result.SchedulesCreated, doc.FileName)
	if result.Skipped > 0 {
		text += fmt.Sprintf(" Skipped %d empty/duplicate row(s).", result.Skipped)
	}
	if len(result.Errors) > 0 {
		text += fmt.Sprintf(" %d row(s) failed.", len(result.Errors))
	}
	b.send(msg.Chat.ID, text)
}

// downloadDocument fetches a Telegram file to a temporary local path
func (b *Bot) downloadDocument(doc *tgbotapi.Document) (string, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file URL: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.CreateTemp("", "studybot-import-*"+filepath.Ext(doc.FileName))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return out.Name(), nil
}
