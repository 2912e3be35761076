package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studybot/internal/database"
	"github.com/example/studybot/internal/review"
)

func newTestImporter(t *testing.T) (*Importer, *database.ContentRepository, *review.Scheduler) {
	t.Helper()
	db, err := database.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	contents := database.NewContentRepository(db)
	scheduler := review.New(database.NewScheduleRepository(db))
	return New(contents, scheduler), contents, scheduler
}

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outline.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0644))
	return path
}

func TestImportTopics_FromCSV(t *testing.T) {
	ctx := context.Background()
	importer, contents, scheduler := newTestImporter(t)

	path := writeCSV(t, "Topic\nCell structure\nMitosis\nMeiosis\n")

	config := DefaultImportConfig()
	config.FilePath = path
	config.Title = "Biology chapter 3"

	result, err := importer.ImportTopics(ctx, 10, config)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 3, result.TopicsCreated)
	assert.Equal(t, 3, result.SchedulesCreated)
	assert.Empty(t, result.Errors)
	require.NotZero(t, result.ContentID)

	content, err := contents.GetContentByID(ctx, result.ContentID)
	require.NoError(t, err)
	assert.Equal(t, "Biology chapter 3", content.Title)
	assert.Equal(t, "outline.csv", content.SourceFile)

	topics, err := contents.GetTopicsByContent(ctx, result.ContentID)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, "Cell structure", topics[0].Name)

	// Every imported topic is due tomorrow
	due, err := scheduler.GetDueSchedules(ctx, 10, time.Now().AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestImportTopics_SkipsEmptyAndDuplicateRows(t *testing.T) {
	ctx := context.Background()
	importer, _, _ := newTestImporter(t)

	path := writeCSV(t, "Topic\nOsmosis\n,\nosmosis\nDiffusion\n")

	config := DefaultImportConfig()
	config.FilePath = path

	result, err := importer.ImportTopics(ctx, 10, config)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TopicsCreated)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 2, result.SchedulesCreated)
}

func TestImportTopics_TitleDefaultsToFileName(t *testing.T) {
	ctx := context.Background()
	importer, contents, _ := newTestImporter(t)

	path := writeCSV(t, "Topic\nGlycolysis\n")

	config := DefaultImportConfig()
	config.FilePath = path

	result, err := importer.ImportTopics(ctx, 10, config)
	require.NoError(t, err)

	content, err := contents.GetContentByID(ctx, result.ContentID)
	require.NoError(t, err)
	assert.Equal(t, "outline", content.Title)
}

func TestImportTopics_MissingFile(t *testing.T) {
	importer, _, _ := newTestImporter(t)

	config := DefaultImportConfig()
	config.FilePath = filepath.Join(t.TempDir(), "missing.csv")

	_, err := importer.ImportTopics(context.Background(), 10, config)
	assert.Error(t, err)
}
