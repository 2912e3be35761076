package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/studybot/internal/database"
	"github.com/example/studybot/internal/review"
	"github.com/example/studybot/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	Title       string // Content title; defaults to the file name
	TopicColumn string // Column with the topic name
	SheetName   string // Name of the sheet to import
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		TopicColumn: "A",
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	ContentID        int64
	TotalProcessed   int
	TopicsCreated    int
	SchedulesCreated int
	Skipped          int
	Errors           []string
}

// Importer turns a topic outline file into a content item with topics and
// fresh review schedules.
type Importer struct {
	contents  *database.ContentRepository
	scheduler *review.Scheduler
}

// New creates a new importer
func New(contents *database.ContentRepository, scheduler *review.Scheduler) *Importer {
	return &Importer{contents: contents, scheduler: scheduler}
}

// ImportTopics reads topic names from an Excel or CSV file, creates one
// content item with those topics, and seeds a review schedule per topic.
func (im *Importer) ImportTopics(ctx context.Context, userID int64, config ImportConfig) (*ImportResult, error) {
	var names []string
	var err error

	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		names, err = readTopicsFromCSV(config)
	} else {
		names, err = readTopicsFromExcel(config)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		TotalProcessed: len(names),
		Errors:         make([]string, 0),
	}

	title := config.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(config.FilePath), ext)
	}

	content := &models.Content{
		UserID:     userID,
		Title:      title,
		SourceFile: filepath.Base(config.FilePath),
	}
	if err := im.contents.CreateContent(ctx, content); err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}
	result.ContentID = content.ID

	var topics []models.Topic
	seen := make(map[string]bool)
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			result.Skipped++
			continue
		}
		seen[strings.ToLower(name)] = true

		topic := models.Topic{
			ContentID: content.ID,
			UserID:    userID,
			Name:      name,
			Position:  i,
		}
		if err := im.contents.CreateTopic(ctx, &topic); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Topic %q: %v", name, err))
			continue
		}
		result.TopicsCreated++
		topics = append(topics, topic)
	}

	batch := im.scheduler.CreateSchedulesForContent(ctx, userID, content.ID, topics)
	result.SchedulesCreated = len(batch.Created)
	for _, failure := range batch.Failed {
		result.Errors = append(result.Errors, fmt.Sprintf("Schedule for topic %q: %v", failure.TopicName, failure.Err))
	}

	return result, nil
}

// readTopicsFromExcel extracts topic names from an Excel file
func readTopicsFromExcel(config ImportConfig) ([]string, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	col, err := excelize.ColumnNameToNumber(config.TopicColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid topic column %q: %w", config.TopicColumn, err)
	}

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	var names []string
	for i, row := range rows {
		// Skip header rows
		if i < config.StartRow-1 {
			continue
		}
		if len(row) < col {
			names = append(names, "")
			continue
		}
		names = append(names, row[col-1])
	}

	return names, nil
}

// readTopicsFromCSV extracts topic names from a CSV file
func readTopicsFromCSV(config ImportConfig) ([]string, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	col, err := excelize.ColumnNameToNumber(config.TopicColumn)
	if err != nil {
		return nil, fmt.Errorf("invalid topic column %q: %w", config.TopicColumn, err)
	}

	var names []string
	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		if len(row) < col {
			names = append(names, "")
			continue
		}
		names = append(names, row[col-1])
	}

	return names, nil
}
