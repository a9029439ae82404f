package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

// ExamFileExtension marks portable exam files. The content is plain
// pretty-printed JSON, so files stay human-diffable.
const ExamFileExtension = ".question"

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

type transferService struct {
	store     repositories.Store
	grading   GradingService
	publisher *events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewTransferService(store repositories.Store, grading GradingService, publisher *events.Publisher, logger *slog.Logger, validator *validator.Validator) TransferService {
	return &transferService{
		store:     store,
		grading:   grading,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *transferService) ExportExam(ctx context.Context, examID string) (*ExportedFile, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	data, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize exam: %w", err)
	}

	return &ExportedFile{
		Filename:    SanitizeFilename(exam.Title) + ExamFileExtension,
		ContentType: "application/json",
		Data:        data,
	}, nil
}

func (s *transferService) ExportExamToDir(ctx context.Context, examID, dir string) (string, error) {
	file, err := s.ExportExam(ctx, examID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(dir, file.Filename)
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write exam file: %w", err)
	}

	s.logger.Info("Exam exported", "exam_id", examID, "path", path)
	return path, nil
}

func (s *transferService) ImportExam(ctx context.Context, data []byte) (*models.Exam, error) {
	var exam models.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q has wrong type", ErrInvalidExamFile, typeErr.Field)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidExamFile, err)
	}

	if err := validateExamDocument(&exam); err != nil {
		return nil, err
	}
	for i := range exam.Questions {
		if err := s.validator.ValidateQuestion(&exam.Questions[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidExamFile, err)
		}
	}

	if err := s.store.SaveExam(ctx, &exam); err != nil {
		return nil, fmt.Errorf("failed to save imported exam: %w", err)
	}

	s.logger.Info("Exam imported",
		"exam_id", exam.ID,
		"title", exam.Title,
		"questions", len(exam.Questions))

	if err := s.publisher.Publish(events.TopicExamImported, events.ExamEvent{
		ExamID:     exam.ID,
		Title:      exam.Title,
		Questions:  len(exam.Questions),
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("Failed to publish exam imported event", "exam_id", exam.ID, "error", err)
	}

	return &exam, nil
}

// validateExamDocument checks the required file fields before anything is
// persisted, so a corrupt file cannot leave partial state behind.
func validateExamDocument(exam *models.Exam) error {
	switch {
	case exam.ID == "":
		return fmt.Errorf("%w: missing exam id", ErrInvalidExamFile)
	case exam.Title == "":
		return fmt.Errorf("%w: missing exam title", ErrInvalidExamFile)
	case exam.Timer <= 0:
		return fmt.Errorf("%w: timer must be a positive number of minutes", ErrInvalidExamFile)
	case exam.StudentPassword == "":
		return fmt.Errorf("%w: missing student password", ErrInvalidExamFile)
	case exam.GradePassword == "":
		return fmt.Errorf("%w: missing grade password", ErrInvalidExamFile)
	case len(exam.Questions) == 0:
		return fmt.Errorf("%w: exam has no questions", ErrInvalidExamFile)
	}
	return nil
}

func (s *transferService) ResultsCSV(ctx context.Context, examID, gradePassword string) (*ExportedFile, error) {
	exam, results, err := s.gatedResults(ctx, examID, gradePassword)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	writeCSVRow(&b, resultColumns())
	for _, r := range results {
		writeCSVRow(&b, resultRow(&r))
	}

	return &ExportedFile{
		Filename:    SanitizeFilename(exam.Title) + "_results.csv",
		ContentType: "text/csv",
		Data:        []byte(b.String()),
	}, nil
}

func (s *transferService) ResultsXLSX(ctx context.Context, examID, gradePassword string) (*ExportedFile, error) {
	exam, results, err := s.gatedResults(ctx, examID, gradePassword)
	if err != nil {
		return nil, err
	}

	const sheet = "Results"
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}

	for col, header := range resultColumns() {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	for row, r := range results {
		for col, value := range resultRow(&r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write result row: %w", err)
			}
		}
	}

	// Summary block below the table.
	stats := s.grading.CalculateStatistics(results)
	summary := [][2]any{
		{"Total Students", stats.TotalStudents},
		{"Average Score", fmt.Sprintf("%.1f%%", stats.AverageScore)},
		{"Highest Score", fmt.Sprintf("%.1f%%", stats.HighestScore)},
		{"Lowest Score", fmt.Sprintf("%.1f%%", stats.LowestScore)},
	}
	base := len(results) + 3
	for i, row := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, base+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, base+i)
		if err := f.SetCellValue(sheet, labelCell, row[0]); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
		if err := f.SetCellValue(sheet, valueCell, row[1]); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	return &ExportedFile{
		Filename:    SanitizeFilename(exam.Title) + "_results.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func (s *transferService) gatedResults(ctx context.Context, examID, gradePassword string) (*models.Exam, []models.ExamResult, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !s.grading.ValidatePassword(gradePassword, exam.GradePassword) {
		return nil, nil, ErrInvalidPassword
	}
	results, err := s.store.GetResults(ctx, examID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get results: %w", err)
	}
	return exam, results, nil
}

func resultColumns() []string {
	return []string{"Student Name", "Score", "Total Points", "Percentage", "Grade", "Date Completed", "Time Spent (min)"}
}

func resultRow(r *models.ExamResult) []string {
	return []string{
		r.StudentName,
		fmt.Sprintf("%d", r.Score),
		fmt.Sprintf("%d", r.TotalPoints),
		fmt.Sprintf("%.1f%%", r.Percentage),
		models.LetterGrade(r.Percentage),
		r.CompletedAt.Format("1/2/2006"),
		fmt.Sprintf("%d", r.TimeSpent),
	}
}

// writeCSVRow quote-wraps every field, matching the fixed export format.
func writeCSVRow(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// SanitizeFilename lower-cases the title and replaces every non-alphanumeric
// rune with an underscore.
func SanitizeFilename(title string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "_")
}
