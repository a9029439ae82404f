package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

type examService struct {
	store     repositories.Store
	grading   GradingService
	publisher *events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(store repositories.Store, grading GradingService, publisher *events.Publisher, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		store:     store,
		grading:   grading,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *examService) Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exam := &models.Exam{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Timer:           req.Timer,
		StudentPassword: req.StudentPassword,
		GradePassword:   req.GradePassword,
		CreatedAt:       time.Now(),
	}
	for _, qr := range req.Questions {
		exam.Questions = append(exam.Questions, models.Question{
			ID:             uuid.NewString(),
			Type:           qr.Type,
			Text:           qr.Text,
			Image:          qr.Image,
			Options:        qr.Options,
			CorrectAnswers: qr.CorrectAnswers,
			Points:         qr.Points,
		})
	}

	for i := range exam.Questions {
		if err := s.validator.ValidateQuestion(&exam.Questions[i]); err != nil {
			return nil, NewValidationError("questions", err.Error(), nil)
		}
	}

	if err := s.store.SaveExam(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to save exam: %w", err)
	}

	s.logger.Info("Exam created",
		"exam_id", exam.ID,
		"title", exam.Title,
		"questions", len(exam.Questions))

	if err := s.publisher.Publish(events.TopicExamCreated, events.ExamEvent{
		ExamID:     exam.ID,
		Title:      exam.Title,
		Questions:  len(exam.Questions),
		OccurredAt: time.Now(),
	}); err != nil {
		s.logger.Warn("Failed to publish exam created event", "exam_id", exam.ID, "error", err)
	}

	return exam, nil
}

func (s *examService) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.store.GetExam(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context) ([]models.Exam, error) {
	exams, err := s.store.GetExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (s *examService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExam(ctx, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}
	s.logger.Info("Exam deleted", "exam_id", id)
	return nil
}

func (s *examService) GetResults(ctx context.Context, examID, gradePassword string) ([]models.ExamResult, error) {
	exam, err := s.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !s.grading.ValidatePassword(gradePassword, exam.GradePassword) {
		return nil, ErrInvalidPassword
	}

	results, err := s.store.GetResults(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	return results, nil
}

func (s *examService) GetStatistics(ctx context.Context, examID, gradePassword string) (*models.ExamStatistics, error) {
	results, err := s.GetResults(ctx, examID, gradePassword)
	if err != nil {
		return nil, err
	}
	stats := s.grading.CalculateStatistics(results)
	return &stats, nil
}
