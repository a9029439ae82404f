package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

type sessionService struct {
	store     repositories.Store
	grading   GradingService
	publisher *events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
	tick      time.Duration

	mu   sync.Mutex
	ctrl *sessionController
}

// NewSessionService manages the single active attempt. tick controls the
// countdown resolution; pass 0 for the one second default.
func NewSessionService(store repositories.Store, grading GradingService, publisher *events.Publisher, logger *slog.Logger, validator *validator.Validator, tick time.Duration) SessionService {
	return &sessionService{
		store:     store,
		grading:   grading,
		publisher: publisher,
		logger:    logger,
		validator: validator,
		tick:      tick,
	}
}

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (*SessionView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exam, err := s.store.GetExam(ctx, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	if !s.grading.ValidatePassword(req.Password, exam.StudentPassword) {
		return nil, ErrInvalidPassword
	}

	session := &models.ExamSession{
		ExamID:      exam.ID,
		StudentName: req.StudentName,
		Answers:     []models.StudentAnswer{},
		StartTime:   time.Now(),
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	ctrl := s.attach(session, exam)

	s.logger.Info("Session started",
		"exam_id", exam.ID,
		"student", req.StudentName,
		"duration_seconds", int(exam.Duration().Seconds()))

	if err := s.publisher.Publish(events.TopicSessionStarted, events.SessionStartedEvent{
		ExamID:      exam.ID,
		StudentName: req.StudentName,
		OccurredAt:  time.Now(),
	}); err != nil {
		s.logger.Warn("Failed to publish session started event", "exam_id", exam.ID, "error", err)
	}

	return s.view(ctrl), nil
}

func (s *sessionService) Current(ctx context.Context) (*SessionView, error) {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ctrl), nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	ctrl, err := s.controller(ctx)
	if err != nil {
		return err
	}

	snapshot := ctrl.SetAnswer(req.QuestionID, req.Answer)
	if err := s.store.SaveSession(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *sessionService) Submit(ctx context.Context) (*models.ExamResult, error) {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, ctrl, false)
}

func (s *sessionService) TimeRemaining(ctx context.Context) (int, error) {
	ctrl, err := s.controller(ctx)
	if err != nil {
		return 0, err
	}
	return ctrl.Remaining(), nil
}

func (s *sessionService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Close()
		s.ctrl = nil
	}
	return nil
}

// controller returns the live controller, reattaching from storage after a
// restart. A reattached attempt restarts the countdown from the exam's full
// duration; the clock is never resumed from a stored value.
func (s *sessionService) controller(ctx context.Context) (*sessionController, error) {
	s.mu.Lock()
	if s.ctrl != nil {
		ctrl := s.ctrl
		s.mu.Unlock()
		return ctrl, nil
	}
	s.mu.Unlock()

	session, err := s.store.GetSession(ctx)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	exam, err := s.store.GetExam(ctx, session.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return s.attach(session, exam), nil
}

// attach installs a fresh controller for session, tearing down any prior one.
func (s *sessionService) attach(session *models.ExamSession, exam *models.Exam) *sessionController {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		s.ctrl.Close()
	}
	var ctrl *sessionController
	ctrl = newSessionController(session, exam, s.tick, func() {
		if _, err := s.finish(context.Background(), ctrl, true); err != nil {
			s.logger.Error("Failed to auto-submit expired session",
				"exam_id", exam.ID, "error", err)
		}
	})
	s.ctrl = ctrl
	return ctrl
}

// finish grades the attempt, records the result, and clears the session.
// The controller latch makes this a one-shot: a second submit, manual or
// timer-driven, fails with ErrAlreadySubmitted and changes nothing.
func (s *sessionService) finish(ctx context.Context, ctrl *sessionController, timedOut bool) (*models.ExamResult, error) {
	session, ok := ctrl.TrySubmit()
	if !ok {
		return nil, ErrAlreadySubmitted
	}
	ctrl.Close()

	now := time.Now()
	summary := s.grading.GradeExam(ctrl.exam.Questions, session.Answers)
	result := &models.ExamResult{
		ExamID:      ctrl.exam.ID,
		ExamTitle:   ctrl.exam.Title,
		StudentName: session.StudentName,
		Score:       summary.Score,
		TotalPoints: summary.TotalPoints,
		Percentage:  Percentage(summary.Score, summary.TotalPoints),
		CompletedAt: now,
		TimeSpent:   s.grading.CalculateTimeSpent(session.StartTime, now),
		Answers:     session.Answers,
	}

	if err := s.store.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	if err := s.store.ClearSession(ctx); err != nil {
		s.logger.Warn("Failed to clear session after submit", "exam_id", ctrl.exam.ID, "error", err)
	}

	s.mu.Lock()
	if s.ctrl == ctrl {
		s.ctrl = nil
	}
	s.mu.Unlock()

	s.logger.Info("Exam submitted",
		"exam_id", ctrl.exam.ID,
		"student", session.StudentName,
		"score", result.Score,
		"total_points", result.TotalPoints,
		"timed_out", timedOut)

	if err := s.publisher.Publish(events.TopicResultRecorded, events.ResultRecordedEvent{
		ExamID:      result.ExamID,
		StudentName: result.StudentName,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Percentage:  result.Percentage,
		TimedOut:    timedOut,
		OccurredAt:  now,
	}); err != nil {
		s.logger.Warn("Failed to publish result recorded event", "exam_id", result.ExamID, "error", err)
	}

	return result, nil
}

func (s *sessionService) view(ctrl *sessionController) *SessionView {
	return &SessionView{
		ExamSession:   ctrl.Snapshot(),
		Exam:          sanitizeExam(ctrl.exam),
		TimeRemaining: ctrl.Remaining(),
		CanSubmit:     true,
	}
}

// sanitizeExam strips everything a student must not see: correct answers and
// both passwords.
func sanitizeExam(exam *models.Exam) *models.Exam {
	clean := *exam
	clean.StudentPassword = ""
	clean.GradePassword = ""
	clean.Questions = make([]models.Question, len(exam.Questions))
	for i, q := range exam.Questions {
		q.CorrectAnswers = nil
		clean.Questions[i] = q
	}
	return &clean
}
