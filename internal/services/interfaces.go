package services

import (
	"context"
	"time"

	"github.com/cbt-exam/cbt-service/internal/models"
)

// ===== REQUEST/RESPONSE DTOs =====

type CreateQuestionRequest struct {
	Type           models.QuestionType `json:"type" validate:"required"`
	Text           string              `json:"text" validate:"required,max=2000"`
	Image          string              `json:"image"`
	Options        []string            `json:"options"`
	CorrectAnswers []string            `json:"correctAnswers" validate:"required,min=1"`
	Points         int                 `json:"points" validate:"required,min=1"`
}

type CreateExamRequest struct {
	Title           string                  `json:"title" validate:"required,max=200"`
	Timer           int                     `json:"timer" validate:"required,min=1"`
	StudentPassword string                  `json:"studentPassword" validate:"required"`
	GradePassword   string                  `json:"gradePassword" validate:"required"`
	Questions       []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type StartSessionRequest struct {
	ExamID      string `json:"examId" validate:"required"`
	StudentName string `json:"studentName" validate:"required,max=200"`
	Password    string `json:"password" validate:"required"`
}

type SubmitAnswerRequest struct {
	QuestionID string             `json:"questionId" validate:"required"`
	Answer     models.AnswerValue `json:"answer"`
}

// SessionView is the session as presented to the student: the exam rides
// along with correct answers and passwords stripped.
type SessionView struct {
	*models.ExamSession
	Exam          *models.Exam `json:"exam"`
	TimeRemaining int          `json:"timeRemaining"` // seconds
	CanSubmit     bool         `json:"canSubmit"`
}

// ExportedFile is a downloadable artifact built by the transfer service.
type ExportedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

type GradingService interface {
	GradeExam(questions []models.Question, answers []models.StudentAnswer) GradeSummary
	IsAnswerCorrect(question models.Question, answer models.AnswerValue) bool
	CalculateStatistics(results []models.ExamResult) models.ExamStatistics
	CalculateTimeSpent(start any, end time.Time) int
	ValidatePassword(provided, required string) bool
}

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest) (*models.Exam, error)
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context) ([]models.Exam, error)
	Delete(ctx context.Context, id string) error

	// Teacher analytics, gated by the exam's grade password.
	GetResults(ctx context.Context, examID, gradePassword string) ([]models.ExamResult, error)
	GetStatistics(ctx context.Context, examID, gradePassword string) (*models.ExamStatistics, error)
}

type TransferService interface {
	// ExportExam serializes the exam to the portable .question file.
	ExportExam(ctx context.Context, examID string) (*ExportedFile, error)
	// ExportExamToDir additionally writes the file into dir, returning the path.
	ExportExamToDir(ctx context.Context, examID, dir string) (string, error)
	// ImportExam parses and validates file content, persists the exam, and
	// returns it. A failed import leaves all prior state untouched.
	ImportExam(ctx context.Context, data []byte) (*models.Exam, error)

	ResultsCSV(ctx context.Context, examID, gradePassword string) (*ExportedFile, error)
	ResultsXLSX(ctx context.Context, examID, gradePassword string) (*ExportedFile, error)
}

type SessionService interface {
	// Start validates the student password and opens a fresh attempt,
	// overwriting any prior session and tearing down its countdown.
	Start(ctx context.Context, req *StartSessionRequest) (*SessionView, error)
	// Current loads the active attempt, resuming the countdown fresh from the
	// exam duration if the service restarted mid-attempt.
	Current(ctx context.Context) (*SessionView, error)
	SubmitAnswer(ctx context.Context, req *SubmitAnswerRequest) error
	Submit(ctx context.Context) (*models.ExamResult, error)
	TimeRemaining(ctx context.Context) (int, error)
	// Shutdown stops any running countdown without submitting.
	Shutdown(ctx context.Context) error
}
