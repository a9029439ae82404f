package repositories

import (
	"context"

	"github.com/cbt-exam/cbt-service/internal/models"
)

// Store is the persistence contract over the three fixed namespaces: the exam
// collection, the append-only result collection, and the single active
// session slot. Every backend must preserve these semantics exactly.
type Store interface {
	// Exam collection: upsert by id.
	SaveExam(ctx context.Context, exam *models.Exam) error
	GetExams(ctx context.Context) ([]models.Exam, error)
	// GetExam returns ErrNotFound (see IsNotFoundError) when the id is absent.
	GetExam(ctx context.Context, id string) (*models.Exam, error)
	// DeleteExam is a no-op for absent ids.
	DeleteExam(ctx context.Context, id string) error

	// Result collection: append-only, no dedup, never mutated.
	SaveResult(ctx context.Context, result *models.ExamResult) error
	// GetResults returns all results, or only those for examID when non-empty.
	GetResults(ctx context.Context, examID string) ([]models.ExamResult, error)

	// Session slot: SaveSession always overwrites the one slot.
	SaveSession(ctx context.Context, session *models.ExamSession) error
	// GetSession returns ErrNotFound when no session is active.
	GetSession(ctx context.Context) (*models.ExamSession, error)
	ClearSession(ctx context.Context) error

	// Health check.
	Ping(ctx context.Context) error

	Close() error
}
