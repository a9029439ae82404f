// Package gormstore is the Postgres-backed Store for deployments where the
// exam archive lives in a shared database instead of a local file. Exams,
// results and the session slot keep their document shape in jsonb columns so
// every backend round-trips the same JSON.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
)

const sessionSlot = 1

type examRow struct {
	ID        string         `gorm:"primaryKey;size:64"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (examRow) TableName() string { return "exams" }

type resultRow struct {
	ID        uint           `gorm:"primaryKey"`
	ExamID    string         `gorm:"not null;index;size:64"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
}

func (resultRow) TableName() string { return "results" }

type sessionRow struct {
	Slot      int            `gorm:"primaryKey"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "session" }

type store struct {
	db *gorm.DB
}

func New(db *gorm.DB) (repositories.Store, error) {
	if err := db.AutoMigrate(&examRow{}, &resultRow{}, &sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) SaveExam(ctx context.Context, exam *models.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	row := examRow{ID: exam.ID, Data: data, CreatedAt: exam.CreatedAt}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *store) GetExams(ctx context.Context) ([]models.Exam, error) {
	var rows []examRow
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	exams := make([]models.Exam, 0, len(rows))
	for _, row := range rows {
		var exam models.Exam
		if err := json.Unmarshal(row.Data, &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam %s: %w", row.ID, err)
		}
		exams = append(exams, exam)
	}
	return exams, nil
}

func (s *store) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	var row examRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var exam models.Exam
	if err := json.Unmarshal(row.Data, &exam); err != nil {
		return nil, fmt.Errorf("unmarshal exam %s: %w", id, err)
	}
	return &exam, nil
}

func (s *store) DeleteExam(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&examRow{}, "id = ?", id).Error
}

func (s *store) SaveResult(ctx context.Context, result *models.ExamResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	row := resultRow{ExamID: result.ExamID, Data: data}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *store) GetResults(ctx context.Context, examID string) ([]models.ExamResult, error) {
	query := s.db.WithContext(ctx).Order("id")
	if examID != "" {
		query = query.Where("exam_id = ?", examID)
	}
	var rows []resultRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	results := make([]models.ExamResult, 0, len(rows))
	for _, row := range rows {
		var result models.ExamResult
		if err := json.Unmarshal(row.Data, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result %d: %w", row.ID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *store) SaveSession(ctx context.Context, session *models.ExamSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	row := sessionRow{Slot: sessionSlot, Data: data}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *store) GetSession(ctx context.Context) (*models.ExamSession, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "slot = ?", sessionSlot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.ExamSession
	if err := json.Unmarshal(row.Data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *store) ClearSession(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&sessionRow{}, "slot = ?", sessionSlot).Error
}

func (s *store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
