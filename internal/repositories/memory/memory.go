// Package memory provides an in-memory Store used by tests and by
// zero-configuration runs. It mirrors the backend contract exactly so the
// services can be exercised without external storage.
package memory

import (
	"context"
	"sync"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
)

type store struct {
	mu      sync.RWMutex
	exams   []models.Exam
	results []models.ExamResult
	session *models.ExamSession
}

func New() repositories.Store {
	return &store{}
}

func (s *store) SaveExam(_ context.Context, exam *models.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.exams {
		if s.exams[i].ID == exam.ID {
			s.exams[i] = *exam
			return nil
		}
	}
	s.exams = append(s.exams, *exam)
	return nil
}

func (s *store) GetExams(_ context.Context) ([]models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exams := make([]models.Exam, len(s.exams))
	copy(exams, s.exams)
	return exams, nil
}

func (s *store) GetExam(_ context.Context, id string) (*models.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.exams {
		if s.exams[i].ID == id {
			exam := s.exams[i]
			return &exam, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *store) DeleteExam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.exams {
		if s.exams[i].ID == id {
			s.exams = append(s.exams[:i], s.exams[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *store) SaveResult(_ context.Context, result *models.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
	return nil
}

func (s *store) GetResults(_ context.Context, examID string) ([]models.ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []models.ExamResult
	for _, r := range s.results {
		if examID == "" || r.ExamID == examID {
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *store) SaveSession(_ context.Context, session *models.ExamSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}

func (s *store) GetSession(_ context.Context) (*models.ExamSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, repositories.ErrNotFound
	}
	session := *s.session
	return &session, nil
}

func (s *store) ClearSession(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func (s *store) Ping(_ context.Context) error { return nil }

func (s *store) Close() error { return nil }
