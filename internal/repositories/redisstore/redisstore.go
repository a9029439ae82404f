// Package redisstore keeps the three storage namespaces under three fixed
// Redis keys, mirroring the keyed local storage of the browser original.
// Collection reads and writes are read-modify-write without transactional
// isolation, which the storage contract accepts for a single-user client.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
)

const (
	examsKey   = "cbt:exams"
	resultsKey = "cbt:results"
	sessionKey = "cbt:current_session"
)

type store struct {
	client *redis.Client
}

func New(client *redis.Client) repositories.Store {
	return &store{client: client}
}

func (s *store) getJSON(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return repositories.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (s *store) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *store) SaveExam(ctx context.Context, exam *models.Exam) error {
	exams, err := s.GetExams(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range exams {
		if exams[i].ID == exam.ID {
			exams[i] = *exam
			replaced = true
			break
		}
	}
	if !replaced {
		exams = append(exams, *exam)
	}
	return s.setJSON(ctx, examsKey, exams)
}

func (s *store) GetExams(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := s.getJSON(ctx, examsKey, &exams); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return exams, nil
}

func (s *store) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	exams, err := s.GetExams(ctx)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		if exams[i].ID == id {
			exam := exams[i]
			return &exam, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *store) DeleteExam(ctx context.Context, id string) error {
	exams, err := s.GetExams(ctx)
	if err != nil {
		return err
	}
	kept := exams[:0]
	for _, e := range exams {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.setJSON(ctx, examsKey, kept)
}

func (s *store) SaveResult(ctx context.Context, result *models.ExamResult) error {
	results, err := s.GetResults(ctx, "")
	if err != nil {
		return err
	}
	results = append(results, *result)
	return s.setJSON(ctx, resultsKey, results)
}

func (s *store) GetResults(ctx context.Context, examID string) ([]models.ExamResult, error) {
	var results []models.ExamResult
	if err := s.getJSON(ctx, resultsKey, &results); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	if examID == "" {
		return results, nil
	}
	filtered := results[:0]
	for _, r := range results {
		if r.ExamID == examID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *store) SaveSession(ctx context.Context, session *models.ExamSession) error {
	return s.setJSON(ctx, sessionKey, session)
}

func (s *store) GetSession(ctx context.Context) (*models.ExamSession, error) {
	var session models.ExamSession
	if err := s.getJSON(ctx, sessionKey, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *store) ClearSession(ctx context.Context) error {
	if err := s.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", sessionKey, err)
	}
	return nil
}

func (s *store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *store) Close() error {
	return s.client.Close()
}
