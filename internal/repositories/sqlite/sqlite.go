// Package sqlite is the default file-backed Store. Exams and results are kept
// as JSON documents so the on-disk shape matches the exam file format, and
// the three tables map one-to-one onto the three storage namespaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"

	_ "modernc.org/sqlite"
)

type store struct {
	db *sql.DB
}

func New(dbPath string) (repositories.Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id TEXT NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_exam_id ON results(exam_id);

	CREATE TABLE IF NOT EXISTS session (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		data TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *store) SaveExam(ctx context.Context, exam *models.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exams (id, data, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		exam.ID, string(data), exam.CreatedAt,
	)
	return err
}

func (s *store) GetExams(ctx context.Context) ([]models.Exam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM exams ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []models.Exam
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var exam models.Exam
		if err := json.Unmarshal([]byte(data), &exam); err != nil {
			return nil, fmt.Errorf("unmarshal exam: %w", err)
		}
		exams = append(exams, exam)
	}
	return exams, rows.Err()
}

func (s *store) GetExam(ctx context.Context, id string) (*models.Exam, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM exams WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var exam models.Exam
	if err := json.Unmarshal([]byte(data), &exam); err != nil {
		return nil, fmt.Errorf("unmarshal exam: %w", err)
	}
	return &exam, nil
}

func (s *store) DeleteExam(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id = ?`, id)
	return err
}

func (s *store) SaveResult(ctx context.Context, result *models.ExamResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (exam_id, data) VALUES (?, ?)`,
		result.ExamID, string(data),
	)
	return err
}

func (s *store) GetResults(ctx context.Context, examID string) ([]models.ExamResult, error) {
	query := `SELECT data FROM results ORDER BY id`
	args := []any{}
	if examID != "" {
		query = `SELECT data FROM results WHERE exam_id = ? ORDER BY id`
		args = append(args, examID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ExamResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var result models.ExamResult
		if err := json.Unmarshal([]byte(data), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (s *store) SaveSession(ctx context.Context, session *models.ExamSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session (slot, data) VALUES (1, ?)
		 ON CONFLICT(slot) DO UPDATE SET data = excluded.data`,
		string(data),
	)
	return err
}

func (s *store) GetSession(ctx context.Context) (*models.ExamSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM session WHERE slot = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var session models.ExamSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *store) ClearSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE slot = 1`)
	return err
}
