package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
)

func newTestStore(t *testing.T) repositories.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestExamUpsertAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exam := &models.Exam{
		ID:              "e1",
		Title:           "Quiz",
		Timer:           10,
		StudentPassword: "s",
		GradePassword:   "g",
		Questions:       []models.Question{{ID: "q1", Type: models.FillBlank, Text: "?", CorrectAnswers: []string{"a"}, Points: 1}},
		CreatedAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.SaveExam(ctx, exam); err != nil {
		t.Fatalf("SaveExam() error = %v", err)
	}

	exam.Title = "Quiz v2"
	if err := store.SaveExam(ctx, exam); err != nil {
		t.Fatalf("SaveExam() error = %v", err)
	}

	exams, err := store.GetExams(ctx)
	if err != nil {
		t.Fatalf("GetExams() error = %v", err)
	}
	if len(exams) != 1 || exams[0].Title != "Quiz v2" {
		t.Errorf("exams = %+v, want single updated exam", exams)
	}

	got, err := store.GetExam(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExam() error = %v", err)
	}
	if !got.CreatedAt.Equal(exam.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, exam.CreatedAt)
	}

	if err := store.DeleteExam(ctx, "e1"); err != nil {
		t.Fatalf("DeleteExam() error = %v", err)
	}
	if _, err := store.GetExam(ctx, "e1"); !repositories.IsNotFoundError(err) {
		t.Errorf("GetExam() after delete error = %v, want not found", err)
	}
}

func TestResultsPersistAnswers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := &models.ExamResult{
		ExamID:      "e1",
		StudentName: "ann",
		Score:       2,
		TotalPoints: 3,
		Percentage:  66.7,
		CompletedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Answers: []models.StudentAnswer{
			{QuestionID: "q1", Answer: models.TextAnswer("Paris")},
			{QuestionID: "q2", Answer: models.SelectionsAnswer([]string{"A", "B"})},
		},
	}
	if err := store.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	results, err := store.GetResults(ctx, "e1")
	if err != nil {
		t.Fatalf("GetResults() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	answers := results[0].Answers
	if len(answers) != 2 {
		t.Fatalf("answers = %d, want 2", len(answers))
	}
	if answers[0].Answer.Kind != models.AnswerText || answers[0].Answer.Text != "Paris" {
		t.Errorf("text answer survived as %+v", answers[0].Answer)
	}
	if answers[1].Answer.Kind != models.AnswerSelections || len(answers[1].Answer.Selections) != 2 {
		t.Errorf("selections answer survived as %+v", answers[1].Answer)
	}

	none, err := store.GetResults(ctx, "other")
	if err != nil {
		t.Fatalf("GetResults(other) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("results for other exam = %d, want 0", len(none))
	}
}

func TestSessionSlot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSession(ctx); !repositories.IsNotFoundError(err) {
		t.Fatalf("GetSession() on empty store error = %v, want not found", err)
	}

	session := &models.ExamSession{
		ExamID:      "e1",
		StudentName: "ann",
		StartTime:   time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC),
	}
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := store.GetSession(ctx)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.ExamID != "e1" || !got.StartTime.Equal(session.StartTime) {
		t.Errorf("session = %+v", got)
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx); !repositories.IsNotFoundError(err) {
		t.Errorf("GetSession() after clear error = %v, want not found", err)
	}
}
