package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories"
	"github.com/cbt-exam/cbt-service/internal/repositories/memory"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

func newTransferFixture() (TransferService, repositories.Store) {
	store := memory.New()
	logger := testLogger()
	grading := NewGradingService(logger)
	publisher := events.NewPublisher(nil, logger)
	return NewTransferService(store, grading, publisher, logger, validator.New()), store
}

func sampleExam() *models.Exam {
	return &models.Exam{
		ID:              "exam-1",
		Title:           "Geography Final 2025",
		Timer:           30,
		StudentPassword: "student-pw",
		GradePassword:   "grade-pw",
		CreatedAt:       time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC),
		Questions: []models.Question{
			{
				ID:             "q1",
				Type:           models.MultipleChoice,
				Text:           "Capital of France?",
				Options:        []string{"Paris", "London", "Berlin"},
				CorrectAnswers: []string{"Paris"},
				Points:         1,
			},
			{
				ID:             "q2",
				Type:           models.Checkbox,
				Text:           "Countries in Europe?",
				Options:        []string{"France", "Japan", "Spain"},
				CorrectAnswers: []string{"France", "Spain"},
				Points:         2,
			},
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, store := newTransferFixture()
	ctx := context.Background()

	exam := sampleExam()
	if err := store.SaveExam(ctx, exam); err != nil {
		t.Fatalf("SaveExam() error = %v", err)
	}

	file, err := svc.ExportExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("ExportExam() error = %v", err)
	}
	if file.Filename != "geography_final_2025.question" {
		t.Errorf("Filename = %q, want %q", file.Filename, "geography_final_2025.question")
	}
	if file.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want application/json", file.ContentType)
	}
	if !strings.HasPrefix(string(file.Data), "{\n  ") {
		t.Errorf("export is not pretty-printed: %q", string(file.Data)[:20])
	}

	imported, err := svc.ImportExam(ctx, file.Data)
	if err != nil {
		t.Fatalf("ImportExam() error = %v", err)
	}
	if imported.ID != exam.ID || imported.Title != exam.Title || imported.Timer != exam.Timer {
		t.Errorf("imported exam = %+v, want %+v", imported, exam)
	}
	if imported.StudentPassword != exam.StudentPassword || imported.GradePassword != exam.GradePassword {
		t.Errorf("imported passwords differ")
	}
	if !imported.CreatedAt.Equal(exam.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", imported.CreatedAt, exam.CreatedAt)
	}
	if len(imported.Questions) != len(exam.Questions) {
		t.Fatalf("question count = %d, want %d", len(imported.Questions), len(exam.Questions))
	}
	for i, q := range imported.Questions {
		want := exam.Questions[i]
		if q.ID != want.ID || q.Type != want.Type || q.Text != want.Text || q.Points != want.Points {
			t.Errorf("question %d = %+v, want %+v", i, q, want)
		}
	}

	stored, err := store.GetExam(ctx, exam.ID)
	if err != nil {
		t.Fatalf("GetExam() after import error = %v", err)
	}
	if stored.Title != exam.Title {
		t.Errorf("stored title = %q, want %q", stored.Title, exam.Title)
	}
}

func TestImportExam_InvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "this is not json"},
		{"wrong field type", `{"id":"x","title":"t","timer":"thirty","studentPassword":"a","gradePassword":"b","questions":[]}`},
		{"missing id", `{"title":"t","timer":30,"studentPassword":"a","gradePassword":"b","questions":[{"id":"q","type":"mcq","text":"?","options":["A"],"correctAnswers":["A"],"points":1}]}`},
		{"missing title", `{"id":"x","timer":30,"studentPassword":"a","gradePassword":"b","questions":[{"id":"q","type":"mcq","text":"?","options":["A"],"correctAnswers":["A"],"points":1}]}`},
		{"zero timer", `{"id":"x","title":"t","timer":0,"studentPassword":"a","gradePassword":"b","questions":[{"id":"q","type":"mcq","text":"?","options":["A"],"correctAnswers":["A"],"points":1}]}`},
		{"no questions", `{"id":"x","title":"t","timer":30,"studentPassword":"a","gradePassword":"b","questions":[]}`},
		{"bad question type", `{"id":"x","title":"t","timer":30,"studentPassword":"a","gradePassword":"b","questions":[{"id":"q","type":"essay","text":"?","correctAnswers":["A"],"points":1}]}`},
		{"choice question without options", `{"id":"x","title":"t","timer":30,"studentPassword":"a","gradePassword":"b","questions":[{"id":"q","type":"mcq","text":"?","correctAnswers":["A"],"points":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTransferFixture()
			ctx := context.Background()

			_, err := svc.ImportExam(ctx, []byte(tt.data))
			if !errors.Is(err, ErrInvalidExamFile) {
				t.Fatalf("ImportExam() error = %v, want ErrInvalidExamFile", err)
			}

			// A rejected file must leave nothing behind.
			exams, err := store.GetExams(ctx)
			if err != nil {
				t.Fatalf("GetExams() error = %v", err)
			}
			if len(exams) != 0 {
				t.Errorf("store has %d exams after failed import, want 0", len(exams))
			}
		})
	}
}

func TestResultsCSV(t *testing.T) {
	svc, store := newTransferFixture()
	ctx := context.Background()

	exam := sampleExam()
	if err := store.SaveExam(ctx, exam); err != nil {
		t.Fatalf("SaveExam() error = %v", err)
	}
	results := []models.ExamResult{
		{
			ExamID:      exam.ID,
			ExamTitle:   exam.Title,
			StudentName: "Ada Lovelace",
			Score:       3,
			TotalPoints: 3,
			Percentage:  100,
			CompletedAt: time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC),
			TimeSpent:   25,
		},
		{
			ExamID:      exam.ID,
			ExamTitle:   exam.Title,
			StudentName: "Alan Turing",
			Score:       2,
			TotalPoints: 3,
			Percentage:  66.66666666666666,
			CompletedAt: time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC),
			TimeSpent:   28,
		},
	}
	for i := range results {
		if err := store.SaveResult(ctx, &results[i]); err != nil {
			t.Fatalf("SaveResult() error = %v", err)
		}
	}

	t.Run("wrong password", func(t *testing.T) {
		if _, err := svc.ResultsCSV(ctx, exam.ID, "nope"); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("ResultsCSV() error = %v, want ErrInvalidPassword", err)
		}
	})

	t.Run("content", func(t *testing.T) {
		file, err := svc.ResultsCSV(ctx, exam.ID, "grade-pw")
		if err != nil {
			t.Fatalf("ResultsCSV() error = %v", err)
		}
		if file.Filename != "geography_final_2025_results.csv" {
			t.Errorf("Filename = %q", file.Filename)
		}

		lines := strings.Split(strings.TrimRight(string(file.Data), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("CSV has %d lines, want 3", len(lines))
		}
		wantHeader := `"Student Name","Score","Total Points","Percentage","Grade","Date Completed","Time Spent (min)"`
		if lines[0] != wantHeader {
			t.Errorf("header = %s, want %s", lines[0], wantHeader)
		}
		wantRow1 := `"Ada Lovelace","3","3","100.0%","A","3/5/2025","25"`
		if lines[1] != wantRow1 {
			t.Errorf("row 1 = %s, want %s", lines[1], wantRow1)
		}
		wantRow2 := `"Alan Turing","2","3","66.7%","D","3/5/2025","28"`
		if lines[2] != wantRow2 {
			t.Errorf("row 2 = %s, want %s", lines[2], wantRow2)
		}
	})
}

func TestResultsXLSX(t *testing.T) {
	svc, store := newTransferFixture()
	ctx := context.Background()

	exam := sampleExam()
	if err := store.SaveExam(ctx, exam); err != nil {
		t.Fatalf("SaveExam() error = %v", err)
	}

	file, err := svc.ResultsXLSX(ctx, exam.ID, "grade-pw")
	if err != nil {
		t.Fatalf("ResultsXLSX() error = %v", err)
	}
	if file.Filename != "geography_final_2025_results.xlsx" {
		t.Errorf("Filename = %q", file.Filename)
	}
	if len(file.Data) == 0 {
		t.Error("workbook is empty")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Geography Final 2025", "geography_final_2025"},
		{"My Exam!", "my_exam_"},
		{"a-b.c", "a_b_c"},
		{"ALLCAPS", "allcaps"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
