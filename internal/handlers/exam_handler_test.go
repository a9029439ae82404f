package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbt-exam/cbt-service/internal/events"
	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/repositories/memory"
	"github.com/cbt-exam/cbt-service/internal/services"
	"github.com/cbt-exam/cbt-service/internal/validator"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	logger := slog.New(slog.DiscardHandler)
	grading := services.NewGradingService(logger)
	publisher := events.NewPublisher(nil, logger)
	v := validator.New()

	examService := services.NewExamService(store, grading, publisher, logger, v)
	transferService := services.NewTransferService(store, grading, publisher, logger, v)
	sessionService := services.NewSessionService(store, grading, publisher, logger, v, time.Hour)
	t.Cleanup(func() { _ = sessionService.Shutdown(t.Context()) })

	router := gin.New()
	SetupMiddleware(router, logger)
	NewHandlerManager(examService, transferService, sessionService, t.TempDir(), logger).SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTestExam(t *testing.T, router *gin.Engine) models.Exam {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/exams", services.CreateExamRequest{
		Title:           "API Quiz",
		Timer:           15,
		StudentPassword: "spw",
		GradePassword:   "gpw",
		Questions: []services.CreateQuestionRequest{
			{
				Type:           models.FillBlank,
				Text:           "Capital of France?",
				CorrectAnswers: []string{"Paris"},
				Points:         1,
			},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create exam status = %d, body = %s", w.Code, w.Body.String())
	}
	var exam models.Exam
	if err := json.Unmarshal(w.Body.Bytes(), &exam); err != nil {
		t.Fatalf("unmarshal exam: %v", err)
	}
	return exam
}

func TestExamCRUDOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	exam := createTestExam(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/exams/"+exam.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get exam status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/exams", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list exams status = %d", w.Code)
	}
	var exams []models.Exam
	if err := json.Unmarshal(w.Body.Bytes(), &exams); err != nil || len(exams) != 1 {
		t.Fatalf("list = %s, err = %v", w.Body.String(), err)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/v1/exams/"+exam.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete exam status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/v1/exams/"+exam.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted exam status = %d, want 404", w.Code)
	}
}

func TestExportImportOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	exam := createTestExam(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/exams/"+exam.ID+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "api_quiz.question") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	// Re-import the exported file through the upload endpoint.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "api_quiz.question")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(w.Body.Bytes()); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exams/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestResultsGateOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	exam := createTestExam(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exams/"+exam.ID+"/results", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("results without password status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/exams/"+exam.ID+"/statistics", nil)
	req.Header.Set(gradePasswordHeader, "gpw")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("statistics status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSessionFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	exam := createTestExam(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/session", services.StartSessionRequest{
		ExamID:      exam.ID,
		StudentName: "Grace Hopper",
		Password:    "spw",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start session status = %d, body = %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "correctAnswers") {
		t.Error("session response leaks correct answers")
	}

	questionID := exam.Questions[0].ID
	w = doJSON(t, router, http.MethodPut, "/api/v1/session/answers", services.SubmitAnswerRequest{
		QuestionID: questionID,
		Answer:     models.TextAnswer("paris"),
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("submit answer status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/session/time", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("time status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/v1/session/submit", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body = %s", w.Code, w.Body.String())
	}
	var result models.ExamResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Score != 1 || result.TotalPoints != 1 {
		t.Errorf("result = %d/%d, want 1/1", result.Score, result.TotalPoints)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/session", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("session after submit status = %d, want 404", w.Code)
	}

	// Results now visible behind the grade password.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exams/"+exam.ID+"/results/csv", nil)
	req.Header.Set(gradePasswordHeader, "gpw")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Grace Hopper","1","1","100.0%","A"`) {
		t.Errorf("csv body = %s", rec.Body.String())
	}
}
