package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cbt-exam/cbt-service/internal/services"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	sessionHandler *SessionHandler
}

func NewHandlerManager(
	examService services.ExamService,
	transferService services.TransferService,
	sessionService services.SessionService,
	exportDir string,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(examService, transferService, exportDir, logger),
		sessionHandler: NewSessionHandler(sessionService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.POST("/import", hm.examHandler.ImportExam)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.DELETE("/:id", hm.examHandler.DeleteExam)
			exams.GET("/:id/export", hm.examHandler.ExportExam)
			exams.POST("/:id/export-to-dir", hm.examHandler.ExportExamToDir)

			// Teacher analytics, all gated by the X-Grade-Password header.
			exams.GET("/:id/results", hm.examHandler.GetResults)
			exams.GET("/:id/statistics", hm.examHandler.GetStatistics)
			exams.GET("/:id/results/csv", hm.examHandler.ExportResultsCSV)
			exams.GET("/:id/results/xlsx", hm.examHandler.ExportResultsXLSX)
		}

		session := v1.Group("/session")
		{
			session.POST("", hm.sessionHandler.StartSession)
			session.GET("", hm.sessionHandler.CurrentSession)
			session.PUT("/answers", hm.sessionHandler.SubmitAnswer)
			session.POST("/submit", hm.sessionHandler.SubmitSession)
			session.GET("/time", hm.sessionHandler.TimeRemaining)
		}
	}
}

// HealthCheck endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "cbt-service",
	})
}
