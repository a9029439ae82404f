package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbt-exam/cbt-service/internal/services"
)

// gradePasswordHeader carries the teacher's password for analytics and
// result export endpoints.
const gradePasswordHeader = "X-Grade-Password"

type ExamHandler struct {
	BaseHandler
	examService     services.ExamService
	transferService services.TransferService
	exportDir       string
}

func NewExamHandler(examService services.ExamService, transferService services.TransferService, exportDir string, logger *slog.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:     NewBaseHandler(logger),
		examService:     examService,
		transferService: transferService,
		exportDir:       exportDir,
	}
}

// CreateExam creates a new exam
// @Summary Create exam
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam definition"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	h.LogRequest(c, "Creating exam")

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// ListExams lists all exams
// @Summary List exams
// @Tags exams
// @Produce json
// @Success 200 {array} models.Exam
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exams)
}

// GetExam returns one exam by id
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.examService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, exam)
}

// DeleteExam deletes an exam
// @Summary Delete exam
// @Tags exams
// @Param id path string true "Exam ID"
// @Success 204
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	h.LogRequest(c, "Deleting exam", "exam_id", c.Param("id"))

	if err := h.examService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportExam downloads the exam as a portable .question file
// @Summary Export exam file
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/export [get]
func (h *ExamHandler) ExportExam(c *gin.Context) {
	file, err := h.transferService.ExportExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	serveFile(c, file)
}

// ExportExamToDir writes the exam file into the configured export directory
// @Summary Export exam file to server directory
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} map[string]string
// @Router /exams/{id}/export-to-dir [post]
func (h *ExamHandler) ExportExamToDir(c *gin.Context) {
	path, err := h.transferService.ExportExamToDir(c.Request.Context(), c.Param("id"), h.exportDir)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}

// ImportExam imports an exam from an uploaded .question file
// @Summary Import exam file
// @Tags exams
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Exam file"
// @Success 201 {object} models.Exam
// @Failure 400 {object} ErrorResponse
// @Router /exams/import [post]
func (h *ExamHandler) ImportExam(c *gin.Context) {
	h.LogRequest(c, "Importing exam")

	upload, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing exam file",
			Details: err.Error(),
		})
		return
	}
	f, err := upload.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unreadable exam file",
			Details: err.Error(),
		})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unreadable exam file",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.transferService.ImportExam(c.Request.Context(), data)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exam)
}

// GetResults returns all results for an exam, gated by the grade password
// @Summary Get exam results
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param X-Grade-Password header string true "Grade password"
// @Success 200 {array} models.ExamResult
// @Failure 401 {object} ErrorResponse
// @Router /exams/{id}/results [get]
func (h *ExamHandler) GetResults(c *gin.Context) {
	results, err := h.examService.GetResults(c.Request.Context(), c.Param("id"), c.GetHeader(gradePasswordHeader))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// GetStatistics returns aggregate statistics for an exam
// @Summary Get exam statistics
// @Tags exams
// @Produce json
// @Param id path string true "Exam ID"
// @Param X-Grade-Password header string true "Grade password"
// @Success 200 {object} models.ExamStatistics
// @Failure 401 {object} ErrorResponse
// @Router /exams/{id}/statistics [get]
func (h *ExamHandler) GetStatistics(c *gin.Context) {
	stats, err := h.examService.GetStatistics(c.Request.Context(), c.Param("id"), c.GetHeader(gradePasswordHeader))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportResultsCSV downloads exam results as CSV
// @Summary Export results as CSV
// @Tags exams
// @Produce text/csv
// @Param id path string true "Exam ID"
// @Param X-Grade-Password header string true "Grade password"
// @Success 200 {file} file
// @Router /exams/{id}/results/csv [get]
func (h *ExamHandler) ExportResultsCSV(c *gin.Context) {
	file, err := h.transferService.ResultsCSV(c.Request.Context(), c.Param("id"), c.GetHeader(gradePasswordHeader))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	serveFile(c, file)
}

// ExportResultsXLSX downloads exam results as a spreadsheet
// @Summary Export results as XLSX
// @Tags exams
// @Param id path string true "Exam ID"
// @Param X-Grade-Password header string true "Grade password"
// @Success 200 {file} file
// @Router /exams/{id}/results/xlsx [get]
func (h *ExamHandler) ExportResultsXLSX(c *gin.Context) {
	file, err := h.transferService.ResultsXLSX(c.Request.Context(), c.Param("id"), c.GetHeader(gradePasswordHeader))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	serveFile(c, file)
}
