package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cbt-exam/cbt-service/internal/services"
	"github.com/cbt-exam/cbt-service/internal/utils"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Info(msg, args...)
}

// handleServiceError maps service sentinels onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrExamNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Exam not found"})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "No exam in progress"})
	case errors.Is(err, services.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Invalid password"})
	case errors.Is(err, services.ErrAlreadySubmitted):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Exam already submitted"})
	case errors.Is(err, services.ErrInvalidExamFile):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid exam file", Details: err.Error()})
	case services.IsValidationError(err), strings.Contains(err.Error(), "validation failed"):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: err.Error()})
	default:
		utils.LoggerFromContext(c, h.logger).Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}

// serveFile streams a generated artifact as a browser download.
func serveFile(c *gin.Context, file *services.ExportedFile) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
