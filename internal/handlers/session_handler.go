package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cbt-exam/cbt-service/internal/models"
	"github.com/cbt-exam/cbt-service/internal/services"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession starts a new exam attempt
// @Summary Start exam session
// @Tags session
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session start data"
// @Success 201 {object} services.SessionView
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /session [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting exam session")

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.sessionService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// CurrentSession returns the attempt in progress
// @Summary Get current session
// @Tags session
// @Produce json
// @Success 200 {object} services.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /session [get]
func (h *SessionHandler) CurrentSession(c *gin.Context) {
	view, err := h.sessionService.Current(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer records the answer for one question
// @Summary Submit answer
// @Tags session
// @Accept json
// @Param answer body services.SubmitAnswerRequest true "Answer data"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /session/answers [put]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.sessionService.SubmitAnswer(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitSession grades the attempt and records the result
// @Summary Submit exam
// @Tags session
// @Produce json
// @Success 200 {object} models.ExamResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /session/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	h.LogRequest(c, "Submitting exam session")

	result, err := h.sessionService.Submit(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// TimeRemaining returns the countdown state
// @Summary Get time remaining
// @Tags session
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} ErrorResponse
// @Router /session/time [get]
func (h *SessionHandler) TimeRemaining(c *gin.Context) {
	seconds, err := h.sessionService.TimeRemaining(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"timeRemaining": seconds,
		"display":       models.FormatTime(seconds),
	})
}
