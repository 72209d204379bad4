package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dob-oracle/internal/api/dto"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/service"
	"dob-oracle/internal/tracker"
	"dob-oracle/internal/validation"
	"dob-oracle/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OracleHandler struct {
	service service.OracleService
	now     func() time.Time
}

func NewOracleHandler(svc service.OracleService) *OracleHandler {
	return &OracleHandler{service: svc, now: time.Now}
}

// Index renders the page for the caller's session.
func (h *OracleHandler) Index(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), SessionID(c))
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		c.String(http.StatusInternalServerError, "session unavailable")
		return
	}
	h.render(c, http.StatusOK, state, state.SelectedDate, "")
}

// SubmitForm handles the page's form post.
func (h *OracleHandler) SubmitForm(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	sessionID := SessionID(c)
	_, err := h.service.Submit(c.Request.Context(), sessionID, req.DOB)
	if validation.IsValidationError(err) {
		state, loadErr := h.service.State(c.Request.Context(), sessionID)
		if loadErr != nil {
			c.String(http.StatusInternalServerError, "session unavailable")
			return
		}
		h.render(c, http.StatusUnprocessableEntity, state, req.DOB, err.Error())
		return
	}
	if err != nil && !errors.Is(err, tracker.ErrSuperseded) {
		// The session state already carries the failure for the page.
		log.Warn().Err(err).Str("session", sessionID.String()).Msg("Analysis did not start")
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// SubmitJSON is the script-friendly twin of SubmitForm.
func (h *OracleHandler) SubmitJSON(c *gin.Context) {
	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	workflowID, err := h.service.Submit(c.Request.Context(), SessionID(c), req.DOB)
	switch {
	case validation.IsValidationError(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, tracker.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, tracker.ErrCancelled), errors.Is(err, tracker.ErrShutdown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.AnalyzeResponse{WorkflowID: workflowID})
}

// Session returns the session state as JSON.
func (h *OracleHandler) Session(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), SessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

// History lists the session's previous submissions.
func (h *OracleHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	submissions, err := h.service.History(c.Request.Context(), SessionID(c), limit)
	if errors.Is(err, service.ErrHistoryDisabled) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if submissions == nil {
		submissions = []domain.Submission{}
	}
	c.JSON(http.StatusOK, submissions)
}

func (h *OracleHandler) render(c *gin.Context, status int, state *domain.SessionState, dateValue, formError string) {
	c.HTML(status, view.PageTemplate, view.Page{
		MaxDate:   validation.MaxDate(h.now()),
		DateValue: dateValue,
		FormError: formError,
		State:     state,
	})
}
