package handler

import (
	"io"
	"net/http"

	"dob-oracle/internal/domain"

	"github.com/gin-gonic/gin"
)

// Events streams the session's status changes as server-sent events until
// the analysis ends or the client disconnects. A session that is not
// analyzing gets a single snapshot.
func (h *OracleHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := SessionID(c)

	// Subscribe before reading state so a final event cannot slip between the two.
	events, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	state, err := h.service.State(ctx, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	snapshot := domain.StatusChangedEvent{SessionID: sessionID, Workflow: state.Workflow, Failure: state.Failure}
	c.SSEvent("status", snapshot)
	if !state.Analyzing {
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("status", event)
			return !event.Final()
		}
	})
}
