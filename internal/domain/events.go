package domain

import (
	"github.com/google/uuid"
)

// StatusChangedEvent is published after every successful status fetch,
// and once more with Failure set when polling stops on an error or is
// cancelled.
type StatusChangedEvent struct {
	SessionID uuid.UUID       `json:"session_id"`
	Workflow  *WorkflowStatus `json:"workflow,omitempty"`
	Failure   string          `json:"failure,omitempty"`
}

// Final reports whether no further events follow for this analysis.
func (e StatusChangedEvent) Final() bool {
	return e.Failure != "" || e.Workflow.IsFinished()
}
