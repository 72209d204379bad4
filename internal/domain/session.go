package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is what one browser session sees. It is replaced wholesale
// on every new submission.
type SessionState struct {
	SessionID    uuid.UUID        `json:"session_id"`
	SelectedDate string           `json:"selected_date,omitempty"`
	WorkflowID   string           `json:"workflow_id,omitempty"`
	Analyzing    bool             `json:"analyzing"`
	Workflow     *WorkflowStatus  `json:"workflow,omitempty"`
	Results      *AnalysisResults `json:"results,omitempty"`
	Failure      string           `json:"failure,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewSessionState(sessionID uuid.UUID) *SessionState {
	return &SessionState{SessionID: sessionID, UpdatedAt: time.Now()}
}

// Begin resets the state for a fresh submission of dob.
func (s *SessionState) Begin(dob string) {
	s.SelectedDate = dob
	s.WorkflowID = ""
	s.Analyzing = true
	s.Workflow = nil
	s.Results = nil
	s.Failure = ""
	s.UpdatedAt = time.Now()
}

// Apply folds a fetched status into the state. It returns true once the
// workflow reached a terminal status.
func (s *SessionState) Apply(w *WorkflowStatus) bool {
	s.Workflow = w
	s.UpdatedAt = time.Now()
	switch w.Status {
	case WorkflowCompleted:
		s.Results = w.Results
		s.Analyzing = false
		return true
	case WorkflowFailed:
		s.Failure = w.Error
		s.Analyzing = false
		return true
	}
	return false
}

// Abort stops the analysis after a transport or backend error.
func (s *SessionState) Abort(reason string) {
	s.Analyzing = false
	s.Failure = reason
	s.UpdatedAt = time.Now()
}
