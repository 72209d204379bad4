package domain

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	WorkflowRunning   RunStatus = "running"
	WorkflowCompleted RunStatus = "completed"
	WorkflowFailed    RunStatus = "failed"
)

// IsTerminal reports whether the backend will not advance the workflow any further.
func (s RunStatus) IsTerminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed
}

// WorkflowStatus is the backend's view of one asynchronous DOB analysis.
type WorkflowStatus struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Status      RunStatus        `json:"status"`
	CurrentStep int              `json:"current_step"`
	Steps       []string         `json:"steps"`
	Data        json.RawMessage  `json:"data,omitempty"`
	Results     *AnalysisResults `json:"results,omitempty"`
	StartedAt   string           `json:"started_at"`
	CompletedAt *string          `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// IsFinished mirrors RunStatus.IsTerminal for callers holding the whole status.
func (w *WorkflowStatus) IsFinished() bool {
	return w != nil && w.Status.IsTerminal()
}

// CompletedResults returns the results only when the workflow completed.
// The backend sends a partially filled results object while running.
func (w *WorkflowStatus) CompletedResults() *AnalysisResults {
	if w == nil || w.Status != WorkflowCompleted {
		return nil
	}
	return w.Results
}

// StartedTime parses StartedAt; the backend emits naive ISO-8601 timestamps.
func (w *WorkflowStatus) StartedTime() (time.Time, bool) {
	return parseBackendTime(w.StartedAt)
}

func parseBackendTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	DOB string `json:"dob"`
}

// AnalyzeResponse is the backend's acknowledgement of a started workflow.
type AnalyzeResponse struct {
	WorkflowID string `json:"workflow_id"`
}
