package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Submission is the audit row kept per analysis request. Results are not stored.
type Submission struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primary_key;"`
	SessionID   uuid.UUID                   `gorm:"type:uuid;index;not null"`
	DOB         string                      `gorm:"type:varchar(10);not null"`
	WorkflowID  string                      `gorm:"type:varchar(100);index"`
	Status      RunStatus                   `gorm:"type:varchar(20);index;default:'running'"`
	CurrentStep int                         `gorm:"default:0"`
	Steps       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Error       string                      `gorm:"type:text"`

	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

func NewSubmission(sessionID uuid.UUID, dob string) *Submission {
	return &Submission{
		ID:        uuid.New(),
		SessionID: sessionID,
		DOB:       dob,
		Status:    WorkflowRunning,
		CreatedAt: time.Now(),
	}
}

// Finish records the terminal outcome of the submission.
func (s *Submission) Finish(status RunStatus, w *WorkflowStatus, errMessage string) {
	now := time.Now()
	s.Status = status
	s.Error = errMessage
	s.FinishedAt = &now
	if w != nil {
		s.CurrentStep = w.CurrentStep
		s.Steps = datatypes.JSONSlice[string](w.Steps)
	}
}
