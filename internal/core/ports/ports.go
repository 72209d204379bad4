package ports

import (
	"context"
	"dob-oracle/internal/domain"

	"github.com/google/uuid"
)

// AnalysisBackend is the remote service that runs the DOB workflow
type AnalysisBackend interface {
	// Start an analysis; returns the backend's workflow id
	Analyze(ctx context.Context, dob string) (string, error)

	// Fetch the current state of a workflow
	GetWorkflow(ctx context.Context, workflowID string) (*domain.WorkflowStatus, error)
}

// SessionStore keeps per-browser UI state between requests
type SessionStore interface {
	// Load returns the state, or a fresh one when the session is unknown
	Load(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error)

	Save(ctx context.Context, state *domain.SessionState) error
}

// EventBus fans status changes out to whoever streams them to a client
type EventBus interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusChangedEvent) error

	// Subscribe to the events of a single session until ctx is done
	SubscribeToSession(ctx context.Context, sessionID uuid.UUID) (<-chan domain.StatusChangedEvent, error)
}

// SubmissionRepository is the audit log of analysis requests
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error

	// Record the workflow id once the backend accepted the request
	AttachWorkflow(ctx context.Context, submissionID uuid.UUID, workflowID string) error

	// Update the final status; finished rows are never overwritten
	Finish(ctx context.Context, submission *domain.Submission) error

	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Submission, error)
}
