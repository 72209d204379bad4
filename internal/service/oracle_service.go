package service

import (
	"context"
	"errors"
	"time"

	"dob-oracle/internal/core/ports"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/metrics"
	"dob-oracle/internal/validation"

	"github.com/google/uuid"
)

var ErrHistoryDisabled = errors.New("submission history is not configured")

type OracleService interface {
	// Submit validates dob and, when it passes, starts an analysis for the session
	Submit(ctx context.Context, sessionID uuid.UUID, dob string) (string, error)

	State(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error)

	Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.StatusChangedEvent, error)

	History(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Submission, error)
}

// AnalysisStarter is the part of the tracker the service drives
type AnalysisStarter interface {
	Start(ctx context.Context, sessionID uuid.UUID, dob string) (string, error)
}

// The Implementation
type oracleService struct {
	starter  AnalysisStarter
	sessions ports.SessionStore
	eventBus ports.EventBus
	history  ports.SubmissionRepository
	metrics  *metrics.Recorder
	now      func() time.Time
}

// Constructor. history may be nil.
func NewOracleService(
	starter AnalysisStarter,
	sessions ports.SessionStore,
	bus ports.EventBus,
	history ports.SubmissionRepository,
	m *metrics.Recorder,
) OracleService {
	if m == nil {
		m = metrics.Nop()
	}
	return &oracleService{
		starter:  starter,
		sessions: sessions,
		eventBus: bus,
		history:  history,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *oracleService) Submit(ctx context.Context, sessionID uuid.UUID, dob string) (string, error) {
	// 1. Validate locally; invalid input never reaches the backend
	if _, err := validation.ValidateDOB(dob, s.now()); err != nil {
		s.metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
		return "", err
	}

	// 2. Hand the ISO string over unchanged
	return s.starter.Start(ctx, sessionID, dob)
}

func (s *oracleService) State(ctx context.Context, sessionID uuid.UUID) (*domain.SessionState, error) {
	return s.sessions.Load(ctx, sessionID)
}

func (s *oracleService) Subscribe(ctx context.Context, sessionID uuid.UUID) (<-chan domain.StatusChangedEvent, error) {
	return s.eventBus.SubscribeToSession(ctx, sessionID)
}

func (s *oracleService) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Submission, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.ListBySession(ctx, sessionID, limit)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, validation.ErrDateRequired):
		return "required"
	case errors.Is(err, validation.ErrFutureDate):
		return "future"
	default:
		return "invalid"
	}
}
