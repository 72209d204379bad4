package tracker

import (
	"context"

	"dob-oracle/internal/domain"

	"github.com/rs/zerolog/log"
)

// History writes are best effort; an unavailable database never fails an analysis.

func (t *Tracker) recordCreate(ctx context.Context, s *domain.Submission) {
	if t.history == nil {
		return
	}
	if err := t.history.Create(ctx, s); err != nil {
		log.Warn().Err(err).Str("submission", s.ID.String()).Msg("Failed to record submission")
	}
}

func (t *Tracker) recordAttach(ctx context.Context, s *domain.Submission) {
	if t.history == nil {
		return
	}
	if err := t.history.AttachWorkflow(ctx, s.ID, s.WorkflowID); err != nil {
		log.Warn().Err(err).Str("submission", s.ID.String()).Msg("Failed to attach workflow")
	}
}

func (t *Tracker) recordFinish(ctx context.Context, s *domain.Submission) {
	if t.history == nil {
		return
	}
	if err := t.history.Finish(context.WithoutCancel(ctx), s); err != nil {
		log.Warn().Err(err).Str("submission", s.ID.String()).Msg("Failed to finish submission")
	}
}
