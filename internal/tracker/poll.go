package tracker

import (
	"context"
	"time"

	"dob-oracle/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const errCancelled = "analysis cancelled"

// poll fetches the workflow once per tick. A tick that fires while a fetch
// is still outstanding is dropped by the ticker, so at most one request is
// in flight per session.
func (t *Tracker) poll(ctx context.Context, r *run, sessionID uuid.UUID, workflowID string, submission *domain.Submission) {
	defer t.wg.Done()
	defer t.finish(sessionID, r)

	t.metrics.ActiveTrackers.Inc()
	defer t.metrics.ActiveTrackers.Dec()

	defer func() {
		if submission.FinishedAt != nil {
			return
		}
		submission.Finish(domain.WorkflowFailed, nil, errCancelled)
		t.recordFinish(ctx, submission)
		if !r.superseded.Load() {
			t.abort(ctx, sessionID, workflowID)
		}
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("session", sessionID.String()).Str("workflow", workflowID).Msg("Polling cancelled")
			return
		case <-ticker.C:
			if t.tick(ctx, sessionID, workflowID, submission) {
				return
			}
		}
	}
}

// tick performs one status fetch and reports whether polling should stop.
func (t *Tracker) tick(ctx context.Context, sessionID uuid.UUID, workflowID string, submission *domain.Submission) bool {
	started := time.Now()
	status, err := t.backend.GetWorkflow(ctx, workflowID)
	t.metrics.PollDuration.Observe(time.Since(started).Seconds())

	if ctx.Err() != nil {
		return true
	}

	state, loadErr := t.sessions.Load(ctx, sessionID)
	if loadErr != nil {
		log.Error().Err(loadErr).Str("session", sessionID.String()).Msg("Failed to load session")
		state = domain.NewSessionState(sessionID)
		state.SelectedDate = submission.DOB
		state.WorkflowID = workflowID
	}

	if err != nil {
		t.metrics.PollRequests.WithLabelValues("error").Inc()
		t.metrics.Outcomes.WithLabelValues("poll_error").Inc()
		log.Error().Err(err).Str("session", sessionID.String()).Str("workflow", workflowID).Msg("Error polling workflow")

		state.Abort(err.Error())
		t.save(ctx, state)
		t.publish(ctx, domain.StatusChangedEvent{SessionID: sessionID, Workflow: state.Workflow, Failure: err.Error()})

		submission.Finish(domain.WorkflowFailed, state.Workflow, err.Error())
		t.recordFinish(ctx, submission)
		return true
	}

	t.metrics.PollRequests.WithLabelValues("ok").Inc()
	done := state.Apply(status)
	t.save(ctx, state)
	t.publish(ctx, domain.StatusChangedEvent{SessionID: sessionID, Workflow: status})

	if !done {
		log.Debug().Str("workflow", workflowID).Int("step", status.CurrentStep).Msg("Workflow running")
		return false
	}

	switch status.Status {
	case domain.WorkflowCompleted:
		log.Info().Str("session", sessionID.String()).Str("workflow", workflowID).Msg("Workflow completed")
	case domain.WorkflowFailed:
		log.Error().Str("session", sessionID.String()).Str("workflow", workflowID).Str("error", status.Error).Msg("Workflow failed")
	}
	t.metrics.Outcomes.WithLabelValues(string(status.Status)).Inc()

	submission.Finish(status.Status, status, status.Error)
	t.recordFinish(ctx, submission)
	return true
}

// abort marks a cancelled session idle and publishes the final event. ctx is
// usually already cancelled, so the writes run without its cancellation. A
// non-empty workflowID guards against clobbering a newer run's state.
func (t *Tracker) abort(ctx context.Context, sessionID uuid.UUID, workflowID string) {
	ctx = context.WithoutCancel(ctx)

	state, err := t.sessions.Load(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID.String()).Msg("Failed to load session")
		return
	}
	if workflowID != "" && state.WorkflowID != workflowID {
		return
	}

	t.metrics.Outcomes.WithLabelValues("cancelled").Inc()
	state.Abort(errCancelled)
	t.save(ctx, state)
	t.publish(ctx, domain.StatusChangedEvent{SessionID: sessionID, Workflow: state.Workflow, Failure: errCancelled})
}

func (t *Tracker) save(ctx context.Context, state *domain.SessionState) {
	if err := t.sessions.Save(ctx, state); err != nil {
		log.Error().Err(err).Str("session", state.SessionID.String()).Msg("Failed to save session")
	}
}

func (t *Tracker) publish(ctx context.Context, event domain.StatusChangedEvent) {
	if err := t.eventBus.PublishStatusChanged(ctx, event); err != nil {
		log.Warn().Err(err).Str("session", event.SessionID.String()).Msg("Failed to publish status")
	}
}
