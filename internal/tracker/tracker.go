// Package tracker drives one analysis per browser session: it starts the
// workflow on the backend and polls it at a fixed interval until the
// workflow completes, fails, or a fetch errors.
package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dob-oracle/internal/core/ports"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = time.Second

var (
	ErrShutdown   = errors.New("tracker is shut down")
	ErrSuperseded = errors.New("analysis superseded by a newer submission")
	ErrCancelled  = errors.New(errCancelled)
)

type Tracker struct {
	backend  ports.AnalysisBackend
	sessions ports.SessionStore
	eventBus ports.EventBus
	history  ports.SubmissionRepository
	metrics  *metrics.Recorder
	interval time.Duration

	baseCtx  context.Context
	stopAll  context.CancelFunc
	mu       sync.Mutex
	running  map[uuid.UUID]*run
	wg       sync.WaitGroup
	shutdown bool
}

// run is one submission's lifetime: the Analyze call plus its poll loop.
// A superseded run leaves the session state to its successor.
type run struct {
	cancel     context.CancelFunc
	done       chan struct{}
	superseded atomic.Bool
}

type Option func(*Tracker)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithHistory records every submission in repo.
func WithHistory(repo ports.SubmissionRepository) Option {
	return func(t *Tracker) { t.history = repo }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(t *Tracker) { t.metrics = m }
}

func NewTracker(backend ports.AnalysisBackend, sessions ports.SessionStore, bus ports.EventBus, opts ...Option) *Tracker {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		backend:  backend,
		sessions: sessions,
		eventBus: bus,
		interval: DefaultInterval,
		baseCtx:  ctx,
		stopAll:  cancel,
		running:  make(map[uuid.UUID]*run),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = metrics.Nop()
	}
	return t
}

// Start submits dob for sessionID and begins polling in the background.
// Any analysis already running for the session is cancelled first and its
// state discarded. The returned error is the backend's failure to start.
func (t *Tracker) Start(ctx context.Context, sessionID uuid.UUID, dob string) (string, error) {
	runCtx, r, err := t.register(sessionID)
	if err != nil {
		return "", err
	}
	polling := false
	defer func() {
		if !polling {
			t.finish(sessionID, r)
		}
	}()

	state, err := t.sessions.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	state.Begin(dob)
	if err := t.sessions.Save(ctx, state); err != nil {
		return "", err
	}

	submission := domain.NewSubmission(sessionID, dob)
	t.recordCreate(ctx, submission)

	// The Analyze call dies with the request or with a newer submission.
	analyzeCtx, cancelAnalyze := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(runCtx, cancelAnalyze)
	workflowID, err := t.backend.Analyze(analyzeCtx, dob)
	stopAfter()
	cancelAnalyze()

	if runCtx.Err() != nil {
		submission.Finish(domain.WorkflowFailed, nil, errCancelled)
		t.recordFinish(ctx, submission)
		if r.superseded.Load() {
			return "", ErrSuperseded
		}
		t.abort(ctx, sessionID, "")
		return "", ErrCancelled
	}
	if err != nil {
		log.Error().Err(err).Str("session", sessionID.String()).Str("dob", dob).Msg("Error starting analysis")
		t.metrics.Submissions.WithLabelValues("error").Inc()
		t.metrics.Outcomes.WithLabelValues("start_error").Inc()

		state.Abort(err.Error())
		if saveErr := t.sessions.Save(ctx, state); saveErr != nil {
			log.Error().Err(saveErr).Str("session", sessionID.String()).Msg("Failed to save session")
		}
		submission.Finish(domain.WorkflowFailed, nil, err.Error())
		t.recordFinish(ctx, submission)
		return "", err
	}

	t.metrics.Submissions.WithLabelValues("accepted").Inc()
	log.Info().Str("session", sessionID.String()).Str("workflow", workflowID).Msg("Analysis started")

	state.WorkflowID = workflowID
	if err := t.sessions.Save(ctx, state); err != nil {
		return "", err
	}
	submission.WorkflowID = workflowID
	t.recordAttach(ctx, submission)

	polling = true
	t.wg.Add(1)
	go t.poll(runCtx, r, sessionID, workflowID, submission)

	return workflowID, nil
}

// Stop cancels the session's analysis, if any, and waits for it to wind down.
// The session is left idle with an "analysis cancelled" failure.
func (t *Tracker) Stop(sessionID uuid.UUID) {
	t.mu.Lock()
	r := t.running[sessionID]
	t.mu.Unlock()
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Done returns a channel closed when the session's current analysis ends,
// or nil when nothing is running.
func (t *Tracker) Done(sessionID uuid.UUID) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r := t.running[sessionID]; r != nil {
		return r.done
	}
	return nil
}

// Shutdown cancels every poll loop and waits for them to exit. Each
// cancelled session is left idle and gets a final event.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	t.shutdown = true
	t.mu.Unlock()

	t.stopAll()
	t.wg.Wait()
}

func (t *Tracker) register(sessionID uuid.UUID) (context.Context, *run, error) {
	t.mu.Lock()
	if t.shutdown {
		t.mu.Unlock()
		return nil, nil, ErrShutdown
	}
	ctx, cancel := context.WithCancel(t.baseCtx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	prev := t.running[sessionID]
	t.running[sessionID] = r
	t.mu.Unlock()

	if prev != nil {
		log.Debug().Str("session", sessionID.String()).Msg("Cancelling previous analysis")
		prev.superseded.Store(true)
		prev.cancel()
		<-prev.done
	}
	return ctx, r, nil
}

func (t *Tracker) finish(sessionID uuid.UUID, r *run) {
	t.mu.Lock()
	if t.running[sessionID] == r {
		delete(t.running, sessionID)
	}
	t.mu.Unlock()
	r.cancel()
	close(r.done)
}
