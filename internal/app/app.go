// Package app assembles the oracle from configuration: backend client,
// session store, event bus, submission history, tracker and router.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"dob-oracle/internal/api"
	"dob-oracle/internal/api/handler"
	"dob-oracle/internal/config"
	"dob-oracle/internal/core/ports"
	"dob-oracle/internal/core/postgres/repository"
	"dob-oracle/internal/infrastructure/backend"
	"dob-oracle/internal/infrastructure/memory"
	"dob-oracle/internal/infrastructure/redis"
	"dob-oracle/internal/metrics"
	"dob-oracle/internal/service"
	"dob-oracle/internal/tracker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config   *config.Config
	Backend  *backend.Client
	Sessions ports.SessionStore
	EventBus ports.EventBus
	History  ports.SubmissionRepository
	Tracker  *tracker.Tracker
	Service  service.OracleService
	Router   *gin.Engine

	closers []func() error
}

// New builds every component. Redis and Postgres are optional: without an
// address the oracle keeps sessions in memory and records no history.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	a.Backend = backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	if cfg.RedisAddr != "" {
		client, err := redis.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.Sessions = redis.NewRedisSessionStore(client, cfg.SessionTTL)
		a.EventBus = redis.NewRedisEventBus(client)
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using redis for sessions and events")
	} else {
		a.Sessions = memory.NewSessionStore()
		a.EventBus = memory.NewEventBus()
		log.Warn().Msg("No redis address configured, sessions are kept in memory")
	}

	if cfg.PostgresDSN != "" {
		db, err := repository.Open(cfg.PostgresDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		a.History = repository.NewSubmissionRepository(db)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	opts := []tracker.Option{tracker.WithInterval(cfg.PollInterval), tracker.WithMetrics(recorder)}
	if a.History != nil {
		opts = append(opts, tracker.WithHistory(a.History))
	}
	a.Tracker = tracker.NewTracker(a.Backend, a.Sessions, a.EventBus, opts...)
	a.Service = service.NewOracleService(a.Tracker, a.Sessions, a.EventBus, a.History, recorder)

	router, err := api.NewRouter(
		handler.NewOracleHandler(a.Service),
		handler.NewHealthHandler(a.Backend, cfg.AppName),
		api.RouterConfig{
			CORSOrigins:   cfg.CORSOrigins,
			SessionMaxAge: int(cfg.SessionTTL.Seconds()),
			Gatherer:      registry,
		},
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Router = router

	return a, nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains it.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.HTTPAddr)
	if err != nil {
		return err
	}
	return a.serve(ctx, ln)
}

// serve owns ln. On shutdown the trackers stop first, so every open event
// stream gets its final event and the server can drain.
func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("backend", a.Config.BackendURL).Msg("Server starting")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	a.Tracker.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) Close() error {
	if a.Tracker != nil {
		a.Tracker.Shutdown()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
