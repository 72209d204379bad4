package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"dob-oracle/internal/core/ports"
	"dob-oracle/internal/domain"
	"dob-oracle/internal/infrastructure/backend"
	"dob-oracle/internal/infrastructure/memory"
	"dob-oracle/internal/service"
	"dob-oracle/internal/tracker"
	"dob-oracle/internal/view"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "analyze YYYY-MM-DD",
		Short: "Submit a birth date and print the analysis once the workflow finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if quiet {
				zerolog.SetGlobalLevel(zerolog.ErrorLevel)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
			return runAnalysis(ctx, cmd.OutOrStdout(), client, args[0], cfg.PollInterval)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the final report")
	return cmd
}

// runAnalysis drives one analysis with the same tracker the web front end
// uses, printing the tracker on each status change and the report at the end.
func runAnalysis(ctx context.Context, out io.Writer, b ports.AnalysisBackend, dob string, interval time.Duration) error {
	store, bus := memory.NewSessionStore(), memory.NewEventBus()
	tr := tracker.NewTracker(b, store, bus, tracker.WithInterval(interval))
	defer tr.Shutdown()
	svc := service.NewOracleService(tr, store, bus, nil, nil)

	sessionID := uuid.New()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events, err := svc.Subscribe(subCtx, sessionID)
	if err != nil {
		return err
	}

	workflowID, err := svc.Submit(ctx, sessionID, dob)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Analysis started: %s\n", workflowID)

	lastStep := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if event.Workflow != nil && event.Workflow.CurrentStep != lastStep && !event.Final() {
				lastStep = event.Workflow.CurrentStep
				fmt.Fprintf(out, "  %s... (%d%%)\n", stepLabel(lastStep), view.Progress(event.Workflow))
			}
			if !event.Final() {
				continue
			}

			state, err := svc.State(ctx, sessionID)
			if err != nil {
				return err
			}
			if err := view.WriteReport(out, state); err != nil {
				return err
			}
			return finalError(state)
		}
	}
}

func stepLabel(i int) string {
	if i >= 0 && i < len(view.StepNames) {
		return view.StepNames[i]
	}
	return "Working"
}

func finalError(state *domain.SessionState) error {
	if state.Results != nil {
		return nil
	}
	if state.Failure != "" {
		return fmt.Errorf("analysis failed: %s", state.Failure)
	}
	return fmt.Errorf("analysis ended without results")
}
