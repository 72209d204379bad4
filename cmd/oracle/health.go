package main

import (
	"context"
	"fmt"
	"time"

	"dob-oracle/internal/infrastructure/backend"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			health, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout).Health(ctx)
			if err != nil {
				return fmt.Errorf("backend %s: %w", cfg.BackendURL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", health.Service, health.Status, health.Timestamp)
			return nil
		},
	}
}
