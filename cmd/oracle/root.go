package main

import (
	"time"

	"dob-oracle/internal/config"
	"dob-oracle/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var v = viper.New()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "oracle",
		Short:         "Birth Date Oracle: analyse a date of birth through the analysis backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("backend", "", "analysis backend base URL")
	root.PersistentFlags().String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	root.PersistentFlags().Duration("interval", time.Second, "poll interval")
	v.BindPFlag("backend_url", root.PersistentFlags().Lookup("backend"))
	v.BindPFlag("app_log_level", root.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("poll_interval", root.PersistentFlags().Lookup("interval"))

	root.AddCommand(newAnalyzeCmd(), newServeCmd(), newHealthCmd())
	return root
}

// loadConfig merges flags, environment and oracle.yaml and initialises logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.AppName, cfg.LogLevel)
	return cfg, nil
}
