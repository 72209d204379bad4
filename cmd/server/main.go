package main

import (
	"context"
	"os/signal"
	"syscall"

	"dob-oracle/internal/app"
	"dob-oracle/internal/config"
	"dob-oracle/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.AppName, cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Wire backend client, stores, tracker and router
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	defer a.Close()

	// 3. Serve until interrupted
	if err := a.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
