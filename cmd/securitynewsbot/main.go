package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"SecurityNewsBot/internal/app"
	"SecurityNewsBot/internal/config"
	"SecurityNewsBot/internal/logging"
)

func main() {
	ctx := context.Background()

	// Local runs keep credentials in .env; absence is fine in CI.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("configuration failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration incomplete", "error", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
