package app

import (
	"context"
	"fmt"
	"log/slog"

	"SecurityNewsBot/internal/config"
	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/infrastructure/feed"
	"SecurityNewsBot/internal/infrastructure/llm"
	"SecurityNewsBot/internal/infrastructure/rvc"
	"SecurityNewsBot/internal/infrastructure/telegram"
	"SecurityNewsBot/internal/infrastructure/tts"
	"SecurityNewsBot/internal/logging"
	"SecurityNewsBot/internal/ports"
	"SecurityNewsBot/internal/usecase"
)

// Application wires configuration into adapters and the run pipeline.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	channel, err := telegram.NewChannel(cfg.Telegram, baseLogger.With("component", "telegram"))
	if err != nil {
		return nil, fmt.Errorf("build delivery channel: %w", err)
	}

	var models ports.VoiceModelProvider
	if cfg.Voice.ModelURL != "" {
		models = rvc.NewModelCache(cfg.Voice.ModelURL, cfg.Voice.CacheDir, nil,
			baseLogger.With("component", "rvc.cache"))
	}

	feeds := make([]domain.FeedSource, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		feeds = append(feeds, domain.FeedSource{Name: f.Name, URL: f.URL})
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Feeds:         feeds,
		Reader:        feed.NewReader(nil, cfg.Pipeline.LookbackHours, cfg.Pipeline.MaxPerFeed, baseLogger.With("component", "feed")),
		Summarizer:    llm.NewGroqSummarizer(cfg.Groq),
		Synthesizer:   tts.NewGoogleSynthesizer(cfg.TTS, nil, baseLogger.With("component", "tts")),
		Models:        models,
		Converter:     rvc.NewConverter(cfg.Voice.Binary, nil, baseLogger.With("component", "rvc")),
		Channel:       channel,
		Logger:        baseLogger.With("component", "pipeline"),
		HeaderPause:   usecase.DefaultHeaderPause,
		DeliveryPause: usecase.DefaultDeliveryPause,
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline}, nil
}

// Run performs a single pipeline execution. A run that delivers nothing is
// still a successful run.
func (a *Application) Run(ctx context.Context) error {
	a.pipeline.Run(ctx)
	return nil
}
