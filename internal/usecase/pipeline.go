package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/ports"
)

// Pacing between channel posts; the chat API rate-limits bursts.
const (
	DefaultHeaderPause   = 1 * time.Second
	DefaultDeliveryPause = 2 * time.Second
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// A nil Models provider disables voice conversion for the run.
type PipelineDeps struct {
	Feeds         []domain.FeedSource
	Reader        ports.FeedReader
	Summarizer    ports.Summarizer
	Synthesizer   ports.SpeechSynthesizer
	Models        ports.VoiceModelProvider
	Converter     ports.VoiceConverter
	Channel       ports.DeliveryChannel
	Logger        *slog.Logger
	HeaderPause   time.Duration
	DeliveryPause time.Duration
	TempDir       string
}

// Pipeline drives the per-feed, per-article sequence: read → summarize →
// synthesize → convert (optional) → deliver, degrading instead of aborting
// at every stage.
type Pipeline struct {
	feeds         []domain.FeedSource
	reader        ports.FeedReader
	summarizer    ports.Summarizer
	synthesizer   ports.SpeechSynthesizer
	models        ports.VoiceModelProvider
	converter     ports.VoiceConverter
	channel       ports.DeliveryChannel
	logger        *slog.Logger
	headerPause   time.Duration
	deliveryPause time.Duration
	tempDir       string
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		feeds:         deps.Feeds,
		reader:        deps.Reader,
		summarizer:    deps.Summarizer,
		synthesizer:   deps.Synthesizer,
		models:        deps.Models,
		converter:     deps.Converter,
		channel:       deps.Channel,
		logger:        logger,
		headerPause:   deps.HeaderPause,
		deliveryPause: deps.DeliveryPause,
		tempDir:       deps.TempDir,
		now:           time.Now,
	}
}

// Run executes one full pass over the configured feeds and returns the
// number of delivered articles. Zero is a valid terminal state.
func (p *Pipeline) Run(ctx context.Context) int {
	mode, model := p.resolveConversion(ctx)
	p.logger.Info("run started", "feeds", len(p.feeds), "conversion", mode.String())

	delivered := 0
	for _, source := range p.feeds {
		articles, err := p.reader.Fetch(ctx, source)
		if err != nil {
			p.logger.Warn("feed skipped", "source", source.Name, "error", err)
			continue
		}
		if len(articles) == 0 {
			p.logger.Debug("no recent articles", "source", source.Name)
			continue
		}

		if err := p.channel.Announce(ctx, p.batchHeader(source.Name, len(articles))); err != nil {
			p.logger.Warn("batch announcement failed", "source", source.Name, "error", err)
		}
		p.pause(ctx, p.headerPause)

		for _, article := range articles {
			if p.processArticle(ctx, article, mode, model) {
				delivered++
			}
			p.pause(ctx, p.deliveryPause)
		}
	}

	if delivered == 0 {
		p.logger.Info("no new articles this run")
	} else {
		p.logger.Info("run complete", "delivered", delivered)
	}
	return delivered
}

// resolveConversion decides the run mode once, before any article work.
// Model-acquisition failure disables conversion for the whole run but never
// stops it.
func (p *Pipeline) resolveConversion(ctx context.Context) (domain.ConversionMode, domain.VoiceModelPackage) {
	if p.models == nil {
		return domain.ConversionDisabled, domain.VoiceModelPackage{}
	}

	model, err := p.models.EnsureAvailable(ctx)
	if err != nil {
		p.logger.Warn("voice model unavailable, continuing without conversion", "error", err)
		return domain.ConversionFailedThisRun, domain.VoiceModelPackage{}
	}
	return domain.ConversionEnabled, model
}

// processArticle runs one article through the stage chain and reports
// whether the channel accepted it. Every temporary audio file created here
// is removed before return, on every exit path.
func (p *Pipeline) processArticle(ctx context.Context, article domain.Article, mode domain.ConversionMode, model domain.VoiceModelPackage) bool {
	synopsis, err := p.summarizer.Summarize(ctx, article.Title, article.Body)
	if err != nil {
		p.logger.Warn("summarization degraded to fallback", "title", article.Title, "error", err)
		synopsis = domain.FallbackSynopsis(article.Title)
	}

	speech, err := os.CreateTemp(p.tempDir, "secnews-*.mp3")
	if err != nil {
		p.logger.Error("cannot allocate audio artifact", "error", err)
		return false
	}
	speechPath := speech.Name()
	speech.Close()
	convertedPath := strings.TrimSuffix(speechPath, ".mp3") + "_voice.mp3"

	defer func() {
		for _, path := range []string{speechPath, convertedPath} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				p.logger.Warn("cannot remove audio artifact", "path", path, "error", err)
			}
		}
	}()

	if err := p.synthesizer.Synthesize(ctx, article.Title+". "+synopsis, speechPath); err != nil {
		p.logger.Warn("speech synthesis failed, article skipped", "title", article.Title, "error", err)
		return false
	}

	audioPath := speechPath
	if mode == domain.ConversionEnabled {
		if err := p.converter.Convert(ctx, speechPath, convertedPath, model); err != nil {
			p.logger.Warn("voice conversion failed, delivering base speech", "title", article.Title, "error", err)
		} else {
			audioPath = convertedPath
		}
	}

	if err := p.channel.Deliver(ctx, article, audioPath); err != nil {
		p.logger.Warn("delivery failed", "title", article.Title, "error", err)
		return false
	}
	return true
}

func (p *Pipeline) batchHeader(sourceName string, count int) string {
	word := "статьи"
	if count == 1 {
		word = "статья"
	}
	return fmt.Sprintf("━━━━━━━━━━━━━━━━━━━━\n%s\n📅 %s · %d %s",
		sourceName, p.now().UTC().Format("02.01.2006"), count, word)
}

func (p *Pipeline) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
