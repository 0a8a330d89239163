package ports

import (
	"context"

	"SecurityNewsBot/internal/domain"
)

// FeedReader fetches one feed and returns its eligible articles in feed
// order. A parse or transport failure returns an error; the caller treats it
// as source-level and skips the source.
type FeedReader interface {
	Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error)
}

// Summarizer produces the spoken-register synopsis for one article.
// Errors are absorbed by the orchestrator with a deterministic fallback.
type Summarizer interface {
	Summarize(ctx context.Context, title, body string) (string, error)
}

// SpeechSynthesizer writes spoken audio for text to outPath.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// VoiceModelProvider resolves the voice-conversion model package, downloading
// it at most once; repeated calls against a populated cache touch no network.
type VoiceModelProvider interface {
	EnsureAvailable(ctx context.Context) (domain.VoiceModelPackage, error)
}

// VoiceConverter re-voices inPath into outPath using the given model.
// Any sub-step failure surfaces as one error; the caller falls back to the
// unconverted audio.
type VoiceConverter interface {
	Convert(ctx context.Context, inPath, outPath string, model domain.VoiceModelPackage) error
}

// DeliveryChannel posts run output to the chat destination. Deliver degrades
// to a text-only notice internally when the audio post is rejected.
type DeliveryChannel interface {
	Announce(ctx context.Context, text string) error
	Deliver(ctx context.Context, article domain.Article, audioPath string) error
}
