package domain

import (
	"fmt"
	"time"
)

// FeedSource is one configured syndication feed; immutable for the run.
type FeedSource struct {
	Name string
	URL  string
}

// Article is a single feed entry eligible for the current run.
// Body is a plain-text excerpt capped by the reader; nothing is persisted
// across runs, eligibility is purely PublishedAt vs. the lookback cutoff.
type Article struct {
	Title       string
	Link        string
	Body        string
	PublishedAt time.Time
}

// VoiceModelPackage locates the cached voice-conversion model on disk.
// IndexPath is empty when the archive carried no similarity index.
type VoiceModelPackage struct {
	WeightsPath string
	IndexPath   string
}

// ConversionMode is decided once per run, before any article is processed.
type ConversionMode int

const (
	// ConversionDisabled means no model source is configured.
	ConversionDisabled ConversionMode = iota
	// ConversionEnabled means the model package resolved successfully.
	ConversionEnabled
	// ConversionFailedThisRun means model resolution failed; the run
	// continues with unconverted speech.
	ConversionFailedThisRun
)

func (m ConversionMode) String() string {
	switch m {
	case ConversionEnabled:
		return "enabled"
	case ConversionFailedThisRun:
		return "failed"
	default:
		return "disabled"
	}
}

// FallbackSynopsis is the deterministic stand-in used when summarization
// fails; derived from the title only.
func FallbackSynopsis(title string) string {
	return fmt.Sprintf("Новая статья: %s", title)
}
