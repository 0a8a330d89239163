package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const configPathEnv = "SECNEWS_CONFIG"

// Config holds everything the pipeline needs; constructed once at startup
// and passed by reference into components, never read ambiently.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Groq     GroqConfig     `yaml:"groq"`
	Telegram TelegramConfig `yaml:"telegram"`
	TTS      TTSConfig      `yaml:"tts"`
	Voice    VoiceConfig    `yaml:"voice"`
	Feeds    []FeedConfig   `yaml:"feeds"`
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PipelineConfig holds the recency window and per-source volume cap.
type PipelineConfig struct {
	LookbackHours int `yaml:"lookbackHours" env:"LOOKBACK_HOURS"`
	MaxPerFeed    int `yaml:"maxPerFeed" env:"MAX_ARTICLES_PER_BLOG"`
}

// GroqConfig defines how to contact the Groq chat-completions API.
type GroqConfig struct {
	APIKey      string  `yaml:"apiKey" env:"GROQ_API_KEY"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

// TelegramConfig wires the bot and its fixed destination chat.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" env:"TELEGRAM_TOKEN"`
	ChatID   string `yaml:"chatId" env:"TELEGRAM_CHAT_ID"`
}

// TTSConfig describes the speech-synthesis endpoint and target language.
type TTSConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	Language string `yaml:"language"`
	Slow     bool   `yaml:"slow"`
}

// VoiceConfig describes the optional voice-conversion setup. An empty
// ModelURL disables conversion for the run; it is not an error.
type VoiceConfig struct {
	ModelURL string `yaml:"modelUrl" env:"HF_MODEL_URL"`
	CacheDir string `yaml:"cacheDir"`
	Binary   string `yaml:"binary"`
}

// FeedConfig is one syndication source.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Load builds defaults, overlays the optional YAML file pointed to by
// SECNEWS_CONFIG, then applies environment overrides.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Voice.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.Voice.CacheDir = filepath.Join(home, ".rvc_models", "kanevsky")
	}

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg, nil
}

// Validate checks the credentials the run cannot start without.
func (c Config) Validate() error {
	var missing []string
	if c.Groq.APIKey == "" {
		missing = append(missing, "GROQ_API_KEY")
	}
	if c.Telegram.BotToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}
	if c.Telegram.ChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			LookbackHours: 24,
			MaxPerFeed:    2,
		},
		Groq: GroqConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   300,
			Temperature: 0.4,
		},
		TTS: TTSConfig{
			BaseURL:  "https://translate.google.com",
			Language: "ru",
		},
		Voice: VoiceConfig{
			Binary: "rvc",
		},
		Feeds: []FeedConfig{
			{Name: "🔴 BleepingComputer", URL: "https://www.bleepingcomputer.com/feed/"},
			{Name: "🔴 The Hacker News", URL: "https://feeds.feedburner.com/TheHackersNews"},
			{Name: "🔴 Kaspersky Blog", URL: "https://www.kaspersky.com/blog/feed/"},
			{Name: "🔴 BlockThreat", URL: "https://blockthreat.io/feed/"},
			{Name: "🔴 Objective-See", URL: "https://objective-see.org/rss.xml"},
		},
	}
}
