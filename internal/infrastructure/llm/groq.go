package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"SecurityNewsBot/internal/config"
	"SecurityNewsBot/internal/ports"
)

const promptTemplate = "Ты — диктор новостей кибербезопасности. " +
	"Напиши краткое резюме этой статьи НА РУССКОМ языке — ровно 3 предложения. " +
	"Простым языком, без технического жаргона, без вступлений вроде 'Вот резюме:'. " +
	"Только сам текст резюме.\n\n" +
	"Заголовок: %s\n\n" +
	"Текст: %s"

// GroqSummarizer produces spoken-register synopses through Groq's
// OpenAI-compatible chat-completions API.
type GroqSummarizer struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

var _ ports.Summarizer = (*GroqSummarizer)(nil)

// NewGroqSummarizer builds a client from configuration.
func NewGroqSummarizer(cfg config.GroqConfig) *GroqSummarizer {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		option.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		option.WithMaxRetries(0),
	)

	return &GroqSummarizer{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Summarize sends a single user prompt and returns the generated text.
// The three-sentence contract is best effort; the response is not validated.
func (s *GroqSummarizer) Summarize(ctx context.Context, title, body string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(promptTemplate, title, body)),
		},
		MaxCompletionTokens: openai.Opt(int64(s.maxTokens)),
		Temperature:         openai.Opt(s.temperature),
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("groq request failed (status=%d): %s",
				apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	synopsis := strings.TrimSpace(resp.Choices[0].Message.Content)
	if synopsis == "" {
		return "", fmt.Errorf("groq returned an empty synopsis")
	}

	return synopsis, nil
}
