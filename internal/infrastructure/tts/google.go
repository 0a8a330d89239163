package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"SecurityNewsBot/internal/config"
	"SecurityNewsBot/internal/ports"
)

// The translate endpoint rejects long inputs, so text is synthesized in
// chunks and the MP3 responses are concatenated (MP3 frames are
// self-contained, so plain byte concatenation plays back correctly).
const maxChunkRunes = 200

// GoogleSynthesizer speaks text through the Google Translate TTS endpoint
// and writes the result to a local MP3 file.
type GoogleSynthesizer struct {
	baseURL  string
	language string
	slow     bool
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.SpeechSynthesizer = (*GoogleSynthesizer)(nil)

// NewGoogleSynthesizer builds the client; a nil http.Client gets a
// 30s-timeout default.
func NewGoogleSynthesizer(cfg config.TTSConfig, client *http.Client, log *slog.Logger) *GoogleSynthesizer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GoogleSynthesizer{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: cfg.Language,
		slow:     cfg.Slow,
		client:   client,
		logger:   log,
	}
}

// Synthesize writes spoken audio for text to outPath. The partial file is
// removed when any chunk fails.
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	chunks := splitChunks(text, maxChunkRunes)
	if len(chunks) == 0 {
		return fmt.Errorf("nothing to synthesize")
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}

	for i, chunk := range chunks {
		if err := s.fetchChunk(ctx, chunk, i, len(chunks), out); err != nil {
			out.Close()
			os.Remove(outPath)
			return fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("close audio file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("speech synthesized", "path", outPath, "chunks", len(chunks))
	}

	return nil
}

func (s *GoogleSynthesizer) fetchChunk(ctx context.Context, chunk string, idx, total int, out io.Writer) error {
	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", s.language)
	query.Set("q", chunk)
	query.Set("textlen", strconv.Itoa(len([]rune(chunk))))
	query.Set("idx", strconv.Itoa(idx))
	query.Set("total", strconv.Itoa(total))
	query.Set("ttsspeed", speedParam(s.slow))

	endpoint := s.baseURL + "/translate_tts?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "SecurityNewsBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts endpoint returned %s", resp.Status)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	return nil
}

func speedParam(slow bool) string {
	if slow {
		return "0.24"
	}
	return "1"
}

// splitChunks cuts text into pieces of at most limit runes, preferring
// sentence ends, then spaces, before hard-splitting.
func splitChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(strings.TrimSpace(text))

	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}

		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i-1] == '.' || runes[i-1] == '!' || runes[i-1] == '?' {
				cut = i
				break
			}
			if cut == limit && runes[i] == ' ' {
				cut = i
			}
		}

		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = []rune(strings.TrimSpace(string(runes[cut:])))
	}

	return chunks
}
