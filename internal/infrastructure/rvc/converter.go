package rvc

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/ports"
)

// CommandRunner executes one external process to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 200 {
			detail = detail[len(detail)-200:]
		}
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Converter re-voices synthesized speech with the cached model: the MP3 is
// transcoded to uncompressed WAV, run through the RVC inference binary, and
// re-encoded to MP3. Intermediate WAV files never outlive the call.
type Converter struct {
	binary string
	runner CommandRunner
	logger *slog.Logger
}

var _ ports.VoiceConverter = (*Converter)(nil)

// NewConverter wires the inference binary name; a nil runner gets the real
// subprocess runner.
func NewConverter(binary string, runner CommandRunner, log *slog.Logger) *Converter {
	if runner == nil {
		runner = execRunner{}
	}
	return &Converter{
		binary: binary,
		runner: runner,
		logger: log,
	}
}

// Convert writes the converted audio to outPath. Any sub-step failure
// surfaces as a single conversion error; inPath is left untouched so the
// caller can fall back to it.
func (c *Converter) Convert(ctx context.Context, inPath, outPath string, model domain.VoiceModelPackage) error {
	base := strings.TrimSuffix(inPath, ".mp3")
	wavIn := base + "_in.wav"
	wavOut := base + "_rvc.wav"

	defer func() {
		for _, path := range []string{wavIn, wavOut} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) && c.logger != nil {
				c.logger.Warn("cannot remove intermediate audio", "path", path, "error", err)
			}
		}
	}()

	if err := c.runner.Run(ctx, "ffmpeg", "-y", "-i", inPath, wavIn); err != nil {
		return fmt.Errorf("conversion failed: decode input: %w", err)
	}

	args := []string{"infer", "--model", model.WeightsPath, "--input", wavIn, "--output", wavOut}
	if model.IndexPath != "" {
		args = append(args, "--index", model.IndexPath)
	}
	if err := c.runner.Run(ctx, c.binary, args...); err != nil {
		return fmt.Errorf("conversion failed: inference: %w", err)
	}

	if err := c.runner.Run(ctx, "ffmpeg", "-y", "-i", wavOut, "-codec:a", "libmp3lame", "-qscale:a", "4", outPath); err != nil {
		return fmt.Errorf("conversion failed: encode output: %w", err)
	}

	return nil
}
