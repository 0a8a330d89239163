package rvc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"SecurityNewsBot/internal/domain"
)

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []recordedCall
	failOn  string
	touched []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, recordedCall{name: name, args: args})
	if name == f.failOn {
		return fmt.Errorf("%s exploded", name)
	}
	// Real commands produce their output file; emulate so cleanup is observable.
	if out := outputArg(name, args); out != "" {
		_ = os.WriteFile(out, []byte("audio"), 0o644)
		f.touched = append(f.touched, out)
	}
	return nil
}

func outputArg(name string, args []string) string {
	if name == "ffmpeg" {
		return args[len(args)-1]
	}
	for i, a := range args {
		if a == "--output" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testPaths(t *testing.T) (inPath, outPath string) {
	t.Helper()
	dir := t.TempDir()
	inPath = filepath.Join(dir, "speech.mp3")
	if err := os.WriteFile(inPath, []byte("mp3"), 0o644); err != nil {
		t.Fatalf("seed input: %v", err)
	}
	return inPath, filepath.Join(dir, "speech_voice.mp3")
}

func TestConvertRunsPipelineInOrder(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	conv := NewConverter("rvc", runner, nil)
	inPath, outPath := testPaths(t)

	model := domain.VoiceModelPackage{WeightsPath: "/models/k.pth", IndexPath: "/models/k.index"}
	if err := conv.Convert(context.Background(), inPath, outPath, model); err != nil {
		t.Fatalf("Convert error: %v", err)
	}

	if len(runner.calls) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(runner.calls))
	}
	if runner.calls[0].name != "ffmpeg" || runner.calls[1].name != "rvc" || runner.calls[2].name != "ffmpeg" {
		t.Fatalf("unexpected command order: %+v", runner.calls)
	}

	infer := strings.Join(runner.calls[1].args, " ")
	if !strings.Contains(infer, "--model /models/k.pth") {
		t.Fatalf("inference missing model arg: %s", infer)
	}
	if !strings.Contains(infer, "--index /models/k.index") {
		t.Fatalf("inference missing index arg: %s", infer)
	}

	encode := runner.calls[2].args
	if encode[len(encode)-1] != outPath {
		t.Fatalf("final encode must target %s, got %s", outPath, encode[len(encode)-1])
	}
	if !strings.Contains(strings.Join(encode, " "), "libmp3lame") {
		t.Fatalf("final encode missing mp3 codec: %v", encode)
	}
}

func TestConvertOmitsIndexWhenAbsent(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	conv := NewConverter("rvc", runner, nil)
	inPath, outPath := testPaths(t)

	model := domain.VoiceModelPackage{WeightsPath: "/models/k.pth"}
	if err := conv.Convert(context.Background(), inPath, outPath, model); err != nil {
		t.Fatalf("Convert error: %v", err)
	}

	if strings.Contains(strings.Join(runner.calls[1].args, " "), "--index") {
		t.Fatalf("index arg must be omitted: %v", runner.calls[1].args)
	}
}

func TestConvertCleansIntermediatesOnSuccess(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	conv := NewConverter("rvc", runner, nil)
	inPath, outPath := testPaths(t)

	if err := conv.Convert(context.Background(), inPath, outPath, domain.VoiceModelPackage{WeightsPath: "w.pth"}); err != nil {
		t.Fatalf("Convert error: %v", err)
	}

	for _, wav := range runner.touched {
		if !strings.HasSuffix(wav, ".wav") {
			continue
		}
		if _, err := os.Stat(wav); !os.IsNotExist(err) {
			t.Fatalf("intermediate %s must be removed, stat err: %v", wav, err)
		}
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("converted output must remain: %v", err)
	}
}

func TestConvertCleansIntermediatesOnFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{failOn: "rvc"}
	conv := NewConverter("rvc", runner, nil)
	inPath, outPath := testPaths(t)

	err := conv.Convert(context.Background(), inPath, outPath, domain.VoiceModelPackage{WeightsPath: "w.pth"})
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if !strings.Contains(err.Error(), "conversion failed") {
		t.Fatalf("error must mark conversion failure: %v", err)
	}

	wavIn := strings.TrimSuffix(inPath, ".mp3") + "_in.wav"
	if _, statErr := os.Stat(wavIn); !os.IsNotExist(statErr) {
		t.Fatalf("intermediate must be removed on failure, stat err: %v", statErr)
	}
	if _, statErr := os.Stat(inPath); statErr != nil {
		t.Fatalf("input audio must survive failed conversion: %v", statErr)
	}
}
