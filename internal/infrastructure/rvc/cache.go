package rvc

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/ports"
)

// ModelCache lazily downloads and persists the voice-conversion model
// package. Once any weights file exists under the cache directory, the
// package is considered present and the remote source is never contacted.
type ModelCache struct {
	archiveURL string
	cacheDir   string
	client     *http.Client
	logger     *slog.Logger
}

var _ ports.VoiceModelProvider = (*ModelCache)(nil)

// NewModelCache wires the archive source and local cache directory; a nil
// client gets a 120s-timeout default sized for model downloads.
func NewModelCache(archiveURL, cacheDir string, client *http.Client, log *slog.Logger) *ModelCache {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &ModelCache{
		archiveURL: archiveURL,
		cacheDir:   cacheDir,
		client:     client,
		logger:     log,
	}
}

// EnsureAvailable returns the cached model package, downloading and
// extracting the archive on first use.
func (c *ModelCache) EnsureAvailable(ctx context.Context) (domain.VoiceModelPackage, error) {
	if err := os.MkdirAll(c.cacheDir, 0o755); err != nil {
		return domain.VoiceModelPackage{}, fmt.Errorf("create cache dir: %w", err)
	}

	if pkg, ok := c.scan(); ok {
		if c.logger != nil {
			c.logger.Info("voice model found in cache", "weights", pkg.WeightsPath)
		}
		return pkg, nil
	}

	if c.archiveURL == "" {
		return domain.VoiceModelPackage{}, fmt.Errorf("voice model absent and no archive URL configured")
	}

	if err := c.download(ctx); err != nil {
		return domain.VoiceModelPackage{}, err
	}

	pkg, ok := c.scan()
	if !ok {
		return domain.VoiceModelPackage{}, fmt.Errorf("model weights (.pth) not found in archive")
	}

	if c.logger != nil {
		c.logger.Info("voice model downloaded", "weights", pkg.WeightsPath)
	}
	return pkg, nil
}

// scan walks the cache directory for weights and index files. The walk is
// recursive so archives that unpack into a subdirectory still count as
// present on later runs.
func (c *ModelCache) scan() (domain.VoiceModelPackage, bool) {
	var pkg domain.VoiceModelPackage

	_ = filepath.WalkDir(c.cacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch {
		case pkg.WeightsPath == "" && strings.HasSuffix(d.Name(), ".pth"):
			pkg.WeightsPath = path
		case pkg.IndexPath == "" && strings.HasSuffix(d.Name(), ".index"):
			pkg.IndexPath = path
		}
		return nil
	})

	return pkg, pkg.WeightsPath != ""
}

func (c *ModelCache) download(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("downloading voice model", "url", c.archiveURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.archiveURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model archive download returned %s", resp.Status)
	}

	archivePath := filepath.Join(c.cacheDir, "model.zip")
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	_, err = io.Copy(archiveFile, resp.Body)
	closeErr := archiveFile.Close()
	if err != nil {
		os.Remove(archivePath)
		return fmt.Errorf("save archive: %w", err)
	}
	if closeErr != nil {
		os.Remove(archivePath)
		return fmt.Errorf("close archive: %w", closeErr)
	}

	extractErr := extractZip(archivePath, c.cacheDir)
	if err := os.Remove(archivePath); err != nil && c.logger != nil {
		c.logger.Warn("cannot remove model archive", "path", archivePath, "error", err)
	}
	if extractErr != nil {
		return fmt.Errorf("extract archive: %w", extractErr)
	}

	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := sanitizePath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return err
		}

		_, err = io.Copy(out, rc)
		rc.Close()
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// sanitizePath rejects archive entries that would escape the destination.
func sanitizePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return target, nil
}
