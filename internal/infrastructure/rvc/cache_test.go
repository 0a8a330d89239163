package rvc

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func modelArchive(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte("payload of " + name)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func archiveServer(t *testing.T, archive []byte, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		_, _ = w.Write(archive)
	}))
}

func TestEnsureAvailableDownloadsOnce(t *testing.T) {
	t.Parallel()

	archive := modelArchive(t, "voice/kanevsky.pth", "voice/kanevsky.index")
	var hits int
	server := archiveServer(t, archive, &hits)
	defer server.Close()

	cacheDir := t.TempDir()
	cache := NewModelCache(server.URL, cacheDir, server.Client(), nil)

	pkg, err := cache.EnsureAvailable(context.Background())
	if err != nil {
		t.Fatalf("EnsureAvailable error: %v", err)
	}
	if filepath.Base(pkg.WeightsPath) != "kanevsky.pth" {
		t.Fatalf("unexpected weights path: %s", pkg.WeightsPath)
	}
	if filepath.Base(pkg.IndexPath) != "kanevsky.index" {
		t.Fatalf("unexpected index path: %s", pkg.IndexPath)
	}
	if hits != 1 {
		t.Fatalf("expected exactly 1 download, got %d", hits)
	}

	if _, err := os.Stat(filepath.Join(cacheDir, "model.zip")); !os.IsNotExist(err) {
		t.Fatalf("archive must be removed after extraction, stat err: %v", err)
	}

	again, err := cache.EnsureAvailable(context.Background())
	if err != nil {
		t.Fatalf("second EnsureAvailable error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("populated cache must not re-download, got %d hits", hits)
	}
	if again.WeightsPath != pkg.WeightsPath {
		t.Fatalf("weights path changed across calls: %s vs %s", again.WeightsPath, pkg.WeightsPath)
	}
}

func TestEnsureAvailableSkipsNetworkWhenCached(t *testing.T) {
	t.Parallel()

	var hits int
	server := archiveServer(t, nil, &hits)
	defer server.Close()

	cacheDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(cacheDir, "voice.pth"), []byte("w"), 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	cache := NewModelCache(server.URL, cacheDir, server.Client(), nil)

	pkg, err := cache.EnsureAvailable(context.Background())
	if err != nil {
		t.Fatalf("EnsureAvailable error: %v", err)
	}
	if hits != 0 {
		t.Fatalf("populated cache triggered %d network requests", hits)
	}
	if filepath.Base(pkg.WeightsPath) != "voice.pth" {
		t.Fatalf("unexpected weights path: %s", pkg.WeightsPath)
	}
	if pkg.IndexPath != "" {
		t.Fatalf("expected empty index path, got %s", pkg.IndexPath)
	}
}

func TestEnsureAvailableWithoutWeightsInArchive(t *testing.T) {
	t.Parallel()

	archive := modelArchive(t, "readme.txt")
	var hits int
	server := archiveServer(t, archive, &hits)
	defer server.Close()

	cache := NewModelCache(server.URL, t.TempDir(), server.Client(), nil)

	if _, err := cache.EnsureAvailable(context.Background()); err == nil {
		t.Fatal("expected error when archive has no .pth file")
	}
}

func TestEnsureAvailableWithoutURL(t *testing.T) {
	t.Parallel()

	cache := NewModelCache("", t.TempDir(), nil, nil)

	if _, err := cache.EnsureAvailable(context.Background()); err == nil {
		t.Fatal("expected configuration error for empty cache and no URL")
	}
}

func TestEnsureAvailableRejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	archive := modelArchive(t, "../escape.pth")
	var hits int
	server := archiveServer(t, archive, &hits)
	defer server.Close()

	cacheDir := t.TempDir()
	cache := NewModelCache(server.URL, cacheDir, server.Client(), nil)

	if _, err := cache.EnsureAvailable(context.Background()); err == nil {
		t.Fatal("expected error for archive entry escaping the cache dir")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cacheDir), "escape.pth")); !os.IsNotExist(err) {
		t.Fatalf("escaping entry must not be written, stat err: %v", err)
	}
}
