// Package materializer makes a stored document readable from the local
// filesystem, downloading it to a temporary file when the storage backend is remote.
package materializer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/pkg/storage"
)

const fallbackExtension = ".tmp"

type DocumentRef struct {
	StorageBackend string
	StorageKey     string
	OriginalName   string
}

// Locator is satisfied by *storage.Registry.
type Locator interface {
	Get(name string) (storage.Storage, error)
}

type Config struct {
	DownloadTimeout time.Duration
	ChunkBytes      int
	TempDir         string // empty means os.TempDir()
}

type Materializer struct {
	locator    Locator
	client     *http.Client
	timeout    time.Duration
	chunkBytes int
	tempDir    string
	logger     logger.ILogger
}

func New(locator Locator, cfg Config, log logger.ILogger) *Materializer {
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = 1024 * 1024
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.DownloadTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.DownloadTimeout,
		ResponseHeaderTimeout: cfg.DownloadTimeout,
	}

	return &Materializer{
		locator:    locator,
		client:     &http.Client{Transport: transport},
		timeout:    cfg.DownloadTimeout,
		chunkBytes: cfg.ChunkBytes,
		tempDir:    cfg.TempDir,
		logger:     log,
	}
}

func noopRelease() {}

// Materialize returns a readable path and a release func. release is never
// nil, is safe to call more than once and never fails.
func (m *Materializer) Materialize(ctx context.Context, ref DocumentRef) (string, func(), error) {
	backend, err := m.locator.Get(ref.StorageBackend)
	if err != nil {
		return "", noopRelease, err
	}

	loc, err := backend.Locate(ctx, ref.StorageKey)
	if err != nil {
		return "", noopRelease, fmt.Errorf("locate %s: %w", ref.StorageKey, err)
	}

	if loc.IsLocal() {
		return loc.LocalPath, noopRelease, nil
	}

	path, err := m.download(ctx, loc.URL, extensionOf(ref.OriginalName))
	if err != nil {
		return "", noopRelease, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				m.logger.Debug("Materializer", "Temp file cleanup failed", map[string]interface{}{"path": path, "error": err.Error()})
			}
		})
	}
	return path, release, nil
}

func extensionOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." {
		return fallbackExtension
	}
	return ext
}

func (m *Materializer) download(ctx context.Context, url, ext string) (_ string, err error) {
	f, err := os.CreateTemp(m.tempDir, "insightdocs-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	res, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("download document: unexpected status %d", res.StatusCode)
	}

	body := newStallGuard(res.Body, m.timeout, cancel)
	defer body.stop()

	buf := make([]byte, m.chunkBytes)
	// wrapping hides ReaderFrom so every write is at most one chunk
	if _, err = io.CopyBuffer(struct{ io.Writer }{f}, struct{ io.Reader }{body}, buf); err != nil {
		return "", fmt.Errorf("download document: %w", err)
	}

	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpPath, nil
}

// stallGuard cancels the download when no bytes arrive within timeout.
type stallGuard struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func newStallGuard(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *stallGuard {
	return &stallGuard{
		r:       r,
		timeout: timeout,
		timer:   time.AfterFunc(timeout, cancel),
	}
}

func (g *stallGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	if n > 0 {
		g.timer.Reset(g.timeout)
	}
	return n, err
}

func (g *stallGuard) stop() {
	g.timer.Stop()
}
