package materializer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"insightdocs-be/internal/pkg/logger"
	"insightdocs-be/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// urlStorage pretends to be a remote backend that presigns urls.
type urlStorage struct {
	url string
	err error
}

func (s *urlStorage) Name() string { return storage.BackendS3 }
func (s *urlStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return nil
}
func (s *urlStorage) Locate(ctx context.Context, key string) (storage.Location, error) {
	if s.err != nil {
		return storage.Location{}, s.err
	}
	return storage.Location{URL: s.url + "/" + key}, nil
}
func (s *urlStorage) Delete(ctx context.Context, key string) error { return nil }

func newRegistry(t *testing.T, backends ...storage.Storage) *storage.Registry {
	t.Helper()
	reg, err := storage.NewRegistry(backends[0].Name(), backends...)
	require.NoError(t, err)
	return reg
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestMaterializeLocalDocument(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, local.Put(context.Background(), "a/notes.txt", strings.NewReader("hello"), 5, "text/plain"))

	m := New(newRegistry(t, local), Config{TempDir: t.TempDir()}, logger.NewNopLogger())

	path, release, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendLocal, StorageKey: "a/notes.txt", OriginalName: "notes.txt"})
	require.NoError(t, err)
	release()

	// no-op release leaves the stored file alone
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMaterializeRemoteDocument(t *testing.T) {
	payload := strings.Repeat("x", 3000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	m := New(newRegistry(t, &urlStorage{url: srv.URL}), Config{TempDir: tmp, ChunkBytes: 512}, logger.NewNopLogger())

	tests := []struct {
		name     string
		original string
		wantExt  string
	}{
		{name: "keeps extension", original: "Slides.PDF", wantExt: ".pdf"},
		{name: "falls back to tmp", original: "README", wantExt: ".tmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, release, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendS3, StorageKey: "k", OriginalName: tt.original})
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, filepath.Ext(path))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, payload, string(data))

			release()
			release()
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestMaterializeFromPresignedMinioURL(t *testing.T) {
	var gotSigned atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/documents/u1/deck.pdf" {
			http.Error(w, "no such key", http.StatusNotFound)
			return
		}
		gotSigned.Store(r.URL.Query().Get("X-Amz-Signature") != "")
		w.Write([]byte("%PDF-1.7 deck"))
	}))
	defer srv.Close()

	s3, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "docs",
		Region:    "us-east-1",
		URLTTL:    time.Minute,
	})
	require.NoError(t, err)

	tmp := t.TempDir()
	m := New(newRegistry(t, s3), Config{TempDir: tmp}, logger.NewNopLogger())

	path, release, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendS3, StorageKey: "documents/u1/deck.pdf", OriginalName: "deck.pdf"})
	require.NoError(t, err)
	assert.True(t, gotSigned.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 deck", string(data))

	release()
	assert.Empty(t, tempFiles(t, tmp))
}

func TestMaterializeRemovesTempFileOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	m := New(newRegistry(t, &urlStorage{url: srv.URL}), Config{TempDir: tmp}, logger.NewNopLogger())

	_, release, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendS3, StorageKey: "k", OriginalName: "a.pdf"})
	require.Error(t, err)
	assert.NotNil(t, release)
	assert.Empty(t, tempFiles(t, tmp))
}

func TestMaterializeAbortsStalledDownload(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(unblock)

	tmp := t.TempDir()
	m := New(newRegistry(t, &urlStorage{url: srv.URL}), Config{TempDir: tmp, DownloadTimeout: 50 * time.Millisecond}, logger.NewNopLogger())

	_, _, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendS3, StorageKey: "k", OriginalName: "a.pdf"})
	require.Error(t, err)
	assert.Empty(t, tempFiles(t, tmp))
}

func TestMaterializeLocateFailure(t *testing.T) {
	m := New(newRegistry(t, &urlStorage{err: errors.New("presign failed")}), Config{TempDir: t.TempDir()}, logger.NewNopLogger())

	_, _, err := m.Materialize(context.Background(), DocumentRef{StorageBackend: storage.BackendS3, StorageKey: "k"})
	assert.ErrorContains(t, err, "presign failed")
}
