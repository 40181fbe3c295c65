// Package storage keeps uploaded document bytes. A backend either exposes
// objects as local files or hands out short-lived download URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

var ErrObjectNotFound = errors.New("storage object not found")

// Location tells a reader how to reach an object: exactly one field is set.
type Location struct {
	LocalPath string
	URL       string
}

func (l Location) IsLocal() bool {
	return l.LocalPath != ""
}

type Storage interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Locate(ctx context.Context, key string) (Location, error)
	Delete(ctx context.Context, key string) error
}

// Registry resolves backends by name so older documents stay readable after
// the default backend changes.
type Registry struct {
	backends map[string]Storage
	fallback string
}

func NewRegistry(defaultBackend string, backends ...Storage) (*Registry, error) {
	r := &Registry{backends: make(map[string]Storage), fallback: defaultBackend}
	for _, b := range backends {
		r.backends[b.Name()] = b
	}
	if _, ok := r.backends[defaultBackend]; !ok {
		return nil, fmt.Errorf("default storage backend %q is not configured", defaultBackend)
	}
	return r, nil
}

func (r *Registry) Default() Storage {
	return r.backends[r.fallback]
}

func (r *Registry) Get(name string) (Storage, error) {
	if name == "" {
		return r.Default(), nil
	}
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("storage backend %q is not configured", name)
	}
	return b, nil
}
