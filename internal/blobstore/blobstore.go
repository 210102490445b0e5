package blobstore

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-boards/internal/metrics"
)

// Prefix starts every reference.
const Prefix = "blob:"

// ErrNotFound is returned for unknown or revoked references.
var ErrNotFound = errors.New("blob not found")

// Source is a lazy byte source. Nothing is read until Open.
type Source interface {
	Name() string
	Type() string
	Size() int64
	ModTime() time.Time
	Open() (io.ReadSeekCloser, error)
}

// Registry tracks live references.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Create registers src and returns a new reference to it.
func (r *Registry) Create(src Source) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.sources[id] = src
	live := len(r.sources)
	r.mu.Unlock()

	metrics.BlobRefsLive.Set(float64(live))
	return Prefix + id
}

// Revoke releases ref. Unknown and empty references are ignored.
func (r *Registry) Revoke(ref string) {
	id, ok := ID(ref)
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.sources, id)
	live := len(r.sources)
	r.mu.Unlock()

	metrics.BlobRefsLive.Set(float64(live))
}

// Lookup returns the source behind a reference or a bare id.
func (r *Registry) Lookup(ref string) (Source, error) {
	id, ok := ID(ref)
	if !ok {
		id = ref
	}

	r.mu.RLock()
	src, found := r.sources[id]
	r.mu.RUnlock()

	if !found {
		return nil, ErrNotFound
	}
	return src, nil
}

// Open returns a reader for the referenced bytes together with the source
// describing them.
func (r *Registry) Open(ref string) (io.ReadSeekCloser, Source, error) {
	src, err := r.Lookup(ref)
	if err != nil {
		return nil, nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, nil, err
	}
	return rc, src, nil
}

// Live reports the number of unrevoked references.
func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// ID extracts the id from a reference.
func ID(ref string) (string, bool) {
	id, ok := strings.CutPrefix(ref, Prefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Bytes is an in-memory Source, used for files uploaded in fallback mode.
type Bytes struct {
	FileName    string
	ContentType string
	Data        []byte
	Modified    time.Time
}

func (b *Bytes) Name() string       { return b.FileName }
func (b *Bytes) Type() string       { return b.ContentType }
func (b *Bytes) Size() int64        { return int64(len(b.Data)) }
func (b *Bytes) ModTime() time.Time { return b.Modified }

func (b *Bytes) Open() (io.ReadSeekCloser, error) {
	return nopCloser{bytes.NewReader(b.Data)}, nil
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }
