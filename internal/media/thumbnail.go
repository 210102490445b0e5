package media

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"media-boards/internal/logging"
	"media-boards/internal/mediatypes"
	"media-boards/internal/metrics"
)

const (
	// ThumbnailSize bounds both sides of a preview.
	ThumbnailSize = 320
	// ThumbnailQuality is the JPEG quality of previews.
	ThumbnailQuality = 80
	// DefaultCacheEntries bounds the in-memory preview cache.
	DefaultCacheEntries = 512
)

var (
	// ErrUnsupported is returned for assets that have no preview.
	ErrUnsupported = errors.New("no preview for this media type")

	// ErrBusy is returned instead of rendering while the gate is closed.
	ErrBusy = errors.New("preview rendering paused under memory pressure")
)

// Gate decides whether a new render may start. Cached previews are always
// served.
type Gate interface {
	Allow() bool
}

// noPreview lists image extensions we cannot rasterize.
var noPreview = map[string]bool{"svg": true, "avif": true}

// Source is the bytes behind an asset.
type Source interface {
	Name() string
	Open() (io.ReadSeekCloser, error)
}

// Thumbnailer renders and caches previews.
type Thumbnailer struct {
	maxEntries int
	group      singleflight.Group
	gate       Gate

	mu    sync.Mutex
	cache map[string][]byte
	order []string // insertion order for eviction
}

// NewThumbnailer creates a cache holding at most maxEntries previews.
func NewThumbnailer(maxEntries int) *Thumbnailer {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Thumbnailer{maxEntries: maxEntries, cache: make(map[string][]byte)}
}

// SetGate installs a gate consulted before every render. Must be called
// before the thumbnailer is shared.
func (t *Thumbnailer) SetGate(g Gate) {
	t.gate = g
}

// CacheKey builds the cache key for an asset and its current reference.
func CacheKey(assetID, ref string) string {
	return assetID + "|" + ref
}

// Supported reports whether name can have a preview.
func Supported(name, declaredType string) bool {
	if mediatypes.Classify(name, declaredType) != mediatypes.KindImage {
		return false
	}
	return !noPreview[mediatypes.Extension(name)]
}

// Thumbnail returns the JPEG preview for src, rendering it on first use.
// Concurrent requests for the same key share one render.
func (t *Thumbnailer) Thumbnail(key string, src Source, declaredType string) ([]byte, error) {
	if !Supported(src.Name(), declaredType) {
		return nil, ErrUnsupported
	}

	if data, ok := t.lookup(key); ok {
		metrics.ThumbnailCacheHits.Inc()
		return data, nil
	}
	metrics.ThumbnailCacheMisses.Inc()

	if t.gate != nil && !t.gate.Allow() {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("throttled").Inc()
		return nil, ErrBusy
	}

	v, err, _ := t.group.Do(key, func() (any, error) {
		if data, ok := t.lookup(key); ok {
			return data, nil
		}

		start := time.Now()
		data, err := render(src)
		metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			status := "error"
			if errors.Is(err, ErrUnsupported) {
				status = "unsupported"
			}
			metrics.ThumbnailGenerationsTotal.WithLabelValues(status).Inc()
			return nil, err
		}
		metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()

		t.store(key, data)
		logging.Debug("Thumbnail generated for %s (%d bytes) in %v", src.Name(), len(data), time.Since(start).Round(time.Millisecond))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Forget drops every cached preview.
func (t *Thumbnailer) Forget() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache = make(map[string][]byte)
	t.order = nil
}

// Len reports how many previews are cached.
func (t *Thumbnailer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.cache)
}

func (t *Thumbnailer) lookup(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	data, ok := t.cache[key]
	return data, ok
}

func (t *Thumbnailer) store(key string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.cache[key]; ok {
		return
	}
	for len(t.order) >= t.maxEntries {
		delete(t.cache, t.order[0])
		t.order = t.order[1:]
	}
	t.cache[key] = data
	t.order = append(t.order, key)
}

func render(src Source) ([]byte, error) {
	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			logging.Warn("failed to close %s: %v", src.Name(), err)
		}
	}()

	header := make([]byte, 32)
	n, _ := io.ReadFull(r, header)
	if format := sniffFormat(header[:n]); format != "" {
		logging.Debug("No preview for %s: content is %s", src.Name(), format)
		return nil, ErrUnsupported
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img, err := DecodeConstrained(r, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, ThumbnailSize, ThumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: ThumbnailQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
