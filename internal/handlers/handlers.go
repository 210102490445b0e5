package handlers

import (
	"context"
	"time"

	"media-boards/internal/events"
	"media-boards/internal/media"
	"media-boards/internal/workspace"
)

// DefaultMaxUpload bounds a multipart import or fallback request.
const DefaultMaxUpload = 1 << 30

// Pinger reports whether the persisted store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryReporter exposes the memory monitor's view for health checks.
type MemoryReporter interface {
	Usage() float64
	Limit() int64
}

// Handlers serves one workspace.
type Handlers struct {
	ws        *workspace.Workspace
	store     Pinger // optional
	events    *events.Broadcaster
	thumbs    *media.Thumbnailer
	memory    MemoryReporter // optional
	started   time.Time
	maxUpload int64
}

// New creates the handlers. store may be nil when nothing is persisted.
func New(ws *workspace.Workspace, store Pinger, bc *events.Broadcaster, thumbs *media.Thumbnailer) *Handlers {
	if bc == nil {
		bc = events.NewBroadcaster()
	}
	if thumbs == nil {
		thumbs = media.NewThumbnailer(0)
	}
	return &Handlers{
		ws:        ws,
		store:     store,
		events:    bc,
		thumbs:    thumbs,
		started:   time.Now(),
		maxUpload: DefaultMaxUpload,
	}
}

// SetMaxUpload changes the request size limit for uploads.
func (h *Handlers) SetMaxUpload(n int64) {
	if n > 0 {
		h.maxUpload = n
	}
}

// SetMemory reports m's usage in health checks.
func (h *Handlers) SetMemory(m MemoryReporter) {
	h.memory = m
}
