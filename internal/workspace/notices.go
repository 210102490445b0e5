package workspace

import (
	"time"

	"media-boards/internal/events"
	"media-boards/internal/logging"
	"media-boards/internal/metrics"
)

// NoticeDuration is how long a notice stays current.
const NoticeDuration = 5 * time.Second

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, auto-dismissing message. The persistent banner is
// the snapshot's Error field instead.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	At        time.Time  `json:"at"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Expired reports whether the notice should no longer be shown at now.
func (n Notice) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// Fixed notice texts.
const (
	msgConnected        = "Workspace connected successfully."
	msgResumed          = "Workspace resumed."
	msgFallbackActive   = "Fallback read-only mode active."
	msgSandbox          = "Sandbox restriction detected. Upload files to browse them read-only."
	msgAccessDenied     = "Access denied. Connect the workspace again to grant permissions."
	msgDeleted          = "Asset deleted permanently."
	msgSaveDisabled     = "Saving is disabled in Fallback Mode."
	msgDeleteDisabled   = "Deleting is disabled in Fallback Mode."
	msgMoveDisabled     = "Moving files is disabled in Fallback Mode."
	msgCreateDisabled   = "Creating boards is disabled in Fallback Mode."
	msgBoardNameMissing = "Board name must be a single non-empty folder name."
)

// notify records n as the last notice and publishes it. Must be called
// without w.mu held.
func (w *Workspace) notify(kind NoticeKind, message string) {
	now := w.now()
	n := Notice{Kind: kind, Message: message, At: now, ExpiresAt: now.Add(NoticeDuration)}

	w.mu.Lock()
	w.lastNotice = &n
	w.mu.Unlock()

	metrics.NoticesTotal.WithLabelValues(string(kind)).Inc()
	if kind == NoticeError {
		logging.Warn("Notice: %s", message)
	} else {
		logging.Info("Notice: %s", message)
	}

	if w.events != nil {
		w.events.Publish(events.Event{Type: events.EventNotice, Data: n})
	}
}

// changed tells subscribers the model moved on. Must be called without w.mu held.
func (w *Workspace) changed() {
	if w.events == nil {
		return
	}
	w.mu.Lock()
	gen := w.generation
	w.mu.Unlock()
	w.events.Publish(events.Event{Type: events.EventChanged, Data: map[string]uint64{"generation": gen}})
}
