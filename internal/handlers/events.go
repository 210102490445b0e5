package handlers

import (
	"fmt"
	"net/http"
	"time"

	"media-boards/internal/events"
	"media-boards/internal/logging"
	"media-boards/internal/streaming"
)

const (
	// eventKeepAlive is how often an idle stream gets a comment line.
	eventKeepAlive = 25 * time.Second
	// eventWriteTimeout bounds a single event write.
	eventWriteTimeout = 10 * time.Second
)

// Events streams notices and model changes as server-sent events.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		writeJSONError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// A client that stops reading is dropped at the next event or keep-alive.
	sw := streaming.Wrap(w, streaming.Config{WriteTimeout: eventWriteTimeout, Label: "events"})
	defer func() { _ = sw.Close() }()
	w = sw

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := h.events.Subscribe()
	defer h.events.Unsubscribe(ch)

	// Start every stream from the current model.
	snap := h.ws.Snapshot()
	now := time.Now().Unix()
	if snap.Notice != nil {
		if writeEvent(w, events.Event{Type: events.EventNotice, Data: snap.Notice, Timestamp: now}) != nil {
			return
		}
	}
	if writeEvent(w, events.Event{Type: events.EventChanged, Data: map[string]uint64{"generation": snap.Generation}, Timestamp: now}) != nil {
		return
	}
	sw.Flush()

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			sw.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				logging.Debug("Event stream closed: %v", err)
				return
			}
			sw.Flush()
		}
	}
}

// writeEvent writes one event. Unencodable events are skipped; only write
// errors are returned.
func writeEvent(w http.ResponseWriter, event events.Event) error {
	data, err := events.Marshal(event)
	if err != nil {
		logging.Warn("failed to encode %s event: %v", event.Type, err)
		return nil
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	return err
}
