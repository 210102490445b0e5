package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-boards/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Ready      bool   `json:"ready"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	StoreError string `json:"storeError,omitempty"`

	// Workspace summary
	Source    string `json:"source"`
	Connected bool   `json:"connected"`
	Fallback  bool   `json:"fallback"`
	Loading   bool   `json:"loading"`
	Assets    int    `json:"assets"`
	Pending   int    `json:"pending"`
	Boards    int    `json:"boards"`
	LastScan  string `json:"lastScan,omitempty"`
	LiveRefs  int    `json:"liveRefs"`
	Previews  int    `json:"previews"`

	// System info
	GoVersion    string  `json:"goVersion"`
	NumCPU       int     `json:"numCpu"`
	NumGoroutine int     `json:"numGoroutine"`
	Subscribers  int     `json:"subscribers"`
	MemoryLimit  int64   `json:"memoryLimit,omitempty"`
	MemoryUsage  float64 `json:"memoryUsage,omitempty"`
}

// pingStore reports the store's health; no store counts as healthy.
func (h *Handlers) pingStore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.store.Ping(ctx)
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.ws.Snapshot()

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Source:       snap.Source,
		Connected:    snap.Connected,
		Fallback:     snap.Fallback,
		Loading:      snap.Loading,
		Assets:       len(snap.Assets),
		Pending:      snap.Pending,
		Boards:       len(snap.Folders),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		Subscribers:  h.events.Count(),
		LiveRefs:     h.ws.Blobs().Live(),
		Previews:     h.thumbs.Len(),
	}
	if h.memory != nil {
		response.MemoryLimit = h.memory.Limit()
		response.MemoryUsage = h.memory.Usage()
	}
	if snap.LastScan != nil {
		response.LastScan = snap.LastScan.Format(time.RFC3339)
	}

	status := http.StatusOK
	if err := h.pingStore(r.Context()); err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.StoreError = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSONStatus(w, status, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the store is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingStore(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
}
