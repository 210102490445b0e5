package workspace

import (
	"context"
	"time"

	"media-boards/internal/boards"
	"media-boards/internal/logging"
	"media-boards/internal/metrics"
	"media-boards/internal/workers"
)

// ScrollPosition describes the grid viewport.
type ScrollPosition struct {
	Top          int `json:"scrollTop"`
	Height       int `json:"scrollHeight"`
	ClientHeight int `json:"clientHeight"`
}

// Scroll grows the visible window once the viewport nears the bottom, but
// only after materialization has caught up with the current window. Reports
// whether the window grew.
func (w *Workspace) Scroll(pos ScrollPosition) bool {
	w.mu.Lock()
	remaining := pos.Height - pos.Top - pos.ClientHeight
	grow := remaining < ScrollThreshold && len(w.pending) > 0 && len(w.assets) >= w.window
	if grow {
		w.window += WindowGrowth
		w.armLocked()
	}
	w.mu.Unlock()

	if grow {
		w.changed()
	}
	return grow
}

// needsFillLocked reports whether a tick would do any work.
func (w *Workspace) needsFillLocked() bool {
	return !w.closed && !w.loading && len(w.pending) > 0 && len(w.assets) < w.window
}

// armLocked replaces any scheduled tick with a fresh one if there is work.
func (w *Workspace) armLocked() {
	w.disarmLocked()
	if w.needsFillLocked() && !w.ticking {
		w.cancelTick = w.sched.Schedule(w.fillPool)
	}
}

func (w *Workspace) disarmLocked() {
	if w.cancelTick != nil {
		w.cancelTick()
		w.cancelTick = nil
	}
}

// fillPool is one materializer tick. It takes up to BatchCap assets from the
// head of the pending queue, creates their references outside the lock, and
// appends them in queue order. Results for a replaced asset set, or for
// assets removed while the tick ran, are revoked instead of committed.
func (w *Workspace) fillPool() {
	w.mu.Lock()
	w.cancelTick = nil
	if w.ticking {
		w.mu.Unlock()
		metrics.MaterializeTicksTotal.WithLabelValues("busy").Inc()
		return
	}
	if !w.needsFillLocked() {
		w.mu.Unlock()
		metrics.MaterializeTicksTotal.WithLabelValues("skipped").Inc()
		return
	}

	n := min(BatchCap, w.window-len(w.assets), len(w.pending))
	batch := append([]boards.Asset(nil), w.pending[:n]...)
	gen := w.generation
	w.ticking = true
	w.mu.Unlock()

	metrics.MaterializeTicksTotal.WithLabelValues("batch").Inc()
	metrics.MaterializeBatchSize.Observe(float64(n))
	start := time.Now()

	w.materialize(batch)

	w.mu.Lock()
	w.ticking = false

	if gen != w.generation || w.closed {
		for _, a := range batch {
			w.blobs.Revoke(a.URL)
		}
		metrics.MaterializedAssetsTotal.WithLabelValues("discarded").Add(float64(len(batch)))
		w.armLocked()
		w.mu.Unlock()
		return
	}

	committed := make(map[string]bool, len(batch))
	for _, a := range batch {
		if indexOf(w.pending, a.ID) < 0 {
			// deleted or moved mid-tick
			w.blobs.Revoke(a.URL)
			metrics.MaterializedAssetsTotal.WithLabelValues("discarded").Inc()
			continue
		}
		w.assets = append(w.assets, a)
		committed[a.ID] = true
	}

	remaining := w.pending[:0:0]
	for _, a := range w.pending {
		if !committed[a.ID] {
			remaining = append(remaining, a)
		}
	}
	w.pending = remaining

	w.armLocked()
	w.mu.Unlock()

	logging.Debug("Materialized %d assets in %v", len(committed), time.Since(start).Round(time.Microsecond))
	w.changed()
}

// materialize creates a reference for every asset in batch, in place. An
// asset whose bytes cannot be reached keeps an empty URL.
func (w *Workspace) materialize(batch []boards.Asset) {
	ctx := w.baseCtx

	_ = workers.Each(ctx, workers.ForMixed(BatchCap), len(batch), func(ctx context.Context, i int) error {
		a := &batch[i]
		if a.URL != "" {
			return nil
		}

		switch origin := a.Origin.(type) {
		case boards.DirectoryBacked:
			if origin.Handle == nil {
				metrics.MaterializedAssetsTotal.WithLabelValues("error").Inc()
				return nil
			}
			f, err := origin.Handle.GetFile(ctx)
			if err != nil {
				logging.Warn("Failed to open %s: %v", a.Name, err)
				metrics.MaterializedAssetsTotal.WithLabelValues("error").Inc()
				return nil
			}
			a.URL = w.blobs.Create(f)
		case boards.MemoryBacked:
			a.URL = w.blobs.Create(origin.Blob)
		default:
			metrics.MaterializedAssetsTotal.WithLabelValues("error").Inc()
			return nil
		}

		metrics.MaterializedAssetsTotal.WithLabelValues("success").Inc()
		return nil
	})
}
