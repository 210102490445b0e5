package workspace

import (
	"github.com/google/uuid"

	"media-boards/internal/blobstore"
	"media-boards/internal/boards"
	"media-boards/internal/logging"
	"media-boards/internal/mediatypes"
)

// RawFile is a file handed over directly when no writable root is available.
type RawFile struct {
	Name string
	Type string
	Blob blobstore.Source
}

// OpenFallback detaches any root and shows files read-only. Files that are
// neither image nor video are dropped. Returns how many assets were queued.
func (w *Workspace) OpenFallback(files []RawFile) int {
	queued := make([]boards.Asset, 0, len(files))
	for _, f := range files {
		kind := mediatypes.Classify(f.Name, f.Type)
		if kind == mediatypes.KindNone || f.Blob == nil {
			continue
		}
		queued = append(queued, boards.Asset{
			ID:     uuid.NewString(),
			Name:   f.Name,
			Kind:   kind,
			Origin: boards.MemoryBacked{Blob: f.Blob},
		})
	}

	w.mu.Lock()
	w.revokeAllLocked()
	w.scanSeq++ // drop any scan still running against the old root
	w.root = nil
	w.fallback = true
	w.loading = false
	w.assets = nil
	w.pending = queued
	w.folders = nil
	w.window = InitialWindow
	w.selected = ""
	w.errMsg = ""
	w.generation++
	w.armLocked()
	w.mu.Unlock()

	if w.onRoot != nil {
		w.onRoot("")
	}

	logging.Info("Fallback mode: %d of %d files queued", len(queued), len(files))
	w.notify(NoticeInfo, msgFallbackActive)
	w.changed()
	return len(queued)
}
