package workspace

import (
	"context"
	"errors"
	"io/fs"

	"media-boards/internal/boards"
	"media-boards/internal/events"
	"media-boards/internal/fsapi"
	"media-boards/internal/logging"
	"media-boards/internal/store"
)

// Connect opens path as the new root, remembers it, and scans it. The
// request itself is the user's choice of root, so it carries read-write
// access; Resume has to ask again.
//
// A cancelled prompt returns fsapi.ErrUserCancelled and changes nothing.
// When the host cannot grant write access the error field is set and
// fsapi.ErrCapabilityUnavailable is returned so the caller can offer fallback.
func (w *Workspace) Connect(ctx context.Context, path string) error {
	if w.opener == nil {
		return fsapi.ErrCapabilityUnavailable
	}

	root, err := w.opener.Choose(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, fsapi.ErrUserCancelled):
			return err
		case errors.Is(err, fsapi.ErrCapabilityUnavailable):
			logging.Warn("Native access to %s unavailable, fallback required: %v", path, err)
			w.setError(msgSandbox)
			w.notify(NoticeInfo, msgSandbox)
		default:
			w.setError(fsapi.Message(err))
		}
		return err
	}

	if w.store != nil {
		if err := w.store.SaveRoot(ctx, root.Path()); err != nil {
			logging.Warn("Failed to persist root %s: %v", root.Path(), err)
		}
	}

	w.attach(root, true)

	if err := w.scan(ctx, root); err != nil {
		return err
	}
	w.notify(NoticeSuccess, msgConnected)
	return nil
}

// Resume reconnects to the persisted root. A stored root that no longer
// exists is forgotten.
func (w *Workspace) Resume(ctx context.Context) error {
	if w.store == nil || w.opener == nil {
		return ErrNoStoredRoot
	}

	path, err := w.store.GetRoot(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoStoredRoot
	}
	if err != nil {
		return err
	}

	if last, err := w.store.GetLastScan(ctx); err == nil && !last.IsZero() {
		w.mu.Lock()
		if w.lastScan.IsZero() {
			w.lastScan = last
		}
		w.mu.Unlock()
	}

	root, err := w.opener.Open(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Stored root %s is gone, forgetting it", path)
			if err := w.store.ClearRoot(ctx); err != nil {
				logging.Warn("Failed to clear stored root: %v", err)
			}
		}
		if !errors.Is(err, fsapi.ErrUserCancelled) {
			w.setError(fsapi.Message(err))
		}
		return err
	}

	w.attach(root, false)

	if err := w.scan(ctx, root); err != nil {
		return err
	}
	w.notify(NoticeInfo, msgResumed)
	return nil
}

// HasStoredRoot reports whether Resume has something to resume.
func (w *Workspace) HasStoredRoot(ctx context.Context) bool {
	if w.store == nil {
		return false
	}
	_, err := w.store.GetRoot(ctx)
	return err == nil
}

// Refresh rescans the current root.
func (w *Workspace) Refresh(ctx context.Context) error {
	w.mu.Lock()
	root := w.root
	w.mu.Unlock()

	if root == nil {
		return ErrNoRoot
	}
	return w.scan(ctx, root)
}

// attach makes root current and clears everything derived from the old one.
func (w *Workspace) attach(root fsapi.DirHandle, clearSelection bool) {
	w.mu.Lock()
	w.revokeAllLocked()
	w.root = root
	w.fallback = false
	w.assets = nil
	w.pending = nil
	w.folders = nil
	w.window = InitialWindow
	if clearSelection {
		w.selected = ""
	}
	w.generation++
	w.mu.Unlock()

	if w.onRoot != nil {
		w.onRoot(root.Path())
	}
	w.changed()
}

func (w *Workspace) setError(msg string) {
	w.mu.Lock()
	w.errMsg = msg
	w.mu.Unlock()
	w.changed()
}

// scan lists root and, if root is still current and no newer scan started,
// replaces the asset set with the result. Folder counts follow.
func (w *Workspace) scan(ctx context.Context, root fsapi.DirHandle) error {
	w.mu.Lock()
	w.scanSeq++
	seq := w.scanSeq
	w.loading = true
	w.fallback = false
	w.window = InitialWindow
	w.disarmLocked()
	w.mu.Unlock()
	w.changed()

	result, err := w.scanner.Scan(ctx, root, func(folders []boards.Folder) {
		w.mu.Lock()
		current := w.root == root && w.scanSeq == seq
		if current {
			w.folders = folders
			folders = append([]boards.Folder(nil), folders...)
		}
		w.mu.Unlock()
		if current && w.events != nil {
			w.events.Publish(events.Event{Type: events.EventFolders, Data: folders})
		}
	})

	w.mu.Lock()
	if w.root != root || w.scanSeq != seq {
		w.mu.Unlock()
		logging.Debug("Discarding superseded scan of %s", root.Path())
		return err
	}

	if err != nil {
		w.loading = false
		switch {
		case errors.Is(err, fsapi.ErrUserCancelled), errors.Is(err, context.Canceled):
		case errors.Is(err, fsapi.ErrPermissionDenied):
			w.errMsg = msgAccessDenied
		default:
			w.errMsg = fsapi.Message(err)
		}
		w.armLocked()
		w.mu.Unlock()
		w.changed()
		if !errors.Is(err, fsapi.ErrUserCancelled) {
			logging.Warn("Scan of %s failed: %v", root.Path(), err)
		}
		return err
	}

	w.revokeAllLocked()
	w.assets = nil
	w.pending = result.Files
	w.folders = result.Folders
	w.loading = false
	w.errMsg = ""
	w.generation++
	gen := w.generation
	w.lastScan = w.now()
	w.armLocked()
	folders := append([]boards.Folder(nil), w.folders...)
	w.mu.Unlock()
	w.changed()

	if w.store != nil {
		if err := w.store.SetLastScan(ctx, w.now()); err != nil {
			logging.Debug("Failed to record scan time: %v", err)
		}
	}

	w.countFolders(ctx, gen, seq, folders)
	return nil
}

// countFolders applies each board's file count as soon as it is known. Counts
// stop applying once another scan has started.
func (w *Workspace) countFolders(ctx context.Context, gen, seq uint64, folders []boards.Folder) {
	if len(folders) == 0 {
		return
	}

	err := w.scanner.CountFolders(ctx, folders, func(id string, count int) {
		w.mu.Lock()
		if w.generation == gen && w.scanSeq == seq {
			if i := folderIndex(w.folders, id); i >= 0 {
				w.folders[i].Count = count
			}
		}
		w.mu.Unlock()
	})
	if err != nil {
		logging.Debug("Folder counting stopped: %v", err)
	}
	w.changed()
}
