package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"media-boards/internal/boards"
	"media-boards/internal/fsapi"
	"media-boards/internal/logging"
	"media-boards/internal/mediatypes"
	"media-boards/internal/metrics"
)

// importLayout is the timestamp embedded in imported file names.
const importLayout = "2006-01-02T15-04-05"

// ImportFile is an external file handed to Import by a drop, paste or picker.
type ImportFile struct {
	Name string
	Type string
	Body io.Reader
}

// MoveRequest carries the dragged asset and the board it was dropped on.
type MoveRequest struct {
	AssetID  string `json:"assetId"`
	FolderID string `json:"folderId"`
}

// writableRoot returns the root for a mutation, or the reason there is none.
// In fallback mode it posts disabledMsg.
func (w *Workspace) writableRoot(disabledMsg string) (fsapi.DirHandle, error) {
	w.mu.Lock()
	fallback, root := w.fallback, w.root
	w.mu.Unlock()

	if fallback {
		w.notify(NoticeError, disabledMsg)
		return nil, ErrFallbackReadOnly
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// ensureWritable checks readwrite permission and asks for it once if missing.
func ensureWritable(ctx context.Context, dir fsapi.DirHandle) error {
	if dir.QueryPermission(fsapi.ModeReadWrite) == fsapi.PermissionGranted {
		return nil
	}
	state, err := dir.RequestPermission(ctx, fsapi.ModeReadWrite)
	if err != nil {
		return err
	}
	if state != fsapi.PermissionGranted {
		return fmt.Errorf("%w: write access to %s was not granted", fsapi.ErrPermissionDenied, dir.Name())
	}
	return nil
}

func observeMutation(op string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrFallbackReadOnly), errors.Is(err, ErrNoRoot), errors.Is(err, ErrUnsupportedMedia):
		status = "rejected"
	case err != nil:
		status = "error"
	}
	metrics.MutationsTotal.WithLabelValues(op, status).Inc()
	metrics.MutationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (w *Workspace) setTransfer(active bool, progress int) {
	w.mu.Lock()
	w.transferring = active
	w.progress = progress
	w.mu.Unlock()
	w.changed()
}

// Import writes file into the root under a timestamped name and rescans.
// Files that are neither image nor video are ignored with ErrUnsupportedMedia.
func (w *Workspace) Import(ctx context.Context, file ImportFile) (name string, err error) {
	start := time.Now()
	defer func() { observeMutation("import", start, err) }()

	root, err := w.writableRoot(msgSaveDisabled)
	if err != nil {
		return "", err
	}

	kind := mediatypes.Classify(file.Name, file.Type)
	if kind == mediatypes.KindNone {
		logging.Debug("Ignoring non-media import %q (%s)", file.Name, file.Type)
		return "", ErrUnsupportedMedia
	}

	w.setTransfer(true, 0)

	name, err = w.writeImport(ctx, root, file, kind)
	if err != nil {
		w.setTransfer(false, 0)
		w.notify(NoticeError, "Failed to save asset: "+fsapi.Message(err))
		return "", err
	}

	w.setTransfer(false, 100)
	w.notify(NoticeSuccess, "Saved "+name)

	if err := w.scan(ctx, root); err != nil {
		logging.Warn("Rescan after import failed: %v", err)
	}
	return name, nil
}

func (w *Workspace) writeImport(ctx context.Context, root fsapi.DirHandle, file ImportFile, kind mediatypes.Kind) (string, error) {
	if err := ensureWritable(ctx, root); err != nil {
		return "", err
	}

	name, err := w.importName(ctx, root, file.Name, kind)
	if err != nil {
		return "", err
	}

	fh, err := root.GetFileHandle(ctx, name, true)
	if err != nil {
		return "", err
	}
	writable, err := fh.CreateWritable(ctx)
	if err != nil {
		_ = root.RemoveEntry(ctx, name)
		return "", err
	}

	if _, err := io.Copy(writable, file.Body); err != nil {
		_ = writable.Abort()
		_ = root.RemoveEntry(ctx, name)
		return "", err
	}

	w.mu.Lock()
	w.progress = 50
	w.mu.Unlock()
	w.changed()

	if err := writable.Close(); err != nil {
		_ = root.RemoveEntry(ctx, name)
		return "", err
	}
	return name, nil
}

// importName builds import_<timestamp>.<ext>, adding _n when another file
// already took the name within the same second.
func (w *Workspace) importName(ctx context.Context, root fsapi.DirHandle, source string, kind mediatypes.Kind) (string, error) {
	ext := mediatypes.Extension(source)
	if ext == "" {
		ext = mediatypes.DefaultExtension(kind)
	}
	base := "import_" + w.now().UTC().Format(importLayout)

	entries, err := root.Entries(ctx)
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		taken[e.Name] = true
	}

	name := base + "." + ext
	for n := 1; taken[name]; n++ {
		name = fmt.Sprintf("%s_%d.%s", base, n, ext)
	}
	return name, nil
}

// Delete removes an asset's file from the root.
func (w *Workspace) Delete(ctx context.Context, assetID string) (err error) {
	start := time.Now()
	defer func() { observeMutation("delete", start, err) }()

	root, err := w.writableRoot(msgDeleteDisabled)
	if err != nil {
		return err
	}

	asset, ok := w.Asset(assetID)
	if !ok {
		return ErrAssetNotFound
	}

	err = ensureWritable(ctx, root)
	if err == nil {
		err = root.RemoveEntry(ctx, asset.Name)
	}
	if err != nil {
		w.notify(NoticeError, "Delete failed: "+fsapi.Message(err))
		return err
	}

	w.mu.Lock()
	w.removeAssetLocked(asset.ID)
	w.armLocked()
	w.mu.Unlock()

	logging.Info("Deleted %s", asset.Name)
	w.notify(NoticeInfo, msgDeleted)
	w.changed()
	return nil
}

// Move puts an asset into a board, atomically when the host can and by
// copy-then-delete otherwise. A failed source delete after a successful copy
// leaves both files in place.
func (w *Workspace) Move(ctx context.Context, req MoveRequest) (err error) {
	start := time.Now()
	defer func() { observeMutation("move", start, err) }()

	root, err := w.writableRoot(msgMoveDisabled)
	if err != nil {
		return err
	}

	asset, ok := w.Asset(req.AssetID)
	if !ok {
		return ErrAssetNotFound
	}

	w.mu.Lock()
	fi := folderIndex(w.folders, req.FolderID)
	var folder boards.Folder
	if fi >= 0 {
		folder = w.folders[fi]
	}
	w.mu.Unlock()
	if fi < 0 {
		return ErrFolderNotFound
	}

	w.setTransfer(true, 0)

	if err := w.moveFile(ctx, root, asset, folder); err != nil {
		w.setTransfer(false, 0)
		w.notify(NoticeError, fsapi.Message(err))
		return err
	}

	w.mu.Lock()
	w.transferring = false
	w.progress = 100
	w.removeAssetLocked(asset.ID)
	if i := folderIndex(w.folders, folder.ID); i >= 0 {
		w.folders[i].Count++
	}
	w.armLocked()
	w.mu.Unlock()

	logging.Info("Moved %s to %s", asset.Name, folder.Name)
	w.notify(NoticeSuccess, "Moved to "+folder.Name)
	w.changed()
	return nil
}

func (w *Workspace) moveFile(ctx context.Context, root fsapi.DirHandle, asset boards.Asset, folder boards.Folder) error {
	origin, ok := asset.Origin.(boards.DirectoryBacked)
	if !ok || origin.Handle == nil {
		return fmt.Errorf("%w: %s has no file in the workspace", fsapi.ErrIOFailure, asset.Name)
	}

	dest := folder.Handle
	if dest == nil {
		var err error
		dest, err = root.GetDirectoryHandle(ctx, folder.Name, false)
		if err != nil {
			return err
		}
	}

	if err := ensureWritable(ctx, root); err != nil {
		return err
	}

	if mover, ok := origin.Handle.(fsapi.Mover); ok {
		metrics.MoveStrategyTotal.WithLabelValues("rename").Inc()
		return mover.Move(ctx, dest)
	}

	metrics.MoveStrategyTotal.WithLabelValues("copy").Inc()
	return copyThenDelete(ctx, root, origin.Handle, dest)
}

func copyThenDelete(ctx context.Context, root fsapi.DirHandle, src fsapi.FileHandle, dest fsapi.DirHandle) error {
	name := src.Name()
	target, created, err := createFile(ctx, dest, name)
	if err != nil {
		return err
	}
	// Only a file this call created is removed when the copy fails.
	discard := func() {
		if created {
			_ = dest.RemoveEntry(ctx, name)
		}
	}

	writable, err := target.CreateWritable(ctx)
	if err != nil {
		discard()
		return err
	}

	file, err := src.GetFile(ctx)
	if err != nil {
		_ = writable.Abort()
		discard()
		return err
	}
	r, err := file.Open()
	if err != nil {
		_ = writable.Abort()
		discard()
		return err
	}
	_, err = io.Copy(writable, r)
	_ = r.Close()
	if err != nil {
		_ = writable.Abort()
		discard()
		return err
	}
	if err := writable.Close(); err != nil {
		discard()
		return err
	}

	return root.RemoveEntry(ctx, name)
}

// createFile returns a handle for name in dir and whether it had to be created.
func createFile(ctx context.Context, dir fsapi.DirHandle, name string) (fsapi.FileHandle, bool, error) {
	if fh, err := dir.GetFileHandle(ctx, name, false); err == nil {
		return fh, false, nil
	}
	fh, err := dir.GetFileHandle(ctx, name, true)
	if err != nil {
		return nil, false, err
	}
	return fh, true, nil
}

// CreateFolder creates a board under the root and schedules a rescan.
func (w *Workspace) CreateFolder(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { observeMutation("create_folder", start, err) }()

	root, err := w.writableRoot(msgCreateDisabled)
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		w.notify(NoticeError, msgBoardNameMissing)
		return ErrInvalidName
	}

	err = ensureWritable(ctx, root)
	if err == nil {
		_, err = root.GetDirectoryHandle(ctx, name, true)
	}
	if err != nil {
		w.notify(NoticeError, fsapi.Message(err))
		return err
	}

	logging.Info("Created board %s", name)
	w.notify(NoticeSuccess, `Created board "`+name+`"`)

	w.after(w.rescanIn, func() {
		w.mu.Lock()
		current := w.root == root && !w.closed
		w.mu.Unlock()
		if !current {
			return
		}
		if err := w.scan(w.baseCtx, root); err != nil {
			logging.Warn("Rescan after creating board failed: %v", err)
		}
	})
	return nil
}
