package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"media-boards/internal/blobstore"
	"media-boards/internal/fsapi"
	"media-boards/internal/logging"
	"media-boards/internal/media"
	"media-boards/internal/mediatypes"
	"media-boards/internal/streaming"
	"media-boards/internal/workspace"
)

type createFolderRequest struct {
	Name string `json:"name"`
}

// CreateFolder creates a board under the root.
func (h *Handlers) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ws.CreateFolder(r.Context(), req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// ImportResult describes one uploaded file.
type ImportResult struct {
	Source string `json:"source"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"` // saved, skipped or failed
	Error  string `json:"error,omitempty"`
}

// Import saves every multipart "files" part into the root. Drops, pastes and
// picker selections all arrive here. Files that are not media are skipped.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "expected multipart/form-data", http.StatusBadRequest)
		return
	}

	var results []ImportResult
	var firstErr error
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeUploadError(w, err)
			return
		}

		res, err := h.importPart(r, part)
		_ = part.Close()
		if res == nil {
			continue
		}
		results = append(results, *res)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeUploadError(w, err)
			return
		}

		// Without a writable root nothing else can succeed either.
		if errors.Is(err, workspace.ErrFallbackReadOnly) || errors.Is(err, workspace.ErrNoRoot) {
			writeError(w, err)
			return
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if len(results) == 0 {
		writeJSONError(w, "no files in request", http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if firstErr != nil && !anySaved(results) {
		status = statusFor(firstErr)
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
	}
	writeJSONStatus(w, status, map[string][]ImportResult{"files": results})
}

func (h *Handlers) importPart(r *http.Request, part *multipart.Part) (*ImportResult, error) {
	if part.FormName() != "files" {
		return nil, nil
	}

	source := part.FileName()
	res := &ImportResult{Source: source}

	name, err := h.ws.Import(r.Context(), workspace.ImportFile{
		Name: source,
		Type: part.Header.Get("Content-Type"),
		Body: part,
	})
	switch {
	case err == nil:
		res.Name = name
		res.Status = "saved"
	case errors.Is(err, workspace.ErrUnsupportedMedia):
		res.Status = "skipped"
		err = nil
	default:
		res.Status = "failed"
		res.Error = fsapi.Message(err)
	}
	return res, err
}

func anySaved(results []ImportResult) bool {
	for _, r := range results {
		if r.Status == "saved" {
			return true
		}
	}
	return false
}

// DeleteAsset removes an asset's file.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	FolderID string `json:"folderId"`
}

// MoveAsset moves an asset into a board. The board comes from the body, the
// asset from the path.
func (h *Handlers) MoveAsset(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.FolderID == "" {
		writeJSONError(w, "folderId is required", http.StatusBadRequest)
		return
	}

	err := h.ws.Move(r.Context(), workspace.MoveRequest{AssetID: mux.Vars(r)["id"], FolderID: req.FolderID})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBlob serves the bytes behind a materialized reference, with range support.
func (h *Handlers) GetBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rc, src, err := h.ws.Blobs().Open(id)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			logging.Warn("Failed to open blob %s: %v", id, err)
		}
		writeError(w, err)
		return
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logging.Warn("failed to close blob %s: %v", id, err)
		}
	}()

	contentType := src.Type()
	if contentType == "" {
		contentType = mediatypes.MimeType(src.Name())
	}
	w.Header().Set("Content-Type", contentType)
	// References are revoked, never rewritten.
	w.Header().Set("Cache-Control", "private, max-age=3600, immutable")

	sw := streaming.Wrap(w, streaming.DefaultConfig())
	defer func() {
		if err := sw.Close(); err != nil {
			logging.Debug("failed to clear write deadline for blob %s: %v", id, err)
		}
	}()
	http.ServeContent(sw, r, src.Name(), src.ModTime(), rc)
}

// GetThumbnail serves a JPEG preview of a materialized image asset.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	asset, ok := h.ws.Asset(id)
	if !ok {
		writeError(w, workspace.ErrAssetNotFound)
		return
	}
	if asset.URL == "" {
		writeJSONError(w, "asset is not loaded yet", http.StatusNotFound)
		return
	}

	src, err := h.ws.Blobs().Lookup(asset.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := h.thumbs.Thumbnail(media.CacheKey(asset.ID, asset.URL), src, src.Type())
	if err != nil {
		if !errors.Is(err, media.ErrUnsupported) && !errors.Is(err, media.ErrBusy) {
			logging.Warn("Thumbnail for %s failed: %v", asset.Name, err)
			writeJSONError(w, "failed to render preview", http.StatusUnprocessableEntity)
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write thumbnail for %s: %v", asset.Name, err)
	}
}
