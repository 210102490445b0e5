package handlers

import (
	"io"
	"net/http"
	"time"

	"media-boards/internal/blobstore"
	"media-boards/internal/logging"
	"media-boards/internal/workspace"
)

// GetWorkspace returns the current snapshot.
func (h *Handlers) GetWorkspace(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatus(w, http.StatusOK, h.ws.Snapshot())
}

type connectRequest struct {
	Path string `json:"path"`
}

// Connect opens a directory as the new root.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		writeJSONError(w, "path is required", http.StatusBadRequest)
		return
	}

	if err := h.ws.Connect(r.Context(), req.Path); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, h.ws.Snapshot())
}

// Resume reconnects to the stored root.
func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Resume(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, h.ws.Snapshot())
}

// Stored reports whether a root can be resumed.
func (h *Handlers) Stored(w http.ResponseWriter, r *http.Request) {
	writeJSONStatus(w, http.StatusOK, map[string]bool{"stored": h.ws.HasStoredRoot(r.Context())})
}

// Refresh rescans the current root.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, h.ws.Snapshot())
}

// Fallback replaces the workspace with uploaded files, read-only. Each
// multipart "files" part is held in memory.
func (h *Handlers) Fallback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "expected multipart/form-data", http.StatusBadRequest)
		return
	}

	now := time.Now()
	var files []workspace.RawFile
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeUploadError(w, err)
			return
		}
		if part.FormName() != "files" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			writeUploadError(w, err)
			return
		}

		contentType := part.Header.Get("Content-Type")
		files = append(files, workspace.RawFile{
			Name: part.FileName(),
			Type: contentType,
			Blob: &blobstore.Bytes{FileName: part.FileName(), ContentType: contentType, Data: data, Modified: now},
		})
	}

	queued := h.ws.OpenFallback(files)
	logging.Info("Fallback upload: %d files received, %d queued", len(files), queued)
	writeJSONStatus(w, http.StatusOK, map[string]int{"received": len(files), "queued": queued})
}

// Scroll reports the grid viewport so the window can grow.
func (h *Handlers) Scroll(w http.ResponseWriter, r *http.Request) {
	var pos workspace.ScrollPosition
	if err := decodeJSON(w, r, &pos); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	grew := h.ws.Scroll(pos)
	writeJSONStatus(w, http.StatusOK, map[string]any{"grew": grew, "window": h.ws.Snapshot().Window})
}

type selectionRequest struct {
	FolderID string `json:"folderId"`
}

// SelectFolder stores the selected board. An empty id clears it.
func (h *Handlers) SelectFolder(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.ws.SelectFolder(req.FolderID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
