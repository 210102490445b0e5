package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"media-boards/internal/blobstore"
	"media-boards/internal/fsapi"
	"media-boards/internal/logging"
	"media-boards/internal/media"
	"media-boards/internal/workspace"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{"error": message})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error    string `json:"error"`
	Fallback bool   `json:"fallback,omitempty"`
}

// statusFor maps a workspace error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fsapi.ErrUserCancelled):
		return http.StatusNoContent
	case errors.Is(err, fsapi.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, fsapi.ErrCapabilityUnavailable), errors.Is(err, workspace.ErrFallbackReadOnly):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrNoRoot):
		return http.StatusPreconditionFailed
	case errors.Is(err, workspace.ErrNoStoredRoot), errors.Is(err, workspace.ErrAssetNotFound),
		errors.Is(err, workspace.ErrFolderNotFound), errors.Is(err, blobstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrUnsupportedMedia), errors.Is(err, media.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, workspace.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, fsapi.ErrIOFailure):
		return http.StatusBadGateway
	case errors.Is(err, media.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. A cancelled prompt is not an
// error to the client and gets an empty 204.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "5")
	case http.StatusInternalServerError, http.StatusBadGateway:
		logging.Error("request failed: %v", err)
	}
	writeJSONStatus(w, status, errorResponse{
		Error:    fsapi.Message(err),
		Fallback: errors.Is(err, fsapi.ErrCapabilityUnavailable),
	})
}

// writeUploadError reports a multipart read failure; bodies over the upload
// limit get 413.
func writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	writeJSONError(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
