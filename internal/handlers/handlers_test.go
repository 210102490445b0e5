package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"media-boards/internal/blobstore"
	"media-boards/internal/events"
	"media-boards/internal/fsapi"
	"media-boards/internal/media"
	"media-boards/internal/scanner"
	"media-boards/internal/scheduler"
	"media-boards/internal/workspace"
)

// ===== helpers =====

type testServer struct {
	h      *Handlers
	ws     *workspace.Workspace
	sched  *scheduler.Manual
	router *mux.Router
	dir    string
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newTestServer(t *testing.T, prompter fsapi.Prompter) *testServer {
	t.Helper()

	fsOpts := fsapi.DefaultOptions()
	fsOpts.Prompter = prompter

	sched := scheduler.NewManual()
	bc := events.NewBroadcaster()
	ws := workspace.New(workspace.Options{
		Opener:    fsapi.NewLocal(fsOpts),
		Scanner:   scanner.New(2),
		Blobs:     blobstore.NewRegistry(),
		Scheduler: sched,
		Events:    bc,
		After:     func(_ time.Duration, fn func()) { fn() },
	})
	t.Cleanup(ws.Close)

	h := New(ws, &mockPinger{}, bc, media.NewThumbnailer(8))

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/workspace", h.GetWorkspace).Methods("GET")
	api.HandleFunc("/workspace/connect", h.Connect).Methods("POST")
	api.HandleFunc("/workspace/resume", h.Resume).Methods("POST")
	api.HandleFunc("/workspace/stored", h.Stored).Methods("GET")
	api.HandleFunc("/workspace/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/workspace/fallback", h.Fallback).Methods("POST")
	api.HandleFunc("/workspace/scroll", h.Scroll).Methods("POST")
	api.HandleFunc("/workspace/selection", h.SelectFolder).Methods("PUT")
	api.HandleFunc("/folders", h.CreateFolder).Methods("POST")
	api.HandleFunc("/import", h.Import).Methods("POST")
	api.HandleFunc("/assets/{id}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/move", h.MoveAsset).Methods("POST")
	api.HandleFunc("/blob/{id}", h.GetBlob).Methods("GET")
	api.HandleFunc("/thumbnail/{id}", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/events", h.Events).Methods("GET")

	return &testServer{h: h, ws: ws, sched: sched, router: r, dir: t.TempDir()}
}

func (s *testServer) write(t *testing.T, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(s.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, target, strings.NewReader(body), "application/json")
}

func (s *testServer) connect(t *testing.T) {
	t.Helper()
	body := fmt.Sprintf(`{"path": %q}`, s.dir)
	if rec := s.doJSON(t, http.MethodPost, "/api/workspace/connect", body); rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d, body %s", rec.Code, rec.Body.String())
	}
	s.sched.RunUntilIdle(100)
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) workspace.Snapshot {
	t.Helper()
	var snap workspace.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v (%s)", err, rec.Body.String())
	}
	return snap
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="files"; filename=%q`, f.name)}
		if f.contentType != "" {
			header["Content-Type"] = []string{f.contentType}
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// ===== error mapping =====

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cancelled", fsapi.ErrUserCancelled, http.StatusNoContent},
		{"permission denied", fmt.Errorf("%w: open x", fsapi.ErrPermissionDenied), http.StatusForbidden},
		{"capability unavailable", fsapi.ErrCapabilityUnavailable, http.StatusConflict},
		{"fallback read-only", workspace.ErrFallbackReadOnly, http.StatusConflict},
		{"no root", workspace.ErrNoRoot, http.StatusPreconditionFailed},
		{"no stored root", workspace.ErrNoStoredRoot, http.StatusNotFound},
		{"asset not found", workspace.ErrAssetNotFound, http.StatusNotFound},
		{"folder not found", workspace.ErrFolderNotFound, http.StatusNotFound},
		{"blob not found", blobstore.ErrNotFound, http.StatusNotFound},
		{"unsupported media", workspace.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{"unsupported preview", media.ErrUnsupported, http.StatusUnsupportedMediaType},
		{"invalid name", workspace.ErrInvalidName, http.StatusBadRequest},
		{"io failure", fmt.Errorf("%w: write x", fsapi.ErrIOFailure), http.StatusBadGateway},
		{"memory pressure", media.ErrBusy, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: sandboxed", fsapi.ErrCapabilityUnavailable))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Fallback {
		t.Error("fallback = false, want true")
	}
	if body.Error != "sandboxed" {
		t.Errorf("error = %q, want %q", body.Error, "sandboxed")
	}

	rec = httptest.NewRecorder()
	writeError(rec, fsapi.ErrUserCancelled)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("cancelled: status = %d body %q, want empty 204", rec.Code, rec.Body.String())
	}
}

// ===== workspace =====

func TestConnectAndSnapshot(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "a.png", []byte("png"))
	s.write(t, "b.mp4", []byte("mp4"))
	s.write(t, "notes.txt", []byte("txt"))
	s.write(t, "Moodboard/c.png", []byte("png"))
	s.connect(t)

	rec := s.do(t, http.MethodGet, "/api/workspace", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	snap := decodeSnapshot(t, rec)
	if !snap.Connected {
		t.Error("connected = false, want true")
	}
	if snap.Total != 2 || len(snap.Assets) != 2 {
		t.Errorf("assets = %d (total %d), want 2", len(snap.Assets), snap.Total)
	}
	if len(snap.Folders) != 1 || snap.Folders[0].Name != "Moodboard" || snap.Folders[0].Count != 1 {
		t.Errorf("folders = %+v, want Moodboard with 1 item", snap.Folders)
	}
	if snap.Notice == nil || snap.Notice.Kind != workspace.NoticeSuccess {
		t.Errorf("notice = %+v, want success notice", snap.Notice)
	}
}

func TestConnectBadRequests(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
		{"unknown field", `{"dir": "/tmp"}`, http.StatusBadRequest},
		{"missing path", `{"path": ""}`, http.StatusBadRequest},
		{"missing directory", `{"path": "/does/not/exist/anywhere"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, http.MethodPost, "/api/workspace/connect", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestConnectGrantsAccess(t *testing.T) {
	s := newTestServer(t, fsapi.Deny{})

	rec := s.doJSON(t, http.MethodPost, "/api/workspace/connect", fmt.Sprintf(`{"path": %q}`, s.dir))
	if rec.Code != http.StatusOK {
		t.Fatalf("connect status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = s.doJSON(t, http.MethodPost, "/api/folders", `{"name": "Board"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("create folder status = %d, want 201", rec.Code)
	}
}

func TestResumeWithoutStore(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	if rec := s.do(t, http.MethodPost, "/api/workspace/resume", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("resume status = %d, want 404", rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/workspace/stored", nil, "")
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["stored"] {
		t.Error("stored = true, want false")
	}
}

func TestRefreshWithoutRoot(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	if rec := s.do(t, http.MethodPost, "/api/workspace/refresh", nil, ""); rec.Code != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want 412", rec.Code)
	}
}

func TestRefreshPicksUpNewFiles(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "a.png", []byte("png"))
	s.connect(t)

	s.write(t, "b.png", []byte("png"))
	rec := s.do(t, http.MethodPost, "/api/workspace/refresh", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if snap := decodeSnapshot(t, rec); snap.Total != 2 {
		t.Errorf("total = %d, want 2", snap.Total)
	}
}

func TestFallbackUpload(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	body, ct := multipartBody(t,
		upload{name: "a.png", contentType: "image/png", data: []byte("png")},
		upload{name: "b.webm", data: []byte("webm")},
		upload{name: "readme.md", contentType: "text/markdown", data: []byte("# hi")},
	)
	rec := s.do(t, http.MethodPost, "/api/workspace/fallback", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["received"] != 3 || got["queued"] != 2 {
		t.Errorf("response = %v, want received 3 queued 2", got)
	}

	s.sched.RunUntilIdle(100)
	snap := s.ws.Snapshot()
	if !snap.Fallback || len(snap.Assets) != 2 {
		t.Errorf("fallback = %v assets = %d, want true and 2", snap.Fallback, len(snap.Assets))
	}

	// Mutations are refused while in fallback mode.
	if rec := s.doJSON(t, http.MethodPost, "/api/folders", `{"name": "x"}`); rec.Code != http.StatusConflict {
		t.Errorf("create folder status = %d, want 409", rec.Code)
	}
}

func TestUploadLimit(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.connect(t)
	s.h.SetMaxUpload(256)

	for _, target := range []string{"/api/workspace/fallback", "/api/import"} {
		body, ct := multipartBody(t, upload{name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), 4096)})
		rec := s.do(t, http.MethodPost, target, body, ct)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("POST %s status = %d, want 413 (%s)", target, rec.Code, rec.Body.String())
		}
	}
}

func TestFallbackRequiresMultipart(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	if rec := s.doJSON(t, http.MethodPost, "/api/workspace/fallback", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestScroll(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	for i := 0; i < 30; i++ {
		s.write(t, fmt.Sprintf("img_%02d.png", i), []byte("png"))
	}
	s.connect(t)

	rec := s.doJSON(t, http.MethodPost, "/api/workspace/scroll", `{"scrollTop": 900, "scrollHeight": 1200, "clientHeight": 200}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Grew   bool `json:"grew"`
		Window int  `json:"window"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Grew || body.Window != workspace.InitialWindow+workspace.WindowGrowth {
		t.Errorf("scroll = %+v, want grew to %d", body, workspace.InitialWindow+workspace.WindowGrowth)
	}

	// Far from the bottom nothing changes.
	rec = s.doJSON(t, http.MethodPost, "/api/workspace/scroll", `{"scrollTop": 0, "scrollHeight": 5000, "clientHeight": 200}`)
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Grew {
		t.Error("grew = true far from the bottom")
	}
}

func TestSelectFolder(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "Refs/a.png", []byte("png"))
	s.connect(t)

	if rec := s.doJSON(t, http.MethodPut, "/api/workspace/selection", `{"folderId": "Refs"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := s.ws.Snapshot().SelectedFolder; got != "Refs" {
		t.Errorf("selected = %q, want Refs", got)
	}
	if rec := s.doJSON(t, http.MethodPut, "/api/workspace/selection", `{"folderId": "Nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown folder status = %d, want 404", rec.Code)
	}
}

// ===== mutations =====

func TestCreateFolder(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.connect(t)

	rec := s.doJSON(t, http.MethodPost, "/api/folders", `{"name": "Concepts"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if info, err := os.Stat(filepath.Join(s.dir, "Concepts")); err != nil || !info.IsDir() {
		t.Errorf("folder not created: %v", err)
	}

	if rec := s.doJSON(t, http.MethodPost, "/api/folders", `{"name": "a/b"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid name status = %d, want 400", rec.Code)
	}
}

func TestMutationsWithoutRoot(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"create folder", http.MethodPost, "/api/folders", `{"name": "x"}`},
		{"delete", http.MethodDelete, "/api/assets/a.png", ""},
		{"move", http.MethodPost, "/api/assets/a.png/move", `{"folderId": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.doJSON(t, tt.method, tt.target, tt.body)
			if rec.Code != http.StatusPreconditionFailed {
				t.Errorf("status = %d, want 412", rec.Code)
			}
		})
	}
}

func TestImport(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.connect(t)

	body, ct := multipartBody(t,
		upload{name: "Shot.PNG", contentType: "image/png", data: []byte("png-bytes")},
		upload{name: "notes.txt", contentType: "text/plain", data: []byte("text")},
	)
	rec := s.do(t, http.MethodPost, "/api/import", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var got map[string][]ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	files := got["files"]
	if len(files) != 2 {
		t.Fatalf("results = %+v, want 2", files)
	}
	if files[0].Status != "saved" || !strings.HasPrefix(files[0].Name, "import_") || !strings.HasSuffix(files[0].Name, ".png") {
		t.Errorf("first result = %+v, want saved import_*.png", files[0])
	}
	if files[1].Status != "skipped" {
		t.Errorf("second result = %+v, want skipped", files[1])
	}

	data, err := os.ReadFile(filepath.Join(s.dir, files[0].Name))
	if err != nil {
		t.Fatalf("imported file missing: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("imported content = %q", data)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "notes.txt")); !os.IsNotExist(err) {
		t.Error("non-media file was written")
	}
}

func TestImportWithoutRoot(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	body, ct := multipartBody(t, upload{name: "a.png", data: []byte("png")})
	if rec := s.do(t, http.MethodPost, "/api/import", body, ct); rec.Code != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want 412", rec.Code)
	}
}

func TestImportEmpty(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.connect(t)

	body, ct := multipartBody(t)
	if rec := s.do(t, http.MethodPost, "/api/import", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteAsset(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "a.png", []byte("png"))
	s.connect(t)

	if rec := s.do(t, http.MethodDelete, "/api/assets/a.png", nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(filepath.Join(s.dir, "a.png")); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}
	if rec := s.do(t, http.MethodDelete, "/api/assets/a.png", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMoveAsset(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "a.png", []byte("png"))
	s.write(t, "Refs/.keep", []byte(""))
	s.connect(t)

	if rec := s.doJSON(t, http.MethodPost, "/api/assets/a.png/move", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing folder status = %d, want 400", rec.Code)
	}
	if rec := s.doJSON(t, http.MethodPost, "/api/assets/a.png/move", `{"folderId": "Nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown folder status = %d, want 404", rec.Code)
	}

	rec := s.doJSON(t, http.MethodPost, "/api/assets/a.png/move", `{"folderId": "Refs"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(filepath.Join(s.dir, "Refs", "a.png")); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "a.png")); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
}

// ===== serving =====

func TestGetBlob(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "clip.mp4", []byte("0123456789"))
	s.connect(t)

	asset, ok := s.ws.Asset("clip.mp4")
	if !ok || asset.URL == "" {
		t.Fatalf("asset = %+v, want materialized", asset)
	}
	id, _ := blobstore.ID(asset.URL)

	rec := s.do(t, http.MethodGet, "/api/blob/"+id, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "0123456789" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/blob/"+id, nil)
	req.Header.Set("Range", "bytes=2-4")
	ranged := httptest.NewRecorder()
	s.router.ServeHTTP(ranged, req)
	if ranged.Code != http.StatusPartialContent || ranged.Body.String() != "234" {
		t.Errorf("range: status = %d body %q, want 206 %q", ranged.Code, ranged.Body.String(), "234")
	}

	if rec := s.do(t, http.MethodGet, "/api/blob/unknown", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown blob status = %d, want 404", rec.Code)
	}
}

func TestGetThumbnail(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "wide.png", pngBytes(t, 640, 320))
	s.write(t, "clip.mp4", []byte("mp4"))
	s.connect(t)

	rec := s.do(t, http.MethodGet, "/api/thumbnail/wide.png", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", got)
	}
	img, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("thumbnail is not an image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != media.ThumbnailSize || b.Dy() != media.ThumbnailSize/2 {
		t.Errorf("thumbnail = %dx%d, want %dx%d", b.Dx(), b.Dy(), media.ThumbnailSize, media.ThumbnailSize/2)
	}

	if rec := s.do(t, http.MethodGet, "/api/thumbnail/clip.mp4", nil, ""); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("video preview status = %d, want 415", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/thumbnail/missing.png", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "" && name != "":
				return name, data
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	if name, _ := readEvent(); name != events.EventChanged {
		t.Fatalf("first event = %q, want %q", name, events.EventChanged)
	}

	// Wait for the subscription before triggering a notice.
	for i := 0; i < 100 && s.h.events.Count() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	s.connect(t)

	for {
		name, data := readEvent()
		if name != events.EventNotice {
			continue
		}
		if !strings.Contains(data, "Workspace connected successfully.") {
			t.Errorf("notice data = %s", data)
		}
		return
	}
}

// ===== health =====

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != statusHealthy || !resp.Ready || resp.Source != "No Source" {
		t.Errorf("health = %+v", resp)
	}

	s.h.store = &mockPinger{err: errors.New("database is locked")}
	rec = s.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/readyz", nil, ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", rec.Code)
	}
}

type fakeMemory struct {
	usage float64
	limit int64
}

func (m fakeMemory) Usage() float64 { return m.usage }
func (m fakeMemory) Limit() int64   { return m.limit }

func TestHealthCheckRuntimeFigures(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})
	s.write(t, "a.png", pngBytes(t, 8, 8))
	s.write(t, "b.png", pngBytes(t, 8, 8))
	s.connect(t)
	s.h.SetMemory(fakeMemory{usage: 0.5, limit: 1 << 30})

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.LiveRefs != 2 || resp.Assets != 2 {
		t.Errorf("liveRefs=%d assets=%d, want 2 and 2", resp.LiveRefs, resp.Assets)
	}
	if resp.Previews != 0 {
		t.Errorf("previews = %d, want 0", resp.Previews)
	}
	if resp.MemoryLimit != 1<<30 || resp.MemoryUsage != 0.5 {
		t.Errorf("memory = %d / %v", resp.MemoryLimit, resp.MemoryUsage)
	}
}

func TestLivenessCheck(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	if rec := s.do(t, http.MethodGet, "/livez", nil, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "alive") {
		t.Errorf("GET livez = %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodHead, "/livez", nil, ""); rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD livez = %d with %d body bytes", rec.Code, rec.Body.Len())
	}
}

func TestGetVersion(t *testing.T) {
	s := newTestServer(t, fsapi.AutoGrant{})

	rec := s.do(t, http.MethodGet, "/version", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
	if !strings.Contains(rec.Body.String(), "goVersion") && !strings.Contains(rec.Body.String(), "version") {
		t.Errorf("body = %s", rec.Body.String())
	}
}
