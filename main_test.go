package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-boards/internal/blobstore"
	"media-boards/internal/events"
	"media-boards/internal/filesystem"
	"media-boards/internal/handlers"
	"media-boards/internal/media"
	"media-boards/internal/startup"
	"media-boards/internal/store"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	return &startup.Config{
		DatabaseDir:         t.TempDir(),
		Port:                "0",
		MetricsEnabled:      true,
		AutoGrant:           true,
		AtomicMove:          true,
		Capability:          startup.CapabilityNative,
		WatchDebounce:       50 * time.Millisecond,
		MaterializeInterval: time.Millisecond,
		ThumbnailCacheSize:  4,
	}
}

func TestSetupRouterRoutes(t *testing.T) {
	config := testConfig(t)
	bc := events.NewBroadcaster()
	ws, _ := newWorkspace(config, nil, bc, nil)
	defer ws.Close()

	router := setupRouter(handlers.New(ws, nil, bc, media.NewThumbnailer(4)), config)

	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	want := map[string]bool{
		"GET /api/workspace":           false,
		"POST /api/workspace/connect":  false,
		"POST /api/workspace/resume":   false,
		"GET /api/workspace/stored":    false,
		"POST /api/workspace/refresh":  false,
		"POST /api/workspace/fallback": false,
		"POST /api/workspace/scroll":   false,
		"PUT /api/workspace/selection": false,
		"POST /api/folders":            false,
		"POST /api/import":             false,
		"DELETE /api/assets/{id}":      false,
		"POST /api/assets/{id}/move":   false,
		"GET /api/blob/{id}":           false,
		"GET /api/thumbnail/{id}":      false,
		"GET /api/events":              false,
		"GET /metrics":                 false,
		"GET /health":                  false,
		"GET /readyz":                  false,
		"GET /version":                 false,
	}
	for _, r := range routes {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route %s not registered", key)
		}
	}
}

func TestSetupRouterWithoutMetrics(t *testing.T) {
	config := testConfig(t)
	config.MetricsEnabled = false
	bc := events.NewBroadcaster()
	ws, _ := newWorkspace(config, nil, bc, nil)
	defer ws.Close()

	router := setupRouter(handlers.New(ws, nil, bc, nil), config)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d, want 404", rec.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	config := testConfig(t)
	config.StaticDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(config.StaticDir, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	bc := events.NewBroadcaster()
	ws, _ := newWorkspace(config, nil, bc, nil)
	defer ws.Close()

	router := setupRouter(handlers.New(ws, nil, bc, nil), config)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", rec.Code)
	}
}

func TestNewWorkspaceResumesFromStore(t *testing.T) {
	config := testConfig(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := store.New(testContext(t), filepath.Join(config.DatabaseDir, "boards.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	bc := events.NewBroadcaster()
	first, _ := newWorkspace(config, st, bc, nil)
	if err := first.Connect(testContext(t), root); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	first.Close()

	second, _ := newWorkspace(config, st, bc, nil)
	defer second.Close()
	if err := second.Resume(testContext(t)); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := second.Snapshot().Total; got != 1 {
		t.Errorf("resumed total = %d, want 1", got)
	}
}

func TestNewWorkspaceWatcher(t *testing.T) {
	config := testConfig(t)
	config.WatchEnabled = true
	root := t.TempDir()

	bc := events.NewBroadcaster()
	ws, watch := newWorkspace(config, nil, bc, nil)
	defer ws.Close()
	if watch == nil {
		t.Fatal("watcher = nil with WATCH_ENABLED")
	}
	defer watch.Stop()

	if err := ws.Connect(testContext(t), root); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if got := watch.Root(); got != root {
		t.Errorf("watched root = %q, want %q", got, root)
	}
}

func TestNewWorkspaceFollowsRoot(t *testing.T) {
	config := testConfig(t)
	root := t.TempDir()

	thumbs := media.NewThumbnailer(4)
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	src := &blobstore.Bytes{FileName: "old.png", Data: buf.Bytes()}
	if _, err := thumbs.Thumbnail(media.CacheKey("old.png", "blob:old"), src, "image/png"); err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}

	ws, _ := newWorkspace(config, nil, events.NewBroadcaster(), thumbs)
	defer ws.Close()

	if err := ws.Connect(testContext(t), root); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if thumbs.Len() != 0 {
		t.Errorf("cached previews after root change = %d, want 0", thumbs.Len())
	}
	if got := filesystem.VolumeOf(filepath.Join(root, "a.png")); got != "root" {
		t.Errorf("VolumeOf(root file) = %q, want root", got)
	}

	ws.OpenFallback(nil)
	if got := filesystem.VolumeOf(filepath.Join(root, "a.png")); got != "unknown" {
		t.Errorf("VolumeOf() in fallback = %q, want unknown", got)
	}
}

// testContext returns a context that is cancelled when the test finishes,
// standing in for testing.T.Context (Go 1.24+).
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
