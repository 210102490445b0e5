package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.Volumes != nil {
		t.Error("Volumes should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Volumes Tests
// =============================================================================

func TestVolumesResolve(t *testing.T) {
	v := NewVolumes()
	v.Set("root", "/boards")
	v.Set("database", "/database")
	v.Set("archive", "/boards/archive")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "root directory", path: "/boards", want: "root"},
		{name: "board asset", path: "/boards/Travel/beach.jpg", want: "root"},
		{name: "longest prefix wins", path: "/boards/archive/old.png", want: "archive"},
		{name: "database file", path: "/database/boards.db-wal", want: "database"},
		{name: "sibling with shared prefix", path: "/boardsX/file.jpg", want: "unknown"},
		{name: "unrelated path", path: "/tmp/other", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumesSetReplacesAndRemoves(t *testing.T) {
	v := NewVolumes()
	v.Set("root", "/boards")
	v.Set("root", "/refs")

	if got := v.Resolve("/boards/a.png"); got != "unknown" {
		t.Errorf("Resolve(old root) = %q, want unknown", got)
	}
	if got := v.Resolve("/refs/a.png"); got != "root" {
		t.Errorf("Resolve(new root) = %q, want root", got)
	}

	v.Set("root", "")
	if got := v.Resolve("/refs/a.png"); got != "unknown" {
		t.Errorf("Resolve() after removal = %q, want unknown", got)
	}
}

func TestVolumesNil(t *testing.T) {
	var v *Volumes
	if got := v.Resolve("/boards/test.jpg"); got != "unknown" {
		t.Errorf("nil Volumes Resolve() = %q, want unknown", got)
	}
}

func TestRetryConfigResolveVolume(t *testing.T) {
	original := defaultVolumes
	defer func() { defaultVolumes = original }()
	defaultVolumes = NewVolumes()

	SetVolume("default-root", "/boards")

	config := DefaultRetryConfig()
	if got := config.resolveVolume("/boards/a.jpg"); got != "default-root" {
		t.Errorf("resolveVolume() = %q, want default-root", got)
	}
	if got := VolumeOf("/boards/a.jpg"); got != "default-root" {
		t.Errorf("VolumeOf() = %q, want default-root", got)
	}

	config.Volumes = NewVolumes()
	config.Volumes.Set("override-root", "/boards")
	if got := config.resolveVolume("/boards/a.jpg"); got != "override-root" {
		t.Errorf("resolveVolume() = %q, want override-root", got)
	}
}

// =============================================================================
// Retry Tests
// =============================================================================

func TestStatWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beach.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size() = %d, want 4", info.Size())
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing.jpg"), DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StatWithRetry(missing) error = %v, want ErrNotExist", err)
	}
}

func TestOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	f, err := OpenWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	_ = f.Close()

	if _, err := OpenWithRetry(filepath.Join(dir, "nope"), DefaultRetryConfig()); err == nil {
		t.Error("OpenWithRetry(missing) should fail")
	}
}

func TestReadDirWithRetry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "Travel"), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	entries, err := ReadDirWithRetry(dir, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error = %v", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if fmt.Sprint(names) != "[Travel a.png b.png]" {
		t.Errorf("ReadDirWithRetry() names = %v", names)
	}
}

func TestWithRetry_RetriesOnlyStale(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("stat", "/boards/x", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("withRetry() = %d, %v; want 42, nil", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	calls = 0
	_, err = withRetry("stat", "/boards/x", config, func() (int, error) {
		calls++
		return 0, syscall.EACCES
	})
	if !errors.Is(err, syscall.EACCES) {
		t.Errorf("withRetry() error = %v, want EACCES", err)
	}
	if calls != 1 {
		t.Errorf("non-stale error calls = %d, want 1", calls)
	}

	calls = 0
	_, err = withRetry("open", "/boards/x", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !isNFSStaleError(err) {
		t.Errorf("exhausted retry error = %v, want ESTALE", err)
	}
	if calls != config.MaxRetries+1 {
		t.Errorf("exhausted calls = %d, want %d", calls, config.MaxRetries+1)
	}
}
