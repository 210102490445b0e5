package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "boards.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(context.Background(), filepath.Join(t.TempDir(), "nope", "boards.db"))
	if err == nil {
		t.Error("New() should fail when the directory does not exist")
	}
}

func TestRootLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetRoot(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoot() on empty store error = %v, want ErrNotFound", err)
	}

	if err := s.SaveRoot(ctx, "/boards/one"); err != nil {
		t.Fatalf("SaveRoot() error = %v", err)
	}
	if err := s.SaveRoot(ctx, "/boards/two"); err != nil {
		t.Fatalf("SaveRoot() overwrite error = %v", err)
	}

	got, err := s.GetRoot(ctx)
	if err != nil {
		t.Fatalf("GetRoot() error = %v", err)
	}
	if got != "/boards/two" {
		t.Errorf("GetRoot() = %q, want /boards/two", got)
	}

	if err := s.ClearRoot(ctx); err != nil {
		t.Fatalf("ClearRoot() error = %v", err)
	}
	if _, err := s.GetRoot(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRoot() after clear error = %v, want ErrNotFound", err)
	}
	if err := s.ClearRoot(ctx); err != nil {
		t.Errorf("ClearRoot() twice error = %v", err)
	}
}

func TestRootSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boards.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.SaveRoot(ctx, "/boards"); err != nil {
		t.Fatalf("SaveRoot() error = %v", err)
	}
	_ = s.Close()

	s, err = New(ctx, path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer s.Close()

	if got, err := s.GetRoot(ctx); err != nil || got != "/boards" {
		t.Errorf("GetRoot() after reopen = %q, %v", got, err)
	}
}

func TestLastScan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetLastScan(ctx)
	if err != nil || !got.IsZero() {
		t.Errorf("GetLastScan() empty = %v, %v; want zero", got, err)
	}

	when := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if err := s.SetLastScan(ctx, when); err != nil {
		t.Fatalf("SetLastScan() error = %v", err)
	}
	got, err = s.GetLastScan(ctx)
	if err != nil || !got.Equal(when) {
		t.Errorf("GetLastScan() = %v, %v; want %v", got, err, when)
	}
}
