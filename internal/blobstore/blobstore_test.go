package blobstore

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestCreateAndOpen(t *testing.T) {
	r := NewRegistry()
	src := &Bytes{FileName: "a.png", ContentType: "image/png", Data: []byte("pixels")}

	ref := r.Create(src)
	if !strings.HasPrefix(ref, Prefix) {
		t.Fatalf("Create() = %q, want %s prefix", ref, Prefix)
	}
	if r.Live() != 1 {
		t.Errorf("Live() = %d, want 1", r.Live())
	}

	rc, got, err := r.Open(ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "pixels" {
		t.Errorf("Open() content = %q, want pixels", data)
	}
	if got.Type() != "image/png" || got.Size() != 6 {
		t.Errorf("Open() source type=%q size=%d", got.Type(), got.Size())
	}

	id, _ := ID(ref)
	if _, err := r.Lookup(id); err != nil {
		t.Errorf("Lookup(bare id) error = %v", err)
	}
}

func TestCreateDistinctRefs(t *testing.T) {
	r := NewRegistry()
	src := &Bytes{FileName: "a.png"}

	a, b := r.Create(src), r.Create(src)
	if a == b {
		t.Errorf("Create() returned the same ref twice: %q", a)
	}
	if r.Live() != 2 {
		t.Errorf("Live() = %d, want 2", r.Live())
	}
}

func TestRevoke(t *testing.T) {
	r := NewRegistry()
	ref := r.Create(&Bytes{FileName: "a.png"})

	r.Revoke(ref)
	if r.Live() != 0 {
		t.Errorf("Live() after revoke = %d, want 0", r.Live())
	}
	if _, _, err := r.Open(ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(revoked) error = %v, want ErrNotFound", err)
	}

	// no-ops
	r.Revoke(ref)
	r.Revoke("")
	r.Revoke("blob:")
	r.Revoke("not-a-ref")
}

func TestID(t *testing.T) {
	tests := []struct {
		ref    string
		wantID string
		wantOK bool
	}{
		{"blob:abc", "abc", true},
		{"blob:", "", false},
		{"", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		id, ok := ID(tt.ref)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("ID(%q) = %q, %v; want %q, %v", tt.ref, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
