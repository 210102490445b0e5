package fsapi

import (
	"context"
	"io"
	"time"
)

// Mode is the access level requested on a directory handle.
type Mode int

const (
	ModeRead Mode = iota
	ModeReadWrite
)

func (m Mode) String() string {
	if m == ModeReadWrite {
		return "readwrite"
	}
	return "read"
}

// PermissionState is the answer to a permission query.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// EntryKind distinguishes files from directories in a listing.
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDirectory
)

// Entry is one immediate child of a directory. Exactly one of File and Dir is set.
type Entry struct {
	Kind EntryKind
	Name string
	File FileHandle
	Dir  DirHandle
}

// DirHandle is a capability to one directory.
type DirHandle interface {
	Name() string
	// Path is the opaque identity persisted across restarts.
	Path() string
	QueryPermission(mode Mode) PermissionState
	RequestPermission(ctx context.Context, mode Mode) (PermissionState, error)
	// Entries lists immediate children only. Hidden names are skipped.
	Entries(ctx context.Context) ([]Entry, error)
	GetFileHandle(ctx context.Context, name string, create bool) (FileHandle, error)
	GetDirectoryHandle(ctx context.Context, name string, create bool) (DirHandle, error)
	RemoveEntry(ctx context.Context, name string) error
}

// FileHandle is a capability to one file inside a directory.
type FileHandle interface {
	Name() string
	GetFile(ctx context.Context) (File, error)
	CreateWritable(ctx context.Context) (Writable, error)
}

// Mover is implemented by file handles whose host can move them atomically.
// Callers type-assert and fall back to copy-then-delete.
type Mover interface {
	Move(ctx context.Context, dest DirHandle) error
}

// File is a lazy byte source. Nothing is read until Open.
type File interface {
	Name() string
	// Type is the declared content type, empty when unknown.
	Type() string
	Size() int64
	ModTime() time.Time
	Open() (io.ReadSeekCloser, error)
}

// Writable stages writes and publishes them on Close. Abort discards them.
type Writable interface {
	io.Writer
	Close() error
	Abort() error
}

// Opener resolves a user-chosen location to a directory handle.
type Opener interface {
	// Choose opens a location the user has just picked. Picking a
	// directory grants read-write access to it.
	Choose(ctx context.Context, path string) (DirHandle, error)
	// Open reopens a remembered location. Permissions start unanswered.
	Open(ctx context.Context, path string) (DirHandle, error)
}
