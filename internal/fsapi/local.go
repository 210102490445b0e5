package fsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-boards/internal/filesystem"
	"media-boards/internal/logging"
	"media-boards/internal/mediatypes"
)

// swapSuffix marks staged writes. Staged files are hidden so listings skip them.
const swapSuffix = ".crswap"

// Options configures the local host.
type Options struct {
	// Prompter answers permission requests. Nil denies everything.
	Prompter Prompter
	// AtomicMove exposes Mover on file handles, backed by os.Rename.
	AtomicMove bool
	// ReadOnly reports the writable capability as unavailable, forcing
	// callers into fallback mode.
	ReadOnly bool
	Retry    filesystem.RetryConfig
}

// DefaultOptions returns options with atomic moves enabled and a denying prompter.
func DefaultOptions() Options {
	return Options{
		Prompter:   Deny{},
		AtomicMove: true,
		Retry:      filesystem.DefaultRetryConfig(),
	}
}

// Local opens directory handles on the local filesystem.
type Local struct {
	opts Options

	mu     sync.Mutex
	grants map[string]*grant // keyed by root path
}

// grant caches the permissions given for one root and everything beneath it.
type grant struct {
	mu    sync.Mutex
	modes map[Mode]bool
}

func (g *grant) has(mode Mode) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modes[mode] || g.modes[ModeReadWrite]
}

func (g *grant) set(mode Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modes[mode] = true
}

// NewLocal creates a local host.
func NewLocal(opts Options) *Local {
	if opts.Prompter == nil {
		opts.Prompter = Deny{}
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = filesystem.DefaultRetryConfig()
	}
	return &Local{opts: opts, grants: make(map[string]*grant)}
}

// Choose opens path like Open and records read-write access for it.
func (l *Local) Choose(ctx context.Context, path string) (DirHandle, error) {
	d, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	d.grant.set(ModeReadWrite)
	return d, nil
}

// Open returns a handle for an existing directory. Missing paths and
// non-directories are IO failures; a directory that cannot be written to
// means the writable capability is unavailable.
func (l *Local) Open(ctx context.Context, path string) (DirHandle, error) {
	d, err := l.open(ctx, path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (l *Local) open(ctx context.Context, path string) (*localDir, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioFailure("resolve", path, err)
	}

	info, err := filesystem.StatWithRetry(abs, l.opts.Retry)
	if err != nil {
		return nil, ioFailure("open", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrIOFailure, abs)
	}

	if l.opts.ReadOnly {
		return nil, fmt.Errorf("%w: host is read-only", ErrCapabilityUnavailable)
	}
	if err := checkWrite(abs); err != nil {
		logging.Warn("Root %s is not writable: %v", abs, err)
		return nil, fmt.Errorf("%w: %s is not writable", ErrCapabilityUnavailable, abs)
	}

	l.mu.Lock()
	g, ok := l.grants[abs]
	if !ok {
		g = &grant{modes: make(map[Mode]bool)}
		l.grants[abs] = g
	}
	l.mu.Unlock()

	return &localDir{host: l, grant: g, path: abs}, nil
}

// checkWrite checks write access by creating and removing a hidden file.
func checkWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".boards-write-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// validName rejects anything that is not a single path element.
func validName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: invalid name %q", ErrIOFailure, name)
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ===== directories =====

type localDir struct {
	host  *Local
	grant *grant
	path  string
}

func (d *localDir) Name() string { return filepath.Base(d.path) }
func (d *localDir) Path() string { return d.path }

func (d *localDir) QueryPermission(mode Mode) PermissionState {
	if d.grant.has(mode) {
		return PermissionGranted
	}
	return PermissionPrompt
}

func (d *localDir) RequestPermission(ctx context.Context, mode Mode) (PermissionState, error) {
	if d.grant.has(mode) {
		return PermissionGranted, nil
	}

	state, err := d.host.opts.Prompter.Prompt(ctx, d.path, mode)
	if err != nil {
		return PermissionPrompt, err
	}
	if state == PermissionGranted {
		d.grant.set(mode)
		logging.Info("Granted %s access to %s", mode, d.path)
	} else {
		logging.Warn("Denied %s access to %s", mode, d.path)
	}
	return state, nil
}

func (d *localDir) require(mode Mode) error {
	if !d.grant.has(mode) {
		return fmt.Errorf("%w: %s access to %s not granted", ErrPermissionDenied, mode, d.path)
	}
	return nil
}

func (d *localDir) child(name string) *localDir {
	return &localDir{host: d.host, grant: d.grant, path: filepath.Join(d.path, name)}
}

func (d *localDir) file(name string) FileHandle {
	f := &localFile{dir: d, name: name}
	if d.host.opts.AtomicMove {
		return &movableFile{localFile: f}
	}
	return f
}

func (d *localDir) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.require(ModeRead); err != nil {
		return nil, err
	}

	dirEntries, err := filesystem.ReadDirWithRetry(d.path, d.host.opts.Retry)
	if err != nil {
		return nil, ioFailure("list", d.path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if isHidden(name) {
			continue
		}

		mode := de.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := filesystem.StatWithRetry(filepath.Join(d.path, name), d.host.opts.Retry)
			if err != nil {
				logging.Debug("Skipping dangling link %s: %v", name, err)
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			entries = append(entries, Entry{Kind: EntryDirectory, Name: name, Dir: d.child(name)})
		case mode.IsRegular():
			entries = append(entries, Entry{Kind: EntryFile, Name: name, File: d.file(name)})
		}
	}

	return entries, nil
}

func (d *localDir) GetFileHandle(ctx context.Context, name string, create bool) (FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(d.path, name)
	info, err := filesystem.StatWithRetry(path, d.host.opts.Retry)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrIOFailure, name)
		}
		if err := d.require(ModeRead); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist) && create:
		if err := d.require(ModeReadWrite); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, ioFailure("create", name, err)
		}
		if err := f.Close(); err != nil {
			return nil, ioFailure("create", name, err)
		}
	default:
		return nil, ioFailure("open", name, err)
	}

	return d.file(name), nil
}

func (d *localDir) GetDirectoryHandle(ctx context.Context, name string, create bool) (DirHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}

	path := filepath.Join(d.path, name)
	info, err := filesystem.StatWithRetry(path, d.host.opts.Retry)
	switch {
	case err == nil:
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrIOFailure, name)
		}
	case errors.Is(err, fs.ErrNotExist) && create:
		if err := d.require(ModeReadWrite); err != nil {
			return nil, err
		}
		if err := os.Mkdir(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, ioFailure("mkdir", name, err)
		}
	default:
		return nil, ioFailure("open", name, err)
	}

	return d.child(name), nil
}

func (d *localDir) RemoveEntry(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validName(name); err != nil {
		return err
	}
	if err := d.require(ModeReadWrite); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(d.path, name)); err != nil {
		return ioFailure("remove", name, err)
	}
	return nil
}

// ===== files =====

type localFile struct {
	dir  *localDir
	name string
}

func (f *localFile) Name() string { return f.name }

func (f *localFile) path() string { return filepath.Join(f.dir.path, f.name) }

func (f *localFile) GetFile(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.dir.require(ModeRead); err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(f.path(), f.dir.host.opts.Retry)
	if err != nil {
		return nil, ioFailure("read", f.name, err)
	}

	var typ string
	if mediatypes.IsMedia(f.name, "") {
		typ = mediatypes.MimeType(f.name)
	}

	return &diskFile{
		path:    f.path(),
		name:    f.name,
		typ:     typ,
		size:    info.Size(),
		modTime: info.ModTime(),
		retry:   f.dir.host.opts.Retry,
	}, nil
}

func (f *localFile) CreateWritable(ctx context.Context) (Writable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.dir.require(ModeReadWrite); err != nil {
		return nil, err
	}

	swap, err := os.CreateTemp(f.dir.path, "."+f.name+".*"+swapSuffix)
	if err != nil {
		return nil, ioFailure("write", f.name, err)
	}
	return &swapWriter{file: swap, target: f.path()}, nil
}

// movableFile adds an atomic Move to a local file.
type movableFile struct {
	*localFile
}

func (f *movableFile) Move(ctx context.Context, dest DirHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, ok := dest.(*localDir)
	if !ok {
		return fmt.Errorf("%w: cannot move %s across hosts", ErrIOFailure, f.name)
	}
	if err := f.dir.require(ModeReadWrite); err != nil {
		return err
	}

	if err := os.Rename(f.path(), filepath.Join(target.path, f.name)); err != nil {
		return ioFailure("move", f.name, err)
	}
	return nil
}

// diskFile is a File backed by a path; each Open gets a fresh descriptor.
type diskFile struct {
	path    string
	name    string
	typ     string
	size    int64
	modTime time.Time
	retry   filesystem.RetryConfig
}

func (f *diskFile) Name() string       { return f.name }
func (f *diskFile) Type() string       { return f.typ }
func (f *diskFile) Size() int64        { return f.size }
func (f *diskFile) ModTime() time.Time { return f.modTime }

func (f *diskFile) Open() (io.ReadSeekCloser, error) {
	file, err := filesystem.OpenWithRetry(f.path, f.retry)
	if err != nil {
		return nil, ioFailure("read", f.name, err)
	}
	return file, nil
}

// swapWriter writes to a hidden swap file and renames it over the target on Close.
type swapWriter struct {
	file   *os.File
	target string
	done   bool
}

func (w *swapWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		return n, ioFailure("write", filepath.Base(w.target), err)
	}
	return n, nil
}

func (w *swapWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.file.Name())
		return ioFailure("write", filepath.Base(w.target), err)
	}
	if err := os.Rename(w.file.Name(), w.target); err != nil {
		_ = os.Remove(w.file.Name())
		return ioFailure("write", filepath.Base(w.target), err)
	}
	return nil
}

func (w *swapWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	_ = w.file.Close()
	if err := os.Remove(w.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioFailure("abort", filepath.Base(w.target), err)
	}
	return nil
}
