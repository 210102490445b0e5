package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"media-boards/internal/blobstore"
	"media-boards/internal/fsapi"
	"media-boards/internal/scanner"
	"media-boards/internal/scheduler"
	"media-boards/internal/store"
	"media-boards/internal/workers"
	"media-boards/internal/workspace"
)

const (
	// Default timeout for a whole command
	defaultTimeout = 5 * time.Minute
	// Default database directory path
	defaultDatabaseDir = "/database"
)

// app holds the global flags and the pieces a command works on.
type app struct {
	root      string
	dbPath    string
	yes       bool
	copyMoves bool
	prompter  fsapi.Prompter // overrides the terminal prompter when set
	stdout    io.Writer
	stderr    io.Writer

	store *store.Store
	ws    *workspace.Workspace
}

func defaultDBPath() string {
	dir := os.Getenv("DATABASE_DIR")
	if dir == "" {
		dir = defaultDatabaseDir
	}
	return filepath.Join(dir, "boards.db")
}

// open builds the workspace. The store is optional: when its directory does
// not exist commands still work, they just cannot resume or remember.
func (a *app) open(ctx context.Context) error {
	if a.dbPath != "" {
		if info, err := os.Stat(filepath.Dir(a.dbPath)); err == nil && info.IsDir() {
			st, err := store.New(ctx, a.dbPath)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			a.store = st
		}
	}

	prompter := a.prompter
	if prompter == nil {
		var nonInteractive fsapi.Prompter = fsapi.Deny{}
		if a.yes {
			nonInteractive = fsapi.AutoGrant{}
		}
		prompter = fsapi.NewTerminal(nonInteractive)
	}

	fsOpts := fsapi.DefaultOptions()
	fsOpts.Prompter = prompter
	fsOpts.AtomicMove = !a.copyMoves

	opts := workspace.Options{
		Opener:  fsapi.NewLocal(fsOpts),
		Scanner: scanner.New(workers.ForIO(8)),
		Blobs:   blobstore.NewRegistry(),
		// Nothing is displayed, so nothing is materialized.
		Scheduler: scheduler.NewManual(),
		After:     func(_ time.Duration, fn func()) { fn() },
	}
	if a.store != nil {
		opts.Store = a.store
	}
	a.ws = workspace.New(opts)
	return nil
}

// connect attaches the root from --root, or the stored one.
func (a *app) connect(ctx context.Context) error {
	if a.root != "" {
		return a.ws.Connect(ctx, a.root)
	}
	err := a.ws.Resume(ctx)
	if errors.Is(err, workspace.ErrNoStoredRoot) {
		return fmt.Errorf("no --root given and no stored workspace to resume")
	}
	return err
}

// close is safe to call more than once.
func (a *app) close() {
	if a.ws != nil {
		a.ws.Close()
		a.ws = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			fmt.Fprintf(a.stderr, "Warning: failed to close store: %v\n", err)
		}
		a.store = nil
	}
}

func isUnsupported(err error) bool {
	return errors.Is(err, workspace.ErrUnsupportedMedia)
}

// describe turns workspace errors into something worth printing.
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fsapi.ErrUserCancelled):
		return fmt.Errorf("cancelled")
	case errors.Is(err, fsapi.ErrPermissionDenied):
		return fmt.Errorf("permission denied: %s (use --yes when stdin is not a terminal)", fsapi.Message(err))
	case errors.Is(err, fsapi.ErrCapabilityUnavailable):
		return fmt.Errorf("directory is not writable: %s", fsapi.Message(err))
	default:
		return err
	}
}
