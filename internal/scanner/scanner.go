package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-boards/internal/boards"
	"media-boards/internal/fsapi"
	"media-boards/internal/logging"
	"media-boards/internal/mediatypes"
	"media-boards/internal/metrics"
	"media-boards/internal/workers"
)

// maxCountWorkers caps concurrent folder counts.
const maxCountWorkers = 16

// Result is what a scan found. Nothing in it has been committed anywhere.
type Result struct {
	Folders []boards.Folder
	Files   []boards.Asset
}

// Scanner lists roots.
type Scanner struct {
	countWorkers int
}

// New creates a scanner. countWorkers <= 0 sizes the folder-count pool from
// available CPUs.
func New(countWorkers int) *Scanner {
	if countWorkers <= 0 {
		countWorkers = workers.ForIO(maxCountWorkers)
	}
	return &Scanner{countWorkers: countWorkers}
}

// Scan ensures readwrite permission on root and lists its immediate entries.
// onFolders, when set, receives the folders found so far after each new one.
func (s *Scanner) Scan(ctx context.Context, root fsapi.DirHandle, onFolders func([]boards.Folder)) (Result, error) {
	start := time.Now()
	metrics.ScanIsRunning.Set(1)
	defer metrics.ScanIsRunning.Set(0)

	result, err := s.scan(ctx, root, onFolders)

	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	metrics.ScanRunsTotal.WithLabelValues(scanStatus(err)).Inc()

	if err != nil {
		return Result{}, err
	}

	logging.Info("Scanned %s: %d assets, %d boards in %v",
		root.Path(), len(result.Files), len(result.Folders), time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, root fsapi.DirHandle, onFolders func([]boards.Folder)) (Result, error) {
	if err := ensurePermission(ctx, root); err != nil {
		return Result{}, err
	}

	entries, err := root.Entries(ctx)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		switch entry.Kind {
		case fsapi.EntryFile:
			kind := mediatypes.Classify(entry.Name, "")
			if kind == mediatypes.KindNone {
				metrics.ScanEntriesTotal.WithLabelValues("skipped").Inc()
				continue
			}
			metrics.ScanEntriesTotal.WithLabelValues(string(kind)).Inc()
			result.Files = append(result.Files, boards.Asset{
				ID:     entry.Name,
				Name:   entry.Name,
				Kind:   kind,
				Origin: boards.DirectoryBacked{Handle: entry.File},
			})

		case fsapi.EntryDirectory:
			metrics.ScanEntriesTotal.WithLabelValues("folder").Inc()
			result.Folders = append(result.Folders, boards.Folder{
				ID:     entry.Name,
				Name:   entry.Name,
				Handle: entry.Dir,
			})
			if onFolders != nil {
				onFolders(append([]boards.Folder(nil), result.Folders...))
			}
		}
	}

	return result, nil
}

// ensurePermission queries readwrite access and requests it when missing.
func ensurePermission(ctx context.Context, root fsapi.DirHandle) error {
	if root.QueryPermission(fsapi.ModeReadWrite) == fsapi.PermissionGranted {
		return nil
	}

	state, err := root.RequestPermission(ctx, fsapi.ModeReadWrite)
	if err != nil {
		return err
	}
	if state != fsapi.PermissionGranted {
		return fmt.Errorf("%w: access to %s was not granted", fsapi.ErrPermissionDenied, root.Name())
	}
	return nil
}

// CountFolders counts the immediate files of every folder concurrently and
// reports each count through apply as soon as it is known. A folder that
// cannot be listed keeps a count of zero.
func (s *Scanner) CountFolders(ctx context.Context, folders []boards.Folder, apply func(id string, count int)) error {
	return workers.Each(ctx, s.countWorkers, len(folders), func(ctx context.Context, i int) error {
		folder := folders[i]
		if folder.Handle == nil {
			return nil
		}

		entries, err := folder.Handle.Entries(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn("Failed to count board %s: %v", folder.Name, err)
			metrics.FolderCountErrors.Inc()
			return nil
		}

		count := 0
		for _, e := range entries {
			if e.Kind == fsapi.EntryFile {
				count++
			}
		}
		apply(folder.ID, count)
		return nil
	})
}

func scanStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, fsapi.ErrUserCancelled), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, fsapi.ErrPermissionDenied):
		return "denied"
	default:
		return "error"
	}
}
