package workspace

import "errors"

var (
	// ErrNoRoot is returned by operations that need a connected root.
	ErrNoRoot = errors.New("no workspace connected")

	// ErrNoStoredRoot is returned by Resume when nothing was persisted.
	ErrNoStoredRoot = errors.New("no stored workspace")

	// ErrFallbackReadOnly is returned by mutations while in fallback mode.
	ErrFallbackReadOnly = errors.New("workspace is read-only in fallback mode")

	// ErrUnsupportedMedia is returned by Import for files that are neither
	// images nor videos.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrAssetNotFound is returned when an asset id is not in the workspace.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrFolderNotFound is returned when a board id is not in the workspace.
	ErrFolderNotFound = errors.New("board not found")

	// ErrInvalidName is returned for board names that are empty or contain
	// path separators.
	ErrInvalidName = errors.New("invalid board name")
)
