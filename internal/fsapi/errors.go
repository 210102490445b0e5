package fsapi

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// Sentinel errors shared by every layer that touches the root. Wrap them with
// %w so callers can branch with errors.Is and still show the underlying cause.
var (
	// ErrPermissionDenied is returned when the user or host refuses access.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCapabilityUnavailable is returned when the host cannot grant a
	// writable directory handle at all. Callers switch to fallback mode.
	ErrCapabilityUnavailable = errors.New("directory access capability unavailable")

	// ErrIOFailure covers read, write, enumerate, remove and rename failures.
	ErrIOFailure = errors.New("i/o failure")

	// ErrUserCancelled is returned when an interactive prompt is dismissed.
	// It is never surfaced to the user.
	ErrUserCancelled = errors.New("cancelled by user")
)

// ioFailure wraps err as an ErrIOFailure, keeping permission errors from the
// OS classified as ErrPermissionDenied.
func ioFailure(op, name string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s %s: %w", ErrPermissionDenied, op, name, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrIOFailure, op, name, err)
}

// Message returns the human readable part of an error without the sentinel
// prefix, for notices.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrPermissionDenied, ErrCapabilityUnavailable, ErrIOFailure, ErrUserCancelled} {
		if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return trimmed
		}
	}
	return msg
}
