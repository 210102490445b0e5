package fsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user whether a root may be accessed.
type Prompter interface {
	Prompt(ctx context.Context, path string, mode Mode) (PermissionState, error)
}

// AutoGrant grants every request without asking.
type AutoGrant struct{}

func (AutoGrant) Prompt(ctx context.Context, _ string, _ Mode) (PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return PermissionPrompt, err
	}
	return PermissionGranted, nil
}

// Deny refuses every request without asking.
type Deny struct{}

func (Deny) Prompt(_ context.Context, _ string, _ Mode) (PermissionState, error) {
	return PermissionDenied, nil
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, path string, mode Mode) (PermissionState, error)

func (f PrompterFunc) Prompt(ctx context.Context, path string, mode Mode) (PermissionState, error) {
	return f(ctx, path, mode)
}

// Terminal asks on the controlling terminal. When In is not a terminal it
// answers with NonInteractive.
type Terminal struct {
	In  *os.File
	Out io.Writer
	// NonInteractive answers when no terminal is attached. Defaults to Deny.
	NonInteractive Prompter
}

// NewTerminal creates a terminal prompter on stdin/stderr.
func NewTerminal(nonInteractive Prompter) *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stderr, NonInteractive: nonInteractive}
}

func (t *Terminal) Prompt(ctx context.Context, path string, mode Mode) (PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return PermissionPrompt, err
	}

	fd := int(t.In.Fd())
	if !term.IsTerminal(fd) {
		fallback := t.NonInteractive
		if fallback == nil {
			fallback = Deny{}
		}
		return fallback.Prompt(ctx, path, mode)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return PermissionPrompt, fmt.Errorf("%w: terminal: %v", ErrIOFailure, err)
	}
	defer func() { _ = term.Restore(fd, state) }()

	rw := struct {
		io.Reader
		io.Writer
	}{t.In, t.Out}
	tty := term.NewTerminal(rw, "")

	question := fmt.Sprintf("Allow %s access to %s? [y/N] ", describeMode(mode), path)
	tty.SetPrompt(question)

	line, err := tty.ReadLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return PermissionPrompt, ErrUserCancelled
		}
		return PermissionPrompt, fmt.Errorf("%w: terminal: %v", ErrIOFailure, err)
	}

	return parseAnswer(line), nil
}

func describeMode(mode Mode) string {
	if mode == ModeReadWrite {
		return "read and write"
	}
	return "read"
}

// parseAnswer maps a typed reply to a permission state; anything but yes denies.
func parseAnswer(line string) PermissionState {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return PermissionGranted
	default:
		return PermissionDenied
	}
}
