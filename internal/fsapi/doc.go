/*
Package fsapi models capability-based access to a user-chosen root directory.

A DirHandle grants access to exactly one directory and its descendants. Read
and write permission are requested separately, answered by a Prompter, and
cached for the root. Listings are single level and skip hidden names.

Writes are staged: CreateWritable returns a Writable that writes to a hidden
swap file and replaces the target only on Close. Abort discards the swap file.

File handles may also implement Mover when the host supports atomic moves.
Callers should type-assert and copy-then-delete otherwise:

	if m, ok := fh.(fsapi.Mover); ok {
	    err = m.Move(ctx, dest)
	}

All failures wrap one of ErrPermissionDenied, ErrCapabilityUnavailable,
ErrIOFailure or ErrUserCancelled.
*/
package fsapi
