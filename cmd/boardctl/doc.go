// Command boardctl manages a media boards directory from the shell.
//
// It drives the same workspace as the server: scan lists the pool and the
// boards, import copies files into the root under generated names, mv puts an
// asset on a board, rm deletes one, mkdir creates a board and resume reopens
// the root stored by the last session.
//
// Naming a directory with --root grants access to it. A resumed root asks
// again on the terminal; when stdin is not a terminal, --yes grants access
// and anything else denies it.
//
// Usage:
//
//	boardctl --root ~/refs scan
//	boardctl --root ~/refs import shot.png clip.mp4
//	boardctl --root ~/refs mv shot.png Moodboard
//	boardctl resume
package main
