// Package watcher rescans the workspace when files in the root change
// outside the application.
//
// Only the root directory itself is watched. Board contents are not part of
// the grid, so changes inside boards are ignored. Bursts of events are
// debounced into a single rescan.
package watcher
