// Package store persists the connected root across restarts in a small
// SQLite key-value table.
package store
