// Package handlers provides the HTTP API over a workspace.
//
// It includes handlers for:
//   - Connecting, resuming, refreshing and reading the workspace
//   - Fallback mode uploads
//   - Imports, deletes, moves and board creation
//   - Serving materialized references and previews
//   - A server-sent event stream of notices and model changes
//   - Health checks, version and Prometheus metrics
//
// Workspace errors map to HTTP statuses in one place, writeError.
package handlers
