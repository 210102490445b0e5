// Package main provides the entry point for the Media Boards server.
//
// Media Boards is a self-hosted asset manager for a single local directory.
// Images and videos at the top level of the directory make up the asset
// pool; each immediate subdirectory is a board. Assets can be imported,
// moved onto boards and deleted, and the pool is materialized lazily in
// small idle-time batches as the client scrolls.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories,
//     sets GOMEMLIMIT from the container limit
//  2. Store Initialization: Opens the SQLite key-value store holding the last root
//  3. Workspace Initialization: Resumes the stored root, or connects ROOT_DIR
//  4. Background Services:
//     - Materializer: Turns pending assets into servable references on idle ticks
//     - Watcher: Rescans the root after external changes (if enabled)
//     - Metrics Collector: Refreshes workspace gauges
//     - Memory Monitor: Pauses preview rendering under memory pressure
//  5. HTTP Server Setup: Configures routes, middleware, and starts server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Permissions
//
// Browsers ask the user before a page may read or write a directory. Picking
// a directory answers that question, so a connect request (and ROOT_DIR)
// opens the root with read-write access. A resumed root has to ask again and
// the server has no one to ask, so AUTO_GRANT decides: when false those
// requests are denied. CAPABILITY=readonly makes the host refuse write access outright,
// which leaves only the read-only fallback mode where clients upload files
// for viewing.
//
// # Environment Variables
//
//   - ROOT_DIR: Directory connected at startup when nothing is stored
//   - DATABASE_DIR: Directory for the SQLite store (default: /database)
//   - STATIC_DIR: Directory served at / (optional)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_ENABLED: Expose /metrics (default: true)
//   - AUTO_GRANT: Grant directory permission requests (default: false)
//   - ATOMIC_MOVE: Move with rename instead of copy and delete (default: true)
//   - CAPABILITY: native or readonly (default: native)
//   - WATCH_ENABLED: Rescan on external changes (default: false)
//   - WATCH_DEBOUNCE: Quiet period before a rescan (default: 2s)
//   - MATERIALIZE_INTERVAL: Delay between materializer ticks (default: 100ms)
//   - THUMBNAIL_CACHE_ENTRIES: Previews kept in memory (default: 512)
//   - LOG_LEVEL: Logging level (debug/info/warn/error)
//   - LOG_FILE: Also write logs to this rotated file (optional)
//   - MEMORY_LIMIT: Container memory limit in bytes (default: cgroup memory.max)
//   - MEMORY_RATIO: Share of the limit given to the Go heap (default: 0.85)
//
// # Graceful Shutdown
//
//  1. Stop the watcher
//  2. Stop metrics collector
//  3. Shutdown HTTP server (30s timeout)
//  4. Stop the memory monitor
//  5. Revoke every materialized reference
//  6. Close the store
//
// # Related Packages
//
//   - [media-boards/internal/workspace]: The workspace model
//   - [media-boards/internal/handlers]: HTTP request handlers
//   - [media-boards/internal/fsapi]: Directory handles and permissions
//   - [media-boards/internal/middleware]: HTTP middleware (logging, metrics, compression)
//   - [media-boards/internal/startup]: Configuration and initialization
package main
