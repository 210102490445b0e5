// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - ROOT_DIR: Directory connected at startup when no stored root resumes (default: none)
//   - DATABASE_DIR: Directory holding boards.db (default: /database)
//   - STATIC_DIR: Web UI served at / when set (default: none)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_ENABLED: Expose /metrics (default: true)
//   - CAPABILITY: native or readonly; readonly forces fallback mode (default: native)
//   - AUTO_GRANT: Grant permission requests without asking (default: false)
//   - ATOMIC_MOVE: Move files by rename when possible (default: true)
//   - WATCH_ENABLED: Rescan on external changes to the root (default: false)
//   - WATCH_DEBOUNCE: Quiet period before that rescan (default: 2s)
//   - MATERIALIZE_INTERVAL: Idle delay between materializer ticks (default: 100ms)
//   - THUMBNAIL_CACHE_ENTRIES: Preview cache size (default: 512)
//   - COUNT_WORKERS: Concurrency for board counting (default: derived from CPUs)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FILE, LOG_FILE_MAX_SIZE_MB, LOG_FILE_MAX_BACKUPS: rotated log file copy
//   - LOG_STATIC_FILES: Log static, blob and preview requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
