// Package metrics provides Prometheus instrumentation for the media-boards server.
//
// All metrics are prefixed with "media_boards_" and registered on the default
// registry through promauto, so importing the package is enough to export them.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Scanner Metrics
//
//   - ScanRunsTotal: Counter of root scans by outcome
//   - ScanDuration: Histogram of scan duration
//   - ScanEntriesTotal: Counter of entries by classification outcome
//   - FolderCountErrors: Counter of folder counts that failed
//   - ScanIsRunning: Gauge set while a scan is in progress
//
// ## Materializer Metrics
//
//   - MaterializeTicksTotal: Counter of ticks by result (batch, skipped, busy)
//   - MaterializedAssetsTotal: Counter of assets by status
//   - MaterializeBatchSize: Histogram of batch sizes
//   - BlobRefsLive: Gauge of live blob references
//
// ## Workspace Metrics
//
//   - MutationsTotal and MutationDuration: import, delete, move, create_folder
//   - MoveStrategyTotal: moves by strategy (rename or copy)
//   - WorkspaceAssets, WorkspaceFolders, WorkspaceWindow, WorkspaceFallback:
//     gauges refreshed by the Collector
//
// ## Filesystem Retry Metrics
//
// Track NFS stale handle recovery in the filesystem package:
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures
//   - FilesystemStaleErrors, FilesystemRetryDuration
//
// # Usage
//
//	metrics.InitializeMetrics()
//	collector := metrics.NewCollector(ws, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
