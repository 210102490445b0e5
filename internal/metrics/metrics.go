package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_boards_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_store_queries_total",
			Help: "Total number of key-value store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_boards_store_query_duration_seconds",
			Help:    "Key-value store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_scan_runs_total",
			Help: "Total number of root directory scans by outcome",
		},
		[]string{"status"}, // "success", "denied", "cancelled", "error"
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_boards_scan_duration_seconds",
			Help:    "Root directory scan duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ScanEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_scan_entries_total",
			Help: "Directory entries seen during scans by outcome",
		},
		[]string{"outcome"}, // "image", "video", "folder", "skipped"
	)

	FolderCountErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_folder_count_errors_total",
			Help: "Folder file counts that failed and were left at zero",
		},
	)

	ScanIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_scan_running",
			Help: "Whether a scan is currently running (1 = running, 0 = idle)",
		},
	)
)

// Materializer metrics
var (
	MaterializeTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_materialize_ticks_total",
			Help: "Materializer ticks by result",
		},
		[]string{"result"}, // "batch", "skipped", "busy"
	)

	MaterializedAssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_materialized_assets_total",
			Help: "Assets materialized by status",
		},
		[]string{"status"}, // "success", "error", "discarded"
	)

	MaterializeBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_boards_materialize_batch_size",
			Help:    "Number of assets processed per materializer tick",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	BlobRefsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_blob_refs_live",
			Help: "Number of live materialized blob references",
		},
	)
)

// Workspace metrics
var (
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_mutations_total",
			Help: "Mutation operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	MutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_boards_mutation_duration_seconds",
			Help:    "Mutation operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	MoveStrategyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_move_strategy_total",
			Help: "Moves by strategy used",
		},
		[]string{"strategy"}, // "rename", "copy"
	)

	NoticesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_notices_total",
			Help: "Transient notices emitted by kind",
		},
		[]string{"kind"},
	)

	WorkspaceAssets = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_boards_workspace_assets",
			Help: "Assets in the workspace by state",
		},
		[]string{"state"}, // "materialized", "pending"
	)

	WorkspaceFolders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_workspace_folders",
			Help: "Number of boards discovered in the root",
		},
	)

	WorkspaceWindow = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_workspace_window",
			Help: "Current visible window size",
		},
	)

	WorkspaceFallback = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_workspace_fallback",
			Help: "Whether the workspace runs in read-only fallback mode",
		},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_event_subscribers",
			Help: "Number of connected event stream subscribers",
		},
	)
)

// Streaming metrics
var (
	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_stream_bytes_total",
			Help: "Bytes written to streamed responses",
		},
		[]string{"stream"},
	)

	StreamTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_stream_timeouts_total",
			Help: "Streamed responses dropped because the client stalled or the stream ran too long",
		},
		[]string{"stream"},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_watcher_events_total",
			Help: "Filesystem watcher events by type",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_watcher_errors_total",
			Help: "Filesystem watcher errors",
		},
	)

	WatcherRescansTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_watcher_rescans_total",
			Help: "Rescans triggered by external changes",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_boards_memory_pressure",
			Help: "Whether preview rendering is paused for memory (1 = paused, 0 = normal)",
		},
	)

	MemoryPressureEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_memory_pressure_events_total",
			Help: "Times memory usage crossed the high water mark",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_boards_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_thumbnail_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_boards_thumbnail_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_filesystem_retry_attempts_total",
			Help: "Total retry attempts after NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_boards_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_boards_filesystem_retry_duration_seconds",
			Help:    "Total duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// AppInfo exposes build information as labels.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_boards_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)
