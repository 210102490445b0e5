package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"media-boards/internal/blobstore"
	"media-boards/internal/events"
	"media-boards/internal/filesystem"
	"media-boards/internal/fsapi"
	"media-boards/internal/handlers"
	"media-boards/internal/logging"
	"media-boards/internal/media"
	"media-boards/internal/memory"
	"media-boards/internal/metrics"
	"media-boards/internal/middleware"
	"media-boards/internal/scanner"
	"media-boards/internal/scheduler"
	"media-boards/internal/startup"
	"media-boards/internal/store"
	"media-boards/internal/watcher"
	"media-boards/internal/workers"
	"media-boards/internal/workspace"
)

// metricsInterval is how often workspace gauges are refreshed.
const metricsInterval = 15 * time.Second

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	if config.LogFile != "" {
		logging.ConfigureFile(logging.FileConfig{
			Path:       config.LogFile,
			MaxSizeMB:  config.LogFileMaxSizeMB,
			MaxBackups: config.LogFileMaxBackups,
		})
		defer logging.CloseFile()
	}

	filesystem.SetVolume("database", config.DatabaseDir)

	memory.Configure(os.Getenv, memory.DefaultCgroupPath)
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	ctx := context.Background()

	// Initialize store
	storeStart := time.Now()
	st, err := store.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error("Failed to close store: %v", err)
		}
	}()
	startup.LogStoreInit(time.Since(storeStart))

	// Initialize workspace
	bc := events.NewBroadcaster()
	thumbs := media.NewThumbnailer(config.ThumbnailCacheSize)
	thumbs.SetGate(monitor)
	ws, watch := newWorkspace(config, st, bc, thumbs)

	resumed := false
	if err := ws.Resume(ctx); err == nil {
		resumed = true
	} else if !errors.Is(err, workspace.ErrNoStoredRoot) {
		logging.Warn("Failed to resume stored workspace: %v", err)
	}
	startup.LogWorkspaceInit(config, resumed)

	if !resumed && config.RootDir != "" {
		if err := ws.Connect(ctx, config.RootDir); err != nil {
			logging.Warn("Failed to connect %s: %v", config.RootDir, err)
		}
	}

	// Start metrics collector
	var collector *metrics.Collector
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		collector = metrics.NewCollector(ws, metricsInterval)
		collector.Start()
	}

	// Initialize handlers
	h := handlers.New(ws, st, bc, thumbs)
	h.SetMaxUpload(int64(config.MaxUploadMB) << 20)
	h.SetMemory(monitor)

	// Setup router
	router := setupRouter(h, config)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	// Apply logging middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	// Apply compression middleware
	compressionConfig := middleware.DefaultCompressionConfig()
	handler := middleware.Compression(compressionConfig)(loggedHandler)

	// Create server
	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // event streams and large blobs
		IdleTimeout:       60 * time.Second,
	}

	// Start graceful shutdown handler
	done := make(chan struct{})
	go handleShutdown(srv, ws, watch, collector, monitor, done)

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// newWorkspace builds the workspace and, when enabled, the watcher that
// follows its root. Cached previews are dropped whenever the root changes.
func newWorkspace(config *startup.Config, st *store.Store, bc *events.Broadcaster, thumbs *media.Thumbnailer) (*workspace.Workspace, *watcher.Watcher) {
	prompter := fsapi.Prompter(fsapi.Deny{})
	if config.AutoGrant {
		prompter = fsapi.AutoGrant{}
	}

	fsOpts := fsapi.DefaultOptions()
	fsOpts.Prompter = prompter
	fsOpts.AtomicMove = config.AtomicMove
	fsOpts.ReadOnly = config.ReadOnly()

	var watch *watcher.Watcher
	opts := workspace.Options{
		Opener:    fsapi.NewLocal(fsOpts),
		Scanner:   scanner.New(workers.ForIO(16)),
		Blobs:     blobstore.NewRegistry(),
		Scheduler: scheduler.NewIdle(config.MaterializeInterval),
		Events:    bc,
		OnRootChange: func(path string) {
			filesystem.SetVolume("root", path)
			if thumbs != nil {
				thumbs.Forget()
			}
			if watch == nil {
				return
			}
			if err := watch.SetRoot(path); err != nil {
				logging.Warn("Failed to watch %s: %v", path, err)
			}
		},
	}
	if st != nil {
		opts.Store = st
	}
	ws := workspace.New(opts)

	if config.WatchEnabled {
		watch = watcher.New(ws, config.WatchDebounce)
	}
	return ws, watch
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	if config.MetricsEnabled {
		api.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	// Workspace
	api.HandleFunc("/workspace", h.GetWorkspace).Methods("GET")
	api.HandleFunc("/workspace/connect", h.Connect).Methods("POST")
	api.HandleFunc("/workspace/resume", h.Resume).Methods("POST")
	api.HandleFunc("/workspace/stored", h.Stored).Methods("GET")
	api.HandleFunc("/workspace/refresh", h.Refresh).Methods("POST")
	api.HandleFunc("/workspace/fallback", h.Fallback).Methods("POST")
	api.HandleFunc("/workspace/scroll", h.Scroll).Methods("POST")
	api.HandleFunc("/workspace/selection", h.SelectFolder).Methods("PUT")

	// Boards and assets
	api.HandleFunc("/folders", h.CreateFolder).Methods("POST")
	api.HandleFunc("/import", h.Import).Methods("POST")
	api.HandleFunc("/assets/{id}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/move", h.MoveAsset).Methods("POST")
	api.HandleFunc("/blob/{id}", h.GetBlob).Methods("GET")
	api.HandleFunc("/thumbnail/{id}", h.GetThumbnail).Methods("GET")

	// Live notices
	api.HandleFunc("/events", h.Events).Methods("GET")

	// Static files
	if config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))
	}

	return r
}

func handleShutdown(srv *http.Server, ws *workspace.Workspace, watch *watcher.Watcher, collector *metrics.Collector, monitor *memory.Monitor, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watch != nil {
		startup.LogShutdownStep("Stopping watcher")
		watch.Stop()
		startup.LogShutdownStepComplete("Watcher stopped")
	}

	if collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	// Open event streams only end when their context does, so the server
	// has to go first.
	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping memory monitor")
	monitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Releasing workspace")
	ws.Close()
	startup.LogShutdownStepComplete("Workspace released")

	startup.LogShutdownComplete()
}
