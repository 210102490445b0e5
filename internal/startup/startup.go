package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"media-boards/internal/logging"
	"media-boards/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Capability values accepted by CAPABILITY.
const (
	CapabilityNative   = "native"
	CapabilityReadOnly = "readonly"
)

// Config holds all application configuration
type Config struct {
	RootDir         string // optional root connected at startup
	DatabaseDir     string
	StaticDir       string
	Port            string
	MetricsEnabled  bool
	LogStaticFiles  bool
	LogHealthChecks bool

	AutoGrant  bool
	AtomicMove bool
	Capability string

	WatchEnabled        bool
	WatchDebounce       time.Duration
	MaterializeInterval time.Duration
	ThumbnailCacheSize  int
	MaxUploadMB         int

	LogFile           string
	LogFileMaxSizeMB  int
	LogFileMaxBackups int

	// Derived paths
	DatabasePath string
}

// ReadOnly reports whether the host should refuse native write access.
func (c *Config) ReadOnly() bool {
	return c.Capability == CapabilityReadOnly
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config := &Config{
		RootDir:             getEnv("ROOT_DIR", ""),
		DatabaseDir:         getEnv("DATABASE_DIR", "/database"),
		StaticDir:           getEnv("STATIC_DIR", ""),
		Port:                getEnv("PORT", "8080"),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		LogStaticFiles:      getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:     getEnvBool("LOG_HEALTH_CHECKS", true),
		AutoGrant:           getEnvBool("AUTO_GRANT", false),
		AtomicMove:          getEnvBool("ATOMIC_MOVE", true),
		Capability:          strings.ToLower(getEnv("CAPABILITY", CapabilityNative)),
		WatchEnabled:        getEnvBool("WATCH_ENABLED", false),
		WatchDebounce:       getEnvDuration("WATCH_DEBOUNCE", 2*time.Second),
		MaterializeInterval: getEnvDuration("MATERIALIZE_INTERVAL", 100*time.Millisecond),
		ThumbnailCacheSize:  getEnvInt("THUMBNAIL_CACHE_ENTRIES", 512),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 1024),
		LogFile:             getEnv("LOG_FILE", ""),
		LogFileMaxSizeMB:    getEnvInt("LOG_FILE_MAX_SIZE_MB", 50),
		LogFileMaxBackups:   getEnvInt("LOG_FILE_MAX_BACKUPS", 3),
	}

	if config.Capability != CapabilityNative && config.Capability != CapabilityReadOnly {
		return nil, fmt.Errorf("invalid CAPABILITY %q: want %s or %s", config.Capability, CapabilityNative, CapabilityReadOnly)
	}

	logging.Info("  ROOT_DIR:             %s", orNone(config.RootDir))
	logging.Info("  DATABASE_DIR:         %s", config.DatabaseDir)
	logging.Info("  STATIC_DIR:           %s", orNone(config.StaticDir))
	logging.Info("  PORT:                 %s", config.Port)
	logging.Info("  METRICS_ENABLED:      %v", config.MetricsEnabled)
	logging.Info("  CAPABILITY:           %s", config.Capability)
	logging.Info("  AUTO_GRANT:           %v", config.AutoGrant)
	logging.Info("  ATOMIC_MOVE:          %v", config.AtomicMove)
	logging.Info("  WATCH_ENABLED:        %v", config.WatchEnabled)
	logging.Info("  WATCH_DEBOUNCE:       %v", config.WatchDebounce)
	logging.Info("  MATERIALIZE_INTERVAL: %v", config.MaterializeInterval)
	logging.Info("  COUNT_WORKERS:        %d", workers.ForIO(16))
	logging.Info("  MAX_UPLOAD_MB:        %d", config.MaxUploadMB)
	logging.Info("  LOG_STATIC_FILES:     %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", config.LogHealthChecks)
	logging.Info("  LOG_FILE:             %s", orNone(config.LogFile))
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	databaseDir, err := filepath.Abs(config.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	config.DatabaseDir = databaseDir
	config.DatabasePath = filepath.Join(databaseDir, "boards.db")
	logging.Info("  Database directory (absolute): %s", databaseDir)

	if err := ensureDirectory(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if config.RootDir != "" {
		abs, err := filepath.Abs(config.RootDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root directory path: %w", err)
		}
		config.RootDir = abs
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			logging.Warn("  Root directory %s is not usable, it will not be connected at startup", abs)
		} else {
			logging.Info("  Root directory (absolute): %s", abs)
		}
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Writable root: %s", enabledString(!config.ReadOnly()))
	logging.Info("    Watcher:       %s", enabledString(config.WatchEnabled))
	logging.Info("    Metrics:       %s", enabledString(config.MetricsEnabled))
	logging.Info("    Web UI:        %s", enabledString(config.StaticDir != ""))

	return config, nil
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

// LogStoreInit logs store initialization
func LogStoreInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Store initialized in %v", duration)
}

// LogWorkspaceInit logs how the workspace will reach its root.
func LogWorkspaceInit(config *Config, resumed bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WORKSPACE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	switch {
	case config.ReadOnly():
		logging.Warn("  Host is read-only, only fallback mode is available")
	case resumed:
		logging.Info("  [OK] Resumed stored workspace")
	case config.RootDir != "":
		logging.Info("  Connecting %s", config.RootDir)
	default:
		logging.Info("  No workspace connected, waiting for a client")
	}
	if !config.AutoGrant {
		logging.Info("  Resumed roots will be denied access (set AUTO_GRANT=true to allow)")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{Method: method, Path: pathTemplate, Name: route.GetName()})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, group := range groupKeys {
			label := group
			if label == "" {
				label = "root"
			}
			logging.Debug("  [%s]", label)
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		return "api/" + strings.SplitN(parts[1], "/", 2)[0]
	}
	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://localhost:%s", config.Port)
	logging.Info("    Events:        http://localhost:%s/api/events", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://localhost:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ____                      __
   /  |/  /__  ____/ (_)___ _  / __ )____  ____ __________/ /____
  / /|_/ / _ \/ __  / / __ '/ / __  / __ \/ __ '/ ___/ __  / ___/
 / /  / /  __/ /_/ / / /_/ / / /_/ / /_/ / /_/ / /  / /_/ (__  )
/_/  /_/\___/\__,_/_/\__,_/ /_____/\____/\__,_/_/   \__,_/____/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
