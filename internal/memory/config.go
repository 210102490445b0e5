package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"media-boards/internal/logging"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go heap.
	DefaultMemoryRatio = 0.85

	// DefaultCgroupPath is where cgroup v2 exposes the container limit.
	DefaultCgroupPath = "/sys/fs/cgroup/memory.max"
)

// Source values reported in Result.
const (
	SourceGoMemLimit  = "GOMEMLIMIT"
	SourceEnv         = "MEMORY_LIMIT"
	SourceCgroup      = "cgroup"
	SourceUnavailable = "none"
)

// Result describes what Configure did.
type Result struct {
	Configured     bool
	Source         string
	ContainerLimit int64 // bytes, 0 when unknown
	GoMemLimit     int64 // bytes, 0 when not set
	Ratio          float64
}

// Configure sets GOMEMLIMIT from the container limit. Call it early in main,
// before significant allocations. getenv is usually os.Getenv.
func Configure(getenv func(string) string, cgroupPath string) Result {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := Result{Source: SourceGoMemLimit}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	limit, source := containerLimit(getenv, cgroupPath)
	if limit <= 0 {
		logging.Debug("No container memory limit found, GOMEMLIMIT not configured")
		return Result{Source: SourceUnavailable}
	}

	ratio := parseRatio(getenv("MEMORY_RATIO"))
	goMemLimit := int64(float64(limit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s limit from %s)",
		formatBytes(goMemLimit), ratio*100, formatBytes(limit), source)

	return Result{
		Configured:     true,
		Source:         source,
		ContainerLimit: limit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

// containerLimit reads MEMORY_LIMIT, then the cgroup file. A cgroup value of
// "max" means unlimited.
func containerLimit(getenv func(string) string, cgroupPath string) (int64, string) {
	if v := getenv("MEMORY_LIMIT"); v != "" {
		limit, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || limit <= 0 {
			logging.Warn("Ignoring invalid MEMORY_LIMIT %q", v)
		} else {
			return limit, SourceEnv
		}
	}

	if cgroupPath == "" {
		return 0, SourceUnavailable
	}
	data, err := os.ReadFile(cgroupPath)
	if err != nil {
		return 0, SourceUnavailable
	}
	v := strings.TrimSpace(string(data))
	if v == "max" {
		return 0, SourceUnavailable
	}
	limit, err := strconv.ParseInt(v, 10, 64)
	if err != nil || limit <= 0 {
		logging.Warn("Ignoring unreadable cgroup memory limit %q", v)
		return 0, SourceUnavailable
	}
	return limit, SourceCgroup
}

func parseRatio(v string) float64 {
	if v == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(v, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0], using default %.2f", v, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
