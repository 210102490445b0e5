package memory

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"media-boards/internal/logging"
	"media-boards/internal/metrics"
)

// Config holds memory monitor configuration
type Config struct {
	// LimitBytes is the limit usage is measured against (0 = use GOMEMLIMIT)
	LimitBytes int64

	// HighWaterMark is the usage ratio at which rendering pauses (0.0-1.0)
	HighWaterMark float64

	// LowWaterMark is the usage ratio below which rendering resumes (0.0-1.0)
	LowWaterMark float64

	// CheckInterval is how often to sample the heap
	CheckInterval time.Duration
}

// DefaultConfig returns sensible defaults for memory management
func DefaultConfig() Config {
	return Config{
		HighWaterMark: 0.85,
		LowWaterMark:  0.7,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and reports pressure.
type Monitor struct {
	config   Config
	limit    int64
	readHeap func() uint64
	stopOnce sync.Once
	stopChan chan struct{}

	mu       sync.RWMutex
	current  uint64
	pressure bool
}

// NewMonitor creates a monitor. Without a limit it never reports pressure.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
		}
	}
	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, preview throttling disabled")
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		readHeap: heapAlloc,
		stopChan: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins sampling. It does nothing when there is no limit.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) loop() {
	m.check()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

// check samples the heap once and updates the pressure state with
// hysteresis between the two water marks.
func (m *Monitor) check() {
	current := m.readHeap()
	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	m.current = current
	was := m.pressure
	switch {
	case usage >= m.config.HighWaterMark:
		m.pressure = true
	case usage < m.config.LowWaterMark:
		m.pressure = false
	}
	now := m.pressure
	m.mu.Unlock()

	if now == was {
		return
	}
	if now {
		logging.Warn("Memory high (%.1f%% of limit), pausing preview rendering", usage*100)
		metrics.MemoryPressure.Set(1)
		metrics.MemoryPressureEvents.Inc()
		go runtime.GC()
	} else {
		logging.Info("Memory recovered (%.1f%% of limit), resuming preview rendering", usage*100)
		metrics.MemoryPressure.Set(0)
	}
}

// Allow reports whether new memory-heavy work may start.
func (m *Monitor) Allow() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.pressure
}

// Usage returns the last sampled heap size as a fraction of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Limit returns the limit usage is measured against.
func (m *Monitor) Limit() int64 {
	return m.limit
}
