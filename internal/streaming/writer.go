package streaming

import (
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"media-boards/internal/logging"
	"media-boards/internal/metrics"
)

// ErrMaxDuration is returned by Write once the response has run longer than
// Config.MaxDuration.
var ErrMaxDuration = errors.New("stream exceeded maximum duration")

// Config configures the writer.
type Config struct {
	// WriteTimeout bounds each individual write (0 = no deadline)
	WriteTimeout time.Duration
	// MaxDuration bounds the whole response (0 = unlimited)
	MaxDuration time.Duration
	// Label names the stream in metrics
	Label string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		Label:        "blob",
	}
}

// Writer is an http.ResponseWriter with per-write deadlines.
type Writer struct {
	http.ResponseWriter
	rc     *http.ResponseController
	config Config
	start  time.Time

	mu           sync.Mutex
	bytesWritten int64
	deadlines    bool // false once the connection refused a deadline
	closed       bool
}

// Wrap returns a writer around w.
func Wrap(w http.ResponseWriter, config Config) *Writer {
	if config.Label == "" {
		config.Label = "stream"
	}
	return &Writer{
		ResponseWriter: w,
		rc:             http.NewResponseController(w),
		config:         config,
		start:          time.Now(),
		deadlines:      config.WriteTimeout > 0,
	}
}

// extend pushes the write deadline past the next write.
func (sw *Writer) extend() {
	sw.mu.Lock()
	enabled := sw.deadlines
	sw.mu.Unlock()
	if !enabled {
		return
	}

	if err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout)); err != nil {
		if !errors.Is(err, http.ErrNotSupported) {
			logging.Debug("Failed to set write deadline: %v", err)
		}
		sw.mu.Lock()
		sw.deadlines = false
		sw.mu.Unlock()
	}
}

func (sw *Writer) Write(p []byte) (int, error) {
	if sw.config.MaxDuration > 0 && time.Since(sw.start) > sw.config.MaxDuration {
		metrics.StreamTimeouts.WithLabelValues(sw.config.Label).Inc()
		return 0, ErrMaxDuration
	}

	sw.extend()
	n, err := sw.ResponseWriter.Write(p)

	sw.mu.Lock()
	sw.bytesWritten += int64(n)
	sw.mu.Unlock()
	metrics.StreamBytesTotal.WithLabelValues(sw.config.Label).Add(float64(n))

	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		metrics.StreamTimeouts.WithLabelValues(sw.config.Label).Inc()
		logging.Warn("Stream %s stalled after %d bytes, dropping client", sw.config.Label, sw.BytesWritten())
	}
	return n, err
}

// Flush implements http.Flusher.
func (sw *Writer) Flush() {
	sw.extend()
	if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("Failed to flush %s stream: %v", sw.config.Label, err)
	}
}

// Unwrap lets http.ResponseController reach the connection.
func (sw *Writer) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// BytesWritten reports the bytes written so far.
func (sw *Writer) BytesWritten() int64 {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.bytesWritten
}

// Close clears the write deadline. Safe to call more than once.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	if sw.closed {
		sw.mu.Unlock()
		return nil
	}
	sw.closed = true
	enabled := sw.deadlines
	sw.mu.Unlock()

	logging.Debug("Stream %s completed: %d bytes in %v", sw.config.Label, sw.BytesWritten(), time.Since(sw.start).Round(time.Millisecond))

	if !enabled {
		return nil
	}
	if err := sw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
