package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-boards/internal/metrics"
)

func TestResponseWriterCapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if _, err := rw.Write([]byte("missing")); err != nil {
		t.Fatal(err)
	}

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusNotFound)
	}
	if rw.bytesWritten != int64(len("missing")) {
		t.Errorf("bytesWritten = %d, want %d", rw.bytesWritten, len("missing"))
	}
}

func TestShouldSkip(t *testing.T) {
	quiet := DefaultLoggingConfig()
	quiet.LogHealthChecks = false

	verbose := DefaultLoggingConfig()
	verbose.LogStaticFiles = true

	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"api call is logged", "/api/workspace", quiet, false},
		{"health skipped when disabled", "/healthz", quiet, true},
		{"health logged by default", "/healthz", DefaultLoggingConfig(), false},
		{"static asset skipped", "/static/app.JS", quiet, true},
		{"thumbnail skipped", "/api/thumbnail/a.png", quiet, true},
		{"blob skipped", "/api/blob/123", quiet, true},
		{"blob logged when static logging on", "/api/blob/123", verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldSkip(tt.path, tt.config); got != tt.want {
				t.Errorf("shouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoggerWritesW3CLine(t *testing.T) {
	var buf bytes.Buffer
	prev, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(prev)
		log.SetFlags(prevFlags)
	}()

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/folders?x=1", nil)
	req.Header.Set("User-Agent", "test agent\nforged")
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, "#Software: MediaBoards/1.0") {
		t.Errorf("missing W3C header in %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	for _, want := range []string{"10.0.0.1", "POST", "/api/folders", "x=1", " 201 2 ", `"test agent forged"`} {
		if !strings.Contains(last, want) {
			t.Errorf("log line %q missing %q", last, want)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := map[string]string{
		"plain":          "plain",
		"a\nb\rc":        "a b c",
		"esc\x1b[31mred": "esc[31mred",
		"nul\x00byte":    "nulbyte",
		"tab\tkept":      "tab\tkept",
	}
	for in, want := range tests {
		if got := sanitizeLogField(in); got != want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", in, got, want)
		}
	}
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading gzip body: %v", err)
	}
	return string(out)
}

func TestCompression(t *testing.T) {
	large := strings.Repeat(`{"name":"asset"},`, 200)

	tests := []struct {
		name        string
		contentType string
		body        string
		accept      string
		wantGzip    bool
	}{
		{"large json compressed", "application/json", large, "", true},
		{"small json passes through", "application/json", `{"ok":true}`, "", false},
		{"binary media passes through", "image/png", large, "", false},
		{"event stream passes through", "text/event-stream", large, "", false},
		{"sse request passes through", "application/json", large, "text/event-stream", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusAccepted)
				// several small writes
				for i := 0; i < len(tt.body); i += 100 {
					end := min(i+100, len(tt.body))
					_, _ = w.Write([]byte(tt.body[i:end]))
				}
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/workspace", nil)
			req.Header.Set("Accept-Encoding", "gzip, deflate")
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusAccepted {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
			}
			gzipped := rec.Header().Get("Content-Encoding") == "gzip"
			if gzipped != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gzipped, tt.wantGzip)
			}

			body := rec.Body.String()
			if gzipped {
				body = gunzip(t, rec.Body.Bytes())
			}
			if body != tt.body {
				t.Errorf("body length = %d, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionRequiresAcceptEncoding(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("compressed without Accept-Encoding")
	}
}

func TestCompressionNoBody(t *testing.T) {
	handler := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/assets/a.png", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/":                      "/",
		"/metrics":               "/metrics",
		"/static/js/app.js":      "/static/{path}",
		"/api/assets/a.png":      "/api/{path}",
		"/unknown/deeply/nested": "/unknown/{path}",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/assets/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodDelete, "/api/assets/{id}", "204")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a.png", "b.png", "c.png"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/assets/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("requests recorded under template = %v, want 3", got)
	}
}

func TestMetricsSkipPaths(t *testing.T) {
	handler := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "200")
	before := testutil.ToFloat64(counter)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := testutil.ToFloat64(counter); got != before {
		t.Errorf("health check recorded: %v -> %v", before, got)
	}
}
