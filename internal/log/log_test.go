package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Component: ComponentAsset, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	logger.Info("hello", FieldCategoryID, "cash")
	out := buf.String()
	if !strings.Contains(out, "component=asset") || !strings.Contains(out, "category_id=cash") {
		t.Errorf("unexpected output %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Warn("switched")
	out = buf.String()
	if !strings.Contains(out, "component=worker") || strings.Contains(out, "component=asset") {
		t.Errorf("component not replaced: %q", out)
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("default component = %q", got.Component())
	}

	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)
	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("FromContext should return the stored logger")
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	handler := Middleware(logger)(RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Request-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("request id missing from %q", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, slog.LevelInfo))
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/totals?date=2024-01-01", nil)

	sl.LogHTTPEnd(ctx, req, http.StatusNotFound, 3, "10.0.0.1")
	out := buf.String()
	for _, want := range []string{"level=WARN", "component=http", "status_code=404", "success=false", "client_ip=10.0.0.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}

	buf.Reset()
	sl.LogHTTPEnd(ctx, req, http.StatusInternalServerError, 3, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("5xx should log at error: %q", buf.String())
	}

	buf.Reset()
	sl.LogSnapshotSaved(ctx, "2024-01-01", "cash", 100)
	if !strings.Contains(buf.String(), "amount=100") {
		t.Errorf("snapshot fields missing: %q", buf.String())
	}

	buf.Reset()
	sl.LogError(ctx, "restore failed", errors.New("boom"), ComponentBackup, OpRestore, nil)
	out = buf.String()
	if !strings.Contains(out, "error=boom") || !strings.Contains(out, "operation=restore") {
		t.Errorf("error fields missing: %q", out)
	}
}
