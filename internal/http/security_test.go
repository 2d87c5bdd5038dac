package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "203.0.113.7:5000", nil, "203.0.113.7"},
		{"untrusted proxy headers ignored", "203.0.113.7:5000", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "203.0.113.7"},
		{"trusted proxy forwarded for", "10.0.0.2:5000", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.9"}, "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"trusted proxy bad header", "192.168.1.1:5000", map[string]string{"X-Forwarded-For": "not-an-ip"}, "192.168.1.1"},
		{"no port", "203.0.113.8", nil, "203.0.113.8"},
		{"ipv6 loopback proxy", "[::1]:5000", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, extractClientIP(r))
		})
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   string
	}{
		{"plain api call", http.MethodGet, "/api/v1/totals?date=2024-03-15", "curl/8.0", ""},
		{"dotenv probe", http.MethodGet, "/.env", "", "path:.env"},
		{"traversal in query", http.MethodGet, "/api/v1/snapshots?date=../../etc/passwd", "", "query:../"},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", "agent:sqlmap"},
		{"trace method", "TRACE", "/", "", "method:TRACE"},
		{"very long url", http.MethodGet, "/api/v1/series?categoryId=" + strings.Repeat("a", 2100), "", "url-length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			metrics := &securityMetrics{}
			reason, ok := detectSuspiciousRequest(r, metrics)
			assert.Equal(t, tt.want, reason)
			assert.Equal(t, tt.want != "", ok)
			if ok {
				assert.Equal(t, int64(1), metrics.snapshot().SuspiciousRequests)
			}
		})
	}
}

func TestSuspiciousRequestsAreServed(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz?q=../secret", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), ts.srv.SecurityStats().SuspiciousRequests)
}
