package http

import (
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	applog "assetinsight/internal/log"
)

// securityMetrics tracks security-related events.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
}

// SecurityStats is a point-in-time copy of the security counters.
type SecurityStats struct {
	RateLimitHits      int64
	SuspiciousRequests int64
}

func (m *securityMetrics) snapshot() SecurityStats {
	return SecurityStats{
		RateLimitHits:      atomic.LoadInt64(&m.rateLimitHits),
		SuspiciousRequests: atomic.LoadInt64(&m.suspiciousRequests),
	}
}

// trustedProxies are the networks allowed to set forwarding headers.
var trustedProxies = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
}

func isTrustedProxy(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// extractClientIP returns the peer address, or the forwarded client address when the peer
// is a trusted proxy.
func extractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(direct)
	if err != nil || !isTrustedProxy(addr) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if client, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return client.String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if client, err := netip.ParseAddr(xri); err == nil {
			return client.String()
		}
	}
	return direct
}

var (
	probePatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"base64", "0x", "etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb",
		"masscan", "zgrab", "scanner",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

const (
	maxURLLength   = 2048
	maxForwardHops = 5
)

// suspicionReason names the first probing pattern r matches, or "" for ordinary requests.
func suspicionReason(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(path, p) {
			return "path:" + p
		}
		if strings.Contains(query, p) {
			return "query:" + p
		}
	}

	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return "agent:" + a
		}
	}

	if slices.Contains(unusualMethods, r.Method) {
		return "method:" + r.Method
	}
	if len(r.URL.String()) > maxURLLength {
		return "url-length"
	}
	if r.Header.Get("X-Real-IP") != "" && strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxForwardHops {
		return "forward-chain"
	}
	return ""
}

// detectSuspiciousRequest reports whether r looks like probing and counts it in metrics.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) (string, bool) {
	reason := suspicionReason(r)
	if reason == "" {
		return "", false
	}
	if metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return reason, true
}

// suspiciousRequestMiddleware logs and counts probing requests. It never blocks.
func (s *Server) suspiciousRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if reason, ok := detectSuspiciousRequest(r, s.metrics); ok {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).
					Warn("Suspicious request",
						"reason", reason,
						applog.FieldClientIP, extractClientIP(r),
						applog.FieldMethod, r.Method,
						applog.FieldPath, r.URL.Path,
						applog.FieldUserAgent, r.UserAgent())
			}
			return next(c)
		}
	}
}
