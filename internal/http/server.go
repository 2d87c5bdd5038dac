package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"assetinsight/internal/core"
	applog "assetinsight/internal/log"
	"assetinsight/internal/services"
)

const maxBodySize = "10M"

// Options tunes the server. Zero values fall back to defaults.
type Options struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	Logger             *applog.Logger
}

// Server is the JSON API.
type Server struct {
	addr      string
	echo      *echo.Echo
	assets    *services.AssetService
	dashboard *services.DashboardService
	logger    *applog.Logger
	limiter   *rateLimiter
	metrics   *securityMetrics
	today     func() core.Date

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a server ready to Start.
func NewServer(addr string, assets *services.AssetService, dashboard *services.DashboardService, opts Options) *Server {
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = 120
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		addr:      addr,
		echo:      echo.New(),
		assets:    assets,
		dashboard: dashboard,
		logger:    logger,
		limiter:   newRateLimiter(opts.RateLimitPerMinute, opts.RateLimitBurst),
		metrics:   &securityMetrics{},
		today:     core.Today,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: generateRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Request().Header.Set(echo.HeaderXRequestID, id)
		},
	}))
	e.Use(echo.WrapMiddleware(applog.Middleware(logger)))
	e.Use(echo.WrapMiddleware(applog.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get(echo.HeaderXRequestID)
	})))
	e.Use(s.requestLogger())
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	e.Use(echomiddleware.BodyLimit(maxBodySize))
	e.Use(s.suspiciousRequestMiddleware())

	e.GET("/healthz", handleHealth)
	s.registerRoutes(e.Group("/api/v1", s.rateLimitMiddleware()))

	return s
}

func (s *Server) registerRoutes(api *echo.Group) {
	api.GET("/health", handleHealth)

	api.GET("/snapshots", s.handleListSnapshots)
	api.POST("/snapshots", s.handleCreateSnapshot)
	api.POST("/snapshots/batch", s.handleCreateSnapshots)
	api.DELETE("/snapshots/:date/:categoryId", s.handleDeleteSnapshot)

	api.GET("/categories", s.handleListCategories)
	api.POST("/categories", s.handleCreateCategory)
	api.PUT("/categories/order", s.handleReorderCategories)
	api.GET("/categories/:id", s.handleGetCategory)
	api.PUT("/categories/:id", s.handleUpdateCategory)
	api.DELETE("/categories/:id", s.handleDeleteCategory)
	api.GET("/categories/:id/detail", s.handleCategoryDetail)

	api.GET("/valuations/:categoryId", s.handleValuation)
	api.GET("/totals", s.handleTotals)
	api.GET("/insights", s.handleInsights)
	api.GET("/series", s.handleSeries)
	api.GET("/dashboard", s.handleDashboard)

	api.GET("/backup", s.handleExportBackup)
	api.POST("/backup", s.handleRestoreBackup)
	api.GET("/backup/xlsx", s.handleExportWorkbook)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.startOnce.Do(func() {
		go s.limiter.startCleanup()
	})
	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.echo.Shutdown(ctx)

		stats := s.SecurityStats()
		s.logger.Info("HTTP server stopped",
			"rate_limit_hits", stats.RateLimitHits,
			"suspicious_requests", stats.SuspiciousRequests)
	})
	return shutdownErr
}

// SecurityStats reports the security counters collected so far.
func (s *Server) SecurityStats() SecurityStats {
	return s.metrics.snapshot()
}

// requestLogger logs every completed request with its status and latency.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			r := c.Request()
			applog.NewStructuredLogger(applog.FromContext(r.Context())).
				LogHTTPEnd(r.Context(), r, c.Response().Status, time.Since(start).Milliseconds(), extractClientIP(r))
			return nil
		}
	}
}

func handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
