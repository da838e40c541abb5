// Package server exposes the switchboard HTTP surface: the multipart
// submission endpoint, standalone field validators, referral lookup, health,
// and metrics. Pipeline outcomes always answer HTTP 200; transport-level
// errors (unknown route, wrong method) answer with a bare {"ok":false}.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/config"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/dedupe"
)

// Server is the switchboard HTTP server.
type Server struct {
	echo      *echo.Echo
	cfg       config.ServerConfig
	pipeline  *Pipeline
	extractor Extractor
	uploader  Uploader
	cache     *dedupe.Cache
	logger    *zap.Logger
}

// New builds the server with routes and middleware wired.
func New(cfg config.ServerConfig, pipeline *Pipeline, extractor Extractor, uploader Uploader,
	cache *dedupe.Cache, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		pipeline:  pipeline,
		extractor: extractor,
		uploader:  uploader,
		cache:     cache,
		logger:    logger.Named("http"),
	}

	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: cfg.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			// The submission handler applies its own switchboardTimeout
			// deadline; everything else is fast.
			return c.Path() == "/switchboard"
		},
	}))
	e.Use(s.requestLogger)

	e.POST("/switchboard", s.handleSwitchboard)
	e.POST("/parse-report", s.handleParseReport)
	e.POST("/validate-name", s.handleValidateName)
	e.POST("/validate-email", s.handleValidateEmail)
	e.POST("/validate-phone", s.handleValidatePhone)
	e.GET("/referral-lookup", s.handleReferralLookup)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("http server starting", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree; tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// errorHandler keeps transport errors on-contract: unknown routes and wrong
// methods answer their natural status with a bare {"ok":false} body.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}
	_ = c.JSON(status, map[string]bool{"ok": false})
}

// requestLogger logs one line per request and feeds the request counter.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		status := c.Response().Status
		route := c.Path()
		if route == "" {
			route = c.Request().URL.Path
		}
		requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Info("request",
			zap.String("method", c.Request().Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return nil
	}
}
