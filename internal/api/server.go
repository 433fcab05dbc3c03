// Package api exposes the notification engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout = 10 * time.Second
	bodyLimit       = "1M"
)

// Engine is the part of *notify.Engine the HTTP surface drives.
type Engine interface {
	TriggerEvent(ctx context.Context, ev notify.Event) (notify.TriggerResult, error)
	TriggerApprovalNotification(ctx context.Context, n notify.ApprovalNotice) (notify.TriggerResult, error)
	PurgeOldNotifications(ctx context.Context, olderThanDays int) (notify.PurgeResult, error)
}

// ScanRunner runs a named scan once.
type ScanRunner interface {
	Run(ctx context.Context, name string) (any, error)
}

// Options configure a Server.
type Options struct {
	// RequestsPerSecond limits each client IP. Zero disables rate limiting.
	RequestsPerSecond float64
	// Gatherer backs GET /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// HealthCheck is called by GET /healthz. Nil always reports healthy.
	HealthCheck func(ctx context.Context) error
}

// Server owns the echo instance and its routes.
type Server struct {
	echo       *echo.Echo
	controller *Controller
	opts       Options
	log        logger.Logger
}

// NewServer builds the router.
func NewServer(engine Engine, scans ScanRunner, opts Options, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		controller: &Controller{engine: engine, scans: scans, log: log.Module("api")},
		opts:       opts,
		log:        log.Module("api"),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(s.requestLogger())

	s.registerHealthRoutes()
	s.registerAPIRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		if s.opts.HealthCheck != nil {
			if err := s.opts.HealthCheck(c.Request().Context()); err != nil {
				s.log.Warn("health check failed", logger.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := s.opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

func (s *Server) registerAPIRoutes() {
	var mw []echo.MiddlewareFunc
	if s.opts.RequestsPerSecond > 0 {
		mw = append(mw, rateLimiter(s.opts.RequestsPerSecond))
	}
	g := s.echo.Group("/api/v1", mw...)

	c := s.controller
	g.POST("/events", c.TriggerEvent)
	g.POST("/approvals", c.TriggerApproval)
	g.POST("/scans/:scan", c.RunScan)
	g.POST("/retention/purge", c.Purge)
	g.GET("/schema", c.GetSchema)
}

func rateLimiter(rps float64) echo.MiddlewareFunc {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(rps),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Unable to identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests, please slow down"})
		},
	})
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			s.log.Debug("http request",
				logger.String("method", c.Request().Method),
				logger.String("path", c.Path()),
				logger.Int("status", c.Response().Status),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		}
	}
}
