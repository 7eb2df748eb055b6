// Package admin serves the debug listener: liveness, proxy status,
// Prometheus metrics and pprof.
package admin

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/die-net/blockproxy/internal/metrics"
)

// requestsPerSecond bounds admin requests per client IP.
const requestsPerSecond = 20

// Status describes the running proxy for the /status endpoint. Upstream
// must already have any credentials redacted.
type Status struct {
	Listen    string   `json:"listen"`
	Upstream  string   `json:"upstream"`
	Blocklist []string `json:"blocklist"`
}

// Handler serves the admin endpoints.
type Handler struct {
	status Status
}

// NewHandler returns a Handler reporting status.
func NewHandler(status Status) *Handler {
	return &Handler{status: status}
}

// Healthz returns a simple OK response for liveness probes.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports the listen address, upstream and blocklist in match order.
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status)
}

// New returns an Echo instance with every admin route registered. Requests
// are rate limited per client IP and logged at debug level.
func New(h *Handler, m *metrics.Metrics, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadHeaderTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	e.Use(echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(requestsPerSecond))))

	e.GET("/healthz", h.Healthz)
	e.GET("/status", h.Status)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	e.Any("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			res := c.Response()
			logger.Debug("admin request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", c.RealIP(),
			)
			return err
		}
	}
}
