// Package server exposes the operational endpoints of the worker: Prometheus
// metrics and health checks.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a dependency is reachable. *pgxpool.Pool
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Params struct {
	// DB is checked by /healthz when set.
	DB Pinger
	// Ready and Version are read on every probe; both may be nil.
	Ready   func() bool
	Version func() string
}

type healthResponse struct {
	Status   string `json:"status"`
	Ontology string `json:"ontology,omitempty"`
	Error    string `json:"error,omitempty"`
}

// New creates the echo instance with /metrics, /healthz and /readyz.
func New(params Params) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	version := func() string {
		if params.Version == nil {
			return ""
		}
		return params.Version()
	}

	e.GET("/healthz", func(c echo.Context) error {
		if params.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := params.DB.Ping(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Error: err.Error()})
			}
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok", Ontology: version()})
	})

	e.GET("/readyz", func(c echo.Context) error {
		if params.Ready != nil && !params.Ready() {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ready", Ontology: version()})
	})

	return e
}

// Run serves e on addr until ctx is done.
func Run(ctx context.Context, e *echo.Echo, addr string) {
	go func() {
		logger.Info("[Server] Serving metrics", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[Server] Metrics server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Server] Failed to shutdown server", "err", err)
	}
}
