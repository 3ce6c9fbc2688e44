package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health (§6): a minimal liveness check used
// by deployment discovery, not a full dependency diagnostic. The
// persistent cache (when configured) is the only external dependency
// checked, since an unreachable database means the exact-input cache
// silently degrades to always-miss rather than failing requests.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := map[string]HealthCheck{}
	status := healthStatusHealthy

	if s.dbClient != nil {
		reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := s.dbClient.DB().PingContext(reqCtx); err != nil {
			status = healthStatusUnhealthy
			checks["store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
		} else {
			checks["store"] = HealthCheck{Status: healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, &HealthResponse{Status: status, Checks: checks})
}
