package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck probes every registered dependency. Any failing probe
// degrades the overall status; detail per dependency goes in the body so
// an operator can tell a Redis outage from a database one.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Service:      "smartstudia",
		Dependencies: make(map[string]string),
	}
	for _, checker := range s.healthCheckers {
		if checker == nil {
			continue
		}
		if err := checker.Check(ctx); err != nil {
			resp.Dependencies[checker.Name()] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Dependencies[checker.Name()] = "healthy"
		}
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
