package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartstudia/smartstudia/internal/infrastructure/httpserver/helpers"
)

// getUsage returns the remaining quota and the active policy for the
// usage bar. Read-only: it never rolls windows or counts anything.
func (s *Server) getUsage(c echo.Context) error {
	principalID, err := helpers.GetPrincipalIDFromContext(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	policy, err := s.rateLimiter.PolicyFor(ctx, principalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	quota, err := s.rateLimiter.RemainingQuota(ctx, principalID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set("X-RateLimit-Limit-Minute", fmt.Sprintf("%d", policy.MinuteLimit))
	c.Response().Header().Set("X-RateLimit-Limit-Hour", fmt.Sprintf("%d", policy.HourLimit))
	c.Response().Header().Set("X-RateLimit-Remaining-Minute", fmt.Sprintf("%d", quota.RemainingMinute))
	c.Response().Header().Set("X-RateLimit-Remaining-Hour", fmt.Sprintf("%d", quota.RemainingHour))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"policy":            policy,
		"remaining_minute":  quota.RemainingMinute,
		"remaining_hour":    quota.RemainingHour,
		"next_reset_minute": quota.NextResetMinute.UTC().Format(time.RFC3339),
		"next_reset_hour":   quota.NextResetHour.UTC().Format(time.RFC3339),
	})
}

// resetUsage zeroes a principal's counters. Administrative only.
func (s *Server) resetUsage(c echo.Context) error {
	if !helpers.IsAdminFromContext(c) {
		return echo.NewHTTPError(http.StatusForbidden, "admin privileges required")
	}

	var req struct {
		PrincipalID string `json:"principal_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PrincipalID == "" {
		// Default to resetting the caller's own counters.
		principalID, err := helpers.GetPrincipalIDFromContext(c)
		if err != nil {
			return err
		}
		req.PrincipalID = principalID
	}

	if err := s.rateLimiter.Reset(c.Request().Context(), req.PrincipalID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
