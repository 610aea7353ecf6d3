package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/smartstudia/smartstudia/internal/core/domain/aitool"
	"github.com/smartstudia/smartstudia/internal/infrastructure/httpserver/helpers"
)

// generate runs one metered AI-tool invocation. A quota denial is a 429
// with the exhausted tier and wait time, not an error payload.
func (s *Server) generate(c echo.Context) error {
	principalID, err := helpers.GetPrincipalIDFromContext(c)
	if err != nil {
		return err
	}

	var req aitool.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.aiTools.Generate(c.Request().Context(), principalID, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "la generación no está disponible en este momento")
	}

	if result.Denied != nil {
		quotaDenialsTotal.WithLabelValues(string(result.Denied.Tier)).Inc()
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(result.Denied.ResetIn.Seconds())))
		return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"message":          result.Denied.Reason,
			"limit_type":       result.Denied.Tier,
			"reset_in_seconds": int(result.Denied.ResetIn.Seconds()),
		})
	}

	return c.JSON(http.StatusOK, result.Generation)
}

// getHistory lists the caller's past generations, newest first.
func (s *Server) getHistory(c echo.Context) error {
	principalID, err := helpers.GetPrincipalIDFromContext(c)
	if err != nil {
		return err
	}

	limit := 20
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil {
			offset = v
		}
	}

	history, err := s.aiTools.History(c.Request().Context(), principalID, limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": history, "limit": limit, "offset": offset})
}
