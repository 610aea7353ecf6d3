package helpers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	ContextKeyPrincipalID = "principal_id"
	ContextKeyIsAdmin     = "is_admin"
)

// GetBearerToken extracts the raw bearer token from the Authorization
// header.
func GetBearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "empty bearer token")
	}
	return token, nil
}

// GetPrincipalIDFromContext returns the authenticated principal set by
// the auth middleware.
func GetPrincipalIDFromContext(c echo.Context) (string, error) {
	id, ok := c.Get(ContextKeyPrincipalID).(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid principal context")
	}
	return id, nil
}

// IsAdminFromContext reports whether the token carried the admin claim.
func IsAdminFromContext(c echo.Context) bool {
	admin, ok := c.Get(ContextKeyIsAdmin).(bool)
	return ok && admin
}
