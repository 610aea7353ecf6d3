package middleware

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/smartstudia/smartstudia/internal/infrastructure/httpserver/helpers"
)

// IdentityClaims are the claims the identity provider puts in its
// tokens. Authentication itself happens upstream; this layer only
// verifies the shared-secret signature and extracts the principal.
type IdentityClaims struct {
	Premium bool `json:"premium"`
	Admin   bool `json:"admin"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	secret []byte
	logger *logrus.Logger
}

func NewAuthMiddleware(secret string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), logger: logger}
}

// RequireAuth validates the bearer token and sets the principal context.
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := helpers.GetBearerToken(c)
			if err != nil {
				return err
			}

			claims := &IdentityClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return m.secret, nil
			})
			if err != nil || !token.Valid {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).Warn("token validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.Set(helpers.ContextKeyPrincipalID, claims.Subject)
			c.Set(helpers.ContextKeyIsAdmin, claims.Admin)
			return next(c)
		}
	}
}
