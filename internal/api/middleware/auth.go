package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/forecastingteller/auth-api/internal/infrastructure/auth"
)

// Context keys set by Auth.
const (
	CtxIdentityID = "identity_id"
	CtxEmail      = "email"
	CtxName       = "name"
	CtxRole       = "role"
	CtxTokenID    = "jti"
)

// SessionParser validates a bearer token and returns its claims.
type SessionParser interface {
	Parse(token string) (*auth.SessionClaims, error)
}

// Auth validates the session token and injects its claims into context.
func Auth(parser SessionParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := parser.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(CtxIdentityID, claims.Subject)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxName, claims.Name)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxTokenID, claims.ID)

			return next(c)
		}
	}
}
