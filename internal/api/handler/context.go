package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/forecastingteller/auth-api/internal/api/middleware"
)

// ctxIdentityID extracts the identity injected by the Auth middleware. An
// empty value means the route was mounted without Auth.
func ctxIdentityID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxIdentityID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
