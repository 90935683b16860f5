package middleware

import (
	"strings"

	"BinPulse/internal/domain/models"
	xhttp "BinPulse/pkg/http"

	"github.com/labstack/echo/v4"
)

const principalKey = "binpulse.principal"

// Identity reads the caller forwarded by the auth proxy. Unknown roles are
// treated as USER; the SYSTEM role cannot be claimed over HTTP.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := models.Principal{
				UserID: strings.TrimSpace(c.Request().Header.Get(xhttp.HeaderUserID)),
				Role:   models.RoleUser,
			}
			if strings.EqualFold(c.Request().Header.Get(xhttp.HeaderUserRole), string(models.RoleAdmin)) {
				p.Role = models.RoleAdmin
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// RequireUser rejects requests without a forwarded user id.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if PrincipalFrom(c).UserID == "" {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Unauthorized"))
			}
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller stored by Identity, or an anonymous user.
func PrincipalFrom(c echo.Context) models.Principal {
	if p, ok := c.Get(principalKey).(models.Principal); ok {
		return p
	}
	return models.Principal{Role: models.RoleUser}
}
