package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
)

// Authorizer checks a user against a required role.
type Authorizer interface {
	Authorize(u model.User, required model.Role) (model.User, error)
}

// RequireRole aborts with 403 unless the user stored by BearerAuth holds
// role.  It must run after BearerAuth.
func RequireRole(authz Authorizer, role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return unauthorized(c, "Not authenticated")
			}
			if _, err := authz.Authorize(u, role); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"detail": err.Error()})
			}
			return next(c)
		}
	}
}
