package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// Authenticator resolves a raw bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (model.User, error)
}

// BearerAuth validates the Authorization header and stores the resolved
// user in the context under UserKey.  Missing, malformed, expired or
// unresolvable tokens get 401 with a WWW-Authenticate challenge.
func BearerAuth(auth Authenticator, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				return unauthorized(c, "Not authenticated")
			}

			u, err := auth.Authenticate(c.Request().Context(), strings.TrimSpace(raw))
			if err != nil {
				var derr *service.Error
				if errors.As(err, &derr) {
					return unauthorized(c, derr.Message)
				}
				logger.Error().Err(err).Msg("authenticate")
				return c.JSON(http.StatusInternalServerError, echo.Map{"detail": "internal server error"})
			}
			c.Set(UserKey, u)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"detail": detail})
}
