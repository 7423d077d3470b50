package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/service"
)

// statusFor maps a domain error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusUnprocessableEntity
	case service.KindConflict:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"detail": ...}.  Anything that is not a
// domain error is logged and hidden behind a generic 500.
func respondError(c echo.Context, logger zerolog.Logger, err error) error {
	status := statusFor(service.KindOf(err))
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
		return c.JSON(status, echo.Map{"detail": "internal server error"})
	}
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	return c.JSON(status, echo.Map{"detail": err.Error()})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": "invalid request body"})
}

// HTTPErrorHandler renders errors that escape handlers, such as unknown
// routes or wrong methods, in the same {"detail": ...} shape.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		he, ok := err.(*echo.HTTPError)
		if !ok {
			_ = respondError(c, logger, err)
			return
		}
		detail := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			detail = s
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(he.Code)
			return
		}
		_ = c.JSON(he.Code, echo.Map{"detail": detail})
	}
}
