package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/metrics"
)

// RequestLogger writes one access log line per request and records the
// HTTP metrics.  Routes are labelled by their template so ids in paths do
// not explode label cardinality.
func RequestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let echo write the error response so the status is final.
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			elapsed := time.Since(start)

			metrics.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPDuration.WithLabelValues(req.Method, route).Observe(elapsed.Seconds())

			ev := logger.Info()
			if status >= 500 {
				ev = logger.Error().Err(err)
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Dur("latency", elapsed).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request")
			return nil
		}
	}
}
