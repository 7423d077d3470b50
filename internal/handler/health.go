package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Root identifies the API.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Event Booking System API"})
}

// Health is the liveness probe for load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
