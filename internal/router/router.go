// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// Deps is everything the routes need.  Redis may be nil, which turns the
// rate limiter and the response cache into pass-throughs.
type Deps struct {
	Auth      *service.AuthService
	Booking   *service.BookingService
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Logger    zerolog.Logger
}

// New returns an echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(d.Logger)

	e.Use(
		echomw.RequestID(),
		middleware.RequestLogger(d.Logger),
		echomw.Recover(),
		echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: []string{"*"}}),
	)

	RegisterRoutes(e)
	RegisterAuth(e, handler.NewAuthHandler(d.Auth, d.Logger),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	RegisterEvents(e, handler.NewEventHandler(d.Booking, d.Logger), d)
	return e
}

// RegisterRoutes registers the unauthenticated service endpoints.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers signup and login behind the rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	e.POST("/signup", a.Signup, limit)
	e.POST("/login", a.Login, limit)
}

// RegisterEvents registers the event routes.  Listing is public and
// cached; writes are role gated and purge the cache on success.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, d Deps) {
	auth := middleware.BearerAuth(d.Auth, d.Logger)
	purge := middleware.InvalidateCache(d.Cache, d.Redis, d.Logger)

	e.GET("/events", h.List, middleware.NewRedisCache(d.Cache, d.Redis, d.Logger))
	e.POST("/events", h.Create, auth, middleware.RequireRole(d.Auth, model.RoleManager), purge)
	e.POST("/register", h.Register, auth, middleware.RequireRole(d.Auth, model.RoleCustomer), purge)
}
