package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/service"
)

// EventHandler serves event listing, creation and registration.
type EventHandler struct {
	Booking *service.BookingService
	Logger  zerolog.Logger
}

func NewEventHandler(b *service.BookingService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{Booking: b, Logger: logger}
}

type createEventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Datetime    string `json:"datetime"`
	Location    string `json:"location"`
	Capacity    int64  `json:"capacity"`
}

type registerReq struct {
	EventID *uint64 `json:"event_id"`
}

// datetimeLayouts are tried in order.  Values without a zone are UTC.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// List returns every event with its attendees.  Public.
func (h *EventHandler) List(c echo.Context) error {
	events, err := h.Booking.ListEvents(c.Request().Context())
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Create stores a new event.  Managers only.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	var startsAt time.Time
	if req.Datetime != "" {
		t, ok := parseDatetime(req.Datetime)
		if !ok {
			return respondError(c, h.Logger, service.Invalid("datetime: invalid datetime format"))
		}
		startsAt = t
	}
	ev, err := h.Booking.CreateEvent(c.Request().Context(), service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    startsAt,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Register signs the authenticated customer up for an event.
func (h *EventHandler) Register(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return respondError(c, h.Logger, service.ErrInvalidToken)
	}
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.EventID == nil {
		return respondError(c, h.Logger, service.Invalid("event_id: field required"))
	}
	ack, err := h.Booking.Register(c.Request().Context(), u.ID, *req.EventID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, ack)
}
