package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/metrics"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventStore is the event store.  Register must apply the membership
// check, the capacity check and the insert as one atomic unit per event.
type EventStore interface {
	CreateEvent(ctx context.Context, in model.NewEvent) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id uint64) (model.Event, error)
	Register(ctx context.Context, userID, eventID uint64) (attendees int, err error)
}

// RegistrationPublisher receives a message for every committed registration.
type RegistrationPublisher interface {
	PublishRegistration(ctx context.Context, ev queue.RegistrationConfirmed) error
}

// BookingService lists and creates events and registers customers.
type BookingService struct {
	events    EventStore
	users     UserStore
	publisher RegistrationPublisher // may be nil
	validate  *validator.Validate
	logger    zerolog.Logger

	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// NewBookingService returns a BookingService.  publisher may be nil.
func NewBookingService(events EventStore, users UserStore, publisher RegistrationPublisher, logger zerolog.Logger) *BookingService {
	return &BookingService{
		events:         events,
		users:          users,
		publisher:      publisher,
		validate:       validator.New(),
		logger:         logger.With().Str("component", "booking").Logger(),
		publishTimeout: 5 * time.Second,
	}
}

// CreateEventInput is what a manager submits.  Capacity is signed so a
// negative value reaches validation instead of wrapping.
type CreateEventInput struct {
	Title       string `validate:"required"`
	Description string
	StartsAt    time.Time
	Location    string `validate:"required"`
	Capacity    int64  `validate:"gte=1,lte=4294967295"`
}

// Ack is the body returned for a successful registration.
type Ack struct {
	Message string `json:"message"`
}

// ListEvents returns every event with attendees, ordered by id.
func (s *BookingService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// CreateEvent stores a new event with no attendees.
func (s *BookingService) CreateEvent(ctx context.Context, in CreateEventInput) (model.Event, error) {
	if in.Capacity <= 0 {
		return model.Event{}, ErrCapacityNotPositive
	}
	if err := s.validate.Struct(in); err != nil {
		return model.Event{}, fromValidator(err)
	}
	if in.StartsAt.IsZero() {
		return model.Event{}, Invalid("datetime: field required")
	}
	ev, err := s.events.CreateEvent(ctx, model.NewEvent{
		Title:       in.Title,
		Description: in.Description,
		StartsAt:    in.StartsAt,
		Location:    in.Location,
		Capacity:    uint32(in.Capacity),
	})
	if err != nil {
		return model.Event{}, err
	}
	metrics.EventsCreated.Inc()
	s.logger.Info().Uint64("event_id", ev.ID).Uint32("capacity", ev.Capacity).Msg("event created")
	return ev, nil
}

// Register adds the user to the event's attendees.  Failure order:
// unknown event or user, already registered, full.
func (s *BookingService) Register(ctx context.Context, userID, eventID uint64) (Ack, error) {
	attendees, err := s.events.Register(ctx, userID, eventID)
	switch {
	case err == nil:
		metrics.Registrations.WithLabelValues("success").Inc()
	case errors.Is(err, repository.ErrEventNotFound):
		metrics.Registrations.WithLabelValues("not_found").Inc()
		return Ack{}, ErrEventNotFound
	case errors.Is(err, repository.ErrUserNotFound):
		metrics.Registrations.WithLabelValues("not_found").Inc()
		return Ack{}, ErrUserNotFound
	case errors.Is(err, repository.ErrAlreadyRegistered):
		metrics.Registrations.WithLabelValues("duplicate").Inc()
		return Ack{}, ErrAlreadyRegistered
	case errors.Is(err, repository.ErrEventFull):
		metrics.Registrations.WithLabelValues("full").Inc()
		return Ack{}, ErrEventFull
	default:
		metrics.Registrations.WithLabelValues("error").Inc()
		return Ack{}, err
	}

	s.logger.Info().Uint64("event_id", eventID).Uint64("user_id", userID).Msg("registration confirmed")
	if s.publisher != nil {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.publish(context.WithoutCancel(ctx), userID, eventID, attendees, time.Now().UTC())
		}()
	}
	return Ack{Message: "Successfully registered for event"}, nil
}

// Wait blocks until every pending registration message has been handed to
// the publisher or dropped.  Call it before closing the publisher.
func (s *BookingService) Wait() {
	s.inflight.Wait()
}

// publish is best effort: the registration has already committed.
// attendees is the count returned by that commit, not a later reload.
func (s *BookingService) publish(ctx context.Context, userID, eventID uint64, attendees int, at time.Time) {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	ev, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("event_id", eventID).Msg("publish registration: load event")
		return
	}
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Uint64("user_id", userID).Msg("publish registration: load user")
		return
	}
	msg := queue.RegistrationConfirmed{
		EventID:      ev.ID,
		EventTitle:   ev.Title,
		UserID:       u.ID,
		UserEmail:    u.Email,
		AttendeeNum:  attendees,
		Capacity:     ev.Capacity,
		RegisteredAt: at.Format(time.RFC3339),
	}
	if err := s.publisher.PublishRegistration(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Uint64("event_id", eventID).Msg("publish registration failed")
	}
}
