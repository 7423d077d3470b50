// Package queue defines the messages exchanged over RabbitMQ and the
// publisher and consumer for them.
package queue

// RegistrationQueue is the durable queue carrying confirmed registrations.
const RegistrationQueue = "registration.confirmed"

// RegistrationConfirmed is published after a customer's registration for an
// event commits.  It carries enough for the audit consumer to write a
// complete line without reading the database.
type RegistrationConfirmed struct {
	EventID      uint64 `json:"event_id"`
	EventTitle   string `json:"event_title"`
	UserID       uint64 `json:"user_id"`
	UserEmail    string `json:"user_email"`
	AttendeeNum  int    `json:"attendee_number"`
	Capacity     uint32 `json:"capacity"`
	RegisteredAt string `json:"registered_at"`
}
