package model

import "time"

// Event mirrors the `events` table joined with its attendees.
// Attendees is always non-nil so it serializes as [] rather than null.
type Event struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"datetime"`
	Location    string    `json:"location"`
	Capacity    uint32    `json:"capacity"`
	Attendees   []User    `json:"attendees"`
}

// NewEvent carries the fields a manager supplies when creating an event.
type NewEvent struct {
	Title       string
	Description string
	StartsAt    time.Time
	Location    string
	Capacity    uint32
}

// Remaining returns the number of free places left.
func (e *Event) Remaining() int {
	n := int(e.Capacity) - len(e.Attendees)
	if n < 0 {
		return 0
	}
	return n
}

// IsFull reports whether the attendee list has reached capacity.
func (e *Event) IsFull() bool { return len(e.Attendees) >= int(e.Capacity) }

// HasAttendee reports whether the user with the given id is registered.
func (e *Event) HasAttendee(userID uint64) bool {
	for _, a := range e.Attendees {
		if a.ID == userID {
			return true
		}
	}
	return false
}
