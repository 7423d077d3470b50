package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo persists events and the event_registrations join table.
type EventRepo struct{ db *sql.DB }

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// CreateEvent inserts an event.  The returned event has an empty,
// non-nil attendee list.
func (r *EventRepo) CreateEvent(ctx context.Context, in model.NewEvent) (model.Event, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, description, starts_at, location, capacity) VALUES (?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.StartsAt.UTC(), in.Location, in.Capacity)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event id: %w", err)
	}
	return model.Event{
		ID:          uint64(id),
		Title:       in.Title,
		Description: in.Description,
		StartsAt:    in.StartsAt.UTC(),
		Location:    in.Location,
		Capacity:    in.Capacity,
		Attendees:   []model.User{},
	}, nil
}

// ListEvents returns every event ordered by id with its attendees ordered
// by user id.  Two queries are used instead of one wide join so an event
// with no attendees needs no NULL handling.
func (r *EventRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, starts_at, location, capacity FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	index := map[uint64]int{}
	for rows.Next() {
		e := model.Event{Attendees: []model.User{}}
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.Location, &e.Capacity); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.StartsAt = e.StartsAt.UTC()
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	att, err := r.db.QueryContext(ctx,
		`SELECT er.event_id, u.id, u.name, u.email, u.role
		   FROM event_registrations er
		   JOIN users u ON u.id = er.user_id
		  ORDER BY er.event_id, u.id`)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer att.Close()
	for att.Next() {
		var eventID uint64
		var u model.User
		if err := att.Scan(&eventID, &u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Attendees = append(events[i].Attendees, u)
		}
	}
	return events, att.Err()
}

// GetEvent returns one event with its attendees ordered by user id.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	e := model.Event{Attendees: []model.User{}}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, starts_at, location, capacity FROM events WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.Location, &e.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	e.StartsAt = e.StartsAt.UTC()

	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.role
		   FROM event_registrations er
		   JOIN users u ON u.id = er.user_id
		  WHERE er.event_id = ?
		  ORDER BY u.id`, id)
	if err != nil {
		return model.Event{}, fmt.Errorf("get attendees: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return model.Event{}, fmt.Errorf("scan attendee: %w", err)
		}
		e.Attendees = append(e.Attendees, u)
	}
	return e, rows.Err()
}

// Register adds userID to the attendees of eventID.  The event row is
// locked with SELECT ... FOR UPDATE so concurrent registrations for the
// same event queue behind each other; the membership check, the capacity
// check and the insert all happen under that lock.  The composite primary
// key on event_registrations rejects duplicates even if the lock were
// bypassed.  It returns the attendee count including the new registration.
func (r *EventRepo) Register(ctx context.Context, userID, eventID uint64) (attendees int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity uint32
	err = tx.QueryRowContext(ctx, `SELECT capacity FROM events WHERE id = ? FOR UPDATE`, eventID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock event row: %w", err)
	}

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("check user: %w", err)
	}

	var dup int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&dup)
	if err != nil {
		return 0, fmt.Errorf("check duplicate: %w", err)
	}
	if dup > 0 {
		return 0, ErrAlreadyRegistered
	}

	var count uint32
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attendees: %w", err)
	}
	if count >= capacity {
		return 0, ErrEventFull
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO event_registrations (user_id, event_id) VALUES (?, ?)`, userID, eventID)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrAlreadyRegistered
		}
		return 0, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(count) + 1, nil
}
