package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/iliyamo/event-booking/internal/model"
)

// MemoryStore is an in-process credential and event store.  It satisfies
// the same contracts as UserRepo and EventRepo.  Registration for an event
// holds that event's own mutex across the membership check, the capacity
// check and the append, so registrations for different events never
// contend with each other.
type MemoryStore struct {
	mu      sync.RWMutex
	users   []model.User // users[i].ID == i+1
	byEmail map[string]uint64
	events  []*memEvent // events[i].ev.ID == i+1
}

type memEvent struct {
	ev model.Event // Attendees unused; see attendees below

	mu        sync.Mutex
	attendees []uint64
	member    map[uint64]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: map[string]uint64{}}
}

func (s *MemoryStore) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return model.User{}, ErrEmailExists
	}
	u := model.User{
		ID:           uint64(len(s.users) + 1),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	s.users = append(s.users, u)
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	return s.users[id-1], nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userLocked(id)
}

func (s *MemoryStore) userLocked(id uint64) (model.User, error) {
	if id == 0 || id > uint64(len(s.users)) {
		return model.User{}, ErrUserNotFound
	}
	return s.users[id-1], nil
}

func (s *MemoryStore) CreateEvent(ctx context.Context, in model.NewEvent) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := model.Event{
		ID:          uint64(len(s.events) + 1),
		Title:       in.Title,
		Description: in.Description,
		StartsAt:    in.StartsAt.UTC(),
		Location:    in.Location,
		Capacity:    in.Capacity,
	}
	s.events = append(s.events, &memEvent{ev: ev, member: map[uint64]struct{}{}})
	ev.Attendees = []model.User{}
	return ev, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.events))
	for _, me := range s.events {
		out = append(out, s.snapshotLocked(me))
	}
	return out, nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || id > uint64(len(s.events)) {
		return model.Event{}, ErrEventNotFound
	}
	return s.snapshotLocked(s.events[id-1]), nil
}

// Register returns the attendee count including the new registration.
func (s *MemoryStore) Register(ctx context.Context, userID, eventID uint64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	var me *memEvent
	if eventID > 0 && eventID <= uint64(len(s.events)) {
		me = s.events[eventID-1]
	}
	_, userErr := s.userLocked(userID)
	s.mu.RUnlock()

	if me == nil {
		return 0, ErrEventNotFound
	}
	if userErr != nil {
		return 0, userErr
	}

	me.mu.Lock()
	defer me.mu.Unlock()
	if _, ok := me.member[userID]; ok {
		return 0, ErrAlreadyRegistered
	}
	if uint32(len(me.attendees)) >= me.ev.Capacity {
		return 0, ErrEventFull
	}
	me.attendees = append(me.attendees, userID)
	me.member[userID] = struct{}{}
	return len(me.attendees), nil
}

// snapshotLocked copies an event with its attendees resolved to users.
// The caller holds s.mu for reading.
func (s *MemoryStore) snapshotLocked(me *memEvent) model.Event {
	me.mu.Lock()
	ids := append([]uint64(nil), me.attendees...)
	me.mu.Unlock()

	ev := me.ev
	ev.Attendees = make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, err := s.userLocked(id); err == nil {
			ev.Attendees = append(ev.Attendees, u)
		}
	}
	slices.SortFunc(ev.Attendees, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return ev
}
