package dashboard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/client"
	"github.com/iliyamo/event-booking/internal/model"
)

var (
	ann = model.User{ID: 1, Name: "Ann", Email: "ann@x.io", Role: model.RoleManager}
	cy  = model.User{ID: 2, Name: "Cy", Email: "cy@x.io", Role: model.RoleCustomer}
	dee = model.User{ID: 3, Name: "Dee", Email: "dee@x.io", Role: model.RoleCustomer}
)

// fakeAPI records calls and serves a fixed event list that Register
// appends to.
type fakeAPI struct {
	users      map[string]model.User
	events     []model.Event
	listCalls  int
	created    []client.CreateEventRequest
	listErr    error
	registerFn func(id uint64) error
}

func (f *fakeAPI) Signup(_ context.Context, req client.SignupRequest) (model.User, error) {
	if _, ok := f.users[req.Email]; ok {
		return model.User{}, &client.APIError{Status: 400, Detail: "Email already registered"}
	}
	return model.User{ID: 9, Name: req.Name, Email: req.Email}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, _ string) (client.LoginResponse, error) {
	u, ok := f.users[email]
	if !ok {
		return client.LoginResponse{}, &client.APIError{Status: 401, Detail: "Incorrect email or password"}
	}
	return client.LoginResponse{AccessToken: "tok-" + email, TokenType: "bearer", User: u}, nil
}

func (f *fakeAPI) ListEvents(context.Context) ([]model.Event, error) {
	f.listCalls++
	return f.events, f.listErr
}

func (f *fakeAPI) CreateEvent(_ context.Context, _ string, req client.CreateEventRequest) (model.Event, error) {
	f.created = append(f.created, req)
	ev := model.Event{ID: uint64(len(f.events) + 1), Title: req.Title, StartsAt: req.Datetime,
		Location: req.Location, Capacity: uint32(req.Capacity), Attendees: []model.User{}}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeAPI) Register(_ context.Context, _ string, id uint64) (client.Ack, error) {
	if f.registerFn != nil {
		if err := f.registerFn(id); err != nil {
			return client.Ack{}, err
		}
	}
	f.events[id-1].Attendees = append(f.events[id-1].Attendees, cy)
	return client.Ack{Message: "Successfully registered for event"}, nil
}

func run(t *testing.T, api API, script ...string) (*App, string) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(api, strings.NewReader(strings.Join(script, "\n")+"\n"), &out)
	require.NoError(t, app.Run(context.Background()))
	return app, out.String()
}

func sampleEvents() []model.Event {
	at := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	return []model.Event{
		{ID: 1, Title: "Open", StartsAt: at, Location: "Berlin", Capacity: 3, Attendees: []model.User{}},
		{ID: 2, Title: "Full", StartsAt: at, Location: "Paris", Capacity: 1, Attendees: []model.User{dee}},
		{ID: 3, Title: "Mine", StartsAt: at, Location: "Rome", Capacity: 2, Attendees: []model.User{cy}},
	}
}

func TestSession(t *testing.T) {
	var zero Session
	assert.False(t, zero.Authenticated())

	s := NewSession(client.LoginResponse{AccessToken: "t", User: ann})
	assert.True(t, s.Authenticated())
	s.Clear()
	assert.False(t, s.Authenticated())
	assert.Equal(t, model.User{}, s.User)
}

func TestRenderManager(t *testing.T) {
	var buf bytes.Buffer
	RenderManager(&buf, &Session{Token: "t", User: ann}, sampleEvents())
	out := buf.String()
	assert.Contains(t, out, "Welcome, Ann!")
	assert.Contains(t, out, "[2] Full - 2026-11-01 18:00")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "- Dee (dee@x.io)")
}

func TestRenderCustomerStatuses(t *testing.T) {
	var buf bytes.Buffer
	RenderCustomer(&buf, &Session{Token: "t", User: cy}, sampleEvents())
	lines := strings.Split(buf.String(), "\n")

	find := func(title string) string {
		for _, l := range lines {
			if strings.Contains(l, title) {
				return l
			}
		}
		t.Fatalf("no line for %s", title)
		return ""
	}
	assert.Contains(t, find("Open"), "3/3")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(find("Open")), "open"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(find("Full")), "full"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(find("Mine")), "registered"))
}

func TestLoggedOutCommandsNeedLogin(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{}}
	_, out := run(t, api, "events", "register 1", "quit")
	assert.Contains(t, out, "Please login first.")
	assert.Zero(t, api.listCalls)
}

func TestLoginRendersRoleViewAndLogoutClears(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"ann@x.io": ann}, events: sampleEvents()}
	app, out := run(t, api, "login", "ann@x.io", "pw", "logout", "quit")

	assert.Contains(t, out, "Login successful!")
	assert.Contains(t, out, "Manager Dashboard")
	assert.Contains(t, out, "Logged out.")
	assert.False(t, app.Session.Authenticated())
	assert.Equal(t, 1, api.listCalls)
}

func TestLoginFailureBanner(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{}}
	app, out := run(t, api, "login", "who@x.io", "pw")
	assert.Contains(t, out, "! Error: 401 - Incorrect email or password")
	assert.False(t, app.Session.Authenticated())
}

func TestSignup(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"ann@x.io": ann}}
	_, out := run(t, api, "signup", "Bo", "bo@x.io", "pw", "", "signup", "Ann", "ann@x.io", "pw", "manager")
	assert.Contains(t, out, "Account created successfully! Please login.")
	assert.Contains(t, out, "! Error: 400 - Email already registered")
}

func TestManagerCreateRefetches(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"ann@x.io": ann}, events: []model.Event{}}
	_, out := run(t, api,
		"login", "ann@x.io", "pw",
		"create", "Gala", "black tie", "2026-12-31", "20:00", "Vienna", "",
		"quit")

	require.Len(t, api.created, 1)
	assert.Equal(t, int64(50), api.created[0].Capacity, "default capacity")
	assert.Equal(t, time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC), api.created[0].Datetime)
	assert.Contains(t, out, "Event created successfully!")
	assert.Contains(t, out, "[1] Gala")
	assert.Equal(t, 2, api.listCalls, "list after login and after create")
}

func TestCustomerRegister(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"cy@x.io": cy}, events: sampleEvents()}
	api.registerFn = func(id uint64) error {
		if id == 2 {
			return &client.APIError{Status: 400, Detail: "Event is at full capacity"}
		}
		return nil
	}
	_, out := run(t, api, "login", "cy@x.io", "pw", "register 1", "register 2", "register x", "create", "quit")

	assert.Contains(t, out, "Registration successful!")
	assert.Contains(t, out, "! Error: 400 - Event is at full capacity")
	assert.Contains(t, out, "Usage: register <event id>")
	assert.Contains(t, out, "Only managers can create events.")
	assert.Equal(t, 3, api.listCalls, "list after login and after each register attempt")
}

func TestExpiredTokenDropsSession(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"cy@x.io": cy}, events: sampleEvents()}
	api.registerFn = func(uint64) error {
		return &client.APIError{Status: 401, Detail: "Could not validate credentials"}
	}
	app, out := run(t, api, "login", "cy@x.io", "pw", "register 1", "quit")
	assert.Contains(t, out, "! Error: 401 - Could not validate credentials")
	assert.False(t, app.Session.Authenticated())
}

func TestConnectionErrorBanner(t *testing.T) {
	api := &fakeAPI{users: map[string]model.User{"cy@x.io": cy},
		listErr: &client.NetworkError{Err: errors.New("connection refused")}}
	_, out := run(t, api, "login", "cy@x.io", "pw", "quit")
	assert.Contains(t, out, "! Connection error: connection refused")
}
