package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/service"
	"github.com/iliyamo/event-booking/internal/utils"
)

const secret = "router-test-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newServerWithRedis(t, nil)
}

func newServerWithRedis(t *testing.T, rdb *redis.Client) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zerolog.Nop()
	auth := service.NewAuthService(store, service.AuthOptions{
		Secret:     secret,
		TokenTTL:   time.Minute,
		BcryptCost: bcrypt.MinCost,
	}, logger)
	return New(Deps{
		Auth:      auth,
		Booking:   service.NewBookingService(store, store, nil, logger),
		Redis:     rdb,
		Cache:     config.CacheConfig{Enabled: true, Prefix: "cache", TTL: time.Minute},
		RateLimit: config.RateLimitConfig{Enabled: true, Prefix: "rl", Capacity: 100, RefillInterval: time.Second},
		Logger:    logger,
	})
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type detailBody struct {
	Detail string `json:"detail"`
}

type userBody struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
	Hash     string `json:"password_hash"`
}

type eventBody struct {
	ID        uint64     `json:"id"`
	Title     string     `json:"title"`
	Datetime  time.Time  `json:"datetime"`
	Capacity  uint32     `json:"capacity"`
	Attendees []userBody `json:"attendees"`
}

// account signs up and logs in, returning the bearer token.
func account(t *testing.T, e *echo.Echo, email, role string) string {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/signup", "", map[string]string{
		"name": "N", "email": email, "password": "pw", "role": role,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, e, http.MethodPost, "/login", "", map[string]string{"email": email, "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[struct {
		AccessToken string `json:"access_token"`
	}](t, rec).AccessToken
}

func createEvent(t *testing.T, e *echo.Echo, token string, capacity int) eventBody {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/events", token, map[string]any{
		"title": "Meetup", "description": "d", "datetime": "2026-11-01T18:00:00",
		"location": "Berlin", "capacity": capacity,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[eventBody](t, rec)
}

func TestRootAndHealth(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Event Booking System API"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, e, http.MethodGet, "/healthz", "", nil).Code)

	rec = do(t, e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventbook_http_requests_total")
}

func TestSignup(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodPost, "/signup", "", map[string]string{
		"name": "Ann", "email": "ann@x.io", "password": "pw", "role": "manager",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	u := decode[userBody](t, rec)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "manager", u.Role)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, e, http.MethodPost, "/signup", "", map[string]string{
		"name": "Other", "email": "ann@x.io", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered", decode[detailBody](t, rec).Detail)

	rec = do(t, e, http.MethodPost, "/signup", "", map[string]string{"name": "B", "email": "bad", "password": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, "/signup", "", `{"name":`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, "/signup", "", map[string]string{"name": "B", "email": "b@x.io", "password": "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customer", decode[userBody](t, rec).Role)
}

func TestLogin(t *testing.T) {
	e := newServer(t)
	token := account(t, e, "ann@x.io", "customer")
	claims, err := utils.ParseAccessToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.io", claims.Subject)

	rec := do(t, e, http.MethodPost, "/login", "", map[string]string{"email": "ann@x.io", "password": "pw"})
	body := decode[struct {
		TokenType string   `json:"token_type"`
		User      userBody `json:"user"`
	}](t, rec)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, "ann@x.io", body.User.Email)

	for _, creds := range []map[string]string{
		{"email": "ann@x.io", "password": "nope"},
		{"email": "nobody@x.io", "password": "pw"},
	} {
		rec := do(t, e, http.MethodPost, "/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Incorrect email or password", decode[detailBody](t, rec).Detail)
	}
}

func TestCreateEventRoleGate(t *testing.T) {
	e := newServer(t)
	mgr := account(t, e, "m@x.io", "manager")
	cust := account(t, e, "c@x.io", "customer")
	payload := map[string]any{"title": "T", "datetime": "2026-11-01T18:00:00Z", "location": "L", "capacity": 2}

	rec := do(t, e, http.MethodPost, "/events", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))

	rec = do(t, e, http.MethodPost, "/events", "garbage", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", decode[detailBody](t, rec).Detail)

	rec = do(t, e, http.MethodPost, "/events", cust, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not enough permissions", decode[detailBody](t, rec).Detail)

	rec = do(t, e, http.MethodPost, "/events", mgr, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	ev := decode[eventBody](t, rec)
	assert.Equal(t, uint32(2), ev.Capacity)
	assert.NotNil(t, ev.Attendees)
	assert.Empty(t, ev.Attendees)
}

func TestCreateEventValidation(t *testing.T) {
	e := newServer(t)
	mgr := account(t, e, "m@x.io", "manager")

	for name, payload := range map[string]map[string]any{
		"zero capacity":     {"title": "T", "datetime": "2026-11-01T18:00", "location": "L", "capacity": 0},
		"negative capacity": {"title": "T", "datetime": "2026-11-01T18:00", "location": "L", "capacity": -1},
		"bad datetime":      {"title": "T", "datetime": "tomorrow", "location": "L", "capacity": 1},
		"missing title":     {"datetime": "2026-11-01T18:00", "location": "L", "capacity": 1},
	} {
		rec := do(t, e, http.MethodPost, "/events", mgr, payload)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, name)
	}

	rec := do(t, e, http.MethodGet, "/events", "", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRegisterFlow(t *testing.T) {
	e := newServer(t)
	mgr := account(t, e, "m@x.io", "manager")
	a := account(t, e, "a@x.io", "customer")
	b := account(t, e, "b@x.io", "customer")
	ev := createEvent(t, e, mgr, 1)

	rec := do(t, e, http.MethodPost, "/register", mgr, map[string]any{"event_id": ev.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code, "managers cannot register")

	rec = do(t, e, http.MethodPost, "/register", a, map[string]any{"event_id": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Event not found", decode[detailBody](t, rec).Detail)

	rec = do(t, e, http.MethodPost, "/register", a, map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, e, http.MethodPost, "/register", a, map[string]any{"event_id": ev.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Successfully registered for event"}`, rec.Body.String())

	rec = do(t, e, http.MethodPost, "/register", a, map[string]any{"event_id": ev.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already registered for this event", decode[detailBody](t, rec).Detail)

	rec = do(t, e, http.MethodPost, "/register", b, map[string]any{"event_id": ev.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Event is at full capacity", decode[detailBody](t, rec).Detail)

	events := decode[[]eventBody](t, do(t, e, http.MethodGet, "/events", "", nil))
	require.Len(t, events, 1)
	require.Len(t, events[0].Attendees, 1)
	assert.Equal(t, "a@x.io", events[0].Attendees[0].Email)
	assert.Empty(t, events[0].Attendees[0].Hash)
	assert.Equal(t, time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC), events[0].Datetime)
}

func TestListEventsOrderedByID(t *testing.T) {
	e := newServer(t)
	mgr := account(t, e, "m@x.io", "manager")
	for i := 0; i < 3; i++ {
		createEvent(t, e, mgr, i+1)
	}
	events := decode[[]eventBody](t, do(t, e, http.MethodGet, "/events", "", nil))
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.ID)
	}
}

func TestConcurrentRegistrationOverHTTP(t *testing.T) {
	e := newServer(t)
	mgr := account(t, e, "m@x.io", "manager")
	ev := createEvent(t, e, mgr, 3)

	const n = 12
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = account(t, e, fmt.Sprintf("c%d@x.io", i), "customer")
	}

	codes := make([]int, n)
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/register",
				bytes.NewBufferString(fmt.Sprintf(`{"event_id":%d}`, ev.ID)))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, tok)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		if c == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusBadRequest, c)
		}
	}
	assert.Equal(t, 3, ok)

	events := decode[[]eventBody](t, do(t, e, http.MethodGet, "/events", "", nil))
	assert.Len(t, events[0].Attendees, 3)
}

func TestUnknownRoute(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[detailBody](t, rec).Detail)
}
