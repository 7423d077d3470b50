//go:build integration

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
)

// setupMySQL starts a MySQL container, applies the embedded migrations and
// returns an open handle.  Run with: go test -tags integration ./...
func setupMySQL(t *testing.T) *sql.DB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	container, err := tcmysql.Run(
		ctx,
		"mysql:8.0.36",
		tcmysql.WithDatabase("event_booking"),
		tcmysql.WithUsername("booking"),
		tcmysql.WithPassword("booking_dev"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(mc.Addr)
	require.NoError(t, err)
	cfg := config.DBConfig{User: mc.User, Pass: mc.Passwd, Host: host, Port: port, Name: mc.DBName}

	require.NoError(t, migrateWithRetry(cfg, 10*time.Second))

	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func migrateWithRetry(cfg config.DBConfig, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := func() error {
			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			return database.MigrateUp(db)
		}()
		if err != nil {
			if time.Now().After(deadline) {
				return err
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}
		return nil
	}
}

func TestMySQLUsers(t *testing.T) {
	db := setupMySQL(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	ann, err := users.CreateUser(ctx, "Ann", "ann@example.com", "h", model.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, ann.Role)

	_, err = users.CreateUser(ctx, "again", "ann@example.com", "h", model.RoleCustomer)
	assert.ErrorIs(t, err, ErrEmailExists)

	upper, err := users.CreateUser(ctx, "Upper", "Ann@example.com", "h", model.RoleCustomer)
	require.NoError(t, err, "emails compare case-sensitively")
	assert.NotEqual(t, ann.ID, upper.ID)

	got, err := users.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)

	_, err = users.GetUserByEmail(ctx, "ANN@EXAMPLE.COM")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = users.GetUserByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMySQLEvents(t *testing.T) {
	db := setupMySQL(t)
	users := NewUserRepo(db)
	events := NewEventRepo(db)
	ctx := context.Background()

	starts := time.Date(2026, 11, 1, 18, 0, 0, 0, time.UTC)
	ev, err := events.CreateEvent(ctx, model.NewEvent{
		Title: "Launch", Description: "d", StartsAt: starts, Location: "Berlin", Capacity: 1,
	})
	require.NoError(t, err)
	second, err := events.CreateEvent(ctx, model.NewEvent{
		Title: "Later", StartsAt: starts, Location: "Paris", Capacity: 3,
	})
	require.NoError(t, err)

	a, err := users.CreateUser(ctx, "A", "a@example.com", "h", model.RoleCustomer)
	require.NoError(t, err)
	b, err := users.CreateUser(ctx, "B", "b@example.com", "h", model.RoleCustomer)
	require.NoError(t, err)

	_, err = events.Register(ctx, a.ID, 9999)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = events.Register(ctx, 9999, ev.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	n, err := events.Register(ctx, a.ID, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = events.Register(ctx, a.ID, ev.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered, "already registered is reported before full")
	_, err = events.Register(ctx, b.ID, ev.ID)
	assert.ErrorIs(t, err, ErrEventFull)

	list, err := events.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ev.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
	assert.Equal(t, starts, list[0].StartsAt)
	require.Len(t, list[0].Attendees, 1)
	assert.Equal(t, "a@example.com", list[0].Attendees[0].Email)
	assert.NotNil(t, list[1].Attendees)
	assert.Empty(t, list[1].Attendees)

	_, err = events.GetEvent(ctx, 9999)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestMySQLConcurrentRegisterNeverOvershoots(t *testing.T) {
	const n, capacity = 30, 4
	db := setupMySQL(t)
	users := NewUserRepo(db)
	events := NewEventRepo(db)
	ctx := context.Background()

	ev, err := events.CreateEvent(ctx, model.NewEvent{
		Title: "Tiny", StartsAt: time.Now().UTC(), Location: "Room", Capacity: capacity,
	})
	require.NoError(t, err)

	ids := make([]uint64, n)
	for i := range ids {
		u, err := users.CreateUser(ctx, "U", fmt.Sprintf("u%d@example.com", i), "h", model.RoleCustomer)
		require.NoError(t, err)
		ids[i] = u.ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
		counts   []int
	)
	start := make(chan struct{})
	for _, id := range ids {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			<-start
			got, err := events.Register(ctx, id, ev.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
				counts = append(counts, got)
			case errors.Is(err, ErrEventFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, capacity, ok)
	assert.Equal(t, n-capacity, full)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, counts)

	got, err := events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attendees, capacity)
}
