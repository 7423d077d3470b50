package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

var (
	serveStore   string
	servePort    string
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

// addServeFlags registers the server flags.  The root command runs the
// server too, so both carry them.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveStore, "store", "", "storage backend: mysql or memory (default from STORE)")
	cmd.Flags().StringVar(&servePort, "port", "", "listen port (default from APP_PORT)")
	cmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving (mysql only)")
}

// loadServeConfig loads the environment, applies the flags over it and
// validates the result.
func loadServeConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if serveStore != "" {
		cfg.Store = serveStore
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// stores bundles the two store contracts with whatever must be closed on exit.
type stores struct {
	users  service.UserStore
	events service.EventStore
	close  func() error
}

func openStores(cfg config.Config, logger zerolog.Logger) (stores, error) {
	switch cfg.Store {
	case "memory":
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		mem := repository.NewMemoryStore()
		return stores{users: mem, events: mem, close: func() error { return nil }}, nil
	case "mysql":
	default:
		return stores{}, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if serveMigrate {
		mdb, err := database.Open(cfg.DB)
		if err != nil {
			return stores{}, err
		}
		if err := database.MigrateUp(mdb); err != nil {
			return stores{}, err
		}
		logger.Info().Msg("migrations applied")
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:  repository.NewUserRepo(db),
		events: repository.NewEventRepo(db),
		close:  db.Close,
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadServeConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(cfg.Logging)

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.close() }()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable; rate limit and cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var pub service.RegistrationPublisher
	if cfg.RabbitMQURL != "" {
		pub = queue.NewPublisher(cfg.RabbitMQURL)
	}

	auth := service.NewAuthService(st.users, service.AuthOptions{
		Secret:     cfg.JWTSecret,
		TokenTTL:   cfg.AccessTTL(),
		BcryptCost: cfg.BcryptCost,
	}, logger)
	booking := service.NewBookingService(st.events, st.users, pub, logger)

	e := router.New(router.Deps{
		Auth:      auth,
		Booking:   booking,
		Redis:     rdb,
		Cache:     cfg.Cache,
		RateLimit: cfg.RateLimit,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.Env).Str("store", cfg.Store).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	booking.Wait()
	return err
}
