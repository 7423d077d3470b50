package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/queue"
)

var auditConsumerCmd = &cobra.Command{
	Use:   "audit-consumer",
	Short: "Append confirmed registrations from RabbitMQ to the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTool()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		logger := newLogger(cfg.Logging)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := &queue.Consumer{URL: cfg.RabbitMQURL, Dir: cfg.AuditLogDir, Logger: logger}
		logger.Info().Str("queue", queue.RegistrationQueue).Str("dir", cfg.AuditLogDir).Msg("audit consumer started")
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
