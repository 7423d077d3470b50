package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/event-booking/internal/client"
	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/dashboard"
)

var dashboardAPI string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard for managers and customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadTool()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		base := cfg.APIBaseURL
		if dashboardAPI != "" {
			base = dashboardAPI
		}
		app := dashboard.NewApp(client.New(base), os.Stdin, cmd.OutOrStdout())
		return app.Run(cmd.Context())
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardAPI, "api", "", "API base URL (default from API_BASE_URL)")
}
