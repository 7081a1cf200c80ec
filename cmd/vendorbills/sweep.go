package main

import (
	"constructerp/internal/jobs"
	"constructerp/internal/repositories"
	"constructerp/pkg/database"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete child rows orphaned by invoice type changes, once",
	Long: `Runs the orphaned child sweep that the server schedules every SWEEP_INTERVAL.
Rows in a child table whose parent invoice type no longer owns that table are deleted.`,
	Example: `  # One-off sweep against the configured database
  vendorbills sweep --env-file .env.production`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.ClosePool(pool)

		_, err = jobs.NewOrphanSweeper(repositories.NewInvoiceItemsRepo(pool)).Run(ctx)
		return err
	},
}
