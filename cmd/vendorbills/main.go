package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"constructerp/internal/config"
	"constructerp/internal/logger"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

var envFile string

var rootCmd = &cobra.Command{
	Use:   "vendorbills",
	Short: "Vendor invoice service for the construction ERP",
	Long: `vendorbills stores vendor invoices, keeps their financial breakdown and child
line items consistent, and draws advance payments down against purchase order
and change order invoices.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an env file read before the environment")
	rootCmd.AddCommand(serveCmd, sweepCmd)
}

// loadConfig reads configuration and sets up the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.Log); err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, nil
}
