// Package main provides the entry point for the job dashboard server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-dashboard/internal/config"
	"github.com/jonathan/job-dashboard/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "job_dashboard",
	Short:        "Job tracker dashboard",
	Long:         "Job dashboard serves the web UI for the job tracker and proxies its JSON API, keeping the shared API key in an httpOnly cookie.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (yaml, toml or json)")
}

// loadConfig reads the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(cfg.LogJSON, cfg.Debug); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
