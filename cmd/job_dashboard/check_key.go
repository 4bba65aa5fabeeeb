package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-dashboard/internal/backend"
)

var checkKeyValue string

var checkKeyCmd = &cobra.Command{
	Use:   "check-key",
	Short: "Check an API key against the backend",
	Long:  `Check whether the backend accepts an API key. The key is read from --key or the API_KEY environment variable.`,
	RunE:  runCheckKey,
}

func init() {
	checkKeyCmd.Flags().StringVar(&checkKeyValue, "key", "", "API key to check (defaults to $API_KEY)")
	rootCmd.AddCommand(checkKeyCmd)
}

func runCheckKey(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := checkKeyValue
	if key == "" {
		key = os.Getenv("API_KEY")
	}
	if key == "" {
		return fmt.Errorf("an API key is required: pass --key or set API_KEY")
	}

	client := backend.NewClient(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetryMax,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
	defer cancel()

	valid, err := client.VerifyKey(ctx, key)
	if err != nil {
		return fmt.Errorf("backend %s unreachable: %w", cfg.BackendURL, err)
	}
	if !valid {
		return fmt.Errorf("backend %s rejected the API key", cfg.BackendURL)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "API key accepted by %s\n", cfg.BackendURL)
	return nil
}
