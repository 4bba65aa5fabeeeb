package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/observability"
)

var jobKey string

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show one job with its contacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

func init() {
	jobCmd.Flags().StringVar(&jobKey, "key", "", "API key (defaults to $API_KEY)")
	rootCmd.AddCommand(jobCmd)
}

func runJob(cmd *cobra.Command, args []string) error {
	id := args[0]
	if _, err := uuid.Parse(id); err != nil {
		return errors.Newf("invalid job id %q", id)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	key := jobKey
	if key == "" {
		key = os.Getenv("API_KEY")
	}

	client := backend.NewClient(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetryMax,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		job      *backend.Job
		contacts []backend.Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		job, err = client.GetJob(gctx, key, id)
		return err
	})
	g.Go(func() error {
		// Contacts are optional; the job is still shown without them.
		contacts, _ = client.ListContacts(gctx, key, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		if backend.IsUnauthorized(err) {
			return errors.New("backend rejected the API key")
		}
		if backend.IsNotFound(err) {
			return errors.Newf("job %s not found", id)
		}
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintJob(job, contacts)
	return nil
}
