package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jonathan/job-dashboard/internal/backend"
	"github.com/jonathan/job-dashboard/internal/filters"
	"github.com/jonathan/job-dashboard/internal/listing"
	"github.com/jonathan/job-dashboard/internal/observability"
	"github.com/jonathan/job-dashboard/internal/view"
)

var (
	jobsKey         string
	jobsSearch      string
	jobsStatus      string
	jobsMinPriority string
	jobsSortBy      string
	jobsSortOrder   string
	jobsPages       int
	jobsVerbose     bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs from the backend",
	Long: `List jobs with the same filters and paging the dashboard uses.

Filters start from the dashboard defaults; each flag replaces one field.`,
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsKey, "key", "", "API key (defaults to $API_KEY)")
	jobsCmd.Flags().StringVar(&jobsSearch, "search", "", "Search title and company")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "Comma-separated status codes (default: every active stage)")
	jobsCmd.Flags().StringVar(&jobsMinPriority, "min-priority", "", "Minimum priority (0-100)")
	jobsCmd.Flags().StringVar(&jobsSortBy, "sort", "", "Sort field: updated_at, created_at, priority, salary, title, company")
	jobsCmd.Flags().StringVar(&jobsSortOrder, "order", "", "Sort order: asc or desc")
	jobsCmd.Flags().IntVar(&jobsPages, "pages", 1, "Number of pages to load (0 loads every page)")
	jobsCmd.Flags().BoolVarP(&jobsVerbose, "verbose", "v", false, "Print summary counts of the loaded jobs")
	rootCmd.AddCommand(jobsCmd)
}

// jobsFilter builds the filter state from the command flags.
func jobsFilter() (filters.State, error) {
	st := filters.Defaults()
	for _, f := range []struct {
		field, value string
	}{
		{filters.FieldSearch, jobsSearch},
		{filters.FieldStatus, jobsStatus},
		{filters.FieldMinPriority, jobsMinPriority},
		{filters.FieldSortBy, jobsSortBy},
		{filters.FieldSortOrder, jobsSortOrder},
	} {
		if f.value == "" {
			continue
		}
		next, err := st.Set(f.field, f.value)
		if err != nil {
			return st, err
		}
		st = next
	}
	return st, nil
}

func runJobs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := jobsFilter()
	if err != nil {
		return err
	}

	key := jobsKey
	if key == "" {
		key = os.Getenv("API_KEY")
	}

	client := backend.NewClient(backend.Options{
		BaseURL:  cfg.BackendURL,
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetryMax,
	})
	pager := listing.NewPager(func(ctx context.Context, q url.Values) (*backend.JobList, error) {
		return client.ListJobs(ctx, key, q)
	}, cfg.PageSize)
	pager.SetQuery(st.Query())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for n := 0; jobsPages <= 0 || n < jobsPages; n++ {
		if _, err := pager.LoadMore(ctx); err != nil {
			if errors.Is(err, listing.ErrNoMorePages) {
				break
			}
			if backend.IsUnauthorized(err) {
				return errors.New("backend rejected the API key")
			}
			return err
		}
	}

	if err := printJobs(cmd.OutOrStdout(), pager); err != nil {
		return err
	}
	if jobsVerbose {
		observability.NewPrinter(cmd.OutOrStdout()).PrintStats(view.ComputeStats(pager.Items()))
	}
	return nil
}

func printJobs(out io.Writer, pager *listing.Pager) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tSTATUS\tPRIORITY\tSALARY\tUPDATED")
	for _, row := range view.JobRows(pager.Items()) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.ID, row.Title, row.Company, row.Badge.Label, row.Priority.Label, row.Salary, row.Updated)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	more := ""
	if pager.HasMore() {
		more = " (more available)"
	}
	_, err := fmt.Fprintf(out, "\n%d of %d jobs%s\n", len(pager.Items()), pager.Total(), more)
	return err
}
