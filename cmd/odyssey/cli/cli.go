// Package cli builds the odyssey command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/ratios/internal/accounting/reports"
	reporthttp "github.com/odyssey-erp/ratios/internal/queryreport/http"
	"github.com/odyssey-erp/ratios/internal/ratios"
	"github.com/odyssey-erp/ratios/jobs"
)

// RatiosRunner executes the Financial Ratios report.
type RatiosRunner interface {
	Execute(ctx context.Context, filters ratios.Filters) (ratios.Report, error)
}

// JobsClient is the queue surface used by the jobs commands.
type JobsClient interface {
	TriggerWarmup(ctx context.Context, payload jobs.RatiosWarmupPayload) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
	Close() error
}

// Options wires the commands to their backends. Factories run lazily so a
// subcommand only opens the connections it needs.
type Options struct {
	Serve  func(ctx context.Context) error
	Ratios func(ctx context.Context) (RatiosRunner, func(), error)
	Jobs   func() (JobsClient, error)
	Output io.Writer
}

// CLI is the odyssey command line.
type CLI struct {
	opts    Options
	rootCmd *cobra.Command
}

// New constructs the command tree.
func New(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	c := &CLI{opts: opts}
	c.rootCmd = c.newRootCmd()
	return c
}

// Execute runs the command selected by args.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{}
	}
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "odyssey",
		Short:         "Odyssey financial reports server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
	cmd.SetOut(c.opts.Output)
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	})
	cmd.AddCommand(c.newRatiosCmd())
	cmd.AddCommand(c.newJobsCmd())
	return cmd
}

func (c *CLI) serve(ctx context.Context) error {
	if c.opts.Serve == nil {
		return fmt.Errorf("serve: not configured")
	}
	return c.opts.Serve(ctx)
}

type ratiosRunCmd struct {
	filters ratios.Filters
	format  string
}

func (c *CLI) newRatiosCmd() *cobra.Command {
	parent := &cobra.Command{Use: "ratios", Short: "Financial Ratios report"}

	rc := &ratiosRunCmd{}
	run := &cobra.Command{
		Use:   "run",
		Short: "Compute the Financial Ratios report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runRatios(cmd.Context(), rc)
		},
	}
	f := run.Flags()
	f.StringVar(&rc.filters.Company, "company", "", "Company name")
	f.StringVar(&rc.filters.FilterBasedOn, "filter-based-on", reports.FilterFiscalYear, "Fiscal Year or Date Range")
	f.StringVar(&rc.filters.FromFiscalYear, "from-fiscal-year", "", "First fiscal year")
	f.StringVar(&rc.filters.ToFiscalYear, "to-fiscal-year", "", "Last fiscal year")
	f.StringVar(&rc.filters.PeriodStartDate, "period-start", "", "Range start (YYYY-MM-DD)")
	f.StringVar(&rc.filters.PeriodEndDate, "period-end", "", "Range end (YYYY-MM-DD)")
	f.StringVar(&rc.filters.Periodicity, "periodicity", string(reports.Yearly), "Monthly, Quarterly, Half-Yearly or Yearly")
	f.StringVar(&rc.filters.FinanceBook, "finance-book", "", "Finance book")
	f.StringVar(&rc.filters.PresentationCurrency, "presentation-currency", "", "Currency code for presentation")
	f.StringSliceVar(&rc.filters.CostCenters, "cost-center", nil, "Cost centers")
	f.StringSliceVar(&rc.filters.Projects, "project", nil, "Projects")
	f.BoolVar(&rc.filters.IncludeDefaultBookEntries, "include-default-book-entries", false, "Include entries without a finance book")
	f.BoolVar(&rc.filters.AccumulatedValues, "accumulated", false, "Accumulate values across periods")
	f.StringVar(&rc.format, "format", "json", "Output format: json or csv")
	_ = run.MarkFlagRequired("company")

	parent.AddCommand(run)
	return parent
}

func (c *CLI) runRatios(ctx context.Context, rc *ratiosRunCmd) error {
	if rc.format != "json" && rc.format != "csv" {
		return fmt.Errorf("ratios run: unsupported format %q", rc.format)
	}
	if c.opts.Ratios == nil {
		return fmt.Errorf("ratios run: not configured")
	}
	runner, closeFn, err := c.opts.Ratios(ctx)
	if err != nil {
		return fmt.Errorf("ratios run: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	report, err := runner.Execute(ctx, rc.filters)
	if err != nil {
		return fmt.Errorf("ratios run: %w", err)
	}
	if rc.format == "csv" {
		return reporthttp.WriteCSV(c.opts.Output, report.Result(), nil)
	}
	enc := json.NewEncoder(c.opts.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Result())
}

func (c *CLI) newJobsCmd() *cobra.Command {
	parent := &cobra.Command{Use: "jobs", Short: "Background job helpers"}

	var payload jobs.RatiosWarmupPayload
	warmup := &cobra.Command{
		Use:   "warmup",
		Short: "Enqueue a ratios cache warmup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withJobs(func(client JobsClient) error {
				info, err := client.TriggerWarmup(cmd.Context(), payload)
				if err != nil {
					return fmt.Errorf("jobs warmup: %w", err)
				}
				_, err = fmt.Fprintf(c.opts.Output, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return err
			})
		},
	}
	warmup.Flags().StringVar(&payload.Company, "company", "", "Limit to one company")
	warmup.Flags().StringVar(&payload.FiscalYear, "fiscal-year", "", "Fiscal year, requires --company")
	warmup.Flags().StringVar(&payload.Periodicity, "periodicity", "", "Periodicity to warm")
	warmup.Flags().BoolVar(&payload.Invalidate, "invalidate", false, "Drop cached reports first")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show default queue statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withJobs(func(client JobsClient) error {
				s, err := client.InspectQueue(cmd.Context())
				if err != nil {
					return fmt.Errorf("jobs stats: %w", err)
				}
				return json.NewEncoder(c.opts.Output).Encode(s)
			})
		},
	}

	var size int
	scheduled := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withJobs(func(client JobsClient) error {
				tasks, err := client.ListScheduled(cmd.Context(), size)
				if err != nil {
					return fmt.Errorf("jobs scheduled: %w", err)
				}
				for _, t := range tasks {
					if _, err := fmt.Fprintf(c.opts.Output, "%s\t%s\t%s\n", t.ID, t.Type, t.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	scheduled.Flags().IntVar(&size, "size", 10, "Page size")

	parent.AddCommand(warmup, stats, scheduled)
	return parent
}

func (c *CLI) withJobs(fn func(JobsClient) error) error {
	if c.opts.Jobs == nil {
		return fmt.Errorf("jobs: not configured")
	}
	client, err := c.opts.Jobs()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	return fn(client)
}
