package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/wonny/gedash/internal/api/handlers"
	"github.com/wonny/gedash/internal/contracts"
	"github.com/wonny/gedash/internal/dashboard"
	"github.com/wonny/gedash/internal/views"
	"github.com/wonny/gedash/pkg/logger"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print dashboard views as tables",
	Long: `Read the validation relation once and print one view as a table.

Views:
  latest    latest failed validation per schema.table
  daily     success rate per validation date
  top       schema.table keys with the most failures
  monthly   failures per month of the top keys
  records   raw records selected by --schema --table --from --to --success

Example:
  go run ./cmd/gedash report latest
  go run ./cmd/gedash report top --n 5
  go run ./cmd/gedash report records --table orders --from 2024-01-01 --success false`,
}

type reportOptions struct {
	n       int
	schema  string
	table   string
	from    string
	to      string
	success []string
}

var reportOpts reportOptions

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.PersistentFlags().IntVar(&reportOpts.n, "n", views.DefaultTopN, "ranking size for top and monthly")
	reportCmd.PersistentFlags().StringVar(&reportOpts.schema, "schema", "", "schema filter for records")
	reportCmd.PersistentFlags().StringVar(&reportOpts.table, "table", "", "table filter for records (wins over --schema)")
	reportCmd.PersistentFlags().StringVar(&reportOpts.from, "from", "", "first validation date for records (YYYY-MM-DD)")
	reportCmd.PersistentFlags().StringVar(&reportOpts.to, "to", "", "last validation date for records (YYYY-MM-DD)")
	reportCmd.PersistentFlags().StringSliceVar(&reportOpts.success, "success", nil, "outcomes for records (true,false)")

	for _, v := range []struct {
		use   string
		short string
		print func(*dashboard.Report, []contracts.ValidationRecord, reportOptions) error
	}{
		{"latest", "Latest failed validation per table", printLatest},
		{"daily", "Success rate per day", printDaily},
		{"top", "Tables with the most failures", printTop},
		{"monthly", "Failures per month of the top tables", printMonthly},
		{"records", "Filtered raw records", printRecords},
	} {
		printView := v.print
		reportCmd.AddCommand(&cobra.Command{
			Use:   v.use,
			Short: v.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				opts := reportOpts
				if !cmd.Flags().Changed("success") {
					opts.success = nil
				} else if opts.success == nil {
					opts.success = []string{}
				}
				return runReport(cmd, opts, printView)
			},
		})
	}
}

func runReport(cmd *cobra.Command, opts reportOptions, printView func(*dashboard.Report, []contracts.ValidationRecord, reportOptions) error) error {
	if opts.n < 1 || opts.n > handlers.MaxTopN {
		return fmt.Errorf("--n must be between 1 and %d", handlers.MaxTopN)
	}
	if _, err := opts.filter(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// reports own stdout; logs go to stderr and stay quiet unless --verbose
	level := "warn"
	if verbose {
		level = cfg.LogLevel
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level, "console", cfg.Env)

	layout, err := dashboard.LoadLayout(cfg.LayoutFile)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source, db, err := openSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	records, err := source.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", source.Relation(), err)
	}

	return printView(dashboard.NewReport(layout, cmd.OutOrStdout()), records, opts)
}

// filter converts the flags into a record filter with the same rules as the HTTP API
func (o reportOptions) filter() (contracts.RecordFilter, error) {
	q := url.Values{}
	if o.schema != "" {
		q.Set("schema", o.schema)
	}
	if o.table != "" {
		q.Set("table", o.table)
	}
	if o.from != "" {
		q.Set("from", o.from)
	}
	if o.to != "" {
		q.Set("to", o.to)
	}
	if o.success != nil {
		q["success"] = o.success
	}
	return handlers.ParseFilter(q)
}

func printLatest(r *dashboard.Report, records []contracts.ValidationRecord, _ reportOptions) error {
	r.LatestFailures(views.LatestFailures(records))
	return nil
}

func printDaily(r *dashboard.Report, records []contracts.ValidationRecord, _ reportOptions) error {
	r.DailySuccess(views.DailySuccessRates(records))
	return nil
}

func printTop(r *dashboard.Report, records []contracts.ValidationRecord, o reportOptions) error {
	r.TopFailing(views.TopFailingTables(records, o.n), o.n)
	return nil
}

func printMonthly(r *dashboard.Report, records []contracts.ValidationRecord, o reportOptions) error {
	top := views.TopFailing(records, o.n)
	r.Monthly(top.Monthly, o.n)
	return nil
}

func printRecords(r *dashboard.Report, records []contracts.ValidationRecord, o reportOptions) error {
	f, err := o.filter()
	if err != nil {
		return err
	}
	r.Records(views.Filter(records, f))
	return nil
}
