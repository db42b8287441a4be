package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/fetcher"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/monitoring"
	"github.com/sells-group/portfolio-jobs/internal/pipeline"
	"github.com/sells-group/portfolio-jobs/internal/reference"
	"github.com/sells-group/portfolio-jobs/internal/source"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Refresh fund data files from their job boards",
	Long:  "Fetches every selected fund's companies, reconciles them against the reference lists and rewrites {fund}.json. A fund that fails keeps its previous file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("funds")
		skipDates, _ := cmd.Flags().GetBool("skip-dates")
		alert, _ := cmd.Flags().GetBool("alert")

		funds, err := selectFunds(ids)
		if err != nil {
			return err
		}

		refs, err := reference.Load(cfg.Data.Dir)
		if err != nil {
			return err
		}
		sectors, err := reference.LoadSectorMap(cfg.Data.Dir)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p := pipeline.New(st, sourceFactory(newFetcher(cfg.Fetch), getroOptions(cfg.Fetch)), pipeline.Reconciler{
			Refs:    refs,
			Sectors: sectors,
		}, pipeline.Options{
			DataDir:        cfg.Data.Dir,
			StaleAfterDays: cfg.Pipeline.StaleAfterDays,
			SkipDates:      skipDates,
		})

		start := time.Now()
		results, runErr := p.RunAll(ctx, funds)
		formatFetchResults(os.Stdout, results)
		zap.L().Info("fetch complete",
			zap.Int("funds", len(funds)),
			zap.Int("refreshed", len(results)),
			zap.Duration("elapsed", time.Since(start)),
		)

		if alert {
			alertOnRuns(ctx, results)
		}
		return runErr
	},
}

// sourceFactory adapts source.ForFund to the pipeline's factory signature.
func sourceFactory(f fetcher.Fetcher, opts source.GetroOptions) pipeline.SourceFactory {
	return func(fund model.FundConfig) (pipeline.Source, error) {
		src, err := source.ForFund(f, fund, opts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}

func alertOnRuns(ctx context.Context, results []model.RunResult) {
	a := monitoring.NewAlerter(cfg.Monitoring)
	alerts := a.Evaluate(nil, results)
	if len(alerts) == 0 {
		return
	}
	a.SendAlerts(ctx, alerts)
}

// formatFetchResults writes one row per refreshed fund.
func formatFetchResults(out io.Writer, results []model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FUND\tFETCHED\tKEPT\tJOBS\tINTERNSHIPS\tDATED\tUNRESOLVED\tUNMAPPED")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.FundID, r.Fetched, r.Kept, r.TotalJobs,
			r.InternshipCompanies, r.DatedCompanies, r.Unresolved, len(r.UnmappedSectors))
	}
	_ = w.Flush()
}

func init() {
	fetchCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: all)")
	fetchCmd.Flags().Bool("skip-dates", false, "skip the latest-job-date scan")
	fetchCmd.Flags().Bool("alert", false, "send alerts for runs that left too many slugs unresolved")
	rootCmd.AddCommand(fetchCmd)
}
