package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
	"github.com/sells-group/portfolio-jobs/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-fund totals and cross-fund deduplicated stats",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("funds")
		funds, err := selectFunds(ids)
		if err != nil {
			return err
		}

		loaded, err := loadView(cfg.Data.Dir, funds, dataset.LoadOptions{
			Today:          time.Now(),
			StaleAfterDays: cfg.Pipeline.StaleAfterDays,
		})
		if err != nil {
			return err
		}
		formatStats(os.Stdout, loaded, stats.ComputeTopStats(stats.Flatten(loaded)))
		return nil
	},
}

// loadView reads the reference lists and builds the consumer view of funds.
func loadView(dir string, funds []model.FundConfig, opts dataset.LoadOptions) ([]model.VCFund, error) {
	refs, err := reference.Load(dir)
	if err != nil {
		return nil, err
	}
	return dataset.LoadFunds(dir, funds, refs, opts)
}

func formatStats(out io.Writer, funds []model.VCFund, top stats.TopStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FUND\tPLATFORM\tCOMPANIES\tJOBS\tFRESH_JOBS")
	for _, f := range funds {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", f.ID, f.Platform, f.TotalCompanies, f.TotalJobs, f.FreshJobs)
	}
	_, _ = fmt.Fprintf(w, "UNIQUE\t\t%d\t%d\t%d\n", top.TotalCompanies, top.TotalJobs, top.FreshJobs)
	_ = w.Flush()
}

func init() {
	statsCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: all)")
	rootCmd.AddCommand(statsCmd)
}
