package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Re-normalize sector tags in existing fund files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("funds")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		funds, err := selectFunds(ids)
		if err != nil {
			return err
		}
		sectors, err := reference.LoadSectorMap(cfg.Data.Dir)
		if err != nil {
			return err
		}

		res, err := renormalizeSectors(cfg.Data.Dir, funds, sectors, !dryRun)
		if err != nil {
			return err
		}
		formatSectorReport(os.Stdout, res)
		return nil
	},
}

type sectorResult struct {
	Unmapped     *normalize.UnmappedReport
	Distribution map[string]int
	Funds        int
}

// renormalizeSectors rewrites each fund file's sectors in place. Funds
// without a file are skipped.
func renormalizeSectors(dir string, funds []model.FundConfig, sectors *reference.SectorMap, write bool) (*sectorResult, error) {
	n := normalize.NewSectorNormalizer(sectors)
	res := &sectorResult{Unmapped: normalize.NewUnmappedReport(), Distribution: map[string]int{}}

	for _, fc := range funds {
		f, err := dataset.Read(dir, fc.ID)
		if errors.Is(err, dataset.ErrMissingDataFile) {
			zap.L().Warn("fund data file missing, skipping", zap.String("fund", fc.ID))
			continue
		}
		if err != nil {
			return nil, err
		}

		companies, unmapped := n.Apply(f.Companies)
		res.Unmapped.Merge(unmapped)
		for tag, count := range normalize.Distribution(companies) {
			res.Distribution[tag] += count
		}
		res.Funds++

		if !write {
			continue
		}
		f.Companies = companies
		if err := dataset.Write(dir, fc.ID, f); err != nil {
			return nil, err
		}
		zap.L().Info("sectors normalized",
			zap.String("fund", fc.ID),
			zap.Int("companies", len(companies)),
			zap.Int("unmapped_tags", unmapped.Len()),
		)
	}
	return res, nil
}

func formatSectorReport(out io.Writer, res *sectorResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Funds processed:\t%d\n", res.Funds)

	tags := res.Unmapped.Tags()
	if len(tags) == 0 {
		_, _ = fmt.Fprintln(w, "Unmapped tags:\tnone")
	} else {
		_, _ = fmt.Fprintf(w, "Unmapped tags:\t%d\n", len(tags))
		for _, tag := range tags {
			_, _ = fmt.Fprintf(w, "  %s\t%d\n", tag, res.Unmapped.References(tag))
		}
	}

	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "SECTOR\tCOMPANIES")
	for _, tag := range sortedByCount(res.Distribution) {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", tag, res.Distribution[tag])
	}
	_ = w.Flush()
}

// sortedByCount orders keys by count descending, then name.
func sortedByCount(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

func init() {
	sectorsCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: all)")
	sectorsCmd.Flags().Bool("dry-run", false, "report without rewriting files")
	rootCmd.AddCommand(sectorsCmd)
}
