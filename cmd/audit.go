package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/audit"
	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Flag persisted companies that look non-Indian",
	Long:  "Writes an advisory report of companies whose domain or name suggests they are not India-associated. Nothing is removed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("funds")
		funds, err := selectFunds(ids)
		if err != nil {
			return err
		}
		refs, err := reference.Load(cfg.Data.Dir)
		if err != nil {
			return err
		}
		rules, err := audit.NewRules(refs, cfg.Audit.NamePatterns)
		if err != nil {
			return err
		}

		persisted, err := readPersisted(cfg.Data.Dir, funds)
		if err != nil {
			return err
		}
		report := audit.Run(persisted, rules, time.Now())

		path := auditReportPath(cfg.Data.Dir, cfg.Audit.ReportFile)
		if err := dataset.WriteJSON(path, report); err != nil {
			return err
		}

		fmt.Printf("Audit complete. %d companies flagged.\n", report.TotalFlagged)
		fmt.Printf("Report written to: %s\n", path)
		formatAuditReport(os.Stdout, report, funds)
		return nil
	},
}

// readPersisted loads every fund file that exists, in fund order.
func readPersisted(dir string, funds []model.FundConfig) ([]audit.FundCompanies, error) {
	out := make([]audit.FundCompanies, 0, len(funds))
	for _, fc := range funds {
		f, err := dataset.Read(dir, fc.ID)
		if errors.Is(err, dataset.ErrMissingDataFile) {
			zap.L().Debug("fund data file missing, skipping", zap.String("fund", fc.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, audit.FundCompanies{FundID: fc.ID, Companies: f.Companies})
	}
	return out, nil
}

func auditReportPath(dir, name string) string {
	if name == "" {
		name = audit.ReportFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// formatAuditReport prints flagged companies grouped by fund.
func formatAuditReport(out io.Writer, r *audit.Report, funds []model.FundConfig) {
	for _, fc := range funds {
		flagged := r.ByFund(fc.ID)
		if len(flagged) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n=== %s (%d flagged) ===\n", strings.ToUpper(fc.ID), len(flagged))
		for _, c := range flagged {
			_, _ = fmt.Fprintf(out, "  %s (%s) - %s - jobs: %d - %s\n", c.Name, c.Slug, c.Domain, c.ActiveJobCount, c.Reason)
		}
	}
}

func init() {
	auditCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: all)")
	rootCmd.AddCommand(auditCmd)
}
