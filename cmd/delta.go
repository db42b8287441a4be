package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/delta"
	"github.com/sells-group/portfolio-jobs/internal/monitoring"
)

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Summarize what changed between two generations of fund files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		beforeDir, _ := cmd.Flags().GetString("before-dir")
		afterDir, _ := cmd.Flags().GetString("after-dir")
		outDir, _ := cmd.Flags().GetString("out-dir")
		funds, _ := cmd.Flags().GetStringSlice("funds")
		alert, _ := cmd.Flags().GetBool("alert")

		if beforeDir == "" {
			return eris.New("delta: --before-dir is required")
		}
		if afterDir == "" {
			afterDir = cfg.Data.Dir
		}
		if outDir == "" {
			outDir = cfg.Delta.OutDir
		}
		if len(funds) == 0 {
			funds = cfg.Delta.Funds
		}

		report, err := delta.Build(funds, beforeDir, afterDir, cfg.Delta.TopMovers, time.Now())
		if err != nil {
			return err
		}
		jsonPath, mdPath, err := delta.Write(outDir, report)
		if err != nil {
			return err
		}
		zap.L().Info("delta report written",
			zap.String("json", jsonPath),
			zap.String("markdown", mdPath),
			zap.Bool("has_changes", report.HasChanges),
		)

		_, _ = fmt.Fprint(os.Stdout, delta.RenderMarkdown(report))

		if alert {
			a := monitoring.NewAlerter(cfg.Monitoring)
			if alerts := a.Evaluate(report, nil); len(alerts) > 0 {
				a.SendAlerts(cmd.Context(), alerts)
			}
		}
		return nil
	},
}

func init() {
	deltaCmd.Flags().String("before-dir", "", "directory holding the previous fund files")
	deltaCmd.Flags().String("after-dir", "", "directory holding the refreshed fund files (default: data.dir)")
	deltaCmd.Flags().String("out-dir", "", "report directory (default: delta.out_dir)")
	deltaCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: delta.funds)")
	deltaCmd.Flags().Bool("alert", false, "send alerts for emptied funds and large job drops")
	rootCmd.AddCommand(deltaCmd)
}
