package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
	"github.com/sells-group/portfolio-jobs/internal/resilience"
	"github.com/sells-group/portfolio-jobs/internal/source"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check fund files and confirm every company page exists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		ids, _ := cmd.Flags().GetStringSlice("funds")
		skipPages, _ := cmd.Flags().GetBool("skip-pages")

		funds, err := selectFunds(ids)
		if err != nil {
			return err
		}
		sectors, err := reference.LoadSectorMap(cfg.Data.Dir)
		if err != nil {
			return err
		}

		var checker *source.PageChecker
		if !skipPages {
			checker = source.NewPageChecker(newFetcher(cfg.Fetch))
		}

		var problems int
		for _, fc := range funds {
			res, err := validateFund(ctx, cfg.Data.Dir, fc, sectors, checker, cfg.Fetch.PageBatchSize)
			if errors.Is(err, dataset.ErrMissingDataFile) {
				zap.L().Warn("fund data file missing, skipping", zap.String("fund", fc.ID))
				continue
			}
			if err != nil {
				return err
			}
			formatValidation(os.Stdout, res)
			problems += res.problems()
		}

		if problems > 0 {
			return eris.Errorf("validate: %d problems found", problems)
		}
		return nil
	},
}

// fundValidation is the outcome of validating one fund file.
type fundValidation struct {
	FundID     string
	Companies  int
	Schema     []string
	Invariants []string
	Checked    int
	Broken     []source.PageResult
	Errors     []string
}

func (v *fundValidation) problems() int {
	return len(v.Schema) + len(v.Invariants) + len(v.Broken)
}

// validateFund checks one file against the schema and the data invariants,
// then checks each jobs-board URL when checker is non-nil. Page fetch
// errors are reported but not counted as broken pages.
func validateFund(ctx context.Context, dir string, fc model.FundConfig, sectors *reference.SectorMap, checker *source.PageChecker, limit int) (*fundValidation, error) {
	raw, err := os.ReadFile(dataset.Path(dir, fc.ID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrapf(dataset.ErrMissingDataFile, "%s", dataset.Path(dir, fc.ID))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "validate: read %s", fc.ID)
	}

	res := &fundValidation{FundID: fc.ID}
	res.Schema, err = dataset.ValidateSchema(raw)
	if err != nil {
		return nil, err
	}
	f, err := dataset.Read(dir, fc.ID)
	if err != nil {
		return nil, err
	}
	res.Companies = len(f.Companies)
	res.Invariants = dataset.CheckInvariants(f, sectors)

	if checker == nil {
		return res, nil
	}
	if limit <= 0 {
		limit = 10
	}

	// Stop probing a board after repeated fetch failures.
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("board circuit breaker", zap.String("fund", fc.ID),
				zap.Stringer("from", from), zap.Stringer("to", to))
		},
	})

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, c := range f.Companies {
		url := c.JobsBoardURL
		g.Go(func() error {
			pr, err := resilience.Do(gctx, breaker, func(ctx context.Context) (*source.PageResult, error) {
				return checker.Check(ctx, url)
			})
			mu.Lock()
			defer mu.Unlock()
			res.Checked++
			if err != nil {
				res.Errors = append(res.Errors, err.Error())
				return nil
			}
			if pr.Status != source.PageOK {
				res.Broken = append(res.Broken, *pr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return res, nil
}

func formatValidation(out io.Writer, v *fundValidation) {
	_, _ = fmt.Fprintf(out, "\n=== %s (%d) ===\n", strings.ToUpper(v.FundID), v.Companies)
	for _, s := range v.Schema {
		_, _ = fmt.Fprintf(out, "  SCHEMA: %s\n", s)
	}
	for _, s := range v.Invariants {
		_, _ = fmt.Fprintf(out, "  INVALID: %s\n", s)
	}
	for _, b := range v.Broken {
		_, _ = fmt.Fprintf(out, "  BROKEN (%s): %s\n", b.Status, b.URL)
	}
	for _, e := range v.Errors {
		_, _ = fmt.Fprintf(out, "  ERROR: %s\n", e)
	}
	if v.Checked > 0 {
		_, _ = fmt.Fprintf(out, "  %d OK, %d BROKEN\n", v.Checked-len(v.Broken)-len(v.Errors), len(v.Broken))
	}
}

func init() {
	validateCmd.Flags().StringSlice("funds", nil, "comma-separated fund ids (default: all)")
	validateCmd.Flags().Bool("skip-pages", false, "only check file structure, not company pages")
	rootCmd.AddCommand(validateCmd)
}
