// Package pipeline refreshes fund data files from their upstream boards.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
	"github.com/sells-group/portfolio-jobs/internal/source"
	"github.com/sells-group/portfolio-jobs/internal/store"
)

// Source lists a fund's raw company records.
type Source interface {
	Companies(ctx context.Context) ([]normalize.RawRecord, error)
}

// InternshipSource reports open internship counts per slug.
type InternshipSource interface {
	Internships(ctx context.Context) (map[string]int, error)
}

// DateSource resolves the latest job posting date per slug.
type DateSource interface {
	LatestJobDates(ctx context.Context, slugs []string) (*source.DateScan, error)
}

// SourceFactory returns the adapter for a fund.
type SourceFactory func(fund model.FundConfig) (Source, error)

// Options configures a Pipeline.
type Options struct {
	DataDir        string
	StaleAfterDays int
	SkipDates      bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline orchestrates one refresh per fund: fetch, reconcile, write.
type Pipeline struct {
	store      store.Store
	sources    SourceFactory
	reconciler Reconciler
	opts       Options
}

// New creates a Pipeline. st may be nil to skip run history.
func New(st store.Store, sources SourceFactory, rec Reconciler, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{store: st, sources: sources, reconciler: rec, opts: opts}
}

// RunAll refreshes funds one after another. A failed fund is logged and
// recorded; the rest still run. The returned error joins every failure.
func (p *Pipeline) RunAll(ctx context.Context, funds []model.FundConfig) ([]model.RunResult, error) {
	results := make([]model.RunResult, 0, len(funds))
	var errs []error
	for _, fund := range funds {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := p.RunFund(ctx, fund)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil {
			zap.L().Error("fund refresh failed", zap.String("fund", fund.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// RunFund refreshes one fund's data file. The file is only replaced when
// the company listing was fetched in full.
func (p *Pipeline) RunFund(ctx context.Context, fund model.FundConfig) (*model.RunResult, error) {
	log := zap.L().With(zap.String("fund", fund.ID), zap.String("platform", string(fund.Platform)))
	log.Info("pipeline: starting refresh")
	start := time.Now()

	runID := ""
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, fund.ID)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		runID = run.ID
	}

	result := &model.RunResult{FundID: fund.ID}
	err := p.refresh(ctx, fund, result, log)
	result.DurationMS = time.Since(start).Milliseconds()

	if p.store != nil {
		// Recording must survive a cancelled refresh.
		rctx := context.WithoutCancel(ctx)
		var serr error
		if err != nil {
			serr = p.store.FailRun(rctx, runID, result, err)
		} else {
			serr = p.store.CompleteRun(rctx, runID, result)
		}
		if serr != nil {
			log.Warn("pipeline: failed to record run", zap.String("run_id", runID), zap.Error(serr))
		}
	}

	if err != nil {
		return result, eris.Wrapf(err, "pipeline: fund %s", fund.ID)
	}
	log.Info("pipeline: refresh complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("kept", result.Kept),
		zap.Int("total_jobs", result.TotalJobs),
		zap.Int64("duration_ms", result.DurationMS),
	)
	return result, nil
}

func (p *Pipeline) refresh(ctx context.Context, fund model.FundConfig, result *model.RunResult, log *zap.Logger) error {
	src, err := p.sources(fund)
	if err != nil {
		return err
	}

	raws, err := src.Companies(ctx)
	if err != nil {
		return eris.Wrap(err, "fetch companies")
	}
	result.Fetched = len(raws)

	rec := p.reconciler
	rec.Today = p.opts.Now()
	if rec.StaleAfterDays == 0 {
		rec.StaleAfterDays = p.opts.StaleAfterDays
	}

	screened, err := rec.Screen(raws, fund)
	if err != nil {
		return err
	}
	result.Normalized = screened.Batch.Output
	result.Skipped = screened.Batch.Skipped
	result.Duplicates = screened.Batch.Duplicates
	result.StageDrops = screened.Filter.Drops

	prev, err := dataset.Read(p.opts.DataDir, fund.ID)
	switch {
	case errors.Is(err, dataset.ErrMissingDataFile):
		prev = nil
	case err != nil:
		log.Warn("pipeline: previous data file unreadable, nothing carried over", zap.Error(err))
		prev = nil
	}

	facts := Facts{Previous: prev}
	if is, ok := src.(InternshipSource); ok {
		counts, err := is.Internships(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("pipeline: internship fetch failed, keeping previous values", zap.Error(err))
			facts.CarryInternships = true
			result.InternshipFetchFailed = true
		} else {
			facts.Internships = counts
		}
	}

	if ds, ok := src.(DateSource); ok && !p.opts.SkipDates {
		slugs := make([]string, len(screened.Companies))
		for i, c := range screened.Companies {
			slugs[i] = c.Slug
		}
		scan, err := ds.LatestJobDates(ctx, slugs)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("pipeline: job date scan failed, keeping previous dates",
				zap.Int("unresolved", len(slugs)), zap.Error(err))
			result.DateScanFailed = true
			result.Unresolved = len(slugs)
		} else {
			facts.Dates = scan.Dates
			result.Unresolved = scan.Unresolved
			result.FailedPages = scan.FailedPages
		}
	}

	finished, err := rec.Finish(screened.Companies, facts)
	if err != nil {
		return err
	}
	result.Kept = len(finished.Companies)
	result.UnmappedSectors = finished.Unmapped.Tags()
	for _, c := range finished.Companies {
		result.TotalJobs += c.JobCount()
		if c.HasInternships != nil && *c.HasInternships {
			result.InternshipCompanies++
		}
		if c.LatestJobDate != "" {
			result.DatedCompanies++
		}
	}
	for _, tag := range result.UnmappedSectors {
		log.Warn("pipeline: unmapped sector tag", zap.String("tag", tag),
			zap.Int("companies", finished.Unmapped.References(tag)))
	}

	file := dataset.NewDataFile(finished.Companies, fund.BaseURL, rec.Today)
	if err := dataset.Write(p.opts.DataDir, fund.ID, file); err != nil {
		return eris.Wrap(err, "write data file")
	}
	return nil
}
