package dataset

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/enrich"
	"github.com/sells-group/portfolio-jobs/internal/filter"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/reference"
	"github.com/sells-group/portfolio-jobs/internal/stats"
)

// LoadOptions tunes the render-time view.
type LoadOptions struct {
	Today          time.Time
	StaleAfterDays int
}

// LoadFunds builds the consumer view for every configured fund in order.
// Funds without a data file are skipped with a warning. Derived flags are
// recomputed from refs and today; stored values are ignored.
func LoadFunds(dir string, funds []model.FundConfig, refs *reference.Set, opts LoadOptions) ([]model.VCFund, error) {
	var listed reference.SlugSet
	if refs != nil {
		listed = refs.Listed
	}

	out := make([]model.VCFund, 0, len(funds))
	for _, fc := range funds {
		f, err := Read(dir, fc.ID)
		if errors.Is(err, ErrMissingDataFile) {
			zap.L().Warn("fund data file missing, skipping",
				zap.String("fund", fc.ID),
				zap.String("path", Path(dir, fc.ID)),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		companies := filter.Persisted(f.Companies, fc.ID, refs)
		companies = enrich.Apply(companies, enrich.Options{
			Today:          opts.Today,
			StaleAfterDays: opts.StaleAfterDays,
			Listed:         listed,
		})

		totals := stats.FundTotals(companies)
		out = append(out, model.VCFund{
			FundConfig:     fc,
			Companies:      companies,
			TotalCompanies: totals.TotalCompanies,
			TotalJobs:      totals.TotalJobs,
			FreshJobs:      totals.FreshJobs,
		})
	}
	return out, nil
}
