package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/portfolio-jobs/internal/fetcher"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
)

// CompanySource lists a fund's raw company records. Getro adapters also
// serve internship counts and latest job dates.
type CompanySource interface {
	Companies(ctx context.Context) ([]normalize.RawRecord, error)
}

// ForFund returns the adapter for fund's platform.
func ForFund(f fetcher.Fetcher, fund model.FundConfig, opts GetroOptions) (CompanySource, error) {
	switch fund.Platform {
	case model.PlatformGetro:
		return NewGetro(f, fund, opts), nil
	case model.PlatformConsider:
		return NewConsider(f, fund), nil
	default:
		return nil, eris.Errorf("source: fund %s has unknown platform %q", fund.ID, fund.Platform)
	}
}
