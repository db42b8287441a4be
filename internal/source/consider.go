package source

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/fetcher"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
)

const considerPerPage = 100

// Consider reads a Consider-hosted board, asking the board itself for
// companies with an India office.
type Consider struct {
	f    fetcher.Fetcher
	fund model.FundConfig
}

// NewConsider returns an adapter for fund's board.
func NewConsider(f fetcher.Fetcher, fund model.FundConfig) *Consider {
	return &Consider{f: f, fund: fund}
}

type considerResponse struct {
	Companies  []normalize.RawRecord `json:"companies"`
	TotalCount int                   `json:"totalCount"`
}

// Companies pages through search-companies (1-based pages).
func (c *Consider) Companies(ctx context.Context) ([]normalize.RawRecord, error) {
	url := c.fund.BaseURL + "/api-boards/search-companies"
	var all []normalize.RawRecord
	for page := 1; page <= maxPages; page++ {
		body := map[string]any{
			"query":    map[string]any{"locations": []string{"India"}},
			"page":     page,
			"per_page": considerPerPage,
		}
		var resp considerResponse
		if err := c.f.PostJSON(ctx, url, body, &resp); err != nil {
			return nil, eris.Wrapf(ErrUpstreamFetch, "consider %s: companies page %d: %v", c.fund.ID, page, err)
		}
		if len(resp.Companies) == 0 {
			break
		}
		all = append(all, resp.Companies...)
		if resp.TotalCount > 0 && len(all) >= resp.TotalCount {
			break
		}
	}
	zap.L().Info("consider companies fetched",
		zap.String("fund", c.fund.ID),
		zap.Int("companies", len(all)),
	)
	return all, nil
}
