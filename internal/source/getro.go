// Package source pulls raw company and job records from the upstream
// job-board platforms.
package source

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/portfolio-jobs/internal/fetcher"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/normalize"
)

// ErrUpstreamFetch marks a request the upstream platform could not serve.
var ErrUpstreamFetch = eris.New("upstream fetch failed")

// DefaultGetroAPIBase is the public Getro search API.
const DefaultGetroAPIBase = "https://api.getro.com/api/v2"

const (
	companiesPerPage = 12
	// Getro caps job search pages at 20 regardless of hitsPerPage.
	jobsPerPage = 20
	maxPages    = 5000
)

// GetroOptions tunes the Getro adapter.
type GetroOptions struct {
	APIBase       string
	PageBatchSize int
	BatchDelay    time.Duration
}

// Getro reads one Getro collection.
type Getro struct {
	f    fetcher.Fetcher
	fund model.FundConfig
	opts GetroOptions
}

// NewGetro returns an adapter for fund's collection.
func NewGetro(f fetcher.Fetcher, fund model.FundConfig, opts GetroOptions) *Getro {
	if opts.APIBase == "" {
		opts.APIBase = DefaultGetroAPIBase
	}
	opts.APIBase = strings.TrimRight(opts.APIBase, "/")
	if opts.PageBatchSize <= 0 {
		opts.PageBatchSize = 10
	}
	return &Getro{f: f, fund: fund, opts: opts}
}

type getroCompaniesResponse struct {
	Results struct {
		Companies []normalize.RawRecord `json:"companies"`
		Count     int                   `json:"count"`
	} `json:"results"`
}

type getroJob struct {
	CreatedAt    float64 `json:"created_at"`
	Organization struct {
		Slug string `json:"slug"`
	} `json:"organization"`
}

type getroJobsResponse struct {
	Results struct {
		Jobs  []getroJob `json:"jobs"`
		Count int        `json:"count"`
	} `json:"results"`
}

func (g *Getro) url(endpoint string) string {
	return fmt.Sprintf("%s/collections/%s/search/%s", g.opts.APIBase, g.fund.CollectionID, endpoint)
}

// Companies pages through the collection until an empty page or the
// reported count is reached. A failed page fails the listing, since a
// partial list would drop companies from the fund file.
func (g *Getro) Companies(ctx context.Context) ([]normalize.RawRecord, error) {
	var all []normalize.RawRecord
	for page := 0; page < maxPages; page++ {
		body := map[string]any{
			"hitsPerPage": companiesPerPage,
			"page":        page,
			"query":       "",
			"filters":     map[string]any{"page": page},
		}
		var resp getroCompaniesResponse
		if err := g.f.PostJSON(ctx, g.url("companies"), body, &resp); err != nil {
			return nil, eris.Wrapf(ErrUpstreamFetch, "getro %s: companies page %d: %v", g.fund.ID, page, err)
		}
		if len(resp.Results.Companies) == 0 {
			break
		}
		all = append(all, resp.Results.Companies...)
		if len(all) >= resp.Results.Count {
			break
		}
	}
	zap.L().Info("getro companies fetched",
		zap.String("fund", g.fund.ID),
		zap.Int("companies", len(all)),
	)
	return all, nil
}

// Internships counts open internship postings per company slug.
func (g *Getro) Internships(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	fetched := 0
	for page := 0; page < maxPages; page++ {
		resp, err := g.jobsPage(ctx, page, map[string]any{"seniority": []string{"internship"}})
		if err != nil {
			return nil, eris.Wrapf(err, "getro %s: internships page %d", g.fund.ID, page)
		}
		jobs := resp.Results.Jobs
		if len(jobs) == 0 {
			break
		}
		for _, j := range jobs {
			if j.Organization.Slug != "" {
				counts[j.Organization.Slug]++
			}
		}
		fetched += len(jobs)
		if fetched >= resp.Results.Count {
			break
		}
	}
	return counts, nil
}

// DateScan is the outcome of a latest-job-date scan.
type DateScan struct {
	Dates       map[string]string
	Pages       int
	FailedPages int
	Unresolved  int
}

// LatestJobDates scans the job feed (newest first) and records the first
// posting date seen for each target slug. Pages are fetched in bounded
// batches with a pause between batches; failed pages are logged and
// counted. Only the first page is required.
func (g *Getro) LatestJobDates(ctx context.Context, slugs []string) (*DateScan, error) {
	remaining := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		remaining[s] = struct{}{}
	}
	scan := &DateScan{Dates: map[string]string{}}
	if len(remaining) == 0 {
		return scan, nil
	}

	first, err := g.jobsPage(ctx, 0, map[string]any{})
	if err != nil {
		return nil, eris.Wrapf(err, "getro %s: job dates first page", g.fund.ID)
	}
	scan.Pages++
	record(scan, remaining, first.Results.Jobs)

	totalPages := (first.Results.Count + jobsPerPage - 1) / jobsPerPage
	batch := g.opts.PageBatchSize

	for start := 1; start < totalPages && len(remaining) > 0; start += batch {
		end := min(start+batch, totalPages)
		results := make([][]getroJob, end-start)
		var failed atomic.Int32

		grp, gctx := errgroup.WithContext(ctx)
		grp.SetLimit(batch)
		for p := start; p < end; p++ {
			grp.Go(func() error {
				resp, err := g.jobsPage(gctx, p, map[string]any{})
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed.Add(1)
					zap.L().Warn("job date page failed, skipping",
						zap.String("fund", g.fund.ID),
						zap.Int("page", p),
						zap.Error(err),
					)
					return nil // one page never fails the scan
				}
				results[p-start] = resp.Results.Jobs
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, eris.Wrap(err, "getro: job date scan cancelled")
		}

		for _, jobs := range results {
			record(scan, remaining, jobs)
		}
		scan.Pages += end - start
		scan.FailedPages += int(failed.Load())

		zap.L().Debug("job date batch done",
			zap.String("fund", g.fund.ID),
			zap.Int("pages", end),
			zap.Int("total_pages", totalPages),
			zap.Int("dated", len(scan.Dates)),
			zap.Int("remaining", len(remaining)),
		)
		if err := sleep(ctx, g.opts.BatchDelay); err != nil {
			return nil, eris.Wrap(err, "getro: job date scan cancelled")
		}
	}

	scan.Unresolved = len(remaining)
	zap.L().Info("job dates resolved",
		zap.String("fund", g.fund.ID),
		zap.Int("dated", len(scan.Dates)),
		zap.Int("unresolved", scan.Unresolved),
		zap.Int("failed_pages", scan.FailedPages),
	)
	return scan, nil
}

func (g *Getro) jobsPage(ctx context.Context, page int, filters map[string]any) (*getroJobsResponse, error) {
	body := map[string]any{
		"hitsPerPage": jobsPerPage,
		"page":        page,
		"filters":     filters,
	}
	var resp getroJobsResponse
	if err := g.f.PostJSON(ctx, g.url("jobs"), body, &resp); err != nil {
		return nil, eris.Wrapf(ErrUpstreamFetch, "jobs page %d: %v", page, err)
	}
	return &resp, nil
}

// record keeps the first date seen per remaining slug; the feed is sorted
// newest first so that is the latest posting.
func record(scan *DateScan, remaining map[string]struct{}, jobs []getroJob) {
	for _, j := range jobs {
		slug := j.Organization.Slug
		if _, ok := remaining[slug]; !ok {
			continue
		}
		scan.Dates[slug] = time.Unix(int64(j.CreatedAt), 0).UTC().Format("2006-01-02")
		delete(remaining, slug)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
