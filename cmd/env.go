package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/portfolio-jobs/internal/config"
	"github.com/sells-group/portfolio-jobs/internal/fetcher"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/registry"
	"github.com/sells-group/portfolio-jobs/internal/source"
	"github.com/sells-group/portfolio-jobs/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "portfolio-jobs.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// selectFunds loads the fund registry and resolves the --funds flag.
func selectFunds(ids []string) ([]model.FundConfig, error) {
	reg, err := registry.Load(cfg.Data.FundsFile)
	if err != nil {
		return nil, err
	}
	return reg.Select(ids)
}

func newFetcher(fc config.FetchConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:        fc.UserAgent,
		Timeout:          time.Duration(fc.TimeoutSecs) * time.Second,
		MaxRetries:       fc.MaxRetries,
		RequestsPerSec:   fc.RequestsPerSec,
		AdaptiveLimiters: fetcher.DefaultAdaptiveLimiters(),
	})
}

func getroOptions(fc config.FetchConfig) source.GetroOptions {
	return source.GetroOptions{
		APIBase:       fc.GetroAPIBase,
		PageBatchSize: fc.PageBatchSize,
		BatchDelay:    time.Duration(fc.BatchDelayMS) * time.Millisecond,
	}
}
