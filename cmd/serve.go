package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/portfolio-jobs/internal/dataset"
	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/monitoring"
	"github.com/sells-group/portfolio-jobs/internal/stats"
	"github.com/sells-group/portfolio-jobs/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fund data over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		funds, err := selectFunds(nil)
		if err != nil {
			return err
		}

		// Run history is optional for the data API.
		st, err := initStore(ctx)
		if err != nil {
			zap.L().Warn("run store unavailable, /api/runs disabled", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		if st != nil && cfg.Monitoring.CheckIntervalSecs > 0 {
			checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		api := &dataAPI{
			dir:        cfg.Data.Dir,
			funds:      funds,
			staleAfter: cfg.Pipeline.StaleAfterDays,
			store:      st,
			now:        time.Now,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(api, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("data_dir", api.dir))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// dataAPI serves the consumer view. Fund files are re-read on every request
// so a refresh is visible without a restart.
type dataAPI struct {
	dir        string
	funds      []model.FundConfig
	staleAfter int
	store      store.Store
	now        func() time.Time
}

type fundStats struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TotalCompanies int    `json:"totalCompanies"`
	TotalJobs      int    `json:"totalJobs"`
	FreshJobs      int    `json:"freshJobs"`
}

type statsResponse struct {
	stats.TopStats
	Funds []fundStats `json:"funds"`
}

func buildRouter(api *dataAPI, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/funds", api.listFunds)
		r.Get("/funds/{id}", api.getFund)
		r.Get("/stats", api.topStats)
		if api.store != nil {
			r.Get("/runs", api.listRuns)
		}
	})
	return r
}

func (a *dataAPI) load(funds []model.FundConfig) ([]model.VCFund, error) {
	return loadView(a.dir, funds, dataset.LoadOptions{
		Today:          a.now(),
		StaleAfterDays: a.staleAfter,
	})
}

func (a *dataAPI) listFunds(w http.ResponseWriter, _ *http.Request) {
	funds, err := a.load(a.funds)
	if err != nil {
		serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, funds)
}

func (a *dataAPI) getFund(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var fc *model.FundConfig
	for i := range a.funds {
		if a.funds[i].ID == id {
			fc = &a.funds[i]
			break
		}
	}
	if fc == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown fund"})
		return
	}

	funds, err := a.load([]model.FundConfig{*fc})
	if err != nil {
		serverError(w, err)
		return
	}
	if len(funds) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data for fund"})
		return
	}
	writeJSON(w, http.StatusOK, funds[0])
}

func (a *dataAPI) topStats(w http.ResponseWriter, _ *http.Request) {
	funds, err := a.load(a.funds)
	if err != nil {
		serverError(w, err)
		return
	}
	resp := statsResponse{
		TopStats: stats.ComputeTopStats(stats.Flatten(funds)),
		Funds:    make([]fundStats, 0, len(funds)),
	}
	for _, f := range funds {
		resp.Funds = append(resp.Funds, fundStats{
			ID:             f.ID,
			Name:           f.Name,
			TotalCompanies: f.TotalCompanies,
			TotalJobs:      f.TotalJobs,
			FreshJobs:      f.FreshJobs,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *dataAPI) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := a.store.ListRuns(r.Context(), store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		FundID: r.URL.Query().Get("fund"),
		Limit:  50,
	})
	if err != nil {
		serverError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("api request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
