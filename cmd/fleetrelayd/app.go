package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fleetrelay/fleetrelay/internal/config"
	"github.com/fleetrelay/fleetrelay/internal/metrics"
)

// reportRefreshInterval is how often the SQLite reporting mirror re-syncs
// from the coordinator's in-memory maps. Short enough that /fleet/status
// never looks stale by more than a few seconds, long enough that it never
// competes meaningfully for the coordinator's per-vehicle locks.
const reportRefreshInterval = 5 * time.Second

// App owns the long-lived runtime lifecycle once wireApp has constructed
// every subsystem, grounded on the teacher's internal/daemon.App: an
// errgroup of background loops plus the primary HTTP server, all torn down
// together on context cancellation.
type App struct {
	logger zerolog.Logger
	cfg    config.AppConfig
	deps   *appDeps
}

// NewApp builds an App ready to Run.
func NewApp(logger zerolog.Logger, cfg config.AppConfig, deps *appDeps) *App {
	return &App{logger: logger, cfg: cfg, deps: deps}
}

// Run starts the reporting refresh loop and the HTTP façade (coordinator
// routes plus the Prometheus scrape endpoint), and blocks until ctx is
// cancelled or either fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.runReportRefreshLoop(ctx)
		return nil
	})

	mux := http.NewServeMux()
	mux.Handle("/", a.deps.HTTPServer.Router())
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		a.logger.Info().Str("listen_addr", a.cfg.ListenAddr).Msg("façade listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return g.Wait()
}

func (a *App) runReportRefreshLoop(ctx context.Context) {
	ticker := time.NewTicker(reportRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.deps.ReportStore.RefreshVehicles(ctx, a.deps.Coordinator.Vehicles()); err != nil {
				a.logger.Warn().Err(err).Msg("report mirror vehicle refresh failed")
				continue
			}
			if err := a.deps.ReportStore.RefreshRentals(ctx, a.deps.Coordinator.Rentals()); err != nil {
				a.logger.Warn().Err(err).Msg("report mirror rental refresh failed")
			}
		}
	}
}
