package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tradelens/internal/config"
	"tradelens/internal/correlate"
	"tradelens/internal/logger"
	"tradelens/internal/report"
	"tradelens/internal/scheduler"
	"tradelens/internal/store"
	reporthttp "tradelens/internal/transport/http/report"
)

// App owns application-level orchestration: config in, store and report
// service wired, HTTP surface up.
type App struct {
	cfg        *config.Config
	store      store.Store
	service    *report.Service
	httpServer *reporthttp.Server
}

// NewApp builds the application object without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(cfg)
}

// Service exposes the report service, mainly for tests.
func (a *App) Service() *report.Service {
	return a.service
}

// refresh warms the cached reports so the first HTTP hit after startup
// (and every interval after) serves fresh data.
func (a *App) refresh(ctx context.Context) func() {
	return func() {
		if _, err := a.service.MissedTrades(ctx, correlate.Filter{}); err != nil {
			logger.Warnf("scheduled missed-trade refresh failed: %v", err)
		}
		if _, err := a.service.TrailingBenefit(ctx, correlate.Filter{}); err != nil {
			logger.Warnf("scheduled trailing refresh failed: %v", err)
		}
	}
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.httpServer == nil {
		return fmt.Errorf("http server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("report API listening on %s", a.httpServer.Addr())
		return a.httpServer.Start(ctx)
	})
	if interval, ok := scheduler.ParseIntervalDuration(a.cfg.Report.RefreshInterval); ok {
		group.Go(func() error {
			s := scheduler.NewAlignedScheduler(ctx, "report-refresh", interval, 0)
			s.RunImmediately = true
			s.Start(a.refresh(ctx))
			return nil
		})
	}
	err := group.Wait()
	if closeErr := a.store.Close(); closeErr != nil {
		logger.Warnf("closing store failed: %v", closeErr)
	}
	return err
}
