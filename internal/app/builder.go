package app

import (
	"fmt"

	"tradelens/internal/config"
	"tradelens/internal/correlate"
	"tradelens/internal/report"
	"tradelens/internal/store"
	"tradelens/internal/store/sqlite"
	reporthttp "tradelens/internal/transport/http/report"
)

// AppBuilder assembles the dependency graph. Constructors are swappable
// so tests can inject fakes.
type AppBuilder struct {
	cfg *config.Config

	storeFn func(string) (store.Store, error)
	rulesFn func(string) (*correlate.RuleRegistry, error)

	storeOverride store.Store
}

// AppBuilderOption tweaks the builder.
type AppBuilderOption func(*AppBuilder)

// WithStore replaces the sqlite store, mainly for tests.
func WithStore(st store.Store) AppBuilderOption {
	return func(b *AppBuilder) { b.storeOverride = st }
}

// NewAppBuilder prepares a builder with the default constructors.
func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:     cfg,
		storeFn: openStore,
		rulesFn: correlate.NewRuleRegistry,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func openStore(path string) (store.Store, error) {
	return sqlite.NewSqliteStore(path)
}

// Build constructs the application without starting it.
func (b *AppBuilder) Build() (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	st := b.storeOverride
	if st == nil {
		opened, err := b.storeFn(b.cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store failed: %w", err)
		}
		st = opened
	}
	rules, err := b.rulesFn(b.cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("load classifier rules failed: %w", err)
	}
	svc := report.NewService(st, b.cfg.Report, rules)
	srv, err := reporthttp.NewServer(reporthttp.ServerConfig{
		Addr:    b.cfg.App.HTTPAddr,
		Service: svc,
		Store:   st,
	})
	if err != nil {
		return nil, fmt.Errorf("build http server failed: %w", err)
	}
	return &App{cfg: b.cfg, store: st, service: svc, httpServer: srv}, nil
}
