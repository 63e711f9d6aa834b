package runner

import (
	"context"

	"go.uber.org/fx"

	alerts "ultra_signals/internal/modules/alerts/service"
	"ultra_signals/internal/modules/config"
	health "ultra_signals/internal/modules/health/service"
	market "ultra_signals/internal/modules/market/service"
	storage "ultra_signals/internal/modules/storage/service"
	"ultra_signals/internal/strategy"
	"ultra_signals/pkg/metrics"
)

type scannerParams struct {
	fx.In

	Cfg        *config.Config
	Aggregator *strategy.Aggregator
	Planner    *strategy.Planner
	Market     *market.Client
	Gate       *alerts.Gate
	Notifier   Notifier
	Metrics    *metrics.Recorder
	State      *health.State
}

func NewScannerFromDeps(p scannerParams) *Scanner {
	return NewScanner(ScannerDeps{
		Evaluator: p.Aggregator,
		Planner:   p.Planner,
		Universe:  p.Market,
		Gate:      p.Gate,
		Notifier:  p.Notifier,
		Metrics:   p.Metrics,
		Health:    p.State,
		Workers:   p.Cfg.Scan.Workers,
	})
}

func NewManagerFromDeps(store storage.Store, sc *Scanner, rec *metrics.Recorder) *Manager {
	return NewManager(store, sc, rec)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewScannerFromDeps,
			NewManagerFromDeps,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return m.Shutdown(ctx)
				},
			})
		}),
	)
}
