package strategy

import (
	"go.uber.org/fx"

	"ultra_signals/internal/modules/config"
	market "ultra_signals/internal/modules/market/service"
)

func NewAggregatorFromConfig(cfg *config.Config, src *market.Client) *Aggregator {
	p := ParamsFromConfig(cfg)
	scorer := NewScorer(DefaultVoters(p, cfg.Strategy.BollingerVote)...)
	return NewAggregator(src, scorer, IndicatorAnalyzer(p), cfg.Market.CandleLimit)
}

func NewPlannerFromConfig(cfg *config.Config) *Planner {
	return NewPlanner(PlanConfigFromConfig(cfg))
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewAggregatorFromConfig,
			NewPlannerFromConfig,
		),
	)
}
