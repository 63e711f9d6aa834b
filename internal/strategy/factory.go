package strategy

import (
	"ultra_signals/internal/modules/config"
	"ultra_signals/internal/strategy/indicators"
)

// ParamsFromConfig - периоды индикаторов из секции strategy.
func ParamsFromConfig(cfg *config.Config) indicators.Params {
	s := cfg.Strategy
	return indicators.Params{
		RSIPeriod:       s.RSIPeriod,
		EMAFast:         s.EMAFast,
		EMASlow:         s.EMASlow,
		MACDFast:        s.MACDFast,
		MACDSlow:        s.MACDSlow,
		MACDSignal:      s.MACDSignal,
		ATRPeriod:       s.ATRPeriod,
		BollingerPeriod: s.BollingerPeriod,
		BollingerK:      s.BollingerK,
		VolumePeriod:    s.VolumePeriod,
		VolumeFactor:    s.VolumeFactor,
	}
}

// PlanConfigFromConfig - политика плана и таблица плеча из секции plan.
func PlanConfigFromConfig(cfg *config.Config) PlanConfig {
	p := cfg.Plan
	return PlanConfig{
		Policy:        PlanPolicy(p.Policy),
		SLPct:         p.StopPct,
		TP1Pct:        p.TakeProfit1,
		TP2Pct:        p.TakeProfit2,
		ATRStopMult:   p.ATRStopMult,
		ATRTP1Mult:    p.ATRTP1Mult,
		ATRTP2Mult:    p.ATRTP2Mult,
		LeverageTable: p.LeverageTable,
		MaxLeverage:   p.MaxLeverage,
	}
}
