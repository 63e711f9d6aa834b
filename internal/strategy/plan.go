package strategy

import (
	"errors"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"ultra_signals/internal/models"
)

var (
	ErrNoDirection = errors.New("signal has no direction")
	ErrNoPrice     = errors.New("signal has no last price")
	ErrNoATR       = errors.New("atr unavailable for signal")
)

type PlanPolicy string

const (
	// PlanPercent - фиксированные проценты от входа (по умолчанию).
	PlanPercent PlanPolicy = "percent"
	// PlanATR - стоп и цели в ATR от самого короткого таймфрейма.
	PlanATR PlanPolicy = "atr"
)

type PlanConfig struct {
	Policy PlanPolicy

	SLPct  float64
	TP1Pct float64
	TP2Pct float64

	ATRStopMult float64
	ATRTP1Mult  float64
	ATRTP2Mult  float64

	LeverageTable map[int]int
	MaxLeverage   int
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		Policy:        PlanPercent,
		SLPct:         0.006,
		TP1Pct:        0.008,
		TP2Pct:        0.015,
		ATRStopMult:   1.0,
		ATRTP1Mult:    1.5,
		ATRTP2Mult:    3.0,
		LeverageTable: map[int]int{1: 2, 2: 4, 3: 8, 4: 12, 5: 20, 6: 30},
		MaxLeverage:   30,
	}
}

// Planner детерминированно строит план сделки из агрегированного сигнала.
type Planner struct {
	cfg  PlanConfig
	keys []int
}

func NewPlanner(cfg PlanConfig) *Planner {
	if cfg.Policy == "" {
		cfg.Policy = PlanPercent
	}
	if len(cfg.LeverageTable) == 0 {
		cfg.LeverageTable = DefaultPlanConfig().LeverageTable
	}
	keys := make([]int, 0, len(cfg.LeverageTable))
	for k := range cfg.LeverageTable {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &Planner{cfg: cfg, keys: keys}
}

func (p *Planner) Policy() PlanPolicy { return p.cfg.Policy }

func (p *Planner) Plan(sig models.AggregateSignal) (models.TradePlan, error) {
	if sig.Direction == models.SideNone {
		return models.TradePlan{}, ErrNoDirection
	}
	entry := sig.LastPrice
	if entry <= 0 || math.IsNaN(entry) || math.IsInf(entry, 0) {
		return models.TradePlan{}, ErrNoPrice
	}

	var slDist, tp1Dist, tp2Dist float64
	switch p.cfg.Policy {
	case PlanATR:
		atr := sig.Primary.ATR
		if !atr.Ok || atr.Val <= 0 {
			return models.TradePlan{}, ErrNoATR
		}
		slDist = p.cfg.ATRStopMult * atr.Val
		tp1Dist = p.cfg.ATRTP1Mult * atr.Val
		tp2Dist = p.cfg.ATRTP2Mult * atr.Val
	default:
		slDist = entry * p.cfg.SLPct
		tp1Dist = entry * p.cfg.TP1Pct
		tp2Dist = entry * p.cfg.TP2Pct
	}

	sign := 1.0
	if sig.Direction == models.SideSell {
		sign = -1.0
	}
	places := pricePlaces(entry)

	return models.TradePlan{
		Entry:       entry,
		StopLoss:    roundPrice(entry-sign*slDist, places),
		TakeProfit1: roundPrice(entry+sign*tp1Dist, places),
		TakeProfit2: roundPrice(entry+sign*tp2Dist, places),
		Leverage:    p.Leverage(sig.Score()),
	}, nil
}

// Leverage - ступенчатая таблица score -> плечо, не убывает и не выше капа.
func (p *Planner) Leverage(score int) int {
	if len(p.keys) == 0 {
		return 1
	}
	lev := p.cfg.LeverageTable[p.keys[0]]
	for _, k := range p.keys {
		if score < k {
			break
		}
		lev = max(lev, p.cfg.LeverageTable[k])
	}
	if p.cfg.MaxLeverage > 0 && lev > p.cfg.MaxLeverage {
		lev = p.cfg.MaxLeverage
	}
	return lev
}

// pricePlaces: 8 знаков как у старого бота, для копеечных монет больше.
func pricePlaces(price float64) int32 {
	places := int32(8)
	if price < 1 {
		places += int32(math.Ceil(-math.Log10(price)))
	}
	if places > 16 {
		places = 16
	}
	return places
}

func roundPrice(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
