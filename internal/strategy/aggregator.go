package strategy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"ultra_signals/internal/models"
	"ultra_signals/internal/strategy/indicators"
	"ultra_signals/pkg/logger"
)

// ErrNoData - ни по одному таймфрейму не пришли свечи.
var ErrNoData = errors.New("no candle data for any timeframe")

// CandleSource - источник свечей (биржа). Свечи по возрастанию времени.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error)
}

// Analyzer считает снапшот по ряду свечей.
type Analyzer func(candles []models.Candle) models.Snapshot

// IndicatorAnalyzer - обычный расчёт через библиотеку индикаторов.
func IndicatorAnalyzer(p indicators.Params) Analyzer {
	return func(candles []models.Candle) models.Snapshot {
		return indicators.Compute(candles, p)
	}
}

type Aggregator struct {
	src     CandleSource
	scorer  *Scorer
	analyze Analyzer
	limit   int
}

func NewAggregator(src CandleSource, scorer *Scorer, analyze Analyzer, limit int) *Aggregator {
	if limit <= 0 {
		limit = 200
	}
	return &Aggregator{src: src, scorer: scorer, analyze: analyze, limit: limit}
}

// Evaluate прогоняет скоринг по всем таймфреймам и решает, ultra это или нет.
// Таймфрейм, по которому не удалось взять свечи, просто пропускается.
func (a *Aggregator) Evaluate(
	ctx context.Context,
	symbol string,
	timeframes []models.Timeframe,
	th models.Thresholds,
) (models.AggregateSignal, error) {
	sig := models.AggregateSignal{
		Symbol:       symbol,
		Timeframes:   slices.Clone(timeframes),
		PerTimeframe: make(map[models.Timeframe]models.TimeframeVote, len(timeframes)),
	}

	var (
		lastErr   error
		primaryTF models.Timeframe
		snaps     = make(map[models.Timeframe]models.Snapshot, len(timeframes))
	)
	for _, tf := range timeframes {
		if err := ctx.Err(); err != nil {
			return sig, err
		}
		candles, err := a.src.GetCandles(ctx, symbol, tf, a.limit)
		if err != nil {
			logger.Warn("[AGG] %s %s: candles unavailable: %v", symbol, tf, err)
			lastErr = err
			continue
		}
		if len(candles) == 0 {
			lastErr = fmt.Errorf("%s %s: empty candle series", symbol, tf)
			continue
		}

		snap := a.analyze(candles)
		vote := a.scorer.Score(snap, th)
		snaps[tf] = snap
		sig.PerTimeframe[tf] = vote
		sig.BuyTotal += vote.BuyCount
		sig.SellTotal += vote.SellCount

		if primaryTF == "" || tf.Duration() < primaryTF.Duration() {
			primaryTF = tf
		}
	}

	if primaryTF == "" {
		if lastErr == nil {
			lastErr = errors.New("no timeframes requested")
		}
		return sig, fmt.Errorf("%w: %v", ErrNoData, lastErr)
	}
	sig.Primary = snaps[primaryTF]
	sig.LastPrice = snaps[primaryTF].LastClose

	sig.Direction, sig.Ultra = resolve(sig, th)
	return sig, nil
}

// resolve: направление по сумме голосов, вето при несогласии таймфреймов,
// ultra - если все голосующие таймфреймы согласны и счёт выше порога.
func resolve(sig models.AggregateSignal, th models.Thresholds) (models.Side, bool) {
	var dir models.Side
	switch {
	case sig.BuyTotal > sig.SellTotal:
		dir = models.SideBuy
	case sig.SellTotal > sig.BuyTotal:
		dir = models.SideSell
	default:
		return models.SideNone, false
	}

	seen := make(map[models.Side]struct{}, 2)
	for _, v := range sig.PerTimeframe {
		if v.Direction != models.SideNone {
			seen[v.Direction] = struct{}{}
		}
	}
	if len(seen) > 1 {
		return models.SideNone, false
	}
	if len(seen) == 0 {
		return dir, false
	}
	if _, ok := seen[dir]; !ok {
		return dir, false
	}

	need := max(th.MinConfirmations, th.UltraMinScore)
	return dir, sig.Score() >= need
}
