package indicators

import (
	"math"

	"ultra_signals/internal/models"
)

const (
	dojiBodyRatio   = 0.1
	shadowBodyRatio = 2.0
)

// DetectPattern смотрит только на две последние свечи и отдаёт не больше одного паттерна.
func DetectPattern(candles []models.Candle) models.Pattern {
	if len(candles) < 2 {
		return models.PatternNone
	}
	prev := candles[len(candles)-2]
	last := candles[len(candles)-1]

	switch {
	case isBullishEngulfing(prev, last):
		return models.PatternBullishEngulfing
	case isBearishEngulfing(prev, last):
		return models.PatternBearishEngulfing
	}

	rng := last.High - last.Low
	if rng <= 0 {
		return models.PatternNone
	}
	body := math.Abs(last.Close - last.Open)
	upper := last.High - math.Max(last.Open, last.Close)
	lower := math.Min(last.Open, last.Close) - last.Low

	switch {
	case body <= dojiBodyRatio*rng:
		return models.PatternDoji
	case lower >= shadowBodyRatio*body && upper <= body:
		return models.PatternHammer
	case upper >= shadowBodyRatio*body && lower <= body:
		return models.PatternShootingStar
	}
	return models.PatternNone
}

func isBullishEngulfing(prev, last models.Candle) bool {
	return last.Close > last.Open && last.Open < prev.Close && last.Close > prev.Open
}

func isBearishEngulfing(prev, last models.Candle) bool {
	return last.Close < last.Open && last.Open > prev.Close && last.Close < prev.Open
}
