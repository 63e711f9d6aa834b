package indicators

import (
	"math"

	"ultra_signals/internal/models"
)

func trueRange(c, prev models.Candle) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
}

// ATR - простое среднее true range за period свечей (нужна предыдущая свеча).
func ATR(candles []models.Candle, period int) models.Value {
	if period <= 0 || len(candles) < period+1 {
		return models.None()
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	return models.Some(sum / float64(period))
}
