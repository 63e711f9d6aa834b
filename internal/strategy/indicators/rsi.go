package indicators

import "ultra_signals/internal/models"

// RSI - простое скользящее среднее приростов/падений за последние period шагов.
func RSI(closes []float64, period int) models.Value {
	if period <= 0 || len(closes) < period+1 {
		return models.None()
	}
	var gain, loss float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	switch {
	case avgLoss == 0 && avgGain == 0:
		return models.Some(50)
	case avgLoss == 0:
		return models.Some(100)
	}
	rs := avgGain / avgLoss
	return models.Some(100 - 100/(1+rs))
}
