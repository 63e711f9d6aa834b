package indicators

import (
	"math"

	"ultra_signals/internal/models"
)

type Bands struct {
	Middle models.Value
	Upper  models.Value
	Lower  models.Value
}

// Bollinger: SMA ± k·std (генеральная дисперсия, ddof=0).
func Bollinger(closes []float64, period int, k float64) Bands {
	if period <= 0 || len(closes) < period {
		return Bands{}
	}
	window := closes[len(closes)-period:]
	m := mean(window)
	var ss float64
	for _, v := range window {
		ss += (v - m) * (v - m)
	}
	sd := math.Sqrt(ss / float64(period))
	return Bands{
		Middle: models.Some(m),
		Upper:  models.Some(m + k*sd),
		Lower:  models.Some(m - k*sd),
	}
}
