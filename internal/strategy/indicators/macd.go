package indicators

import "ultra_signals/internal/models"

type MACDResult struct {
	Line   models.Value
	Signal models.Value
}

// MACD: EMA(fast) - EMA(slow), сигнальная - EMA(signal) от линии начиная с индекса slow-1.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return MACDResult{}
	}
	f := EMASeries(closes, fast)
	s := EMASeries(closes, slow)

	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, f[i]-s[i])
	}
	return MACDResult{
		Line:   models.Some(line[len(line)-1]),
		Signal: EMA(line, signal),
	}
}
