package indicators

import "ultra_signals/internal/models"

// Params - периоды индикаторов; задаются один раз из конфига.
type Params struct {
	RSIPeriod       int
	EMAFast         int
	EMASlow         int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	ATRPeriod       int
	BollingerPeriod int
	BollingerK      float64
	VolumePeriod    int
	VolumeFactor    float64
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:       14,
		EMAFast:         20,
		EMASlow:         50,
		MACDFast:        12,
		MACDSlow:        26,
		MACDSignal:      9,
		ATRPeriod:       14,
		BollingerPeriod: 20,
		BollingerK:      2,
		VolumePeriod:    20,
		VolumeFactor:    1.2,
	}
}

// Compute считает снапшот по последней свече. Пустой ряд - пустой снапшот.
func Compute(candles []models.Candle, p Params) models.Snapshot {
	if len(candles) == 0 {
		return models.Snapshot{}
	}
	closes := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	macd := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	bb := Bollinger(closes, p.BollingerPeriod, p.BollingerK)

	return models.Snapshot{
		LastClose:     closes[len(closes)-1],
		RSI:           RSI(closes, p.RSIPeriod),
		EMAFast:       EMA(closes, p.EMAFast),
		EMASlow:       EMA(closes, p.EMASlow),
		MACD:          macd.Line,
		MACDSignal:    macd.Signal,
		ATR:           ATR(candles, p.ATRPeriod),
		BollingerHigh: bb.Upper,
		BollingerLow:  bb.Lower,
		VolumeMA:      VolumeMA(volumes, p.VolumePeriod),
		VolumeSurge:   VolumeSurge(volumes, p.VolumePeriod, p.VolumeFactor),
		Pattern:       DetectPattern(candles),
	}
}
