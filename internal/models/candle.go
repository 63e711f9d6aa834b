package models

import (
	"math"
	"time"
)

// Candle - свеча OHLCV, ряды всегда по возрастанию OpenTime.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Value - значение индикатора, которого может не быть (мало истории).
type Value struct {
	Val float64
	Ok  bool
}

// Some никогда не пропускает NaN/Inf дальше: такое значение считается недоступным.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{Val: v, Ok: true}
}

func None() Value { return Value{} }

type Pattern string

const (
	PatternNone             Pattern = ""
	PatternBullishEngulfing Pattern = "bullish_engulfing"
	PatternBearishEngulfing Pattern = "bearish_engulfing"
	PatternHammer           Pattern = "hammer"
	PatternShootingStar     Pattern = "shooting_star"
	PatternDoji             Pattern = "doji"
)

// Bias возвращает направление паттерна; doji нейтрален.
func (p Pattern) Bias() Side {
	switch p {
	case PatternBullishEngulfing, PatternHammer:
		return SideBuy
	case PatternBearishEngulfing, PatternShootingStar:
		return SideSell
	default:
		return SideNone
	}
}

// Snapshot - индикаторы по последней свече одного символа/таймфрейма.
type Snapshot struct {
	LastClose     float64
	RSI           Value
	EMAFast       Value
	EMASlow       Value
	MACD          Value
	MACDSignal    Value
	ATR           Value
	BollingerHigh Value
	BollingerLow  Value
	VolumeMA      Value
	VolumeSurge   bool
	Pattern       Pattern
}
