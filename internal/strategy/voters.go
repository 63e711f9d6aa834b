package strategy

import (
	"fmt"

	"ultra_signals/internal/models"
)

// Voter - один индикатор, который отдаёт ноль или один голос по снапшоту.
// Новые индикаторы добавляются реализацией этого интерфейса.
type Voter interface {
	Name() string
	Vote(s models.Snapshot, th models.Thresholds) (models.Side, string)
}

type RSIVoter struct{}

func (RSIVoter) Name() string { return "rsi" }

func (RSIVoter) Vote(s models.Snapshot, th models.Thresholds) (models.Side, string) {
	if !s.RSI.Ok {
		return models.SideNone, ""
	}
	switch {
	case s.RSI.Val <= th.RSIOversold:
		return models.SideBuy, fmt.Sprintf("RSI oversold (%.1f)", s.RSI.Val)
	case s.RSI.Val >= th.RSIOverbought:
		return models.SideSell, fmt.Sprintf("RSI overbought (%.1f)", s.RSI.Val)
	}
	return models.SideNone, ""
}

type MACDVoter struct{}

func (MACDVoter) Name() string { return "macd" }

func (MACDVoter) Vote(s models.Snapshot, _ models.Thresholds) (models.Side, string) {
	if !s.MACD.Ok || !s.MACDSignal.Ok {
		return models.SideNone, ""
	}
	switch {
	case s.MACD.Val > s.MACDSignal.Val:
		return models.SideBuy, "MACD>Signal"
	case s.MACD.Val < s.MACDSignal.Val:
		return models.SideSell, "MACD<Signal"
	}
	return models.SideNone, ""
}

// EMAVoter: быстрая выше медленной - BUY, иначе SELL.
type EMAVoter struct {
	Fast, Slow int
}

func (EMAVoter) Name() string { return "ema" }

func (v EMAVoter) Vote(s models.Snapshot, _ models.Thresholds) (models.Side, string) {
	if !s.EMAFast.Ok || !s.EMASlow.Ok {
		return models.SideNone, ""
	}
	if s.EMAFast.Val > s.EMASlow.Val {
		return models.SideBuy, fmt.Sprintf("EMA%d>EMA%d", v.Fast, v.Slow)
	}
	return models.SideSell, fmt.Sprintf("EMA%d<=EMA%d", v.Fast, v.Slow)
}

type PatternVoter struct{}

func (PatternVoter) Name() string { return "pattern" }

func (PatternVoter) Vote(s models.Snapshot, _ models.Thresholds) (models.Side, string) {
	side := s.Pattern.Bias()
	if side == models.SideNone {
		return models.SideNone, ""
	}
	return side, patternLabel(s.Pattern)
}

// BollingerVoter - закрытие за границей канала; по умолчанию выключен.
type BollingerVoter struct{}

func (BollingerVoter) Name() string { return "bollinger" }

func (BollingerVoter) Vote(s models.Snapshot, _ models.Thresholds) (models.Side, string) {
	if !s.BollingerLow.Ok || !s.BollingerHigh.Ok {
		return models.SideNone, ""
	}
	switch {
	case s.LastClose <= s.BollingerLow.Val:
		return models.SideBuy, "Close below lower band"
	case s.LastClose >= s.BollingerHigh.Val:
		return models.SideSell, "Close above upper band"
	}
	return models.SideNone, ""
}

func patternLabel(p models.Pattern) string {
	switch p {
	case models.PatternBullishEngulfing:
		return "Bullish engulfing"
	case models.PatternBearishEngulfing:
		return "Bearish engulfing"
	case models.PatternHammer:
		return "Hammer"
	case models.PatternShootingStar:
		return "Shooting star"
	case models.PatternDoji:
		return "Doji"
	}
	return string(p)
}
