package strategy

import (
	"ultra_signals/internal/models"
	"ultra_signals/internal/strategy/indicators"
)

// Scorer превращает снапшот одного таймфрейма в голос. Без состояния,
// можно звать конкурентно для разных символов.
type Scorer struct {
	voters []Voter
}

func NewScorer(voters ...Voter) *Scorer {
	return &Scorer{voters: voters}
}

// DefaultVoters - RSI, MACD, EMA-кросс и свечной паттерн.
func DefaultVoters(p indicators.Params, withBollinger bool) []Voter {
	vs := []Voter{
		RSIVoter{},
		MACDVoter{},
		EMAVoter{Fast: p.EMAFast, Slow: p.EMASlow},
		PatternVoter{},
	}
	if withBollinger {
		vs = append(vs, BollingerVoter{})
	}
	return vs
}

func (sc *Scorer) Score(s models.Snapshot, th models.Thresholds) models.TimeframeVote {
	var (
		buy, sell int
		reasons   []string
	)
	for _, v := range sc.voters {
		side, reason := v.Vote(s, th)
		switch side {
		case models.SideBuy:
			buy++
		case models.SideSell:
			sell++
		default:
			continue
		}
		reasons = append(reasons, reason)
	}

	// объём только усиливает того, кто уже впереди
	if s.VolumeSurge {
		switch {
		case buy > sell:
			buy++
			reasons = append(reasons, "Volume supports BUY")
		case sell > buy:
			sell++
			reasons = append(reasons, "Volume supports SELL")
		}
	}

	return models.TimeframeVote{
		Direction: decide(buy, sell, th.MinConfirmations),
		BuyCount:  buy,
		SellCount: sell,
		Reasons:   reasons,
		LastPrice: s.LastClose,
	}
}

func decide(buy, sell, minConfirmations int) models.Side {
	switch {
	case buy > sell && buy >= minConfirmations:
		return models.SideBuy
	case sell > buy && sell >= minConfirmations:
		return models.SideSell
	}
	return models.SideNone
}
