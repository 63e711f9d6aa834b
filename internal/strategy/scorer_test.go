package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
	"ultra_signals/internal/strategy/indicators"
)

func testThresholds() models.Thresholds {
	return models.Thresholds{RSIOversold: 30, RSIOverbought: 70, MinConfirmations: 3, UltraMinScore: 4}
}

func bullishSnapshot() models.Snapshot {
	return models.Snapshot{
		LastClose:  100,
		RSI:        models.Some(25),
		MACD:       models.Some(1.2),
		MACDSignal: models.Some(0.8),
		EMAFast:    models.Some(101),
		EMASlow:    models.Some(99),
	}
}

func TestScore_AllBullish(t *testing.T) {
	sc := NewScorer(DefaultVoters(indicators.DefaultParams(), false)...)

	v := sc.Score(bullishSnapshot(), testThresholds())

	assert.Equal(t, models.SideBuy, v.Direction)
	assert.Equal(t, 3, v.BuyCount)
	assert.Equal(t, 0, v.SellCount)
	assert.Equal(t, []string{"RSI oversold (25.0)", "MACD>Signal", "EMA20>EMA50"}, v.Reasons)
	assert.Equal(t, 100.0, v.LastPrice)
}

func TestScore_MinConfirmationsBoundary(t *testing.T) {
	sc := NewScorer(DefaultVoters(indicators.DefaultParams(), false)...)
	th := testThresholds()

	th.MinConfirmations = 3
	assert.Equal(t, models.SideBuy, sc.Score(bullishSnapshot(), th).Direction)

	th.MinConfirmations = 4
	v := sc.Score(bullishSnapshot(), th)
	assert.Equal(t, models.SideNone, v.Direction)
	assert.Equal(t, 3, v.BuyCount)
}

func TestScore_VolumeAmplifiesLeader(t *testing.T) {
	sc := NewScorer(DefaultVoters(indicators.DefaultParams(), false)...)
	th := testThresholds()
	th.MinConfirmations = 4

	s := bullishSnapshot()
	s.VolumeSurge = true
	v := sc.Score(s, th)

	assert.Equal(t, 4, v.BuyCount)
	assert.Equal(t, models.SideBuy, v.Direction)
	assert.Contains(t, v.Reasons, "Volume supports BUY")
}

func TestScore_VolumeIgnoredOnTie(t *testing.T) {
	sc := NewScorer(DefaultVoters(indicators.DefaultParams(), false)...)

	s := models.Snapshot{
		LastClose:   10,
		MACD:        models.Some(1),
		MACDSignal:  models.Some(2),
		EMAFast:     models.Some(11),
		EMASlow:     models.Some(10),
		VolumeSurge: true,
	}
	v := sc.Score(s, testThresholds())

	assert.Equal(t, 1, v.BuyCount)
	assert.Equal(t, 1, v.SellCount)
	assert.Equal(t, models.SideNone, v.Direction)
	assert.NotContains(t, v.Reasons, "Volume supports BUY")
}

func TestScore_UnavailableIndicatorsDoNotVote(t *testing.T) {
	sc := NewScorer(DefaultVoters(indicators.DefaultParams(), true)...)

	v := sc.Score(models.Snapshot{LastClose: 5}, testThresholds())

	assert.Zero(t, v.BuyCount)
	assert.Zero(t, v.SellCount)
	assert.Empty(t, v.Reasons)
	assert.Equal(t, models.SideNone, v.Direction)
}

func TestScore_NeutralRSIAndDoji(t *testing.T) {
	sc := NewScorer(RSIVoter{}, PatternVoter{})

	v := sc.Score(models.Snapshot{RSI: models.Some(50), Pattern: models.PatternDoji}, testThresholds())

	assert.Zero(t, v.BuyCount+v.SellCount)
}

func TestEMAVoter_EqualIsSell(t *testing.T) {
	side, reason := EMAVoter{Fast: 20, Slow: 50}.Vote(models.Snapshot{
		EMAFast: models.Some(10),
		EMASlow: models.Some(10),
	}, testThresholds())

	require.Equal(t, models.SideSell, side)
	assert.Equal(t, "EMA20<=EMA50", reason)
}

func TestBollingerVoter(t *testing.T) {
	s := models.Snapshot{LastClose: 90, BollingerLow: models.Some(95), BollingerHigh: models.Some(105)}
	side, _ := BollingerVoter{}.Vote(s, testThresholds())
	assert.Equal(t, models.SideBuy, side)

	s.LastClose = 106
	side, _ = BollingerVoter{}.Vote(s, testThresholds())
	assert.Equal(t, models.SideSell, side)

	s.LastClose = 100
	side, _ = BollingerVoter{}.Vote(s, testThresholds())
	assert.Equal(t, models.SideNone, side)
}
