package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
)

func TestPlan_PercentBuy(t *testing.T) {
	p := NewPlanner(DefaultPlanConfig())

	plan, err := p.Plan(models.AggregateSignal{Direction: models.SideBuy, LastPrice: 50000, BuyTotal: 9})
	require.NoError(t, err)

	assert.Equal(t, 50000.0, plan.Entry)
	assert.InDelta(t, 49700.0, plan.StopLoss, 1e-6)
	assert.InDelta(t, 50400.0, plan.TakeProfit1, 1e-6)
	assert.InDelta(t, 50750.0, plan.TakeProfit2, 1e-6)
	assert.Equal(t, 20, plan.Leverage)
}

func TestPlan_OrderingHolds(t *testing.T) {
	p := NewPlanner(DefaultPlanConfig())
	for _, price := range []float64{0.00001234, 0.05, 1, 3.3333, 250.5, 67000} {
		buy, err := p.Plan(models.AggregateSignal{Direction: models.SideBuy, LastPrice: price, BuyTotal: 3})
		require.NoError(t, err)
		assert.Less(t, buy.StopLoss, buy.Entry, "price %v", price)
		assert.Less(t, buy.Entry, buy.TakeProfit1, "price %v", price)
		assert.Less(t, buy.TakeProfit1, buy.TakeProfit2, "price %v", price)

		sell, err := p.Plan(models.AggregateSignal{Direction: models.SideSell, LastPrice: price, SellTotal: 3})
		require.NoError(t, err)
		assert.Greater(t, sell.StopLoss, sell.Entry, "price %v", price)
		assert.Greater(t, sell.Entry, sell.TakeProfit1, "price %v", price)
		assert.Greater(t, sell.TakeProfit1, sell.TakeProfit2, "price %v", price)
	}
}

func TestPlan_ATRPolicy(t *testing.T) {
	cfg := DefaultPlanConfig()
	cfg.Policy = PlanATR
	p := NewPlanner(cfg)

	sig := models.AggregateSignal{
		Direction: models.SideSell,
		LastPrice: 100,
		SellTotal: 4,
		Primary:   models.Snapshot{ATR: models.Some(2)},
	}
	plan, err := p.Plan(sig)
	require.NoError(t, err)
	assert.InDelta(t, 102.0, plan.StopLoss, 1e-9)
	assert.InDelta(t, 97.0, plan.TakeProfit1, 1e-9)
	assert.InDelta(t, 94.0, plan.TakeProfit2, 1e-9)

	sig.Primary.ATR = models.None()
	_, err = p.Plan(sig)
	assert.ErrorIs(t, err, ErrNoATR)
}

func TestPlan_Rejects(t *testing.T) {
	p := NewPlanner(DefaultPlanConfig())

	_, err := p.Plan(models.AggregateSignal{LastPrice: 10})
	assert.ErrorIs(t, err, ErrNoDirection)

	_, err = p.Plan(models.AggregateSignal{Direction: models.SideBuy})
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestLeverage_MonotonicAndCapped(t *testing.T) {
	p := NewPlanner(DefaultPlanConfig())

	assert.Equal(t, 2, p.Leverage(0))
	assert.Equal(t, 2, p.Leverage(1))
	assert.Equal(t, 8, p.Leverage(3))
	assert.Equal(t, 12, p.Leverage(4))
	assert.Equal(t, 20, p.Leverage(5))
	assert.Equal(t, 30, p.Leverage(6))
	assert.Equal(t, 30, p.Leverage(15))

	prev := 0
	for s := 0; s <= 20; s++ {
		lev := p.Leverage(s)
		assert.GreaterOrEqual(t, lev, prev)
		assert.LessOrEqual(t, lev, 30)
		prev = lev
	}
}

func TestLeverage_CapBelowTable(t *testing.T) {
	cfg := DefaultPlanConfig()
	cfg.MaxLeverage = 20
	p := NewPlanner(cfg)
	assert.Equal(t, 20, p.Leverage(5))
	assert.Equal(t, 20, p.Leverage(6))
}

func TestLeverage_NoCap(t *testing.T) {
	cfg := DefaultPlanConfig()
	cfg.MaxLeverage = 0
	cfg.LeverageTable = map[int]int{1: 2, 6: 50}
	assert.Equal(t, 50, NewPlanner(cfg).Leverage(9))
}
