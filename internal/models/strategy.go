package models

import "strings"

// Side: "BUY"/"SELL" или пустая строка (нет сигнала).
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

// Thresholds - пороги подписчика, которые нужны скорингу.
type Thresholds struct {
	RSIOversold      float64
	RSIOverbought    float64
	MinConfirmations int
	UltraMinScore    int
}

// TimeframeVote - итог голосования индикаторов на одном таймфрейме.
type TimeframeVote struct {
	Direction Side
	BuyCount  int
	SellCount int
	Reasons   []string
	LastPrice float64
}

// AggregateSignal собирается заново на каждом тике и дальше не меняется.
type AggregateSignal struct {
	Symbol       string
	Timeframes   []Timeframe
	Direction    Side
	BuyTotal     int
	SellTotal    int
	PerTimeframe map[Timeframe]TimeframeVote
	LastPrice    float64
	Ultra        bool

	// Primary - снапшот самого короткого таймфрейма с данными (ATR для плана).
	Primary Snapshot
}

func (a AggregateSignal) Score() int {
	if a.BuyTotal > a.SellTotal {
		return a.BuyTotal
	}
	return a.SellTotal
}

// TradePlan - только рекомендация, ордера не выставляются.
type TradePlan struct {
	Entry       float64
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	Leverage    int
}

func JoinTimeframes(tfs []Timeframe) string {
	parts := make([]string, 0, len(tfs))
	for _, tf := range tfs {
		parts = append(parts, string(tf))
	}
	return strings.Join(parts, "+")
}
