package service

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"ultra_signals/pkg/logger"
)

// Ticker - 24h статистика по символу.
type Ticker struct {
	Symbol         string
	LastPrice      float64
	PriceChangePct float64
	QuoteVolume    float64
}

type rawTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
}

func (c *Client) FetchTickers(ctx context.Context) ([]Ticker, error) {
	body, err := c.get(ctx, "ticker24h", "/fapi/v1/ticker/24hr", nil)
	if err != nil {
		return nil, errors.Wrap(err, "ticker 24h")
	}

	var raw []rawTicker
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "decode ticker 24h")
	}

	out := make([]Ticker, 0, len(raw))
	for _, r := range raw {
		last, err1 := strconv.ParseFloat(r.LastPrice, 64)
		pct, err2 := strconv.ParseFloat(r.PriceChangePercent, 64)
		qv, err3 := strconv.ParseFloat(r.QuoteVolume, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		out = append(out, Ticker{Symbol: r.Symbol, LastPrice: last, PriceChangePct: pct, QuoteVolume: qv})
	}
	return out, nil
}

// tickers: свежий снапшот стрима, если он есть, иначе REST.
func (c *Client) tickers(ctx context.Context) ([]Ticker, error) {
	if c.stream != nil {
		if snap, ok := c.stream.Snapshot(); ok {
			return snap, nil
		}
		logger.Debug("[MARKET] ticker stream stale, falling back to REST")
	}
	return c.FetchTickers(ctx)
}

// TopByVolume - n USDT-контрактов с наибольшим 24h оборотом в quote.
func (c *Client) TopByVolume(ctx context.Context, n int) ([]string, error) {
	all, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	arr := usdtOnly(all)
	sort.SliceStable(arr, func(i, j int) bool { return arr[i].QuoteVolume > arr[j].QuoteVolume })

	n = min(n, len(arr))
	res := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res = append(res, arr[i].Symbol)
	}
	return res, nil
}

// TopMovers - n символов с самым большим |изменением цены| за 24h.
func (c *Client) TopMovers(ctx context.Context, n int) ([]Ticker, error) {
	all, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	arr := usdtOnly(all)
	sort.SliceStable(arr, func(i, j int) bool {
		return math.Abs(arr[i].PriceChangePct) > math.Abs(arr[j].PriceChangePct)
	})
	return arr[:min(n, len(arr))], nil
}

func usdtOnly(in []Ticker) []Ticker {
	out := make([]Ticker, 0, len(in))
	for _, t := range in {
		if strings.HasSuffix(t.Symbol, "USDT") && t.LastPrice > 0 {
			out = append(out, t)
		}
	}
	return out
}
