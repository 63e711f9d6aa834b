package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/metrics"
)

// ErrInsufficientData - свечей меньше, чем нужно для индикаторов.
var ErrInsufficientData = errors.New("insufficient candle history")

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	RequestDelay   time.Duration
	MinCandles     int
}

// Client - REST Binance USDT-M futures, только публичные ручки.
type Client struct {
	cfg     Config
	http    *http.Client
	pace    *pacer
	stream  *Stream
	metrics *metrics.Recorder
}

func NewClient(cfg Config, stream *Stream, rec *metrics.Recorder) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://fapi.binance.com"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		pace:    newPacer(cfg.RequestDelay),
		stream:  stream,
		metrics: rec,
	}
}

// GetCandles: kline row = [openTime, open, high, low, close, volume, closeTime, ...].
// Ряд возвращается по возрастанию времени, как его отдаёт биржа.
func (c *Client) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if !tf.Valid() {
		return nil, errors.Errorf("unsupported timeframe %q", tf)
	}
	if limit <= 0 {
		limit = 200
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "klines", "/fapi/v1/klines", q)
	if err != nil {
		return nil, errors.Wrapf(err, "klines %s %s", symbol, tf)
	}

	var rows [][]any
	if err := sonic.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrapf(err, "decode klines %s %s", symbol, tf)
	}

	out := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		ts, ok := toFloat(row[0])
		if !ok {
			continue
		}
		o, ok1 := toFloat(row[1])
		h, ok2 := toFloat(row[2])
		l, ok3 := toFloat(row[3])
		cl, ok4 := toFloat(row[4])
		v, _ := toFloat(row[5])
		if !ok1 || !ok2 || !ok3 || !ok4 || cl <= 0 {
			continue
		}
		out = append(out, models.Candle{
			OpenTime: time.UnixMilli(int64(ts)).UTC(),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    cl,
			Volume:   v,
		})
	}

	if c.cfg.MinCandles > 0 && len(out) < c.cfg.MinCandles {
		return nil, errors.Wrapf(ErrInsufficientData, "%s %s: %d candles", symbol, tf, len(out))
	}
	return out, nil
}

// get - один запрос с общей паузой между запросами и своим таймаутом.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRequest(endpoint, "error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	c.metrics.RecordRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("http %d: %s", resp.StatusCode, truncate(string(b), 200))
	}
	return b, nil
}
