package service

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"ultra_signals/pkg/logger"
	"ultra_signals/pkg/metrics"
)

// Stream держит в памяти 24h-тикеры всего рынка из !ticker@arr.
type Stream struct {
	url    string
	maxAge time.Duration
	dialer *websocket.Dialer

	metrics   *metrics.Recorder
	connected atomic.Bool

	mu      sync.RWMutex
	tickers map[string]Ticker
	updated time.Time
}

func NewStream(url string, maxAge time.Duration, rec *metrics.Recorder) *Stream {
	if maxAge <= 0 {
		maxAge = 2 * time.Minute
	}
	return &Stream{
		url:     url,
		maxAge:  maxAge,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		metrics: rec,
		tickers: make(map[string]Ticker),
	}
}

func (s *Stream) Connected() bool { return s.connected.Load() }

// Snapshot отдаёт копию тикеров; false если данных нет или они протухли.
func (s *Stream) Snapshot() ([]Ticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tickers) == 0 || time.Since(s.updated) > s.maxAge {
		return nil, false
	}
	out := make([]Ticker, 0, len(s.tickers))
	for _, t := range s.tickers {
		out = append(out, t)
	}
	return out, true
}

// Run держит соединение до отмены ctx, переподключаясь с backoff до 30s.
func (s *Stream) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := s.session(ctx)
		s.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("[WS] ticker stream dropped: %v, retry in %s", err, backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// закрываем сокет при отмене, чтобы ReadMessage вернулся
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	s.setConnected(true)
	logger.Info("[WS] ticker stream connected")

	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.maxAge))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.apply(msg, time.Now()); err != nil {
			logger.Debug("[WS] bad frame: %v", err)
		}
	}
}

type wsTicker struct {
	Symbol      string `json:"s"`
	LastPrice   string `json:"c"`
	ChangePct   string `json:"P"`
	QuoteVolume string `json:"q"`
}

func (s *Stream) apply(msg []byte, now time.Time) error {
	var frame []wsTicker
	if err := sonic.Unmarshal(msg, &frame); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range frame {
		last, err1 := strconv.ParseFloat(f.LastPrice, 64)
		pct, err2 := strconv.ParseFloat(f.ChangePct, 64)
		qv, err3 := strconv.ParseFloat(f.QuoteVolume, 64)
		if f.Symbol == "" || err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		s.tickers[f.Symbol] = Ticker{Symbol: f.Symbol, LastPrice: last, PriceChangePct: pct, QuoteVolume: qv}
	}
	s.updated = now
	return nil
}

func (s *Stream) setConnected(up bool) {
	if s.connected.Swap(up) != up {
		s.metrics.SetStreamConnected(up)
	}
}
