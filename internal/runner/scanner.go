package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/logger"
	"ultra_signals/pkg/metrics"
)

type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, timeframes []models.Timeframe, th models.Thresholds) (models.AggregateSignal, error)
}

type Planner interface {
	Plan(sig models.AggregateSignal) (models.TradePlan, error)
}

type Universe interface {
	TopByVolume(ctx context.Context, n int) ([]string, error)
}

type Gate interface {
	Admit(key models.AlertKey, now time.Time) bool
	Flush(ctx context.Context) error
}

type TickRecorder interface {
	TouchTick(t time.Time)
}

// Result - итог по одному символу.
type Result struct {
	Symbol string
	Signal models.AggregateSignal
	Plan   *models.TradePlan
	Err    error
}

// TickReport - сводка одного тика для логов.
type TickReport struct {
	Symbols    int
	Ultra      int
	Sent       int
	Suppressed int
	Errors     int
}

type ScannerDeps struct {
	Evaluator Evaluator
	Planner   Planner
	Universe  Universe
	Gate      Gate
	Notifier  Notifier
	Metrics   *metrics.Recorder
	Health    TickRecorder
	Workers   int
}

// Scanner прогоняет символы подписчика через агрегатор и рассылает ultra-сигналы.
type Scanner struct {
	eval     Evaluator
	planner  Planner
	universe Universe
	gate     Gate
	notifier Notifier
	metrics  *metrics.Recorder
	health   TickRecorder
	workers  int

	now func() time.Time
}

func NewScanner(d ScannerDeps) *Scanner {
	if d.Workers <= 0 {
		d.Workers = 4
	}
	return &Scanner{
		eval:     d.Evaluator,
		planner:  d.Planner,
		universe: d.Universe,
		gate:     d.Gate,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		health:   d.Health,
		workers:  d.Workers,
		now:      time.Now,
	}
}

// ResolveSymbols строит список символов на тик по режиму подписчика.
func (s *Scanner) ResolveSymbols(ctx context.Context, st models.Settings) ([]string, error) {
	switch st.AutoMode {
	case models.ModeSingle:
		if st.PinnedSymbol == "" {
			return nil, fmt.Errorf("%w: single mode without pinned symbol", models.ErrConfigInvalid)
		}
		return []string{st.PinnedSymbol}, nil
	case models.ModeWatchlist:
		return slices.Clone(st.Symbols), nil
	}

	top, err := s.universe.TopByVolume(ctx, st.ScanTopN)
	if err != nil {
		if st.AutoMode == models.ModeBoth && len(st.Symbols) > 0 {
			logger.Warn("[SCAN] universe unavailable, watchlist only: %v", err)
			return slices.Clone(st.Symbols), nil
		}
		return nil, fmt.Errorf("universe: %w", err)
	}
	if st.AutoMode == models.ModeUniverse {
		return top, nil
	}

	out := slices.Clone(st.Symbols)
	seen := make(map[string]struct{}, len(out)+len(top))
	for _, sym := range out {
		seen[sym] = struct{}{}
	}
	for _, sym := range top {
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}

// Tick - один плановый проход по подписке. Сигналы идут через гейт.
func (s *Scanner) Tick(ctx context.Context, sub *models.Subscription) TickReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scan.tick")
	defer span.Finish()
	span.SetTag("subscriber_id", sub.SubscriberID)

	started := s.now()
	var rep TickReport
	defer func() {
		s.metrics.RecordTick("timer", time.Since(started))
		if s.health != nil {
			s.health.TouchTick(s.now())
		}
	}()

	st := sub.Settings
	symbols, err := s.ResolveSymbols(ctx, st)
	if err != nil {
		logger.Error("[SCAN] %d: resolve symbols: %v", sub.SubscriberID, err)
		rep.Errors++
		return rep
	}
	rep.Symbols = len(symbols)
	tfKey := models.JoinTimeframes(st.Timeframes)

	var mu sync.Mutex
	s.evaluateAll(ctx, st, symbols, func(r Result) {
		if r.Err != nil || !r.Signal.Ultra {
			if r.Err != nil {
				mu.Lock()
				rep.Errors++
				mu.Unlock()
			}
			return
		}
		if r.Plan == nil {
			// без плана алерт не отправляем, гейт не трогаем
			mu.Lock()
			rep.Ultra++
			rep.Errors++
			mu.Unlock()
			s.metrics.RecordError("plan")
			return
		}

		key := models.AlertKey{
			SubscriberID: sub.SubscriberID,
			Symbol:       r.Symbol,
			Timeframe:    tfKey,
			Direction:    r.Signal.Direction,
		}
		admitted := s.gate.Admit(key, s.now())

		mu.Lock()
		rep.Ultra++
		if !admitted {
			rep.Suppressed++
		}
		mu.Unlock()

		if !admitted {
			s.metrics.RecordAlertSuppressed()
			return
		}
		if err := s.notifier.Send(ctx, sub.SubscriberID, FormatAlert(r.Signal, r.Plan)); err != nil {
			logger.Error("[SCAN] %d: send %s: %v", sub.SubscriberID, r.Symbol, err)
			s.metrics.RecordError("notify")
			return
		}
		s.metrics.RecordAlertSent(r.Signal.Direction.String())
		mu.Lock()
		rep.Sent++
		mu.Unlock()
	})

	if err := s.gate.Flush(ctx); err != nil {
		logger.Error("[SCAN] gate flush: %v", err)
		s.metrics.RecordError("persist")
	}

	logger.Info("[SCAN] %d: symbols=%d ultra=%d sent=%d suppressed=%d errors=%d in %s",
		sub.SubscriberID, rep.Symbols, rep.Ultra, rep.Sent, rep.Suppressed, rep.Errors,
		time.Since(started).Round(time.Millisecond))
	return rep
}

// ScanSymbols - разовый скан по запросу пользователя, мимо гейта.
// Результаты в порядке входных символов.
func (s *Scanner) ScanSymbols(ctx context.Context, st models.Settings, symbols []string) []Result {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scan.on_demand")
	defer span.Finish()

	started := s.now()
	out := make([]Result, len(symbols))
	idx := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		idx[sym] = i
		out[i] = Result{Symbol: sym}
	}

	var mu sync.Mutex
	s.evaluateAll(ctx, st, symbols, func(r Result) {
		mu.Lock()
		out[idx[r.Symbol]] = r
		mu.Unlock()
	})
	s.metrics.RecordTick("manual", time.Since(started))
	return out
}

// Check - один символ, план строится и для не-ultra сигнала с направлением.
func (s *Scanner) Check(ctx context.Context, st models.Settings, symbol string) Result {
	return s.evaluate(ctx, st, symbol, true)
}

func (s *Scanner) evaluateAll(ctx context.Context, st models.Settings, symbols []string, fn func(Result)) {
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, sym := range symbols {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(s.evaluate(ctx, st, sym, false))
		}(sym)
	}
	wg.Wait()
}

// evaluate изолирует ошибку и панику одного символа от остальных.
func (s *Scanner) evaluate(ctx context.Context, st models.Settings, symbol string, anyDirection bool) (res Result) {
	res.Symbol = symbol

	span, ctx := opentracing.StartSpanFromContext(ctx, "scan.symbol")
	span.SetTag("symbol", symbol)
	defer span.Finish()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("[SCAN] %s: panic: %v\n%s", symbol, p, debug.Stack())
			s.metrics.RecordError("panic")
			res.Err = fmt.Errorf("panic: %v", p)
			s.metrics.RecordSymbol("error")
		}
	}()

	sig, err := s.eval.Evaluate(ctx, symbol, st.Timeframes, st.Thresholds())
	res.Signal = sig
	if err != nil {
		logger.Warn("[SCAN] %s: %v", symbol, err)
		s.metrics.RecordError("market")
		s.metrics.RecordSymbol("error")
		res.Err = err
		return res
	}

	if sig.Ultra || (anyDirection && sig.Direction != models.SideNone) {
		plan, err := s.planner.Plan(sig)
		if err != nil {
			logger.Warn("[SCAN] %s: plan: %v", symbol, err)
		} else {
			res.Plan = &plan
		}
	}

	if sig.Ultra {
		s.metrics.RecordSymbol("ultra")
	} else {
		s.metrics.RecordSymbol("none")
	}
	return res
}
