package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/logger"
	"ultra_signals/pkg/metrics"
)

var (
	ErrAlreadyRunning = errors.New("scan loop already running")
	ErrNotRunning     = errors.New("scan loop is not running")
)

// SubscriptionStore - то, что менеджеру нужно от хранилища подписок.
type SubscriptionStore interface {
	Get(ctx context.Context, subscriberID int64) (*models.Subscription, error)
	Update(ctx context.Context, subscriberID int64, fn func(sub *models.Subscription) error) (*models.Subscription, error)
	List(ctx context.Context) ([]*models.Subscription, error)
}

type Ticker interface {
	Tick(ctx context.Context, sub *models.Subscription) TickReport
}

type loop struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager держит по одной горутине сканирования на активную подписку.
type Manager struct {
	store   SubscriptionStore
	scanner Ticker
	metrics *metrics.Recorder

	root   context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	loops map[int64]*loop
}

func NewManager(store SubscriptionStore, scanner Ticker, rec *metrics.Recorder) *Manager {
	root, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:   store,
		scanner: scanner,
		metrics: rec,
		root:    root,
		cancel:  cancel,
		loops:   make(map[int64]*loop),
	}
}

// Start помечает подписку активной и запускает цикл.
func (m *Manager) Start(ctx context.Context, subscriberID int64) error {
	if _, err := m.store.Update(ctx, subscriberID, func(s *models.Subscription) error {
		s.Settings.Active = true
		return nil
	}); err != nil {
		return fmt.Errorf("activate %d: %w", subscriberID, err)
	}
	if !m.spawn(subscriberID) {
		return ErrAlreadyRunning
	}
	return nil
}

// Stop снимает флаг active и дожидается завершения цикла.
func (m *Manager) Stop(ctx context.Context, subscriberID int64) error {
	if _, err := m.store.Update(ctx, subscriberID, func(s *models.Subscription) error {
		s.Settings.Active = false
		return nil
	}); err != nil {
		return fmt.Errorf("deactivate %d: %w", subscriberID, err)
	}

	m.mu.Lock()
	l, ok := m.loops[subscriberID]
	m.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}

	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restore поднимает циклы всех активных подписок (после рестарта).
func (m *Manager) Restore(ctx context.Context) (int, error) {
	subs, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	n := 0
	for _, s := range subs {
		if s.Settings.Active && m.spawn(s.SubscriberID) {
			n++
		}
	}
	return n, nil
}

func (m *Manager) Running(subscriberID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[subscriberID]
	return ok
}

func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

// Shutdown гасит все циклы и ждёт их (или ctx).
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.mu.Lock()
	waits := make([]chan struct{}, 0, len(m.loops))
	for _, l := range m.loops {
		waits = append(waits, l.done)
	}
	m.mu.Unlock()

	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) spawn(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.root.Err() != nil {
		return false
	}
	prev, ok := m.loops[id]
	if ok && prev.ctx.Err() == nil {
		return false
	}
	ctx, cancel := context.WithCancel(m.root)
	l := &loop{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	m.loops[id] = l
	m.metrics.SetActiveSubscriptions(len(m.loops))

	if !ok {
		go m.run(ctx, id, l)
		return true
	}
	// старый цикл остановлен, но ещё доигрывает тик: новый стартует после него
	go func() {
		<-prev.done
		m.run(ctx, id, l)
	}()
	return true
}

// run: первый тик сразу, дальше по таймеру; тики не перекрываются,
// потому что Tick синхронный внутри цикла.
func (m *Manager) run(ctx context.Context, id int64, l *loop) {
	defer func() {
		l.cancel()
		m.mu.Lock()
		if m.loops[id] == l {
			delete(m.loops, id)
		}
		m.metrics.SetActiveSubscriptions(len(m.loops))
		m.mu.Unlock()
		close(l.done)
		logger.Info("[RUNNER] %d: loop stopped", id)
	}()

	var (
		ticker   *time.Ticker
		interval time.Duration
	)
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	if ctx.Err() != nil {
		return
	}
	logger.Info("[RUNNER] %d: loop started", id)
	for {
		sub, err := m.store.Get(ctx, id)
		switch {
		case errors.Is(err, models.ErrNotFound):
			return
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			logger.Error("[RUNNER] %d: load subscription: %v", id, err)
		case !sub.Settings.Active:
			return
		default:
			if next := sub.Settings.Interval(); next != interval {
				interval = next
				if ticker == nil {
					ticker = time.NewTicker(interval)
				} else {
					ticker.Reset(interval)
				}
			}
			// Stop не прерывает идущий тик: отменяется только ожидание следующего.
			// Тик обрывает лишь Shutdown процесса.
			m.safeTick(m.root, sub)
		}

		if ticker == nil {
			// подписку ещё ни разу не прочитали: повторим через минуту
			ticker = time.NewTicker(time.Minute)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) safeTick(ctx context.Context, sub *models.Subscription) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[RUNNER] %d: tick panic: %v", sub.SubscriberID, p)
			m.metrics.RecordError("panic")
		}
	}()
	m.scanner.Tick(ctx, sub)
}
