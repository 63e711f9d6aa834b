package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	subs map[int64]*models.Subscription
}

func newMemStore(subs ...*models.Subscription) *memStore {
	m := &memStore{subs: map[int64]*models.Subscription{}}
	for _, s := range subs {
		m.subs[s.SubscriberID] = s.Clone()
	}
	return m
}

func (m *memStore) Get(_ context.Context, id int64) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, fmt.Errorf("sub %d: %w", id, models.ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *memStore) Update(_ context.Context, id int64, fn func(*models.Subscription) error) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	next := s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.subs[id] = next
	return next.Clone(), nil
}

func (m *memStore) List(_ context.Context) ([]*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s.Clone())
	}
	return out, nil
}

type countingTicker struct {
	ticks       atomic.Int32
	running     atomic.Int32
	overlap     atomic.Bool
	interrupted atomic.Bool
	delay       time.Duration
}

func (c *countingTicker) Tick(ctx context.Context, _ *models.Subscription) TickReport {
	if c.running.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.running.Add(-1)
	c.ticks.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			c.interrupted.Store(true)
		}
	}
	return TickReport{}
}

func sub(id int64, active bool) *models.Subscription {
	st := testSettings()
	st.Active = active
	st.IntervalSeconds = 3600
	return &models.Subscription{SubscriberID: id, Settings: st}
}

func TestManager_StartTicksImmediately(t *testing.T) {
	store := newMemStore(sub(1, false))
	tk := &countingTicker{}
	m := NewManager(store, tk, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	require.NoError(t, m.Start(context.Background(), 1))
	require.Eventually(t, func() bool { return tk.ticks.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, m.Running(1))

	got, _ := store.Get(context.Background(), 1)
	assert.True(t, got.Settings.Active)

	assert.ErrorIs(t, m.Start(context.Background(), 1), ErrAlreadyRunning)
}

func TestManager_StopEndsLoop(t *testing.T) {
	store := newMemStore(sub(1, false))
	tk := &countingTicker{}
	m := NewManager(store, tk, nil)

	require.NoError(t, m.Start(context.Background(), 1))
	require.Eventually(t, func() bool { return tk.ticks.Load() >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Stop(context.Background(), 1))
	assert.False(t, m.Running(1))
	assert.Zero(t, m.ActiveCount())

	got, _ := store.Get(context.Background(), 1)
	assert.False(t, got.Settings.Active)

	assert.ErrorIs(t, m.Stop(context.Background(), 1), ErrNotRunning)
}

func TestManager_StartUnknownSubscriber(t *testing.T) {
	m := NewManager(newMemStore(), &countingTicker{}, nil)
	assert.ErrorIs(t, m.Start(context.Background(), 99), models.ErrNotFound)
}

func TestManager_RestoreOnlyActive(t *testing.T) {
	store := newMemStore(sub(1, true), sub(2, false), sub(3, true))
	tk := &countingTicker{}
	m := NewManager(store, tk, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	n, err := m.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, m.Running(1))
	assert.False(t, m.Running(2))
	assert.True(t, m.Running(3))
}

func TestManager_InactiveAtTickTopExits(t *testing.T) {
	store := newMemStore(sub(1, true))
	tk := &countingTicker{}
	m := NewManager(store, tk, nil)

	_, err := store.Update(context.Background(), 1, func(s *models.Subscription) error {
		s.Settings.Active = false
		return nil
	})
	require.NoError(t, err)

	require.True(t, m.spawn(1))
	require.Eventually(t, func() bool { return !m.Running(1) }, time.Second, 5*time.Millisecond)
	assert.Zero(t, tk.ticks.Load())
}

func TestManager_ShutdownWaitsForTick(t *testing.T) {
	store := newMemStore(sub(1, true), sub(2, true))
	tk := &countingTicker{delay: 50 * time.Millisecond}
	m := NewManager(store, tk, nil)

	_, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return tk.running.Load() > 0 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))
	assert.Zero(t, m.ActiveCount())
	assert.Zero(t, tk.running.Load())

	// после Shutdown новые циклы не стартуют
	assert.False(t, m.spawn(1))
}

func TestManager_TicksNeverOverlap(t *testing.T) {
	st := sub(1, true)
	st.Settings.IntervalSeconds = 60
	store := newMemStore(st)
	tk := &countingTicker{delay: 20 * time.Millisecond}
	m := NewManager(store, tk, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	require.True(t, m.spawn(1))
	require.Eventually(t, func() bool { return tk.ticks.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, tk.overlap.Load())
}

func TestManager_StopDoesNotInterruptTick(t *testing.T) {
	store := newMemStore(sub(1, false))
	tk := &countingTicker{delay: 50 * time.Millisecond}
	m := NewManager(store, tk, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	require.NoError(t, m.Start(context.Background(), 1))
	require.Eventually(t, func() bool { return tk.running.Load() > 0 }, time.Second, time.Millisecond)

	require.NoError(t, m.Stop(context.Background(), 1))
	assert.False(t, tk.interrupted.Load())
	assert.Equal(t, int32(1), tk.ticks.Load())
	assert.False(t, m.Running(1))
}

func TestManager_StartWhileStoppingRestartsLoop(t *testing.T) {
	store := newMemStore(sub(1, false))
	tk := &countingTicker{delay: 200 * time.Millisecond}
	m := NewManager(store, tk, nil)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	require.NoError(t, m.Start(context.Background(), 1))
	require.Eventually(t, func() bool { return tk.running.Load() > 0 }, time.Second, time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- m.Stop(context.Background(), 1) }()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		l, ok := m.loops[1]
		return ok && l.ctx.Err() != nil
	}, time.Second, time.Millisecond)

	// тик ещё идёт, а пользователь уже снова жмёт Run
	require.NoError(t, m.Start(context.Background(), 1))
	require.NoError(t, <-stopped)

	require.Eventually(t, func() bool { return tk.ticks.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, m.Running(1))
	assert.False(t, tk.overlap.Load())

	got, _ := store.Get(context.Background(), 1)
	assert.True(t, got.Settings.Active)
}
