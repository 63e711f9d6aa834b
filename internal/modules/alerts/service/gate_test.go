package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func btcKey() models.AlertKey {
	return models.AlertKey{SubscriberID: 1, Symbol: "BTCUSDT", Timeframe: "5m+1h+1d", Direction: models.SideBuy}
}

func TestAdmit_Window(t *testing.T) {
	g := NewGate(Config{Window: 15 * time.Minute}, nil)
	k := btcKey()

	assert.True(t, g.Admit(k, t0))
	assert.False(t, g.Admit(k, t0.Add(15*time.Minute-time.Second)))
	assert.False(t, g.Admit(k, t0.Add(15*time.Minute)))
	assert.True(t, g.Admit(k, t0.Add(15*time.Minute+time.Second)))
}

func TestAdmit_KeysIndependent(t *testing.T) {
	g := NewGate(Config{}, nil)
	k := btcKey()
	sell := k
	sell.Direction = models.SideSell
	other := k
	other.SubscriberID = 2

	assert.True(t, g.Admit(k, t0))
	assert.True(t, g.Admit(sell, t0))
	assert.True(t, g.Admit(other, t0))
	assert.Equal(t, 3, g.Len())
}

func TestAdmit_CapacityReset(t *testing.T) {
	g := NewGate(Config{Capacity: 2}, nil)
	a, b, c := btcKey(), btcKey(), btcKey()
	b.Symbol = "ETHUSDT"
	c.Symbol = "BNBUSDT"

	require.True(t, g.Admit(a, t0))
	require.True(t, g.Admit(b, t0))
	require.True(t, g.Admit(c, t0))

	assert.Equal(t, 1, g.Len())
	// старые ключи забыты после сброса
	assert.True(t, g.Admit(a, t0.Add(time.Second)))
}

func TestAdmit_RepeatOnFullMapDoesNotReset(t *testing.T) {
	g := NewGate(Config{Capacity: 2}, nil)
	a, b := btcKey(), btcKey()
	b.Symbol = "ETHUSDT"

	require.True(t, g.Admit(a, t0))
	require.True(t, g.Admit(b, t0))
	assert.True(t, g.Admit(a, t0.Add(time.Hour)))
	assert.Equal(t, 2, g.Len())
}

func TestMute(t *testing.T) {
	g := NewGate(Config{}, nil)
	k := btcKey()

	g.Mute(1, "BTCUSDT")
	assert.False(t, g.Admit(k, t0))
	assert.Zero(t, g.Len())

	eth := k
	eth.Symbol = "ETHUSDT"
	assert.True(t, g.Admit(eth, t0))

	require.True(t, g.Unmute(1, "BTCUSDT"))
	assert.True(t, g.Admit(k, t0))
	assert.False(t, g.Unmute(1, "BTCUSDT"))
}

func TestMute_WholeSubscriber(t *testing.T) {
	g := NewGate(Config{}, nil)
	g.Mute(1, "")

	assert.True(t, g.IsMuted(1, "XRPUSDT"))
	assert.False(t, g.IsMuted(2, "XRPUSDT"))
	assert.Equal(t, []string{""}, g.Muted(1))
}

func TestFlushRestore_FileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.json")
	ctx := context.Background()

	g := NewGate(Config{}, NewFileStore(path))
	require.NoError(t, g.Restore(ctx))
	require.True(t, g.Admit(btcKey(), t0))
	g.Mute(7, "DOGEUSDT")
	require.NoError(t, g.Flush(ctx))

	restored := NewGate(Config{}, NewFileStore(path))
	require.NoError(t, restored.Restore(ctx))

	assert.False(t, restored.Admit(btcKey(), t0.Add(time.Minute)))
	assert.True(t, restored.IsMuted(7, "DOGEUSDT"))
}

func TestRestore_MissingFile(t *testing.T) {
	g := NewGate(Config{}, NewFileStore(filepath.Join(t.TempDir(), "none.json")))
	require.NoError(t, g.Restore(context.Background()))
	assert.Zero(t, g.Len())
}

type failingStore struct {
	MemoryStore
	fail bool
}

func (f *failingStore) Save(ctx context.Context, snap models.AlertSnapshot) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, snap)
}

func TestFlush_FailureKeepsMemoryState(t *testing.T) {
	st := &failingStore{fail: true}
	g := NewGate(Config{}, st)
	ctx := context.Background()

	require.True(t, g.Admit(btcKey(), t0))
	require.Error(t, g.Flush(ctx))
	assert.False(t, g.Admit(btcKey(), t0.Add(time.Minute)))

	st.fail = false
	require.NoError(t, g.Flush(ctx))
	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, snap.Records, btcKey())
}

func TestMuteMember_RoundTrip(t *testing.T) {
	m := models.MuteKey{SubscriberID: 42, Symbol: ""}
	got, err := parseMuteMember(muteMember(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

type slowStore struct {
	MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

// Первый Save висит, пока тест его не отпустит.
func (s *slowStore) Save(ctx context.Context, snap models.AlertSnapshot) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.Save(ctx, snap)
}

func TestFlush_ConcurrentKeepsNewestSnapshot(t *testing.T) {
	st := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	g := NewGate(Config{}, st)
	ctx := context.Background()
	eth := btcKey()
	eth.Symbol = "ETHUSDT"

	require.True(t, g.Admit(btcKey(), t0))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, g.Flush(ctx))
	}()
	<-st.entered

	require.True(t, g.Admit(eth, t0))
	go func() {
		defer wg.Done()
		assert.NoError(t, g.Flush(ctx))
	}()

	time.Sleep(20 * time.Millisecond)
	close(st.release)
	wg.Wait()
	require.NoError(t, g.Flush(ctx))

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)
	assert.Contains(t, snap.Records, eth)
}

func TestAdmit_ConcurrentSameKeyOnce(t *testing.T) {
	g := NewGate(Config{}, nil)

	var (
		wg       sync.WaitGroup
		admitted atomic.Int32
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Admit(btcKey(), t0) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, 1, g.Len())
}
