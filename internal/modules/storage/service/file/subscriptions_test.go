package file

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
)

func defaultSettings() models.Settings {
	return models.Settings{
		Symbols:          []string{"BTCUSDT", "ETHUSDT"},
		Timeframes:       []models.Timeframe{models.TF5m, models.TF1h},
		RSIOversold:      30,
		RSIOverbought:    70,
		MinConfirmations: 3,
		UltraMinScore:    4,
		ScanTopN:         100,
		AutoMode:         models.ModeBoth,
		IntervalSeconds:  3600,
	}
}

func TestSubscriptions_SaveGetPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.json")
	ctx := context.Background()

	st := NewSubscriptions(path)
	sub := models.NewSubscriptionFromDefaults(42, defaultSettings())
	sub.Name = "alice"
	require.NoError(t, st.Save(ctx, sub))

	reopened := NewSubscriptions(path)
	got, err := reopened.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got.Settings.Symbols)
	assert.False(t, got.Settings.Active)
}

func TestSubscriptions_GetMissing(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	_, err := st.Get(context.Background(), 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubscriptions_CloneOnRead(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(1, defaultSettings())))

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	got.Settings.Symbols[0] = "HACKED"

	again, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", again.Settings.Symbols[0])
}

func TestSubscriptions_UpdateRejectsInvalid(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(1, defaultSettings())))

	_, err := st.Update(ctx, 1, func(s *models.Subscription) error {
		s.Settings.RSIOversold = 80
		return nil
	})
	require.ErrorIs(t, err, models.ErrConfigInvalid)

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Settings.RSIOversold)
}

func TestSubscriptions_UpdateFnError(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(1, defaultSettings())))

	boom := errors.New("boom")
	_, err := st.Update(ctx, 1, func(s *models.Subscription) error {
		s.Settings.Active = true
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := st.Get(ctx, 1)
	assert.False(t, got.Settings.Active)
}

func TestSubscriptions_ConcurrentUpdates(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(1, defaultSettings())))

	syms := []string{"SOLUSDT", "XRPUSDT", "ADAUSDT", "DOGEUSDT", "LTCUSDT"}
	var wg sync.WaitGroup
	for _, sym := range syms {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			_, err := st.Update(ctx, 1, func(s *models.Subscription) error {
				s.AddSymbol(sym)
				return nil
			})
			assert.NoError(t, err)
		}(sym)
	}
	wg.Wait()

	got, err := st.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.Settings.Symbols, 2+len(syms))
}

func TestSubscriptions_ListAndDelete(t *testing.T) {
	st := NewSubscriptions(filepath.Join(t.TempDir(), "subs.json"))
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(2, defaultSettings())))
	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(1, defaultSettings())))

	list, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].SubscriberID)

	require.NoError(t, st.Delete(ctx, 1))
	list, err = st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
