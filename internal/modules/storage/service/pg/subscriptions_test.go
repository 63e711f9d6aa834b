package pg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/db"
)

// Нужен docker: PG_INTEGRATION=1 go test ./internal/modules/storage/service/pg/...
func setupStore(t *testing.T) *Subscriptions {
	t.Helper()
	if os.Getenv("PG_INTEGRATION") == "" {
		t.Skip("PG_INTEGRATION is not set")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("signals"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn})
	require.NoError(t, err)
	m := db.NewPgTxManager(pool)
	t.Cleanup(m.Close)

	st := NewSubscriptions(m)
	require.NoError(t, st.EnsureSchema(ctx))
	return st
}

func settings() models.Settings {
	return models.Settings{
		Symbols:          []string{"BTCUSDT"},
		Timeframes:       []models.Timeframe{models.TF1h},
		RSIOversold:      30,
		RSIOverbought:    70,
		MinConfirmations: 3,
		UltraMinScore:    4,
		ScanTopN:         50,
		AutoMode:         models.ModeWatchlist,
		IntervalSeconds:  900,
	}
}

func TestSubscriptions_PG(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, 7)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, st.Save(ctx, models.NewSubscriptionFromDefaults(7, settings())))

	got, err := st.Update(ctx, 7, func(s *models.Subscription) error {
		s.AddSymbol("ETHUSDT")
		s.Settings.Active = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, got.Settings.Symbols)

	_, err = st.Update(ctx, 7, func(s *models.Subscription) error {
		s.Settings.IntervalSeconds = 1
		return nil
	})
	require.ErrorIs(t, err, models.ErrConfigInvalid)

	list, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Settings.Active)
	assert.Equal(t, 900, list[0].Settings.IntervalSeconds)

	require.NoError(t, st.Delete(ctx, 7))
	_, err = st.Get(ctx, 7)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
