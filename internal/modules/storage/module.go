package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"ultra_signals/internal/modules/config"
	"ultra_signals/internal/modules/storage/service"
	"ultra_signals/internal/modules/storage/service/file"
	"ultra_signals/internal/modules/storage/service/pg"
	"ultra_signals/pkg/db"
	"ultra_signals/pkg/logger"
)

// NewStore выбирает бэкенд подписок: json-файл или postgres.
func NewStore(lc fx.Lifecycle, cfg *config.Config) (service.Store, error) {
	if cfg.Store.Backend != "postgres" {
		logger.Info("[STORE] file backend: %s", cfg.Store.FilePath)
		return file.NewSubscriptions(cfg.Store.FilePath), nil
	}

	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.Store.DSN})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	m := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Close()
			return nil
		},
	})

	st := pg.NewSubscriptions(m)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := m.Ping(ctx); err != nil {
				return fmt.Errorf("postgres ping: %w", err)
			}
			return st.EnsureSchema(ctx)
		},
	})
	logger.Info("[STORE] postgres backend")
	return st, nil
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			NewStore,
		),
	)
}
