package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"ultra_signals/internal/modules/alerts/service"
	"ultra_signals/internal/modules/config"
	"ultra_signals/pkg/logger"
)

func NewStore(lc fx.Lifecycle, cfg *config.Config) (service.Store, error) {
	switch cfg.Alerts.Backend {
	case "memory":
		return service.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Alerts.RedisAddr,
			Password: cfg.Alerts.RedisPassword,
			DB:       cfg.Alerts.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		return service.NewRedisStore(client, cfg.Alerts.RedisPrefix), nil
	default:
		return service.NewFileStore(cfg.Alerts.FilePath), nil
	}
}

func NewGate(lc fx.Lifecycle, cfg *config.Config, store service.Store) *service.Gate {
	g := service.NewGate(service.Config{
		Window:   cfg.Alerts.Window,
		Capacity: cfg.Alerts.Capacity,
	}, store)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// битый снапшот не повод не стартовать: начнём с пустого гейта
			if err := g.Restore(ctx); err != nil {
				logger.Warn("[ALERTS] restore failed, starting empty: %v", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := g.Flush(ctx); err != nil {
				logger.Error("[ALERTS] final flush: %v", err)
			}
			return nil
		},
	})
	return g
}

func Module() fx.Option {
	return fx.Module("alerts",
		fx.Provide(
			NewStore,
			NewGate,
		),
	)
}
