package bootstrap

import (
	"context"

	"go.uber.org/fx"

	bootstrap "ultra_signals/internal/modules/bootstrap/service"
	"ultra_signals/internal/modules/config"
	health "ultra_signals/internal/modules/health/service"
	market "ultra_signals/internal/modules/market/service"
	"ultra_signals/internal/runner"
	"ultra_signals/pkg/logger"
	"ultra_signals/pkg/tracing"
)

// InitModule настраивает логгер и трейсер. Подключается первым, чтобы
// остальные модули уже логировали через zap.
func InitModule() fx.Option {
	return fx.Module("init",
		fx.Invoke(InitLogger, InitTracing),
	)
}

func InitLogger(lc fx.Lifecycle, cfg *config.Config) error {
	logger.SetServiceName(cfg.Service.Name)
	if _, err := logger.Init(cfg.Log.Level, cfg.Log.Dev); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Sync()
			return nil
		},
	})
	return nil
}

func InitTracing(lc fx.Lifecycle, cfg *config.Config) error {
	tracing.SetServiceName(cfg.Service.Name)
	_, closeFn, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return nil
}

func NewWarmuper(c *market.Client, m *runner.Manager, state *health.State) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(c, m, state)
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			NewWarmuper,
		),
		fx.Invoke(func(lc fx.Lifecycle, wu *bootstrap.Warmuper, state *health.State) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						if err := wu.Warmup(ctx); err != nil {
							logger.Error("[BOOT] warmup error: %v", err)
							return
						}
						logger.Info("[BOOT] ready")
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					state.SetReady(false)
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
