package market

import (
	"context"

	"go.uber.org/fx"

	"ultra_signals/internal/modules/config"
	"ultra_signals/internal/modules/market/service"
	"ultra_signals/pkg/metrics"
)

func NewStream(cfg *config.Config, rec *metrics.Recorder) *service.Stream {
	return service.NewStream(cfg.Market.StreamURL, cfg.Market.StreamMaxAge, rec)
}

func NewClient(cfg *config.Config, stream *service.Stream, rec *metrics.Recorder) *service.Client {
	if !cfg.Market.StreamEnabled {
		stream = nil
	}
	return service.NewClient(service.Config{
		BaseURL:        cfg.Market.BaseURL,
		RequestTimeout: cfg.Market.RequestTimeout,
		RequestDelay:   cfg.Market.RequestDelay,
		MinCandles:     cfg.Market.MinCandles,
	}, stream, rec)
}

func RunStream(lc fx.Lifecycle, cfg *config.Config, s *service.Stream) {
	if !cfg.Market.StreamEnabled {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Module поднимает REST-клиент Binance и стрим 24h-тикеров.
func Module() fx.Option {
	return fx.Module("market",
		fx.Provide(
			NewStream,
			NewClient,
		),
		fx.Invoke(RunStream),
	)
}
