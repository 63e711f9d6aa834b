package main

import (
	"log"

	"go.uber.org/fx"

	"ultra_signals/internal/modules/alerts"
	"ultra_signals/internal/modules/bootstrap"
	"ultra_signals/internal/modules/config"
	"ultra_signals/internal/modules/health"
	"ultra_signals/internal/modules/market"
	"ultra_signals/internal/modules/storage"
	telegram "ultra_signals/internal/modules/telegram_bot"
	"ultra_signals/internal/runner"
	"ultra_signals/internal/strategy"
	"ultra_signals/pkg/metrics"
)

func main() {
	app := fx.New(
		config.Module(),
		bootstrap.InitModule(),
		metrics.Module(),
		market.Module(),
		strategy.Module(),
		alerts.Module(),
		storage.Module(),
		runner.Module(),
		telegram.Module(),
		health.Module(),
		bootstrap.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
