package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	alerts "ultra_signals/internal/modules/alerts/service"
	"ultra_signals/internal/modules/config"
	market "ultra_signals/internal/modules/market/service"
	storage "ultra_signals/internal/modules/storage/service"
	"ultra_signals/internal/modules/telegram_bot/service"
	"ultra_signals/internal/runner"
	"ultra_signals/pkg/logger"
)

// NewBot: без токена возвращает nil, бот работает в режиме stdout.
func NewBot(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] no token, messages go to the log")
		return nil, nil
	}
	// таймаут клиента больше long-poll, иначе getUpdates рвётся сам
	client := &http.Client{Timeout: time.Duration(cfg.Telegram.PollTimeout+10) * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, err
	}
	logger.Info("[TG] authorized as @%s", bot.Self.UserName)
	return bot, nil
}

func NewSender(bot *tgbotapi.BotAPI) *service.Sender {
	if bot == nil {
		return service.NewSender(nil)
	}
	return service.NewSender(bot)
}

type telegramParams struct {
	fx.In

	Cfg     *config.Config
	Sender  *service.Sender
	Store   storage.Store
	Manager *runner.Manager
	Scanner *runner.Scanner
	Market  *market.Client
	Gate    *alerts.Gate
}

func NewTelegram(p telegramParams) *service.Telegram {
	return service.NewTelegram(service.Deps{
		Sender:  p.Sender,
		Store:   p.Store,
		Runner:  p.Manager,
		Scanner: p.Scanner,
		Market:  p.Market,
		Muter:   p.Gate,
		Options: service.Options{
			Defaults: p.Cfg.Defaults,
			AllLimit: p.Cfg.Scan.AllLimit,
			MoversN:  p.Cfg.Scan.MoversN,
		},
	})
}

// RunPolling запускает long-polling, если есть бот.
func RunPolling(lc fx.Lifecycle, cfg *config.Config, bot *tgbotapi.BotAPI, t *service.Telegram) {
	if bot == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = cfg.Telegram.PollTimeout
			u.AllowedUpdates = []string{"message", "callback_query"}
			updates := bot.GetUpdatesChan(u)
			go func() {
				defer close(done)
				t.Run(ctx, updates)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			bot.StopReceivingUpdates()
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			NewBot,
			fx.Annotate(
				NewSender,
				fx.As(fx.Self()),
				fx.As(new(runner.Notifier)),
			),
			NewTelegram,
		),
		fx.Invoke(RunPolling),
	)
}
