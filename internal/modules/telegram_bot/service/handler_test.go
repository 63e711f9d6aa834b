package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra_signals/internal/models"
	alerts "ultra_signals/internal/modules/alerts/service"
	market "ultra_signals/internal/modules/market/service"
	"ultra_signals/internal/modules/storage/service/file"
	"ultra_signals/internal/runner"
)

const chatID int64 = 42

type fakeBot struct {
	mu             sync.Mutex
	msgs           []tgbotapi.MessageConfig
	edits          int
	callbacks      int
	rejectMarkdown bool
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		if b.rejectMarkdown && m.ParseMode != "" {
			return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
		}
		b.msgs = append(b.msgs, m)
	case tgbotapi.EditMessageTextConfig:
		b.edits++
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) last() tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.msgs) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return b.msgs[len(b.msgs)-1]
}

func (b *fakeBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.Text)
	}
	return out
}

type fakeRunner struct {
	running map[int64]bool
}

func (f *fakeRunner) Start(_ context.Context, id int64) error {
	if f.running[id] {
		return runner.ErrAlreadyRunning
	}
	f.running[id] = true
	return nil
}

func (f *fakeRunner) Stop(_ context.Context, id int64) error {
	if !f.running[id] {
		return runner.ErrNotRunning
	}
	delete(f.running, id)
	return nil
}

func (f *fakeRunner) Running(id int64) bool { return f.running[id] }

type fakeScanner struct {
	ultra map[string]bool
}

func (f fakeScanner) result(sym string) runner.Result {
	r := runner.Result{Symbol: sym, Signal: models.AggregateSignal{Symbol: sym, LastPrice: 10}}
	if f.ultra[sym] {
		r.Signal.Direction = models.SideBuy
		r.Signal.BuyTotal = 6
		r.Signal.Ultra = true
	}
	return r
}

func (f fakeScanner) Check(_ context.Context, _ models.Settings, symbol string) runner.Result {
	return f.result(symbol)
}

func (f fakeScanner) ScanSymbols(_ context.Context, _ models.Settings, symbols []string) []runner.Result {
	out := make([]runner.Result, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, f.result(s))
	}
	return out
}

type fakeMarket struct{}

func (fakeMarket) TopByVolume(_ context.Context, n int) ([]string, error) {
	return []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}[:min(n, 3)], nil
}

func (fakeMarket) TopMovers(_ context.Context, n int) ([]market.Ticker, error) {
	return []market.Ticker{{Symbol: "PEPEUSDT", LastPrice: 0.0000123, PriceChangePct: 31.5}}, nil
}

type env struct {
	bot    *fakeBot
	store  *file.Subscriptions
	runner *fakeRunner
	gate   *alerts.Gate
	tg     *Telegram
}

func defaultSettings() models.Settings {
	return models.Settings{
		Symbols:          []string{"BTCUSDT"},
		Timeframes:       []models.Timeframe{models.TF5m, models.TF1h, models.TF1d},
		RSIOversold:      30,
		RSIOverbought:    70,
		MinConfirmations: 3,
		UltraMinScore:    4,
		ScanTopN:         100,
		AutoMode:         models.ModeBoth,
		IntervalSeconds:  3600,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		bot:    &fakeBot{},
		store:  file.NewSubscriptions(filepath.Join(t.TempDir(), "subs.json")),
		runner: &fakeRunner{running: map[int64]bool{}},
		gate:   alerts.NewGate(alerts.Config{Window: 15 * time.Minute}, nil),
	}
	e.tg = NewTelegram(Deps{
		Sender:  NewSender(e.bot),
		Store:   e.store,
		Runner:  e.runner,
		Scanner: fakeScanner{ultra: map[string]bool{"ETHUSDT": true}},
		Market:  fakeMarket{},
		Muter:   e.gate,
		Options: Options{Defaults: defaultSettings(), AllLimit: 2, MoversN: 3},
	})
	return e
}

func command(text string) tgbotapi.Update {
	name := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID, UserName: "trader"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func plain(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, UserName: "trader"},
	}}
}

func (e *env) do(t *testing.T, upd tgbotapi.Update) {
	t.Helper()
	e.tg.handleUpdate(context.Background(), upd)
}

func (e *env) sub(t *testing.T) *models.Subscription {
	t.Helper()
	sub, err := e.store.Get(context.Background(), chatID)
	require.NoError(t, err)
	return sub
}

func TestStart_CreatesSubscription(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/start"))

	sub := e.sub(t)
	assert.Equal(t, "@trader", sub.Name)
	assert.Equal(t, []string{"BTCUSDT"}, sub.Settings.Symbols)
	assert.False(t, sub.Settings.Active)

	msg := e.bot.last()
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, msg.ReplyMarkup)
	assert.Contains(t, msg.Text, "Settings")
}

func TestAddRemove(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/add sol, eth"))
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT", "ETHUSDT"}, e.sub(t).Settings.Symbols)
	assert.Contains(t, e.bot.last().Text, "Added SOLUSDT, ETHUSDT")

	e.do(t, command("/add btc"))
	assert.Contains(t, e.bot.last().Text, "Already")

	e.do(t, command("/remove sol"))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, e.sub(t).Settings.Symbols)

	e.do(t, command("/remove doge"))
	assert.Contains(t, e.bot.last().Text, "Not in the watchlist")
}

func TestAdd_AwaitsArgument(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/add"))
	assert.Contains(t, e.bot.last().Text, "Send coins")

	e.do(t, plain("xrp"))
	assert.Contains(t, e.sub(t).Settings.Symbols, "XRPUSDT")

	// ожидание одноразовое
	e.do(t, plain("ada"))
	assert.NotContains(t, e.sub(t).Settings.Symbols, "ADAUSDT")
	assert.Contains(t, e.bot.last().Text, "Unknown input")
}

func TestSet_ValidatesBeforeCommit(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/start"))

	e.do(t, command("/set rsi 25 75"))
	st := e.sub(t).Settings
	assert.Equal(t, 25, st.RSIOversold)
	assert.Equal(t, 75, st.RSIOverbought)
	assert.Contains(t, e.bot.last().Text, "Saved")

	e.do(t, command("/set rsi 80 20"))
	st = e.sub(t).Settings
	assert.Equal(t, 25, st.RSIOversold)
	assert.Contains(t, e.bot.last().Text, "config invalid")

	e.do(t, command("/set interval 15m"))
	assert.Equal(t, 900, e.sub(t).Settings.IntervalSeconds)

	e.do(t, command("/set interval 10"))
	assert.Equal(t, 900, e.sub(t).Settings.IntervalSeconds)

	e.do(t, command("/set timeframes 15m,4h"))
	assert.Equal(t, []models.Timeframe{models.TF15m, models.TF4h}, e.sub(t).Settings.Timeframes)

	e.do(t, command("/set mode single"))
	assert.Equal(t, models.ModeBoth, e.sub(t).Settings.AutoMode)

	e.do(t, command("/set pin sol"))
	e.do(t, command("/set mode single"))
	assert.Equal(t, models.ModeSingle, e.sub(t).Settings.AutoMode)
	assert.Equal(t, "SOLUSDT", e.sub(t).Settings.PinnedSymbol)

	e.do(t, command("/set colour red"))
	assert.Contains(t, e.bot.last().Text, "Usage")
}

func TestCallback_IntervalPreset(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/settings"))
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, e.bot.last().ReplyMarkup)

	e.do(t, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    "interval:14400",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: chatID}},
	}})

	assert.Equal(t, 14400, e.sub(t).Settings.IntervalSeconds)
	assert.Equal(t, 1, e.bot.edits)
	assert.Equal(t, 1, e.bot.callbacks)
}

func TestRunStop(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/run"))
	assert.True(t, e.runner.running[chatID])
	assert.Contains(t, e.bot.last().Text, "Scanning every 1h")

	e.do(t, command("/run"))
	assert.Contains(t, e.bot.last().Text, "Already")

	e.do(t, plain("⏹ Stop"))
	assert.False(t, e.runner.running[chatID])
	assert.Contains(t, e.bot.last().Text, "stopped")

	e.do(t, command("/stop"))
	assert.Contains(t, e.bot.last().Text, "not running")
}

func TestMuteUnmute(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/mute btc"))
	assert.True(t, e.gate.IsMuted(chatID, "BTCUSDT"))
	assert.False(t, e.gate.IsMuted(chatID, "ETHUSDT"))

	e.do(t, command("/unmute btc"))
	assert.False(t, e.gate.IsMuted(chatID, "BTCUSDT"))

	e.do(t, command("/unmute btc"))
	assert.Contains(t, e.bot.last().Text, "Not muted")

	e.do(t, command("/mute"))
	assert.True(t, e.gate.IsMuted(chatID, "ANYUSDT"))
}

func TestScanAndAll_SendSummaryAndAlerts(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/add eth"))

	before := len(e.bot.texts())
	e.do(t, command("/scan"))
	out := e.bot.texts()[before:]
	require.Len(t, out, 3)
	assert.Contains(t, out[1], "checked 2, ultra 1")
	assert.Contains(t, out[2], "ULTRA BUY")

	before = len(e.bot.texts())
	e.do(t, command("/all"))
	out = e.bot.texts()[before:]
	assert.Contains(t, out[0], "top 2")
	assert.Contains(t, out[1], "checked 2")
}

func TestMovers(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/movers"))
	texts := e.bot.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Contains(t, texts[0], "PEPEUSDT")
	assert.Contains(t, texts[0], "+31.50%")
}

func TestCheck(t *testing.T) {
	e := newEnv(t)
	e.do(t, command("/check eth"))
	assert.Contains(t, e.bot.last().Text, "ULTRA BUY")

	e.do(t, command("/check btc"))
	assert.Contains(t, e.bot.last().Text, "no ultra signal")
}

func TestRun_ProcessesUntilClosed(t *testing.T) {
	e := newEnv(t)
	ch := make(chan tgbotapi.Update, 2)
	ch <- command("/help")
	ch <- command("/coins")
	close(ch)

	e.tg.Run(context.Background(), ch)
	assert.Len(t, e.bot.texts(), 2)
}

func TestSender_MarkdownFallback(t *testing.T) {
	bot := &fakeBot{rejectMarkdown: true}
	s := NewSender(bot)

	require.NoError(t, s.Send(context.Background(), 1, "bad *markdown"))
	require.Len(t, bot.msgs, 1)
	assert.Empty(t, bot.msgs[0].ParseMode)
	assert.Equal(t, "bad *markdown", bot.msgs[0].Text)
}

func TestSender_NoBot(t *testing.T) {
	s := NewSender(nil)
	assert.NoError(t, s.Send(context.Background(), 1, "hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, 1, "hello"), context.Canceled)
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]int{"5m": 300, "1H": 3600, "1d": 86400, "900": 900, "90m": 5400} {
		got, err := parseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseInterval("soon")
	assert.ErrorIs(t, err, models.ErrConfigInvalid)
}

func TestParseSymbols(t *testing.T) {
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, parseSymbols("btc, eth/usdt  SOLUSDT"))
	assert.Empty(t, parseSymbols("  "))
}
