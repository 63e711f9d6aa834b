package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ultra_signals/internal/models"
	market "ultra_signals/internal/modules/market/service"
	"ultra_signals/internal/runner"
	"ultra_signals/pkg/logger"
)

type SubscriptionStore interface {
	Get(ctx context.Context, subscriberID int64) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, subscriberID int64, fn func(sub *models.Subscription) error) (*models.Subscription, error)
}

type Runner interface {
	Start(ctx context.Context, subscriberID int64) error
	Stop(ctx context.Context, subscriberID int64) error
	Running(subscriberID int64) bool
}

type Scanner interface {
	Check(ctx context.Context, st models.Settings, symbol string) runner.Result
	ScanSymbols(ctx context.Context, st models.Settings, symbols []string) []runner.Result
}

type Market interface {
	TopByVolume(ctx context.Context, n int) ([]string, error)
	TopMovers(ctx context.Context, n int) ([]market.Ticker, error)
}

type Muter interface {
	Mute(subscriberID int64, symbol string)
	Unmute(subscriberID int64, symbol string) bool
	Muted(subscriberID int64) []string
	Flush(ctx context.Context) error
}

type Options struct {
	Defaults models.Settings
	AllLimit int
	MoversN  int
}

type Deps struct {
	Sender  *Sender
	Store   SubscriptionStore
	Runner  Runner
	Scanner Scanner
	Market  Market
	Muter   Muter
	Options Options
}

// Telegram - командный фронтенд: команды чата превращаются в операции
// над подпиской, менеджером циклов и гейтом.
type Telegram struct {
	sender  *Sender
	store   SubscriptionStore
	runner  Runner
	scanner Scanner
	market  Market
	muter   Muter
	opts    Options
	await   *awaitStore

	wg sync.WaitGroup
}

func NewTelegram(d Deps) *Telegram {
	if d.Options.AllLimit <= 0 {
		d.Options.AllLimit = 30
	}
	if d.Options.MoversN <= 0 {
		d.Options.MoversN = 5
	}
	return &Telegram{
		sender:  d.Sender,
		store:   d.Store,
		runner:  d.Runner,
		scanner: d.Scanner,
		market:  d.Market,
		muter:   d.Muter,
		opts:    d.Options,
		await:   newAwaitStore(),
	}
}

// Run читает апдейты до закрытия канала или ctx; каждый апдейт в своей горутине,
// чтобы долгий /all не блокировал остальных.
func (t *Telegram) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	defer t.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.handleUpdate(ctx, upd)
			}()
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[TG] update %d: panic: %v", update.UpdateID, p)
		}
	}()

	if msg := update.Message; msg != nil && msg.Chat != nil {
		chatID := msg.Chat.ID
		if msg.IsCommand() {
			t.await.clear(chatID)
			t.handleCommand(ctx, chatID, chatName(msg.Chat), msg.Command(), msg.CommandArguments())
			return
		}
		t.handleTextMessage(ctx, msg)
		return
	}

	if cb := update.CallbackQuery; cb != nil {
		if cb.Message == nil || cb.Message.Chat == nil {
			return
		}
		t.handleCallback(ctx, cb.Message.Chat.ID, cb)
	}
}

func (t *Telegram) handleTextMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if cmd, ok := menuButtons[text]; ok {
		t.await.clear(chatID)
		t.handleCommand(ctx, chatID, chatName(msg.Chat), cmd, "")
		return
	}

	// ответ на "/add" без аргументов и т.п.
	if cmd, ok := t.await.pop(chatID); ok {
		if strings.EqualFold(text, "cancel") {
			t.reply(ctx, chatID, "Cancelled.")
			return
		}
		t.handleCommand(ctx, chatID, chatName(msg.Chat), cmd, text)
		return
	}

	t.reply(ctx, chatID, "Unknown input. /help")
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, name, cmd, args string) {
	args = strings.TrimSpace(args)
	logger.Debug("[TG] %d: /%s %s", chatID, cmd, args)

	switch strings.ToLower(cmd) {
	case "start":
		t.handleStart(ctx, chatID, name)
	case "help":
		t.reply(ctx, chatID, helpText)
	case "coins":
		t.handleCoins(ctx, chatID)
	case "add":
		t.handleAdd(ctx, chatID, args)
	case "remove", "rm":
		t.handleRemove(ctx, chatID, args)
	case "check":
		t.handleCheck(ctx, chatID, args)
	case "scan":
		t.handleScan(ctx, chatID)
	case "all":
		t.handleAll(ctx, chatID)
	case "movers":
		t.handleMovers(ctx, chatID)
	case "settings":
		t.handleSettings(ctx, chatID)
	case "set":
		t.handleSet(ctx, chatID, args)
	case "run":
		t.handleRun(ctx, chatID)
	case "stop":
		t.handleStop(ctx, chatID)
	case "mute":
		t.handleMute(ctx, chatID, args, true)
	case "unmute":
		t.handleMute(ctx, chatID, args, false)
	case "status":
		t.handleStatus(ctx, chatID)
	default:
		t.reply(ctx, chatID, "Unknown command. /help")
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64, name string) {
	sub, err := t.getSubscription(ctx, chatID, name)
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "👋 I scan Binance futures and send *ULTRA* signals "+
		"when indicators agree across timeframes.\n\n"+
		formatSettings(sub, t.running(chatID))+"\n\nPress ▶️ Run to start scheduled scanning. /help")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = mainKeyboard()
	if err := t.sender.SendMessage(ctx, msg); err != nil {
		logger.Error("[TG] %d: start: %v", chatID, err)
	}
}

func (t *Telegram) handleCoins(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	t.reply(ctx, chatID, formatCoins(sub.Settings.Symbols))
}

func (t *Telegram) handleAdd(ctx context.Context, chatID int64, args string) {
	syms := parseSymbols(args)
	if len(syms) == 0 {
		t.await.set(chatID, "add")
		t.reply(ctx, chatID, "✍️ Send coins to add, e.g. `BTC ETH` (or `cancel`)")
		return
	}
	if _, err := t.getSubscription(ctx, chatID, ""); err != nil {
		t.replyError(ctx, chatID, err)
		return
	}

	var added []string
	sub, err := t.store.Update(ctx, chatID, func(sub *models.Subscription) error {
		added = added[:0]
		for _, s := range syms {
			if sub.AddSymbol(s) {
				added = append(added, s)
			}
		}
		return sub.Settings.Validate()
	})
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	if len(added) == 0 {
		t.reply(ctx, chatID, "Already in the watchlist.\n\n"+formatCoins(sub.Settings.Symbols))
		return
	}
	t.reply(ctx, chatID, "✅ Added "+strings.Join(added, ", ")+"\n\n"+formatCoins(sub.Settings.Symbols))
}

func (t *Telegram) handleRemove(ctx context.Context, chatID int64, args string) {
	syms := parseSymbols(args)
	if len(syms) == 0 {
		t.await.set(chatID, "remove")
		t.reply(ctx, chatID, "✍️ Send coins to remove (or `cancel`)")
		return
	}
	if _, err := t.getSubscription(ctx, chatID, ""); err != nil {
		t.replyError(ctx, chatID, err)
		return
	}

	var removed []string
	sub, err := t.store.Update(ctx, chatID, func(sub *models.Subscription) error {
		removed = removed[:0]
		for _, s := range syms {
			if sub.RemoveSymbol(s) {
				removed = append(removed, s)
			}
		}
		return nil
	})
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	if len(removed) == 0 {
		t.reply(ctx, chatID, "Not in the watchlist.")
		return
	}
	t.reply(ctx, chatID, "🗑 Removed "+strings.Join(removed, ", ")+"\n\n"+formatCoins(sub.Settings.Symbols))
}

func (t *Telegram) handleCheck(ctx context.Context, chatID int64, args string) {
	syms := parseSymbols(args)
	if len(syms) == 0 {
		t.await.set(chatID, "check")
		t.reply(ctx, chatID, "✍️ Which coin? e.g. `SOL` (or `cancel`)")
		return
	}
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	for _, s := range syms {
		t.reply(ctx, chatID, runner.FormatCheck(t.scanner.Check(ctx, sub.Settings, s)))
	}
}

func (t *Telegram) handleScan(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	if len(sub.Settings.Symbols) == 0 {
		t.reply(ctx, chatID, formatCoins(nil))
		return
	}
	t.reply(ctx, chatID, "⏳ Scanning watchlist...")
	t.sendResults(ctx, chatID, "Watchlist", t.scanner.ScanSymbols(ctx, sub.Settings, sub.Settings.Symbols))
}

func (t *Telegram) handleAll(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	n := min(sub.Settings.ScanTopN, t.opts.AllLimit)
	top, err := t.market.TopByVolume(ctx, n)
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	t.reply(ctx, chatID, "⏳ Scanning top "+strconv.Itoa(len(top))+" by volume...")
	t.sendResults(ctx, chatID, "Top "+strconv.Itoa(len(top)), t.scanner.ScanSymbols(ctx, sub.Settings, top))
}

func (t *Telegram) handleMovers(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	movers, err := t.market.TopMovers(ctx, t.opts.MoversN)
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	t.reply(ctx, chatID, formatMovers(movers))
	if len(movers) == 0 {
		return
	}

	syms := make([]string, 0, len(movers))
	for _, m := range movers {
		syms = append(syms, m.Symbol)
	}
	t.sendResults(ctx, chatID, "Movers", t.scanner.ScanSymbols(ctx, sub.Settings, syms))
}

// sendResults: сводка и отдельный алерт на каждый ultra. Ручной скан идёт мимо гейта.
func (t *Telegram) sendResults(ctx context.Context, chatID int64, title string, results []runner.Result) {
	t.reply(ctx, chatID, runner.FormatSummary(title, results))
	for _, r := range results {
		if r.Err == nil && r.Signal.Ultra {
			t.reply(ctx, chatID, runner.FormatAlert(r.Signal, r.Plan))
		}
	}
}

func (t *Telegram) handleSettings(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	msg := tgbotapi.NewMessage(chatID, formatSettings(sub, t.running(chatID))+"\n\n"+setUsage)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = settingsKeyboard()
	if err := t.sender.SendMessage(ctx, msg); err != nil {
		logger.Error("[TG] %d: settings: %v", chatID, err)
	}
}

// handleCallback - inline-кнопки меню настроек.
func (t *Telegram) handleCallback(ctx context.Context, chatID int64, cb *tgbotapi.CallbackQuery) {
	key, val, ok := strings.Cut(cb.Data, ":")
	if !ok {
		t.sender.answerCallback(cb.ID, "")
		return
	}

	var edit settingsEdit
	switch key {
	case "interval":
		sec, err := strconv.Atoi(val)
		if err != nil {
			t.sender.answerCallback(cb.ID, "bad interval")
			return
		}
		edit = func(st *models.Settings) error { st.IntervalSeconds = sec; return nil }
	case "mode":
		mode := models.Mode(val)
		edit = func(st *models.Settings) error { st.AutoMode = mode; return nil }
	default:
		t.sender.answerCallback(cb.ID, "")
		return
	}

	if _, err := t.getSubscription(ctx, chatID, ""); err != nil {
		t.sender.answerCallback(cb.ID, "error")
		t.replyError(ctx, chatID, err)
		return
	}
	sub, err := t.applySettings(ctx, chatID, edit)
	if err != nil {
		t.sender.answerCallback(cb.ID, "rejected")
		t.replySetError(ctx, chatID, err)
		return
	}
	t.sender.answerCallback(cb.ID, "✅ saved")

	text := formatSettings(sub, t.running(chatID)) + "\n\n" + setUsage
	if err := t.sender.editTextAndMarkup(chatID, cb.Message.MessageID, text, settingsKeyboard()); err != nil {
		logger.Warn("[TG] %d: edit settings: %v", chatID, err)
	}
}

func (t *Telegram) handleRun(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	switch err := t.runner.Start(ctx, chatID); {
	case errors.Is(err, runner.ErrAlreadyRunning):
		t.reply(ctx, chatID, "ℹ️ Already scanning.")
	case err != nil:
		t.replyError(ctx, chatID, err)
	default:
		t.reply(ctx, chatID, "✅ Scanning every "+intervalLabel(sub.Settings.IntervalSeconds)+
			" (mode `"+string(sub.Settings.AutoMode)+"`).")
	}
}

func (t *Telegram) handleStop(ctx context.Context, chatID int64) {
	switch err := t.runner.Stop(ctx, chatID); {
	case errors.Is(err, runner.ErrNotRunning):
		t.reply(ctx, chatID, "ℹ️ Scanning is not running.")
	case errors.Is(err, models.ErrNotFound):
		t.reply(ctx, chatID, "No subscription yet. /start")
	case err != nil:
		t.replyError(ctx, chatID, err)
	default:
		t.reply(ctx, chatID, "🛑 Scanning stopped.")
	}
}

// handleMute: без символа глушит/включает все алерты чата.
func (t *Telegram) handleMute(ctx context.Context, chatID int64, args string, mute bool) {
	sym := ""
	if syms := parseSymbols(args); len(syms) > 0 {
		sym = syms[0]
	}
	label := sym
	if label == "" {
		label = "all alerts"
	}

	if mute {
		t.muter.Mute(chatID, sym)
	} else if !t.muter.Unmute(chatID, sym) {
		t.reply(ctx, chatID, "Not muted: "+label+"\n"+formatMuted(t.muter.Muted(chatID)))
		return
	}
	if err := t.muter.Flush(ctx); err != nil {
		logger.Warn("[TG] %d: flush mutes: %v", chatID, err)
	}

	if mute {
		t.reply(ctx, chatID, "🔕 Muted "+label)
		return
	}
	t.reply(ctx, chatID, "🔔 Unmuted "+label)
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64) {
	sub, err := t.getSubscription(ctx, chatID, "")
	if err != nil {
		t.replyError(ctx, chatID, err)
		return
	}
	t.reply(ctx, chatID, formatSettings(sub, t.running(chatID))+"\n"+formatMuted(t.muter.Muted(chatID)))
}

func (t *Telegram) running(chatID int64) bool {
	return t.runner != nil && t.runner.Running(chatID)
}

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	if err := t.sender.Send(ctx, chatID, text); err != nil {
		logger.Error("[TG] %d: reply: %v", chatID, err)
	}
}

func (t *Telegram) replyError(ctx context.Context, chatID int64, err error) {
	logger.Error("[TG] %d: %v", chatID, err)
	if errors.Is(err, models.ErrConfigInvalid) {
		t.reply(ctx, chatID, "❗️ "+err.Error())
		return
	}
	t.reply(ctx, chatID, "⚠️ Something went wrong, try again later.")
}
