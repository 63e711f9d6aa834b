package service

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ultra_signals/internal/models"
	market "ultra_signals/internal/modules/market/service"
	"ultra_signals/internal/runner"
)

const helpText = "*Ultra signals*\n\n" +
	"/coins - watchlist\n" +
	"/add BTC ETH - add coins\n" +
	"/remove BTC - remove coin\n" +
	"/check SOL - check one coin now\n" +
	"/scan - scan the watchlist now\n" +
	"/all - scan top coins by volume now\n" +
	"/movers - top 24h movers\n" +
	"/settings - current settings\n" +
	"/set - change a setting\n" +
	"/run, /stop - scheduled scanning\n" +
	"/mute [SYM], /unmute [SYM] - silence alerts\n" +
	"/status - loop and mutes"

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatSettings(sub *models.Subscription, running bool) string {
	st := sub.Settings
	pin := st.PinnedSymbol
	if pin == "" {
		pin = "-"
	}
	return fmt.Sprintf(
		"*⚙️ Settings*\n\n"+
			"Mode: `%s` (pin `%s`)\n"+
			"Timeframes: `%s`\n"+
			"RSI: `%d / %d`\n"+
			"Min votes: `%d`\n"+
			"Ultra score: `%d`\n"+
			"Top N: `%d`\n"+
			"Interval: `%s`\n"+
			"Coins: `%d`\n"+
			"Scanning: *%s*",
		st.AutoMode, pin,
		models.JoinTimeframes(st.Timeframes),
		st.RSIOversold, st.RSIOverbought,
		st.MinConfirmations,
		st.UltraMinScore,
		st.ScanTopN,
		intervalLabel(st.IntervalSeconds),
		len(st.Symbols),
		onOff(running),
	)
}

func formatCoins(symbols []string) string {
	if len(symbols) == 0 {
		return "🪙 Watchlist is empty. Add coins with `/add BTC`."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🪙 *Watchlist* (%d)\n", len(symbols))
	for _, s := range symbols {
		fmt.Fprintf(&b, "• `%s`\n", s)
	}
	return b.String()
}

func formatMovers(movers []market.Ticker) string {
	if len(movers) == 0 {
		return "🚀 No movers right now."
	}
	var b strings.Builder
	b.WriteString("🚀 *Top movers 24h*\n")
	for _, m := range movers {
		fmt.Fprintf(&b, "• `%s` %+.2f%% @ `%s`\n", m.Symbol, m.PriceChangePct, runner.FormatPrice(m.LastPrice))
	}
	return b.String()
}

func formatMuted(muted []string) string {
	if len(muted) == 0 {
		return "🔔 Nothing muted."
	}
	var b strings.Builder
	b.WriteString("🔕 Muted: ")
	for i, m := range muted {
		if i > 0 {
			b.WriteString(", ")
		}
		if m == "" {
			m = "all"
		}
		fmt.Fprintf(&b, "`%s`", m)
	}
	return b.String()
}

// Кнопки главного меню, текст кнопки -> команда.
var menuButtons = map[string]string{
	"▶️ Run":      "run",
	"⏹ Stop":      "stop",
	"🔎 Scan":      "scan",
	"📊 All":       "all",
	"🚀 Movers":    "movers",
	"🪙 Coins":     "coins",
	"⚙️ Settings": "settings",
	"❓ Help":      "help",
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("▶️ Run"),
			tgbotapi.NewKeyboardButton("⏹ Stop"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🔎 Scan"),
			tgbotapi.NewKeyboardButton("📊 All"),
			tgbotapi.NewKeyboardButton("🚀 Movers"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🪙 Coins"),
			tgbotapi.NewKeyboardButton("⚙️ Settings"),
			tgbotapi.NewKeyboardButton("❓ Help"),
		),
	)
}

// settingsKeyboard: пресеты интервала и режимы. data вида "interval:3600" / "mode:both".
func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	var intervals []tgbotapi.InlineKeyboardButton
	for _, p := range intervalPresets {
		intervals = append(intervals, tgbotapi.NewInlineKeyboardButtonData(p.Label, fmt.Sprintf("interval:%d", p.Seconds)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		intervals,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("My coins", "mode:"+string(models.ModeWatchlist)),
			tgbotapi.NewInlineKeyboardButtonData("Top N", "mode:"+string(models.ModeUniverse)),
			tgbotapi.NewInlineKeyboardButtonData("Both", "mode:"+string(models.ModeBoth)),
		),
	)
}
