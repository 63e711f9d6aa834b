package runner

import (
	"fmt"
	"strconv"
	"strings"

	"ultra_signals/internal/models"
)

// FormatAlert - текст ultra-алерта (Telegram Markdown).
func FormatAlert(sig models.AggregateSignal, plan *models.TradePlan) string {
	var b strings.Builder

	icon := "🟢"
	if sig.Direction == models.SideSell {
		icon = "🔴"
	}
	fmt.Fprintf(&b, "%s *ULTRA %s* `%s`\n", icon, sig.Direction, sig.Symbol)
	fmt.Fprintf(&b, "Score: *%d* (BUY %d / SELL %d) | TF: %s\n",
		sig.Score(), sig.BuyTotal, sig.SellTotal, models.JoinTimeframes(sig.Timeframes))
	fmt.Fprintf(&b, "Price: `%s`\n", FormatPrice(sig.LastPrice))

	writeVotes(&b, sig)

	if plan != nil {
		b.WriteString("\n📋 *Trade plan*\n")
		fmt.Fprintf(&b, "Entry: `%s`\n", FormatPrice(plan.Entry))
		fmt.Fprintf(&b, "SL: `%s`\n", FormatPrice(plan.StopLoss))
		fmt.Fprintf(&b, "TP1: `%s`\n", FormatPrice(plan.TakeProfit1))
		fmt.Fprintf(&b, "TP2: `%s`\n", FormatPrice(plan.TakeProfit2))
		fmt.Fprintf(&b, "Leverage: *%dx*\n", plan.Leverage)
	}
	return b.String()
}

// FormatCheck - ответ на ручную проверку монеты: алерт, если ultra, иначе расклад голосов.
func FormatCheck(r Result) string {
	if r.Err != nil {
		return fmt.Sprintf("⚠️ `%s`: no data (%v)", r.Symbol, r.Err)
	}
	if r.Signal.Ultra {
		return FormatAlert(r.Signal, r.Plan)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 `%s`: no ultra signal\n", r.Symbol)
	fmt.Fprintf(&b, "Direction: *%s* | BUY %d / SELL %d\n", r.Signal.Direction, r.Signal.BuyTotal, r.Signal.SellTotal)
	if r.Signal.LastPrice > 0 {
		fmt.Fprintf(&b, "Price: `%s`\n", FormatPrice(r.Signal.LastPrice))
	}
	writeVotes(&b, r.Signal)
	return b.String()
}

// FormatSummary - сводка разового скана.
func FormatSummary(title string, results []Result) string {
	var ultra, failed int
	var b strings.Builder
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Signal.Ultra:
			ultra++
			fmt.Fprintf(&b, "• `%s` %s score %d @ `%s`\n",
				r.Symbol, r.Signal.Direction, r.Signal.Score(), FormatPrice(r.Signal.LastPrice))
		}
	}

	head := fmt.Sprintf("📊 *%s*: checked %d, ultra %d", title, len(results), ultra)
	if failed > 0 {
		head += fmt.Sprintf(", no data %d", failed)
	}
	if ultra == 0 {
		return head + "\nNo ultra signals right now."
	}
	return head + "\n" + b.String()
}

func writeVotes(b *strings.Builder, sig models.AggregateSignal) {
	for _, tf := range sig.Timeframes {
		v, ok := sig.PerTimeframe[tf]
		if !ok {
			fmt.Fprintf(b, "*%s*: n/a\n", tf)
			continue
		}
		fmt.Fprintf(b, "*%s*: %s (%d/%d) @ `%s`", tf, v.Direction, v.BuyCount, v.SellCount, FormatPrice(v.LastPrice))
		if len(v.Reasons) > 0 {
			b.WriteString(" | " + strings.Join(v.Reasons, ", "))
		}
		b.WriteByte('\n')
	}
}

func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
