package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ultra_signals/internal/models"
)

const setUsage = "Usage:\n" +
	"`/set rsi 30 70`\n" +
	"`/set minvotes 3`\n" +
	"`/set ultra 4`\n" +
	"`/set interval 5m|15m|1h|4h|1d|<seconds>`\n" +
	"`/set mode watchlist|universe|both|single`\n" +
	"`/set topn 100`\n" +
	"`/set timeframes 5m,1h,1d`\n" +
	"`/set pin BTC`"

var errUsage = errors.New("unknown setting")

// settingsEdit меняет копию настроек; результат коммитится только после Validate.
type settingsEdit func(st *models.Settings) error

// parseSet разбирает аргументы /set в правку настроек.
func parseSet(args string) (settingsEdit, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return nil, errUsage
	}
	key, vals := strings.ToLower(fields[0]), fields[1:]

	switch key {
	case "rsi":
		if len(vals) != 2 {
			return nil, fmt.Errorf("%w: rsi needs two values: oversold overbought", models.ErrConfigInvalid)
		}
		lo, err := atoiArg("rsi oversold", vals[0])
		if err != nil {
			return nil, err
		}
		hi, err := atoiArg("rsi overbought", vals[1])
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error {
			st.RSIOversold, st.RSIOverbought = lo, hi
			return nil
		}, nil

	case "minvotes", "votes":
		n, err := atoiArg("minvotes", vals[0])
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error { st.MinConfirmations = n; return nil }, nil

	case "ultra":
		n, err := atoiArg("ultra", vals[0])
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error { st.UltraMinScore = n; return nil }, nil

	case "interval":
		sec, err := parseInterval(vals[0])
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error { st.IntervalSeconds = sec; return nil }, nil

	case "mode":
		mode := models.Mode(strings.ToLower(vals[0]))
		return func(st *models.Settings) error { st.AutoMode = mode; return nil }, nil

	case "topn":
		n, err := atoiArg("topn", vals[0])
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error { st.ScanTopN = n; return nil }, nil

	case "timeframes", "tf":
		tfs, err := parseTimeframes(strings.Join(vals, " "))
		if err != nil {
			return nil, err
		}
		return func(st *models.Settings) error { st.Timeframes = tfs; return nil }, nil

	case "pin":
		sym := ""
		if v := strings.ToLower(vals[0]); v != "off" && v != "-" {
			sym = models.NormSymbol(vals[0])
		}
		return func(st *models.Settings) error { st.PinnedSymbol = sym; return nil }, nil
	}
	return nil, errUsage
}

// applySettings - единственная точка изменения настроек из бота.
func (t *Telegram) applySettings(ctx context.Context, chatID int64, edit settingsEdit) (*models.Subscription, error) {
	return t.store.Update(ctx, chatID, func(sub *models.Subscription) error {
		next := sub.Settings.Clone()
		if err := edit(&next); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		sub.Settings = next
		return nil
	})
}

func (t *Telegram) handleSet(ctx context.Context, chatID int64, args string) {
	if _, err := t.getSubscription(ctx, chatID, ""); err != nil {
		t.replyError(ctx, chatID, err)
		return
	}

	edit, err := parseSet(args)
	if err != nil {
		t.replySetError(ctx, chatID, err)
		return
	}
	sub, err := t.applySettings(ctx, chatID, edit)
	if err != nil {
		t.replySetError(ctx, chatID, err)
		return
	}
	t.reply(ctx, chatID, "✅ Saved\n\n"+formatSettings(sub, t.running(chatID)))
}

func (t *Telegram) replySetError(ctx context.Context, chatID int64, err error) {
	if errors.Is(err, errUsage) {
		t.reply(ctx, chatID, setUsage)
		return
	}
	if errors.Is(err, models.ErrConfigInvalid) {
		t.reply(ctx, chatID, "❗️ "+err.Error()+"\n\n"+setUsage)
		return
	}
	t.replyError(ctx, chatID, err)
}
