package service

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ultra_signals/internal/models"
)

// getSubscription достаёт подписку чата, при первом обращении создаёт её из дефолтов.
func (t *Telegram) getSubscription(ctx context.Context, chatID int64, name string) (*models.Subscription, error) {
	sub, err := t.store.Get(ctx, chatID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	sub = models.NewSubscriptionFromDefaults(chatID, t.opts.Defaults)
	sub.Name = name
	if err := t.store.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func chatName(c *tgbotapi.Chat) string {
	if c == nil {
		return ""
	}
	switch {
	case c.UserName != "":
		return "@" + c.UserName
	case c.Title != "":
		return c.Title
	default:
		return c.FirstName
	}
}
