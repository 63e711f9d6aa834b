package service

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ultra_signals/pkg/logger"
)

// BotAPI - часть *tgbotapi.BotAPI, которой пользуется сервис.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender отправляет сообщения в чат. Без бота пишет всё в лог (режим stdout).
type Sender struct {
	api BotAPI
}

func NewSender(api BotAPI) *Sender {
	return &Sender{api: api}
}

// Send отправляет Markdown; если Telegram не смог разобрать разметку,
// повторяет тем же текстом без неё.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	return s.SendMessage(ctx, msg)
}

func (s *Sender) SendMessage(ctx context.Context, msg tgbotapi.MessageConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.api == nil {
		logger.Info("[TG] -> %d:\n%s", msg.ChatID, msg.Text)
		return nil
	}

	_, err := s.api.Send(msg)
	if err == nil || msg.ParseMode == "" {
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	}

	logger.Warn("[TG] %d: markdown rejected, resending plain: %v", msg.ChatID, err)
	msg.ParseMode = ""
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (s *Sender) editTextAndMarkup(chatID int64, msgID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	if s.api == nil {
		return nil
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, text, kb)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := s.api.Send(edit)
	return err
}

// answerCallback гасит "часики" на inline-кнопке.
func (s *Sender) answerCallback(id, text string) {
	if s.api == nil {
		return
	}
	if _, err := s.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Warn("[TG] answer callback: %v", err)
	}
}
