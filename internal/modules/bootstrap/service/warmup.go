package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ultra_signals/pkg/logger"
)

type Universe interface {
	TopByVolume(ctx context.Context, n int) ([]string, error)
}

type Restorer interface {
	Restore(ctx context.Context) (int, error)
}

type Readiness interface {
	SetReady(v bool)
}

// Warmuper - старт процесса: проверяет доступность биржи, поднимает
// циклы активных подписок и только потом отмечает сервис готовым.
type Warmuper struct {
	universe Universe
	restorer Restorer
	ready    Readiness

	attempts int
	backoff  time.Duration
}

func NewWarmuper(u Universe, r Restorer, ready Readiness) *Warmuper {
	return &Warmuper{
		universe: u,
		restorer: r,
		ready:    ready,
		attempts: 3,
		backoff:  2 * time.Second,
	}
}

func (w *Warmuper) Warmup(ctx context.Context) error {
	w.probe(ctx)

	n, err := w.restorer.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore subscriptions: %w", err)
	}
	logger.Info("[BOOT] restored %d scan loops", n)

	w.ready.SetReady(true)
	return nil
}

// probe не фатален: сканер сам переживёт недоступную биржу, а подписки
// всё равно надо поднять.
func (w *Warmuper) probe(ctx context.Context) {
	for i := 1; i <= w.attempts; i++ {
		top, err := w.universe.TopByVolume(ctx, 5)
		if err == nil {
			logger.Info("[BOOT] market ok, top by volume: %s", strings.Join(top, ", "))
			return
		}
		logger.Warn("[BOOT] market probe %d/%d: %v", i, w.attempts, err)

		if i == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff):
		}
	}
	logger.Warn("[BOOT] market unreachable, starting anyway")
}
