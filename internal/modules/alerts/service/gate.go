package service

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/logger"
)

const (
	DefaultWindow   = 15 * time.Minute
	DefaultCapacity = 2000
)

// Store сохраняет состояние гейта между рестартами.
type Store interface {
	Load(ctx context.Context) (models.AlertSnapshot, error)
	Save(ctx context.Context, snap models.AlertSnapshot) error
}

type Config struct {
	Window   time.Duration
	Capacity int
}

// Gate - дедупликация алертов: один ключ не чаще раза в окно.
// Все методы безопасны для вызова из нескольких сканов сразу.
type Gate struct {
	window   time.Duration
	capacity int
	store    Store

	// flushMu держится на весь снимок+Save, чтобы старый снимок не перетёр новый
	flushMu sync.Mutex

	mu      sync.Mutex
	records map[models.AlertKey]models.AlertRecord
	muted   map[models.MuteKey]struct{}
	dirty   bool
}

func NewGate(cfg Config, store Store) *Gate {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gate{
		window:   cfg.Window,
		capacity: cfg.Capacity,
		store:    store,
		records:  make(map[models.AlertKey]models.AlertRecord),
		muted:    make(map[models.MuteKey]struct{}),
	}
}

// Admit пропускает ключ, если записи нет или окно уже прошло, и сразу
// фиксирует отправку. Заглушённые ключи отклоняются без изменения состояния.
func (g *Gate) Admit(key models.AlertKey, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mutedLocked(key.SubscriberID, key.Symbol) {
		return false
	}

	rec, ok := g.records[key]
	if ok && now.Sub(rec.LastSentAt) <= g.window {
		return false
	}
	if !ok && len(g.records) >= g.capacity {
		// переполнение: сбрасываем всё, потом вставляем новый ключ
		logger.Warn("[GATE] capacity %d reached, resetting", g.capacity)
		clear(g.records)
	}
	g.records[key] = models.AlertRecord{LastSentAt: now}
	g.dirty = true
	return true
}

func (g *Gate) mutedLocked(id int64, symbol string) bool {
	if _, ok := g.muted[models.MuteKey{SubscriberID: id}]; ok {
		return true
	}
	_, ok := g.muted[models.MuteKey{SubscriberID: id, Symbol: symbol}]
	return ok
}

// Mute глушит символ подписчика; пустой symbol глушит все алерты подписчика.
func (g *Gate) Mute(id int64, symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.muted[models.MuteKey{SubscriberID: id, Symbol: symbol}] = struct{}{}
	g.dirty = true
}

// Unmute снимает ровно ту заглушку, что была поставлена. Возвращает false, если её не было.
func (g *Gate) Unmute(id int64, symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := models.MuteKey{SubscriberID: id, Symbol: symbol}
	if _, ok := g.muted[k]; !ok {
		return false
	}
	delete(g.muted, k)
	g.dirty = true
	return true
}

func (g *Gate) IsMuted(id int64, symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutedLocked(id, symbol)
}

// Muted - заглушки подписчика; "" означает "всё".
func (g *Gate) Muted(id int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for k := range g.muted {
		if k.SubscriberID == id {
			out = append(out, k.Symbol)
		}
	}
	return out
}

func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.records)
}

// Restore подтягивает сохранённое состояние. Вызывается один раз на старте.
func (g *Gate) Restore(ctx context.Context) error {
	snap, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = make(map[models.AlertKey]models.AlertRecord, len(snap.Records))
	for k, v := range snap.Records {
		g.records[k] = v
	}
	if len(g.records) > g.capacity {
		clear(g.records)
	}
	g.muted = make(map[models.MuteKey]struct{}, len(snap.Muted))
	for _, m := range snap.Muted {
		g.muted[m] = struct{}{}
	}
	g.dirty = false
	return nil
}

// Flush пишет состояние в стор, если что-то поменялось. При ошибке память
// остаётся главной, попробуем на следующем тике.
func (g *Gate) Flush(ctx context.Context) error {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	g.mu.Lock()
	if !g.dirty {
		g.mu.Unlock()
		return nil
	}
	snap := models.AlertSnapshot{
		Records: maps.Clone(g.records),
		Muted:   make([]models.MuteKey, 0, len(g.muted)),
	}
	for k := range g.muted {
		snap.Muted = append(snap.Muted, k)
	}
	g.dirty = false
	g.mu.Unlock()

	if err := g.store.Save(ctx, snap); err != nil {
		g.mu.Lock()
		g.dirty = true
		g.mu.Unlock()
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}
