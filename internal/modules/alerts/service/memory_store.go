package service

import (
	"context"
	"maps"
	"slices"
	"sync"

	"ultra_signals/internal/models"
)

// MemoryStore - без персиста, состояние живёт до рестарта.
type MemoryStore struct {
	mu   sync.Mutex
	snap models.AlertSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (models.AlertSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.AlertSnapshot{
		Records: maps.Clone(m.snap.Records),
		Muted:   slices.Clone(m.snap.Muted),
	}, nil
}

func (m *MemoryStore) Save(_ context.Context, snap models.AlertSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = models.AlertSnapshot{
		Records: maps.Clone(snap.Records),
		Muted:   slices.Clone(snap.Muted),
	}
	return nil
}
