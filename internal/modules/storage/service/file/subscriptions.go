package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"ultra_signals/internal/models"
)

type Subscriptions struct {
	path string

	mu     sync.Mutex
	cache  map[int64]*models.Subscription
	loaded bool
}

const defaultPath = "data/subscriptions.json"

func NewSubscriptions(path string) *Subscriptions {
	if path == "" {
		path = defaultPath
	}
	return &Subscriptions{
		path:  path,
		cache: make(map[int64]*models.Subscription),
	}
}

func (s *Subscriptions) Get(_ context.Context, id int64) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	v, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("subscription %d: %w", id, models.ErrNotFound)
	}
	return v.Clone(), nil
}

// Save - upsert; невалидные настройки не пишем.
func (s *Subscriptions) Save(_ context.Context, sub *models.Subscription) error {
	if err := sub.Settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	prev := s.cache[sub.SubscriberID]
	s.cache[sub.SubscriberID] = sub.Clone()
	if err := s.saveLocked(); err != nil {
		s.restoreLocked(sub.SubscriberID, prev)
		return err
	}
	return nil
}

func (s *Subscriptions) Update(
	_ context.Context,
	id int64,
	fn func(sub *models.Subscription) error,
) (*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	prev, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("subscription %d: %w", id, models.ErrNotFound)
	}

	next := prev.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Settings.Validate(); err != nil {
		return nil, err
	}
	next.SubscriberID = id
	next.UpdatedAt = time.Now().UTC()

	s.cache[id] = next
	if err := s.saveLocked(); err != nil {
		s.cache[id] = prev
		return nil, err
	}
	return next.Clone(), nil
}

func (s *Subscriptions) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	prev, ok := s.cache[id]
	if !ok {
		return nil
	}
	delete(s.cache, id)
	if err := s.saveLocked(); err != nil {
		s.cache[id] = prev
		return err
	}
	return nil
}

func (s *Subscriptions) List(_ context.Context) ([]*models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]*models.Subscription, 0, len(s.cache))
	for _, v := range s.cache {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriberID < out[j].SubscriberID })
	return out, nil
}

func (s *Subscriptions) restoreLocked(id int64, prev *models.Subscription) {
	if prev == nil {
		delete(s.cache, id)
		return
	}
	s.cache[id] = prev
}

// ---- storage format ----

type snapshot struct {
	UpdatedAt     time.Time              `json:"updated_at"`
	Subscriptions []*models.Subscription `json:"subscriptions"`
}

func (s *Subscriptions) loadLocked() error {
	if s.loaded {
		return nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var snap snapshot
	if err := sonic.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}

	s.cache = make(map[int64]*models.Subscription, len(snap.Subscriptions))
	for _, sub := range snap.Subscriptions {
		if sub == nil {
			continue
		}
		s.cache[sub.SubscriberID] = sub
	}

	s.loaded = true
	return nil
}

func (s *Subscriptions) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	snap := snapshot{
		UpdatedAt:     time.Now().UTC(),
		Subscriptions: make([]*models.Subscription, 0, len(s.cache)),
	}
	for _, v := range s.cache {
		snap.Subscriptions = append(snap.Subscriptions, v)
	}
	sort.Slice(snap.Subscriptions, func(i, j int) bool {
		return snap.Subscriptions[i].SubscriberID < snap.Subscriptions[j].SubscriberID
	})

	b, err := sonic.ConfigStd.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path) // атомарно
}
