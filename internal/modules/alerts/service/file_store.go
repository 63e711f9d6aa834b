package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/logger"
)

const defaultFilePath = "data/alerts.json"

// FileStore - JSON-снапшот на диске, запись через tmp + rename.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = defaultFilePath
	}
	return &FileStore{path: path}
}

type fileRecord struct {
	Key        string    `json:"key"`
	LastSentAt time.Time `json:"last_sent_at"`
}

type fileSnapshot struct {
	UpdatedAt time.Time        `json:"updated_at"`
	Records   []fileRecord     `json:"records"`
	Muted     []models.MuteKey `json:"muted"`
}

func (s *FileStore) Load(_ context.Context) (models.AlertSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := models.AlertSnapshot{Records: map[models.AlertKey]models.AlertRecord{}}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, fmt.Errorf("read %s: %w", s.path, err)
	}

	var snap fileSnapshot
	if err := sonic.Unmarshal(b, &snap); err != nil {
		return out, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for _, r := range snap.Records {
		k, err := models.ParseAlertKey(r.Key)
		if err != nil {
			logger.Warn("[ALERTS] skip record: %v", err)
			continue
		}
		out.Records[k] = models.AlertRecord{LastSentAt: r.LastSentAt}
	}
	out.Muted = snap.Muted
	return out, nil
}

func (s *FileStore) Save(_ context.Context, snap models.AlertSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	fs := fileSnapshot{
		UpdatedAt: time.Now(),
		Records:   make([]fileRecord, 0, len(snap.Records)),
		Muted:     snap.Muted,
	}
	for k, v := range snap.Records {
		fs.Records = append(fs.Records, fileRecord{Key: k.String(), LastSentAt: v.LastSentAt})
	}

	b, err := sonic.ConfigStd.MarshalIndent(&fs, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
