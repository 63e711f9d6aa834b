package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ultra_signals/internal/models"
	"ultra_signals/pkg/logger"
)

// RedisStore держит записи в хеше <prefix>:alerts (поле = ключ, значение =
// unix-nano), заглушки в сете <prefix>:muted.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ultra_signals"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) recordsKey() string { return s.prefix + ":alerts" }
func (s *RedisStore) mutedKey() string   { return s.prefix + ":muted" }

func (s *RedisStore) Load(ctx context.Context) (models.AlertSnapshot, error) {
	out := models.AlertSnapshot{Records: map[models.AlertKey]models.AlertRecord{}}

	raw, err := s.client.HGetAll(ctx, s.recordsKey()).Result()
	if err != nil {
		return out, fmt.Errorf("redis hgetall: %w", err)
	}
	for field, val := range raw {
		k, err := models.ParseAlertKey(field)
		if err != nil {
			logger.Warn("[ALERTS] skip redis field: %v", err)
			continue
		}
		ns, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			logger.Warn("[ALERTS] skip redis value %q: %v", val, err)
			continue
		}
		out.Records[k] = models.AlertRecord{LastSentAt: time.Unix(0, ns).UTC()}
	}

	members, err := s.client.SMembers(ctx, s.mutedKey()).Result()
	if err != nil {
		return out, fmt.Errorf("redis smembers: %w", err)
	}
	for _, m := range members {
		mk, err := parseMuteMember(m)
		if err != nil {
			logger.Warn("[ALERTS] skip mute %q: %v", m, err)
			continue
		}
		out.Muted = append(out.Muted, mk)
	}
	return out, nil
}

// Save полностью заменяет состояние одной транзакцией.
func (s *RedisStore) Save(ctx context.Context, snap models.AlertSnapshot) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.recordsKey(), s.mutedKey())
		if len(snap.Records) > 0 {
			fields := make(map[string]any, len(snap.Records))
			for k, v := range snap.Records {
				fields[k.String()] = strconv.FormatInt(v.LastSentAt.UnixNano(), 10)
			}
			p.HSet(ctx, s.recordsKey(), fields)
		}
		if len(snap.Muted) > 0 {
			members := make([]any, 0, len(snap.Muted))
			for _, m := range snap.Muted {
				members = append(members, muteMember(m))
			}
			p.SAdd(ctx, s.mutedKey(), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save alerts: %w", err)
	}
	return nil
}

func muteMember(m models.MuteKey) string {
	return strconv.FormatInt(m.SubscriberID, 10) + "|" + m.Symbol
}

func parseMuteMember(raw string) (models.MuteKey, error) {
	id, sym, ok := strings.Cut(raw, "|")
	if !ok {
		return models.MuteKey{}, fmt.Errorf("bad mute member %q", raw)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.MuteKey{}, err
	}
	return models.MuteKey{SubscriberID: n, Symbol: sym}, nil
}
