package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AlertKey - ключ дедупликации: подписчик + символ + таймфрейм(ы) + направление.
type AlertKey struct {
	SubscriberID int64
	Symbol       string
	Timeframe    string
	Direction    Side
}

func (k AlertKey) String() string {
	return fmt.Sprintf("%d|%s|%s|%s", k.SubscriberID, k.Symbol, k.Timeframe, k.Direction.String())
}

func ParseAlertKey(raw string) (AlertKey, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 4 {
		return AlertKey{}, fmt.Errorf("bad alert key %q", raw)
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return AlertKey{}, fmt.Errorf("bad alert key %q: %w", raw, err)
	}
	dir := Side(parts[3])
	if parts[3] == "NONE" {
		dir = SideNone
	}
	return AlertKey{SubscriberID: id, Symbol: parts[1], Timeframe: parts[2], Direction: dir}, nil
}

type AlertRecord struct {
	LastSentAt time.Time `json:"last_sent_at"`
}

// MuteKey: пустой Symbol глушит подписчика целиком.
type MuteKey struct {
	SubscriberID int64  `json:"subscriber_id"`
	Symbol       string `json:"symbol,omitempty"`
}

// AlertSnapshot - то, что гейт сохраняет между рестартами.
type AlertSnapshot struct {
	Records map[AlertKey]AlertRecord
	Muted   []MuteKey
}
