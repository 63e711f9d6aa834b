package models

import (
	"fmt"
	"strings"
	"time"
)

type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	TF1m:  time.Minute,
	TF5m:  5 * time.Minute,
	TF15m: 15 * time.Minute,
	TF1h:  time.Hour,
	TF4h:  4 * time.Hour,
	TF1d:  24 * time.Hour,
}

func (tf Timeframe) Duration() time.Duration { return timeframeDurations[tf] }

func (tf Timeframe) Valid() bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// ParseTimeframe понимает и биржевые варианты записи: 60m, 1H, 1D.
func ParseTimeframe(raw string) (Timeframe, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "60m":
		s = "1h"
	case "240m":
		s = "4h"
	case "24h":
		s = "1d"
	}
	tf := Timeframe(s)
	if !tf.Valid() {
		return "", fmt.Errorf("%w: unknown timeframe %q", ErrConfigInvalid, raw)
	}
	return tf, nil
}
