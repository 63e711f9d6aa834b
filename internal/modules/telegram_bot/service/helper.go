package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ultra_signals/internal/models"
)

type intervalPreset struct {
	Label   string
	Seconds int
}

// Пресеты интервала сканирования для кнопок и /set interval.
var intervalPresets = []intervalPreset{
	{"5m", 300},
	{"15m", 900},
	{"1h", 3600},
	{"4h", 14400},
	{"1d", 86400},
}

// parseInterval: пресет ("1h"), число секунд ("900") или go-длительность ("90m").
// Диапазон проверяет Settings.Validate.
func parseInterval(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range intervalPresets {
		if p.Label == s {
			return p.Seconds, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad interval %q", models.ErrConfigInvalid, raw)
	}
	return int(d / time.Second), nil
}

func intervalLabel(seconds int) string {
	for _, p := range intervalPresets {
		if p.Seconds == seconds {
			return p.Label
		}
	}
	return (time.Duration(seconds) * time.Second).String()
}

// splitArgs режет аргументы по пробелам и запятым.
func splitArgs(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func parseSymbols(raw string) []string {
	var out []string
	for _, a := range splitArgs(raw) {
		if s := models.NormSymbol(a); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseTimeframes(raw string) ([]models.Timeframe, error) {
	args := splitArgs(raw)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no timeframes", models.ErrConfigInvalid)
	}
	out := make([]models.Timeframe, 0, len(args))
	for _, a := range args {
		tf, err := models.ParseTimeframe(a)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}

func atoiArg(name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrConfigInvalid, name, raw)
	}
	return v, nil
}
