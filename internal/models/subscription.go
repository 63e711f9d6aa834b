package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Mode string

const (
	ModeWatchlist Mode = "watchlist"
	ModeUniverse  Mode = "universe"
	ModeBoth      Mode = "both"
	ModeSingle    Mode = "single"
)

// Settings - настройки подписчика, единственный формат хранения.
type Settings struct {
	Symbols          []string    `json:"symbols" yaml:"symbols" default:"[\"BTCUSDT\",\"ETHUSDT\",\"BNBUSDT\"]" validate:"max=200,unique,dive,required,uppercase,alphanum"`
	Timeframes       []Timeframe `json:"timeframes" yaml:"timeframes" default:"[\"5m\",\"1h\",\"1d\"]" validate:"min=1,max=6,unique,dive,oneof=1m 5m 15m 1h 4h 1d"`
	RSIOversold      int         `json:"rsi_oversold" yaml:"rsi_oversold" default:"30" validate:"min=1,max=99"`
	RSIOverbought    int         `json:"rsi_overbought" yaml:"rsi_overbought" default:"70" validate:"min=1,max=99,gtfield=RSIOversold"`
	MinConfirmations int         `json:"min_confirmations" yaml:"min_confirmations" default:"3" validate:"min=1,max=10"`
	UltraMinScore    int         `json:"ultra_min_score" yaml:"ultra_min_score" default:"4" validate:"min=1,max=60"`
	ScanTopN         int         `json:"scan_top_n" yaml:"scan_top_n" default:"100" validate:"min=1,max=500"`
	AutoMode         Mode        `json:"auto_mode" yaml:"auto_mode" default:"both" validate:"oneof=watchlist universe both single"`
	PinnedSymbol     string      `json:"pinned_symbol,omitempty" yaml:"pinned_symbol" validate:"required_if=AutoMode single,omitempty,uppercase,alphanum"`
	IntervalSeconds  int         `json:"interval_seconds" yaml:"interval_seconds" default:"3600" validate:"min=60,max=86400"`
	Active           bool        `json:"active" yaml:"active"`
}

var validate = validator.New()

// Validate проверяет настройки; ошибка всегда оборачивает ErrConfigInvalid.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrConfigInvalid, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

func (s Settings) Thresholds() Thresholds {
	return Thresholds{
		RSIOversold:      float64(s.RSIOversold),
		RSIOverbought:    float64(s.RSIOverbought),
		MinConfirmations: s.MinConfirmations,
		UltraMinScore:    s.UltraMinScore,
	}
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Clone - глубокая копия, чтобы никто снаружи не мутировал слайсы.
func (s Settings) Clone() Settings {
	out := s
	out.Symbols = slices.Clone(s.Symbols)
	out.Timeframes = slices.Clone(s.Timeframes)
	return out
}

// Subscription - запись подписчика (Telegram chat).
type Subscription struct {
	SubscriberID int64     `json:"subscriber_id"`
	Name         string    `json:"name"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewSubscriptionFromDefaults(subscriberID int64, defaults Settings) *Subscription {
	now := time.Now().UTC()
	st := defaults.Clone()
	st.Active = false
	return &Subscription{
		SubscriberID: subscriberID,
		Settings:     st,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	out := *s
	out.Settings = s.Settings.Clone()
	return &out
}

// AddSymbol добавляет символ в конец watchlist; false если уже есть.
func (s *Subscription) AddSymbol(symbol string) bool {
	if slices.Contains(s.Settings.Symbols, symbol) {
		return false
	}
	s.Settings.Symbols = append(s.Settings.Symbols, symbol)
	return true
}

func (s *Subscription) RemoveSymbol(symbol string) bool {
	i := slices.Index(s.Settings.Symbols, symbol)
	if i < 0 {
		return false
	}
	s.Settings.Symbols = slices.Delete(s.Settings.Symbols, i, i+1)
	return true
}

// NormSymbol: "btc" -> "BTCUSDT", как делал старый бот.
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "-", "")
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, "USDT") {
		s += "USDT"
	}
	return s
}
