package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"ultra_signals/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// Config ...
type Config struct {
	Telegram struct {
		Token       string `yaml:"token"`
		PollTimeout int    `yaml:"poll_timeout" default:"30" validate:"min=1,max=120"`
	} `yaml:"telegram"`

	Service struct {
		Name       string `yaml:"name" default:"ultra_signals" validate:"required"`
		HealthAddr string `yaml:"health_addr" default:":8080" validate:"required"`
	} `yaml:"service"`

	Log struct {
		Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Dev   bool   `yaml:"dev"`
	} `yaml:"log"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host" default:"localhost"`
		Port    int    `yaml:"port" default:"6831" validate:"min=1,max=65535"`
	} `yaml:"tracing"`

	Market struct {
		BaseURL        string        `yaml:"base_url" default:"https://fapi.binance.com" validate:"url"`
		StreamURL      string        `yaml:"stream_url" default:"wss://fstream.binance.com/ws/!ticker@arr"`
		StreamEnabled  bool          `yaml:"stream_enabled" default:"true"`
		StreamMaxAge   time.Duration `yaml:"stream_max_age" default:"2m"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"10s" validate:"min=1s"`
		RequestDelay   time.Duration `yaml:"request_delay" default:"150ms" validate:"min=0s"`
		CandleLimit    int           `yaml:"candle_limit" default:"200" validate:"min=60,max=1500"`
		MinCandles     int           `yaml:"min_candles" default:"30" validate:"min=2"`
	} `yaml:"market"`

	Scan struct {
		Workers  int `yaml:"workers" default:"4" validate:"min=1,max=64"`
		MoversN  int `yaml:"movers_n" default:"5" validate:"min=1,max=50"`
		AllLimit int `yaml:"all_limit" default:"30" validate:"min=1,max=500"`
	} `yaml:"scan"`

	Strategy struct {
		RSIPeriod       int     `yaml:"rsi_period" default:"14" validate:"min=2"`
		EMAFast         int     `yaml:"ema_fast" default:"20" validate:"min=2"`
		EMASlow         int     `yaml:"ema_slow" default:"50" validate:"gtfield=EMAFast"`
		MACDFast        int     `yaml:"macd_fast" default:"12" validate:"min=2"`
		MACDSlow        int     `yaml:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
		MACDSignal      int     `yaml:"macd_signal" default:"9" validate:"min=2"`
		ATRPeriod       int     `yaml:"atr_period" default:"14" validate:"min=2"`
		BollingerPeriod int     `yaml:"bollinger_period" default:"20" validate:"min=2"`
		BollingerK      float64 `yaml:"bollinger_k" default:"2" validate:"gt=0"`
		VolumePeriod    int     `yaml:"volume_period" default:"20" validate:"min=2"`
		VolumeFactor    float64 `yaml:"volume_factor" default:"1.2" validate:"gt=0"`
		BollingerVote   bool    `yaml:"bollinger_vote"`
	} `yaml:"strategy"`

	Plan struct {
		Policy        string      `yaml:"policy" default:"percent" validate:"oneof=percent atr"`
		StopPct       float64     `yaml:"stop_pct" default:"0.006" validate:"gt=0,lt=1"`
		TakeProfit1   float64     `yaml:"take_profit1_pct" default:"0.008" validate:"gt=0,lt=1"`
		TakeProfit2   float64     `yaml:"take_profit2_pct" default:"0.015" validate:"gtfield=TakeProfit1,lt=1"`
		ATRStopMult   float64     `yaml:"atr_stop_mult" default:"1" validate:"gt=0"`
		ATRTP1Mult    float64     `yaml:"atr_tp1_mult" default:"1.5" validate:"gt=0"`
		ATRTP2Mult    float64     `yaml:"atr_tp2_mult" default:"3" validate:"gtfield=ATRTP1Mult"`
		MaxLeverage   int         `yaml:"max_leverage" default:"30" validate:"min=1,max=125"`
		LeverageTable map[int]int `yaml:"leverage_table" default:"{\"1\":2,\"2\":4,\"3\":8,\"4\":12,\"5\":20,\"6\":30}"`
	} `yaml:"plan"`

	Alerts struct {
		Window        time.Duration `yaml:"window" default:"15m" validate:"min=1s"`
		Capacity      int           `yaml:"capacity" default:"2000" validate:"min=1"`
		Backend       string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		FilePath      string        `yaml:"file_path" default:"data/alerts.json"`
		RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
		RedisPrefix   string        `yaml:"redis_prefix" default:"ultra_signals"`
	} `yaml:"alerts"`

	Store struct {
		Backend  string `yaml:"backend" default:"file" validate:"oneof=file postgres"`
		FilePath string `yaml:"file_path" default:"data/subscriptions.json"`
		DSN      string `yaml:"dsn" validate:"required_if=Backend postgres"`
	} `yaml:"store"`

	// Настройки, с которыми создаётся новый подписчик.
	Defaults models.Settings `yaml:"defaults"`
}

// env -> ключ конфига; значения из окружения перекрывают файл.
var envOverrides = map[string]string{
	"telegram.token":      "TELEGRAM_TOKEN",
	"store.dsn":           "DATABASE_DSN",
	"alerts.redis_addr":   "REDIS_ADDR",
	"log.level":           "LOG_LEVEL",
	"service.health_addr": "HEALTH_ADDR",
	"store.backend":       "STORE_BACKEND",
	"alerts.backend":      "ALERTS_BACKEND",
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	name := os.Getenv(configFilePathENV)
	if name == "" {
		name = defaultConfigFile
	}
	path := name
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(configDir, name)
	}

	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open config %s: %w", path, err)
		}
		// без файла живём на дефолтах + env
		return Load(nil)
	}
	defer func() {
		_ = f.Close()
	}()

	return Load(f)
}

// Load: дефолты -> yaml -> env -> валидация.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("set config defaults: %w", err)
	}

	if r != nil {
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfigInvalid, err)
	}
	if err := cfg.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("defaults: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	v := viper.New()
	for key, env := range envOverrides {
		_ = v.BindEnv(key, env)
	}

	if v.IsSet("telegram.token") {
		cfg.Telegram.Token = v.GetString("telegram.token")
	}
	if v.IsSet("store.dsn") {
		cfg.Store.DSN = v.GetString("store.dsn")
	}
	if v.IsSet("alerts.redis_addr") {
		cfg.Alerts.RedisAddr = v.GetString("alerts.redis_addr")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("service.health_addr") {
		cfg.Service.HealthAddr = v.GetString("service.health_addr")
	}
	if v.IsSet("store.backend") {
		cfg.Store.Backend = v.GetString("store.backend")
	}
	if v.IsSet("alerts.backend") {
		cfg.Alerts.Backend = v.GetString("alerts.backend")
	}
}
