package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID" validate:"required_with=TelegramToken"`

	Assets      []string `envconfig:"ASSETS" default:"BTC/USDT,ETH/USDT" validate:"required,min=1,dive,required,contains=/"`
	Timeframes  []string `envconfig:"TIMEFRAMES" default:"1h,4h" validate:"required,min=1,dive,oneof=15m 30m 1h 2h 4h 1d"`
	CandleLimit int      `envconfig:"CANDLE_LIMIT" default:"300" validate:"gte=210,lte=300"`

	// lower,higher pair for the timeframe confluence flag; empty disables it
	ConfluenceTimeframes []string `envconfig:"CONFLUENCE_TIMEFRAMES" default:"1h,4h" validate:"omitempty,len=2,dive,oneof=15m 30m 1h 2h 4h 1d"`

	Schedule       string        `envconfig:"SCHEDULE" default:"0 */15 * * * *" validate:"required"`
	ThrottleWindow time.Duration `envconfig:"THROTTLE_WINDOW" default:"30m" validate:"gt=0"`
	MinAlertScore  float64       `envconfig:"MIN_ALERT_SCORE" default:"60" validate:"gte=60,lte=100"`
	SignalTTL      time.Duration `envconfig:"SIGNAL_TTL" default:"24h" validate:"gt=0"`
	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"4" validate:"gte=1,lte=32"`

	OKXBaseURL     string        `envconfig:"OKX_BASE_URL" default:"https://www.okx.com" validate:"url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	RequestsPerSec int           `envconfig:"REQUESTS_PER_SEC" default:"8" validate:"gte=1"`

	LiquidityFilter   bool    `envconfig:"LIQUIDITY_FILTER" default:"false"`
	MinDailyVolumeUSD float64 `envconfig:"MIN_DAILY_VOLUME_USD" default:"50000000" validate:"gte=0"`
	MacroSummary      bool    `envconfig:"MACRO_SUMMARY" default:"true"`
	StatusReport      bool    `envconfig:"STATUS_REPORT" default:"false"`
	PaperMode         bool    `envconfig:"PAPER_MODE" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`

	MetricsAddr   string `envconfig:"METRICS_ADDR"`
	LedgerPath    string `envconfig:"LEDGER_PATH" default:"data/setup_ledger.csv"`
	WatchlistFile string `envconfig:"WATCHLIST_FILE"`

	Postgres PostgresConfig
	Redis    RedisConfig

	// Per-asset risk overrides from the watchlist file
	RiskOverrides map[string]RiskOverride `ignored:"true"`
}

// PostgresConfig holds the setup log database parameters
type PostgresConfig struct {
	Host     string `envconfig:"DB_HOST"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" validate:"required_with=Host"`
	Password string `envconfig:"DB_PASSWORD"`
	DBName   string `envconfig:"DB_NAME" default:"setup_scanner"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
}

// Enabled reports whether Postgres should be used instead of the CSV ledger
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// RedisConfig holds the shared throttle store parameters
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"setup-scanner:"`
}

// Enabled reports whether the throttle lives in Redis
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// RiskOverride replaces the ATR multipliers of one asset
type RiskOverride struct {
	StopATR   float64 `yaml:"stop_atr" validate:"omitempty,gt=0"`
	TargetATR float64 `yaml:"target_atr" validate:"omitempty,gtfield=StopATR"`
}

// Watchlist is the optional YAML file overriding assets and timeframes
type Watchlist struct {
	Assets []struct {
		Pair string `yaml:"pair"`
		RiskOverride `yaml:",inline"`
	} `yaml:"assets"`
	Timeframes []string `yaml:"timeframes"`
}

var validate = validator.New()

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if cfg.WatchlistFile != "" {
		if err := cfg.applyWatchlist(cfg.WatchlistFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	c.normalize()

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	for pair, o := range c.RiskOverrides {
		if err := validate.Struct(o); err != nil {
			return fmt.Errorf("invalid risk override for %s: %w", pair, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	for i, a := range c.Assets {
		c.Assets[i] = strings.ToUpper(strings.TrimSpace(a))
	}
	for i, tf := range c.Timeframes {
		c.Timeframes[i] = strings.ToLower(strings.TrimSpace(tf))
	}
	for i, tf := range c.ConfluenceTimeframes {
		c.ConfluenceTimeframes[i] = strings.ToLower(strings.TrimSpace(tf))
	}
}

func (c *Config) applyWatchlist(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading watchlist: %w", err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return fmt.Errorf("parsing watchlist %s: %w", path, err)
	}

	if len(wl.Assets) > 0 {
		c.Assets = c.Assets[:0]
		c.RiskOverrides = make(map[string]RiskOverride)
		for _, a := range wl.Assets {
			pair := strings.ToUpper(strings.TrimSpace(a.Pair))
			c.Assets = append(c.Assets, pair)
			if a.StopATR > 0 || a.TargetATR > 0 {
				c.RiskOverrides[pair] = a.RiskOverride
			}
		}
	}
	if len(wl.Timeframes) > 0 {
		c.Timeframes = wl.Timeframes
	}

	log.Info().Str("file", path).Strs("assets", c.Assets).Strs("timeframes", c.Timeframes).Msg("Watchlist loaded")
	return nil
}
