package config

import (
	"fmt"
	"strings"
	"time"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        Logger         `mapstructure:"logger"`
	DB         Database       `mapstructure:"database"`
	API        API            `mapstructure:"api"`
	Dashboard  Dashboard      `mapstructure:"dashboard"`
	Cache      Cache          `mapstructure:"cache"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
	MarketData MarketData     `mapstructure:"market_data"`
	Forecast   Forecast       `mapstructure:"forecast"`
	Chart      Chart          `mapstructure:"chart"`
	Quota      Quota          `mapstructure:"quota"`
	Payment    Payment        `mapstructure:"payment"`
	ChatLink   ChatLink       `mapstructure:"chat_link"`
}

type Logger struct {
	Level    string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"required,oneof=json console"`
}

type Database struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required"`
	User            string `mapstructure:"user" validate:"required"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name" validate:"required"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port              int           `mapstructure:"port" validate:"required"`
	JWTSecret         string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL          time.Duration `mapstructure:"token_ttl" validate:"required"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"required"`
	MaxRequestPerSec  int           `mapstructure:"max_request_per_sec" validate:"required"`
	MaxRequestBurst   int           `mapstructure:"max_request_burst" validate:"required"`
	RateLimitExpireIn time.Duration `mapstructure:"rate_limit_expire_in"`
}

type Dashboard struct {
	SessionHashKey  string        `mapstructure:"session_hash_key" validate:"required,min=32"`
	SessionBlockKey string        `mapstructure:"session_block_key" validate:"required,len=32"`
	SessionMaxAge   time.Duration `mapstructure:"session_max_age" validate:"required"`
	SecureCookie    bool          `mapstructure:"secure_cookie"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	AlertChatID               string        `mapstructure:"alert_chat_id"`
	WebhookURL                string        `mapstructure:"webhook_url"`
	WebhookSecret             string        `mapstructure:"webhook_secret"`
	PollTimeout               time.Duration `mapstructure:"poll_timeout"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration" validate:"required"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second" validate:"required"`
	MaxUserRequestPerSecond   int           `mapstructure:"max_user_request_per_second" validate:"required"`
	RatelimitExpireDuration   time.Duration `mapstructure:"ratelimit_expire_duration"`
	RateLimitCleanupDuration  time.Duration `mapstructure:"rate_limit_cleanup_duration"`
	MaxShowHistory            int           `mapstructure:"max_show_history" validate:"required"`
	PaymentProviderToken      string        `mapstructure:"payment_provider_token"`
}

// Enabled reports whether the bot surface should be started.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

type MarketData struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"required"`
	LookbackYears       int           `mapstructure:"lookback_years" validate:"required,min=1"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute" validate:"required,min=1"`
	CacheExpiration     time.Duration `mapstructure:"cache_expiration"`
}

type Forecast struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	ModelName string        `mapstructure:"model_name" validate:"required"`
	Window    int           `mapstructure:"window" validate:"required,min=1"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required"`
	APIKey    string        `mapstructure:"api_key"`
}

type Chart struct {
	OutputDir string        `mapstructure:"output_dir" validate:"required"`
	URLPrefix string        `mapstructure:"url_prefix" validate:"required,startswith=/"`
	Width     int           `mapstructure:"width" validate:"required"`
	Height    int           `mapstructure:"height" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required"`
}

type Quota struct {
	FreeDailyLimit int    `mapstructure:"free_daily_limit" validate:"required,min=1"`
	TimeZone       string `mapstructure:"time_zone"`
}

type Payment struct {
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required,min=16"`
	PriceAmount   int    `mapstructure:"price_amount" validate:"required"`
	Currency      string `mapstructure:"currency" validate:"required,len=3"`
	Title         string `mapstructure:"title"`
	Description   string `mapstructure:"description"`
}

type ChatLink struct {
	TokenTTL    time.Duration `mapstructure:"token_ttl" validate:"required"`
	CleanupCron string        `mapstructure:"cleanup_cron" validate:"required"`
	BotUsername string        `mapstructure:"bot_username"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "stock_forecast")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.log_level", "Warn")

	v.SetDefault("api.port", 8080)
	v.SetDefault("api.jwt_secret", "")
	v.SetDefault("api.token_ttl", "24h")
	v.SetDefault("api.request_timeout", "2m")
	v.SetDefault("api.max_request_per_sec", 10)
	v.SetDefault("api.max_request_burst", 30)
	v.SetDefault("api.rate_limit_expire_in", "3m")

	v.SetDefault("dashboard.session_hash_key", "")
	v.SetDefault("dashboard.session_block_key", "")
	v.SetDefault("dashboard.session_max_age", "720h")
	v.SetDefault("dashboard.secure_cookie", false)

	v.SetDefault("cache.default_expiration", "10m")
	v.SetDefault("cache.cleanup_interval", "15m")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.alert_chat_id", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.poll_timeout", "10s")
	v.SetDefault("telegram.timeout_duration", "2m")
	v.SetDefault("telegram.max_global_request_per_second", 30)
	v.SetDefault("telegram.max_user_request_per_second", 1)
	v.SetDefault("telegram.ratelimit_expire_duration", "10m")
	v.SetDefault("telegram.rate_limit_cleanup_duration", "5m")
	v.SetDefault("telegram.max_show_history", 10)
	v.SetDefault("telegram.payment_provider_token", "")

	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("market_data.timeout", "20s")
	v.SetDefault("market_data.lookback_years", 10)
	v.SetDefault("market_data.max_request_per_minute", 60)
	v.SetDefault("market_data.cache_expiration", "15m")

	v.SetDefault("forecast.base_url", "http://localhost:8501")
	v.SetDefault("forecast.model_name", "stock_prediction_model")
	v.SetDefault("forecast.window", 60)
	v.SetDefault("forecast.timeout", "30s")
	v.SetDefault("forecast.api_key", "")

	v.SetDefault("chart.output_dir", "staticfiles/charts")
	v.SetDefault("chart.url_prefix", "/charts")
	v.SetDefault("chart.width", 1024)
	v.SetDefault("chart.height", 512)
	v.SetDefault("chart.timeout", "30s")

	v.SetDefault("quota.free_daily_limit", 5)
	v.SetDefault("quota.time_zone", "")

	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.price_amount", 49900)
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.title", "Premium membership")
	v.SetDefault("payment.description", "Unlimited daily stock predictions")

	v.SetDefault("chat_link.token_ttl", "15m")
	v.SetDefault("chat_link.cleanup_cron", "@hourly")
	v.SetDefault("chat_link.bot_username", "")
}

// Load reads config.yaml from the given paths (or the working directory),
// overlays environment variables and validates the result. The returned
// config is treated as immutable by every consumer.
func Load(paths ...string) (*Config, error) {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fmt.Println("No config file loaded, using defaults and environment:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags and the values that need parsing.
func (c *Config) Validate() error {
	if err := goValidator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Telegram.WebhookURL != "" && c.Telegram.WebhookSecret == "" {
		return fmt.Errorf("invalid config: telegram.webhook_secret is required when telegram.webhook_url is set")
	}
	if c.Quota.TimeZone != "" {
		if _, err := time.LoadLocation(c.Quota.TimeZone); err != nil {
			return fmt.Errorf("invalid config: quota.time_zone %q: %w", c.Quota.TimeZone, err)
		}
	}
	return nil
}

// QuotaLocation returns the timezone used for the daily quota boundary.
func (c *Config) QuotaLocation() *time.Location {
	if c.Quota.TimeZone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Quota.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}
