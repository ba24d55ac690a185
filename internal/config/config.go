package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Shikimori ShikimoriConfig `mapstructure:"shikimori"`
	Santa     SantaConfig     `mapstructure:"santa"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Paas      PaasConfig      `mapstructure:"paas"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	// AdminToken protects /api/v1. Empty disables the check.
	AdminToken string `mapstructure:"admin_token"`
}

// AdminAPIUnprotected reports whether the admin API accepts any bearer token
// outside a dev environment.
func (c Config) AdminAPIUnprotected() bool {
	return strings.TrimSpace(c.Server.AdminToken) == "" && !strings.EqualFold(strings.TrimSpace(c.App.Env), "dev")
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	BotUsername string        `mapstructure:"bot_username"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	// OperatorChatID receives consistency anomalies. Zero disables it.
	OperatorChatID int64 `mapstructure:"operator_chat_id"`
}

type ShikimoriConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type SantaConfig struct {
	MinGapDays     int           `mapstructure:"min_gap_days"`
	MaxGapDays     int           `mapstructure:"max_gap_days"`
	DateLayout     string        `mapstructure:"date_layout"`
	Timezone       string        `mapstructure:"timezone"`
	MinReviewWords int           `mapstructure:"min_review_words"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// Location resolves Timezone, falling back to UTC.
func (c SantaConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type RetryConfig struct {
	Attempts     int           `mapstructure:"attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

type PaasConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Project string `mapstructure:"project"`
}

// Secrets are read from the process environment and override file values.
type Secrets struct {
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	DBDSN         string `env:"SANTA_DB_DSN"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	PaasBaseURL   string `env:"EASYWEB3_API_BASE"`
	PaasAPIKey    string `env:"EASYWEB3_API_KEY"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SANTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 2)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.bot_username", "")
	v.SetDefault("telegram.poll_timeout", "30s")
	v.SetDefault("telegram.operator_chat_id", 0)
	v.SetDefault("shikimori.base_url", "https://shikimori.one")
	v.SetDefault("shikimori.timeout", "10s")
	v.SetDefault("shikimori.user_agent", "animesanta")
	v.SetDefault("shikimori.cache_ttl", "6h")
	v.SetDefault("santa.min_gap_days", 2)
	v.SetDefault("santa.max_gap_days", 31)
	v.SetDefault("santa.date_layout", "02.01.2006")
	v.SetDefault("santa.timezone", "UTC")
	v.SetDefault("santa.min_review_words", 50)
	v.SetDefault("santa.session_ttl", "72h")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cron", "0 0 9 * * *")
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.initial_delay", "500ms")
	v.SetDefault("retry.max_delay", "10s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("paas.base_url", "")
	v.SetDefault("paas.api_key", "")
	v.SetDefault("paas.project", "animesanta")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := ApplySecrets(&cfg); err != nil {
		return Config{}, err
	}
	spec, err := NormalizeCron(cfg.Scheduler.Cron)
	if err != nil {
		return Config{}, err
	}
	cfg.Scheduler.Cron = spec
	if cfg.Santa.MinGapDays < 0 || cfg.Santa.MaxGapDays < cfg.Santa.MinGapDays {
		return Config{}, fmt.Errorf("santa gap days %d..%d out of order", cfg.Santa.MinGapDays, cfg.Santa.MaxGapDays)
	}
	return cfg, nil
}

// ApplySecrets overlays values from the process environment.
func ApplySecrets(cfg *Config) error {
	secrets, err := env.ParseAs[Secrets]()
	if err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	if secrets.TelegramToken != "" {
		cfg.Telegram.Token = secrets.TelegramToken
	}
	if secrets.DBDSN != "" {
		cfg.DB.DSN = secrets.DBDSN
	}
	if secrets.RedisPassword != "" {
		cfg.Cache.RedisPassword = secrets.RedisPassword
	}
	if secrets.PaasBaseURL != "" {
		cfg.Paas.BaseURL = secrets.PaasBaseURL
	}
	if secrets.PaasAPIKey != "" {
		cfg.Paas.APIKey = secrets.PaasAPIKey
	}
	return nil
}

// NormalizeCron validates spec and returns it in the seconds-first form the
// cron runner expects. Five-field expressions fire at second zero.
func NormalizeCron(spec string) (string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", fmt.Errorf("empty cron spec")
	}
	if strings.HasPrefix(spec, "@every ") {
		if _, err := time.ParseDuration(strings.TrimPrefix(spec, "@every ")); err != nil {
			return "", fmt.Errorf("invalid cron spec %q: %w", spec, err)
		}
		return spec, nil
	}
	fields := strings.Fields(spec)
	five := spec
	switch {
	case strings.HasPrefix(spec, "@"):
	case len(fields) == 6:
		five = strings.Join(fields[1:], " ")
	case len(fields) == 5:
		spec = "0 " + spec
	default:
		return "", fmt.Errorf("invalid cron spec %q: want 5 or 6 fields", spec)
	}
	if !gronx.New().IsValid(five) {
		return "", fmt.Errorf("invalid cron spec %q", spec)
	}
	return spec, nil
}

// NextRun reports when spec fires next after ref. Interval specs are not
// supported and return the zero time.
func NextRun(spec string, ref time.Time) time.Time {
	fields := strings.Fields(spec)
	expr := spec
	switch {
	case strings.HasPrefix(spec, "@every"):
		return time.Time{}
	case len(fields) == 6:
		expr = strings.Join(fields[1:], " ")
	}
	next, err := gronx.NextTickAfter(expr, ref, false)
	if err != nil {
		return time.Time{}
	}
	return next
}
