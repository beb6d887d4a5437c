package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nulzo/concierge-bot/internal/settings"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Bot       BotConfig       `mapstructure:"bot"`
	Sponsor   SponsorConfig   `mapstructure:"sponsor"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port"`
	Env     string `mapstructure:"env"`
	APIKeys string `mapstructure:"api_keys"` // comma-separated bearer keys for the ops API
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BotConfig struct {
	// AdminIDs is a comma-separated list of administrator user ids.
	AdminIDs    string `mapstructure:"admin_ids"`
	DatabaseDSN string `mapstructure:"database_dsn"`

	// Initial values for the runtime-mutable settings. Only APIKey is
	// required; persisted admin edits take precedence on later boots.
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	DefaultProvider string `mapstructure:"default_provider"`
	DefaultModel    string `mapstructure:"default_model"`
	SponsorChannels string `mapstructure:"sponsor_channels"`
}

type SponsorConfig struct {
	Retries        int     `mapstructure:"retries"`
	BackoffSeconds float64 `mapstructure:"backoff_seconds"`
	FailClosed     bool    `mapstructure:"fail_closed"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from a config file and environment
// variables (BOT_API_KEY maps to bot.api_key and so on). The upstream
// credential is the one hard requirement at startup.
func LoadConfig() (*Config, error) {
	// load .env if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// every key needs a default registered for AutomaticEnv to surface
	// env-only values through Unmarshal
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("bot.database_dsn", "file:bot.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("bot.admin_ids", "")
	v.SetDefault("bot.api_key", "")
	v.SetDefault("bot.base_url", "")
	v.SetDefault("bot.default_provider", "")
	v.SetDefault("bot.default_model", "")
	v.SetDefault("bot.sponsor_channels", "")
	v.SetDefault("sponsor.retries", 1)
	v.SetDefault("sponsor.backoff_seconds", 0.5)
	v.SetDefault("sponsor.fail_closed", false)
	v.SetDefault("tracing.enabled", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Booleans arriving through the environment come in as strings, and
	// operators write them loosely. This tolerant parse is intentionally
	// separate from the strict true/false rule on the admin edit surface.
	cfg.Redis.Enabled = ParseBool(v.GetString("redis.enabled"), cfg.Redis.Enabled)
	cfg.Sponsor.FailClosed = ParseBool(v.GetString("sponsor.fail_closed"), cfg.Sponsor.FailClosed)
	cfg.Tracing.Enabled = ParseBool(v.GetString("tracing.enabled"), cfg.Tracing.Enabled)

	if cfg.Bot.APIKey == "" {
		return nil, fmt.Errorf("bot.api_key (BOT_API_KEY) is required")
	}

	return &cfg, nil
}

// ParseBool interprets loose operator input: {1, true, yes, on} are
// true, {0, false, no, off} are false, anything else keeps fallback.
// Case-insensitive.
func ParseBool(raw string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// AdminIDs parses the comma-separated admin list. Malformed entries are
// reported rather than silently dropped; an admin list typo should be
// loud.
func (c *Config) AdminIDs() ([]int64, error) {
	raw := strings.TrimSpace(c.Bot.AdminIDs)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ServerAPIKeys parses the ops API bearer key list.
func (c *Config) ServerAPIKeys() []string {
	raw := strings.TrimSpace(c.Server.APIKeys)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SettingOverrides maps the bootstrap env values onto runtime setting
// keys. Empty values are omitted so persisted admin edits survive a
// restart that does not set them.
func (c *Config) SettingOverrides() map[string]string {
	out := make(map[string]string)
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	put(settings.KeyAPIKey, c.Bot.APIKey)
	put(settings.KeyBaseURL, c.Bot.BaseURL)
	put(settings.KeyDefaultProvider, c.Bot.DefaultProvider)
	put(settings.KeyDefaultModel, c.Bot.DefaultModel)
	put(settings.KeySponsorChannels, c.Bot.SponsorChannels)
	return out
}
