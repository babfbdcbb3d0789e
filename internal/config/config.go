package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Alias1177/FixPredict/internal/database"
	"github.com/Alias1177/FixPredict/internal/engine"
	httpclient "github.com/Alias1177/FixPredict/internal/platform/http"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FIXPREDICT_ENGINE_MIN_STAKE.
const EnvPrefix = "FIXPREDICT"

const masked = "********"

// Config holds all application configuration
type Config struct {
	LogLevel  string                    `mapstructure:"log_level" yaml:"log_level"`
	Owner     string                    `mapstructure:"owner" yaml:"owner"`
	StateFile string                    `mapstructure:"state_file" yaml:"state_file"`
	Database  database.ConnectionParams `mapstructure:"database" yaml:"database"`
	Engine    engine.Params             `mapstructure:"engine" yaml:"engine"`
	Telegram  TelegramConfig            `mapstructure:"telegram" yaml:"telegram"`
	Stripe    StripeConfig              `mapstructure:"stripe" yaml:"stripe"`
	HTTP      httpclient.ClientOptions  `mapstructure:"http" yaml:"http"`
	Webhook   WebhookConfig             `mapstructure:"webhook" yaml:"webhook"`
}

// TelegramConfig configures operator notifications.
type TelegramConfig struct {
	Token  string `mapstructure:"token" yaml:"token"`
	ChatID int64  `mapstructure:"chat_id" yaml:"chat_id"`
}

// StripeConfig configures token purchases.
type StripeConfig struct {
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"webhook_secret"`
	TokenPriceID  string `mapstructure:"token_price_id" yaml:"token_price_id"`
	TokensPerUnit uint64 `mapstructure:"tokens_per_unit" yaml:"tokens_per_unit"`
	SuccessURL    string `mapstructure:"success_url" yaml:"success_url"`
	CancelURL     string `mapstructure:"cancel_url" yaml:"cancel_url"`
}

// WebhookConfig configures the payment webhook server.
type WebhookConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// UsesPostgres reports whether state lives in PostgreSQL rather than StateFile.
func (c *Config) UsesPostgres() bool {
	return c.Database.Host != ""
}

// Masked returns a copy safe to print, with every secret replaced.
func (c Config) Masked() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = masked
		}
	}
	mask(&c.Database.Password)
	mask(&c.Telegram.Token)
	mask(&c.Stripe.APIKey)
	mask(&c.Stripe.WebhookSecret)
	return c
}

func setDefaults(v *viper.Viper) {
	params := engine.DefaultParams()

	v.SetDefault("log_level", "info")
	v.SetDefault("owner", "")
	v.SetDefault("state_file", "fixpredict.json")

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "fixpredict")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("engine.min_stake", params.MinStake)
	v.SetDefault("engine.reward_bps", params.RewardBps)
	v.SetDefault("engine.treasury_delay", params.TreasuryDelay)
	v.SetDefault("engine.rate_limit_max", params.RateLimitMax)
	v.SetDefault("engine.rate_limit_window", params.RateLimitWindow)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("stripe.api_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.token_price_id", "")
	v.SetDefault("stripe.tokens_per_unit", 1000)
	v.SetDefault("stripe.success_url", "https://example.com/success")
	v.SetDefault("stripe.cancel_url", "https://example.com/cancel")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.requests_per_sec", 5)
	v.SetDefault("http.max_retry_timeout", 30*time.Second)

	v.SetDefault("webhook.port", "8080")
}

// Load initializes configuration from defaults, the optional YAML file at path
// (./fixpredict.yaml when empty) and FIXPREDICT_* environment variables.
func Load(path string) (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("fixpredict")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &cfg, nil
}
