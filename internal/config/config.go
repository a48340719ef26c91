package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"
)

type (
	Config struct {
		Host       string `mapstructure:"HOST"`
		Port       string `mapstructure:"PORT"`
		AppURL     string `mapstructure:"APP_URL"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		// Hosted identity provider. Empty PROVIDER_URL (or DB_HOST)
		// switches the whole deployment into demo mode.
		ProviderURL string `mapstructure:"PROVIDER_URL"`
		ProviderKey string `mapstructure:"PROVIDER_KEY"`

		SessionSecret   string        `mapstructure:"SESSION_SECRET"`
		SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
		RedisAddr       string        `mapstructure:"REDIS_ADDR"`
		SessionCacheTTL time.Duration `mapstructure:"SESSION_CACHE_TTL"`

		LogDev bool `mapstructure:"LOG_DEV"`
	}
)

func NewConfig() (*Config, error) {
	viper.SetEnvPrefix("LINKVAULT")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "1323")
	viper.SetDefault("APP_URL", "http://localhost:1323")
	viper.SetDefault("DB_HOST", "")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "db")
	viper.SetDefault("DB_SSL_MODE", sslModeDisable)
	viper.SetDefault("PROVIDER_URL", "")
	viper.SetDefault("PROVIDER_KEY", "")
	viper.SetDefault("SESSION_SECRET", "demo-insecure-secret")
	viper.SetDefault("SESSION_TTL", 24*time.Hour)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("SESSION_CACHE_TTL", time.Minute)
	viper.SetDefault("LOG_DEV", false)

	envs := []string{
		"HOST", "PORT", "APP_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
		"PROVIDER_URL", "PROVIDER_KEY",
		"SESSION_SECRET", "SESSION_TTL", "REDIS_ADDR", "SESSION_CACHE_TTL",
		"LOG_DEV",
	}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// DemoMode reports whether the deployment runs against the in-process
// store and locally synthesized sessions instead of the managed backend.
// Decided once at startup; every request uses the same mode.
func (c *Config) DemoMode() bool {
	return c.ProviderURL == "" || c.DBHost == ""
}

func validate(cfg *Config) error {
	validSSLValues := []string{sslModeDisable, sslModeRequire}
	valid := false
	for _, validValue := range validSSLValues {
		if cfg.DBSSLMode == validValue {
			valid = true
			break
		}
	}
	if !valid {
		return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
	}

	if !cfg.DemoMode() && cfg.ProviderKey == "" {
		return errors.New("PROVIDER_KEY is required when PROVIDER_URL is set")
	}
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET must not be empty")
	}
	return nil
}
