package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the oracle front end.
type Config struct {
	AppName        string        `mapstructure:"app_name"`
	LogLevel       string        `mapstructure:"app_log_level"`
	HTTPAddr       string        `mapstructure:"http_addr"`
	BackendURL     string        `mapstructure:"backend_url"`
	BackendTimeout time.Duration `mapstructure:"backend_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	CORSOrigins    []string      `mapstructure:"cors_allowed_origins"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "dob-oracle")
	v.SetDefault("app_log_level", "INFO")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("backend_timeout", 10*time.Second)
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("redis_addr", "")
	v.SetDefault("session_ttl", time.Hour)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("cors_allowed_origins", []string{"*"})
}

// Load reads an optional oracle.yaml from . or ./config, then ORACLE_* environment variables.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetConfigName("oracle")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
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

func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend_url %q", c.BackendURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}
