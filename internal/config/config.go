package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	AuthSecret         string        `mapstructure:"AUTH_SECRET"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	SortWeightPolicy   string        `mapstructure:"SORT_WEIGHT_POLICY"`
	DefaultPrioritySet string        `mapstructure:"DEFAULT_PRIORITY_SET_ID"`
	DefaultStatusSet   string        `mapstructure:"DEFAULT_STATUS_SET_ID"`
	ReconcilerInterval time.Duration `mapstructure:"RECONCILER_INTERVAL"`
	ReconcilerDisabled bool          `mapstructure:"RECONCILER_DISABLED"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SORT_WEIGHT_POLICY", "")
	v.SetDefault("RECONCILER_INTERVAL", "1m")
	v.SetDefault("RECONCILER_DISABLED", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SORT_WEIGHT_POLICY")
	v.BindEnv("DEFAULT_PRIORITY_SET_ID")
	v.BindEnv("DEFAULT_STATUS_SET_ID")
	v.BindEnv("RECONCILER_INTERVAL")
	v.BindEnv("RECONCILER_DISABLED")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Production mode
// requires AUTH_SECRET so that bearer tokens are actually verified, and the
// configured concept set IDs, when present, must be well-formed UUIDs.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET must be set when ENV=production. " +
			"Refusing to start without token verification configured")
	}
	if c.ReconcilerInterval <= 0 {
		return fmt.Errorf("RECONCILER_INTERVAL must be positive, got %s", c.ReconcilerInterval)
	}
	if c.DefaultPrioritySet != "" {
		if _, err := uuid.Parse(c.DefaultPrioritySet); err != nil {
			return fmt.Errorf("DEFAULT_PRIORITY_SET_ID is not a valid UUID: %q", c.DefaultPrioritySet)
		}
	}
	if c.DefaultStatusSet != "" {
		if _, err := uuid.Parse(c.DefaultStatusSet); err != nil {
			return fmt.Errorf("DEFAULT_STATUS_SET_ID is not a valid UUID: %q", c.DefaultStatusSet)
		}
	}
	return nil
}
