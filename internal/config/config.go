// Package config provides configuration management for the Tiger trading
// application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"tiger-trader/internal/safety"
)

// Config holds all application configuration.
type Config struct {
	Tiger   TigerConfig   `mapstructure:"tiger"`
	Safety  SafetyConfig  `mapstructure:"safety"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Trading TradingConfig `mapstructure:"trading"`
}

// TigerConfig holds Tiger OpenAPI credentials and connection settings.
type TigerConfig struct {
	TigerID        string `mapstructure:"tiger_id"`
	Account        string `mapstructure:"account"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	Sandbox        bool   `mapstructure:"sandbox"`
}

// SafetyConfig holds pre-trade safety limits. A value of 0 disables the
// corresponding check.
type SafetyConfig struct {
	MaxOrderValue  float64 `mapstructure:"max_order_value"`
	DailyLossLimit float64 `mapstructure:"daily_loss_limit"`
	MaxPositionPct float64 `mapstructure:"max_position_pct"`
	StateDir       string  `mapstructure:"state_dir"`
}

// AgentConfig holds LLM agent configuration.
type AgentConfig struct {
	Model        string `mapstructure:"model"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode string `mapstructure:"mode"` // "live", "paper"
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tiger-trader"
	}
	return filepath.Join(home, ".config", "tiger-trader")
}

// DefaultStateDir returns the default directory for daily state and trade
// plan files.
func DefaultStateDir() string {
	return filepath.Join(DefaultConfigDir(), "state")
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. Environment variables
// override file values.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("trading.mode", "live")
	v.SetDefault("agent.model", "gpt-4o")
	v.SetDefault("safety.state_dir", DefaultStateDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// Missing file is fine; env vars may carry everything.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TIGER_ID"); v != "" {
		cfg.Tiger.TigerID = v
	}
	if v := os.Getenv("TIGER_ACCOUNT"); v != "" {
		cfg.Tiger.Account = v
	}
	if v := os.Getenv("TIGER_PRIVATE_KEY_PATH"); v != "" {
		cfg.Tiger.PrivateKeyPath = v
	}
	if v := os.Getenv("TIGER_STATE_DIR"); v != "" {
		cfg.Safety.StateDir = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Agent.OpenAIAPIKey = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}

	for _, limit := range []struct {
		env    string
		target *float64
	}{
		{"TIGER_MAX_ORDER_VALUE", &cfg.Safety.MaxOrderValue},
		{"TIGER_DAILY_LOSS_LIMIT", &cfg.Safety.DailyLossLimit},
		{"TIGER_MAX_POSITION_PCT", &cfg.Safety.MaxPositionPct},
	} {
		raw := os.Getenv(limit.env)
		if raw == "" {
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%s must be numeric, got %q", limit.env, raw)
		}
		*limit.target = val
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("invalid trading mode: %s (must be 'live' or 'paper')", c.Trading.Mode)
	}

	// Live mode needs real broker credentials; paper mode does not.
	if c.Trading.Mode == "live" {
		if c.Tiger.TigerID == "" {
			return fmt.Errorf("tiger_id is required")
		}
		if c.Tiger.Account == "" {
			return fmt.Errorf("account is required")
		}
		if c.Tiger.PrivateKeyPath == "" {
			return fmt.Errorf("private_key_path is required")
		}
		if _, err := os.Stat(c.Tiger.PrivateKeyPath); err != nil {
			return fmt.Errorf("private_key_path does not exist: %s", c.Tiger.PrivateKeyPath)
		}
	}

	if err := c.SafetyLimits().Validate(); err != nil {
		return err
	}

	if c.Safety.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}

	return nil
}

// SafetyLimits returns the configured thresholds as a safety.Limits value.
func (c *Config) SafetyLimits() safety.Limits {
	return safety.Limits{
		MaxOrderValue:  c.Safety.MaxOrderValue,
		DailyLossLimit: c.Safety.DailyLossLimit,
		MaxPositionPct: c.Safety.MaxPositionPct,
	}
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
