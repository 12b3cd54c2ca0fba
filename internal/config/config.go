// Package config provides configuration management for the intent pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Limits      Limits           `mapstructure:"limits"`
	Budget      BudgetConfig     `mapstructure:"budget"`
	Parser      ParserConfig     `mapstructure:"parser"`
	Execution   ExecutionConfig  `mapstructure:"execution"`
	Audit       AuditConfig      `mapstructure:"audit"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Credentials Credentials      `mapstructure:"-"` // Loaded separately
}

// Limits holds the operator-supplied hard limits. They are read-only for the
// life of a run.
type Limits struct {
	AllowedPairs     []string `mapstructure:"allowed_pairs"`
	MaxSpendUSDC     float64  `mapstructure:"max_spend_usdc"`
	MaxSlippageBps   int      `mapstructure:"max_slippage_bps"`
	MaxExpiryMinutes int      `mapstructure:"max_expiry_minutes"` // 0 = no ceiling
}

// MaxSpend returns the hard spend cap as a decimal.
func (l Limits) MaxSpend() decimal.Decimal {
	return decimal.NewFromFloat(l.MaxSpendUSDC)
}

// PairAllowed reports whether pair is in the allowlist.
func (l Limits) PairAllowed(pair string) bool {
	for _, p := range l.AllowedPairs {
		if p == pair {
			return true
		}
	}
	return false
}

// BudgetConfig holds the per-run paid-signal budget.
type BudgetConfig struct {
	SignalBudgetUSDC float64 `mapstructure:"signal_budget_usdc"`
}

// SignalBudget returns the paid-signal budget as a decimal.
func (b BudgetConfig) SignalBudget() decimal.Decimal {
	return decimal.NewFromFloat(b.SignalBudgetUSDC)
}

// ParserConfig holds configuration for the strategy parser boundary.
type ParserConfig struct {
	Provider       string `mapstructure:"provider"` // "http", "openai"
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Model          string `mapstructure:"model"`
}

// ExecutionConfig holds execution-stage configuration.
type ExecutionConfig struct {
	Simulate bool `mapstructure:"simulate"`
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	LogDir     string `mapstructure:"log_dir"`
	MaxSize    int    `mapstructure:"max_size"`    // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/intent-trader"
	}
	return filepath.Join(home, ".config", "intent-trader")
}

// Default returns a configuration with safe defaults.
func Default() *Config {
	return &Config{
		Limits: Limits{
			AllowedPairs:   []string{"ETH/USDC", "BTC/USDC"},
			MaxSpendUSDC:   500,
			MaxSlippageBps: 75,
		},
		Budget: BudgetConfig{SignalBudgetUSDC: 10},
		Parser: ParserConfig{
			Provider:       "http",
			TimeoutSeconds: 30,
			Model:          "gpt-4o-mini",
		},
		Execution: ExecutionConfig{Simulate: true},
		Audit: AuditConfig{
			Enabled:    true,
			LogDir:     filepath.Join(DefaultConfigDir(), "audit"),
			MaxSize:    50,
			MaxBackups: 30,
			MaxAge:     365,
		},
		Logging: LoggingConfig{Level: "info", Console: true, File: true},
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file; defaults and env overrides apply.
			return nil
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("PARSER_ENDPOINT"); v != "" {
		cfg.Parser.Endpoint = v
	}
	if v := os.Getenv("PARSER_PROVIDER"); v != "" {
		cfg.Parser.Provider = v
	}
	if v := os.Getenv("SIGNAL_BUDGET_USDC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Budget.SignalBudgetUSDC = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if len(c.Limits.AllowedPairs) == 0 {
		return fmt.Errorf("limits.allowed_pairs must not be empty")
	}
	if c.Limits.MaxSpendUSDC <= 0 {
		return fmt.Errorf("limits.max_spend_usdc must be positive, got %v", c.Limits.MaxSpendUSDC)
	}
	if c.Limits.MaxSlippageBps < 1 || c.Limits.MaxSlippageBps > 500 {
		return fmt.Errorf("limits.max_slippage_bps must be in 1..500, got %d", c.Limits.MaxSlippageBps)
	}
	if c.Limits.MaxExpiryMinutes < 0 {
		return fmt.Errorf("limits.max_expiry_minutes must not be negative, got %d", c.Limits.MaxExpiryMinutes)
	}
	if c.Budget.SignalBudgetUSDC < 0 {
		return fmt.Errorf("budget.signal_budget_usdc must not be negative, got %v", c.Budget.SignalBudgetUSDC)
	}
	switch c.Parser.Provider {
	case "http", "openai":
	default:
		return fmt.Errorf("parser.provider must be http or openai, got %q", c.Parser.Provider)
	}
	return nil
}
