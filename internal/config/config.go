package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Alpaca     AlpacaConfig     `mapstructure:"alpaca"`
	Supabase   SupabaseConfig   `mapstructure:"supabase"`
	Sweeps     SweepsConfig     `mapstructure:"sweeps"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// LLMConfig contains settings for the reasoning-model provider.
// APIKey is filled from XAI_API_KEY / OPENAI_API_KEY by the CLI when unset here.
type LLMConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // ms
}

// AlpacaConfig contains brokerage and market-data settings
type AlpacaConfig struct {
	APIKey          string `mapstructure:"api_key"`
	SecretKey       string `mapstructure:"secret_key"`
	DataEndpoint    string `mapstructure:"data_endpoint"`
	TradingEndpoint string `mapstructure:"trading_endpoint"`
	RequestsPerMin  int    `mapstructure:"requests_per_min"`
	Timeout         int    `mapstructure:"timeout"` // ms
}

// SupabaseConfig contains settings for the journal/notes/thesis stores
// and the remote log table
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	Key     string `mapstructure:"key"`
	Timeout int    `mapstructure:"timeout"` // ms
}

// SweepsConfig points at the options-flow dashboard API
type SweepsConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"` // ms
}

// TradingConfig contains loop and conversation settings
type TradingConfig struct {
	Mode              string   `mapstructure:"mode"`                // "live" or "sim"
	PollInterval      int      `mapstructure:"poll_interval"`       // seconds between cycles
	MarketClosedWait  int      `mapstructure:"market_closed_wait"`  // seconds to wait when market is closed
	MaxTurns          int      `mapstructure:"max_turns"`           // model turns per cycle
	MaxOrdersPerCycle int      `mapstructure:"max_orders_per_call"` // batch cap for place_trade_orders
	Watchlist         []string `mapstructure:"watchlist"`
	InitialCapital    float64  `mapstructure:"initial_capital"` // paper portfolio only
}

// RiskConfig contains the deterministic order-gate limits
type RiskConfig struct {
	MinNotional     float64 `mapstructure:"min_notional"`
	MaxNotional     float64 `mapstructure:"max_notional"`
	ExposureCapPct  float64 `mapstructure:"exposure_cap_pct"` // 0.2 = 20% of portfolio per ticker
	CooldownMinutes int     `mapstructure:"cooldown_minutes"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	MetricsPort   int  `mapstructure:"metrics_port"`
	EnableMetrics bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("TRADER")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
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

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "EquityFunk")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	// LLM defaults (xAI-compatible chat completions endpoint)
	v.SetDefault("llm.endpoint", "https://api.x.ai/v1/chat/completions")
	v.SetDefault("llm.model", "grok-4-1-fast-reasoning")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.timeout", 60000)

	// Alpaca defaults (paper trading endpoints)
	v.SetDefault("alpaca.data_endpoint", "https://data.alpaca.markets")
	v.SetDefault("alpaca.trading_endpoint", "https://paper-api.alpaca.markets")
	v.SetDefault("alpaca.requests_per_min", 200)
	v.SetDefault("alpaca.timeout", 30000)

	// Supabase defaults
	v.SetDefault("supabase.timeout", 10000)

	// Sweeps defaults
	v.SetDefault("sweeps.timeout", 15000)

	// Trading defaults
	v.SetDefault("trading.mode", "sim")
	v.SetDefault("trading.poll_interval", 600)
	v.SetDefault("trading.market_closed_wait", 900)
	v.SetDefault("trading.max_turns", 10)
	v.SetDefault("trading.max_orders_per_call", 3)
	v.SetDefault("trading.watchlist", []string{
		"SPY", "QQQ", "IWM", "NVDA", "AAPL", "MSFT", "AMD", "TSLA", "AMZN",
		"JPM", "XOM", "LLY", "COIN", "MSTR",
	})
	v.SetDefault("trading.initial_capital", 100000.0)

	// Risk defaults
	v.SetDefault("risk.min_notional", 5000.0)
	v.SetDefault("risk.max_notional", 25000.0)
	v.SetDefault("risk.exposure_cap_pct", 0.2)
	v.SetDefault("risk.cooldown_minutes", 30)

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)
}

// Validate checks configuration invariants that must hold at startup
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "sim" {
		return fmt.Errorf("trading.mode must be \"live\" or \"sim\", got %q", c.Trading.Mode)
	}
	if c.Trading.PollInterval <= 0 {
		return fmt.Errorf("trading.poll_interval must be positive, got %d", c.Trading.PollInterval)
	}
	if c.Trading.MarketClosedWait <= 0 {
		return fmt.Errorf("trading.market_closed_wait must be positive, got %d", c.Trading.MarketClosedWait)
	}
	if c.Trading.MaxTurns <= 0 {
		return fmt.Errorf("trading.max_turns must be positive, got %d", c.Trading.MaxTurns)
	}
	if c.Trading.MaxOrdersPerCycle <= 0 {
		return fmt.Errorf("trading.max_orders_per_call must be positive, got %d", c.Trading.MaxOrdersPerCycle)
	}
	if c.Risk.MinNotional < 0 || c.Risk.MaxNotional <= 0 {
		return fmt.Errorf("risk notional bounds must be non-negative, got [%.2f, %.2f]",
			c.Risk.MinNotional, c.Risk.MaxNotional)
	}
	if c.Risk.MinNotional > c.Risk.MaxNotional {
		return fmt.Errorf("risk.min_notional %.2f exceeds risk.max_notional %.2f",
			c.Risk.MinNotional, c.Risk.MaxNotional)
	}
	if c.Risk.ExposureCapPct <= 0 || c.Risk.ExposureCapPct > 1 {
		return fmt.Errorf("risk.exposure_cap_pct must be in (0, 1], got %.2f", c.Risk.ExposureCapPct)
	}
	if c.Risk.CooldownMinutes < 0 {
		return fmt.Errorf("risk.cooldown_minutes must be non-negative, got %d", c.Risk.CooldownMinutes)
	}
	return nil
}

// GetTimeout returns the LLM request timeout as time.Duration
func (c *LLMConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetTimeout returns the Alpaca request timeout as time.Duration
func (c *AlpacaConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetTimeout returns the Supabase request timeout as time.Duration
func (c *SupabaseConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetTimeout returns the sweeps API request timeout as time.Duration
func (c *SweepsConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetPollInterval returns the cycle sleep as time.Duration
func (c *TradingConfig) GetPollInterval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// GetMarketClosedWait returns the market-closed wait as time.Duration
func (c *TradingConfig) GetMarketClosedWait() time.Duration {
	return time.Duration(c.MarketClosedWait) * time.Second
}

// GetCooldown returns the BUY cooldown window as time.Duration
func (c *RiskConfig) GetCooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}
