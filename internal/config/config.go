// Package config defines all invocation-time configuration for the
// execution engine. Config is loaded from a YAML file (default:
// configs/config.yaml) with sensitive fields overridable via EXEC_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode selects what the engine does with the configured order once started.
type Mode string

const (
	ModeMarket         Mode = "market"
	ModeTrackingLimit   Mode = "tracking_limit"
	ModeDiagnostic      Mode = "diagnostic"
)

// Config is the top-level configuration. Maps directly to the YAML file.
type Config struct {
	Venue           string                `mapstructure:"venue"`
	RESTBaseURL     string                `mapstructure:"rest_base_url"`
	WSURL           string                `mapstructure:"ws_url"`
	Symbol          string                `mapstructure:"symbol"`
	Mode            Mode                  `mapstructure:"mode"`
	Qty             float64               `mapstructure:"qty"`
	Side            string                `mapstructure:"side"` // "buy" or "sell"
	PriceOffsetTicks int64                `mapstructure:"price_offset_ticks"`
	IntervalSecs    float64               `mapstructure:"interval_secs"`
	TimeoutSecs     float64               `mapstructure:"timeout_secs"`
	ReduceOnly      int                   `mapstructure:"reduce_only"`
	PostOnly        int                   `mapstructure:"post_only"`
	CancelWaitSecs  float64               `mapstructure:"cancel_wait_secs"`
	MaxAttempts     int                   `mapstructure:"max_attempts"`

	SymbolMap         map[string]string    `mapstructure:"symbol_map"`
	VenueCredentials  map[string]string    `mapstructure:"venue_credentials"` // venue -> credential file path
	PositionStoreDir  string               `mapstructure:"position_store_dir"` // empty disables position persistence

	Risk        RiskConfig        `mapstructure:"risk"`
	Heartbeat   HeartbeatConfig   `mapstructure:"heartbeat"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	OrderLog    OrderLogConfig    `mapstructure:"order_log"`

	DryRun bool `mapstructure:"dry_run"`
}

// RiskConfig sets optional pre-trade limits (spec §3/§4.3). Zero value
// means "no limit" for both fields.
type RiskConfig struct {
	MaxPosition float64 `mapstructure:"max_position"` // absolute base units, 0 = unlimited
	MaxNotional float64 `mapstructure:"max_notional"` // quote units, 0 = unlimited
}

// HeartbeatConfig controls the optional periodic status POST.
type HeartbeatConfig struct {
	URL          string        `mapstructure:"url"`
	IntervalSecs float64       `mapstructure:"interval_secs"`
	TimeoutSecs  float64       `mapstructure:"timeout_secs"`
	BearerToken  string        `mapstructure:"bearer_token"`
	Strategy     string        `mapstructure:"strategy"` // label included in the heartbeat body
}

// Interval returns the heartbeat cadence as a time.Duration.
func (h HeartbeatConfig) Interval() time.Duration {
	return time.Duration(h.IntervalSecs * float64(time.Second))
}

// Timeout returns the per-request timeout as a time.Duration.
func (h HeartbeatConfig) Timeout() time.Duration {
	if h.TimeoutSecs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(h.TimeoutSecs * float64(time.Second))
}

// DiagnosticsConfig controls the read-only HTTP status/SSE/metrics surface.
type DiagnosticsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	Metrics bool `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OrderLogConfig controls the optional per-order JSONL event log.
type OrderLogConfig struct {
	Dir string `mapstructure:"dir"` // empty = disabled
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("EXEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if token := os.Getenv("EXEC_HEARTBEAT_BEARER_TOKEN"); token != "" {
		cfg.Heartbeat.BearerToken = token
	}
	if os.Getenv("EXEC_DRY_RUN") == "true" || os.Getenv("EXEC_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Venue == "" {
		return fmt.Errorf("venue is required")
	}
	if c.RESTBaseURL == "" {
		return fmt.Errorf("rest_base_url is required")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	switch c.Mode {
	case ModeMarket, ModeTrackingLimit, ModeDiagnostic:
	default:
		return fmt.Errorf("mode must be one of: market, tracking_limit, diagnostic")
	}
	if c.Mode != ModeDiagnostic {
		if c.Qty <= 0 {
			return fmt.Errorf("qty must be > 0")
		}
		switch strings.ToLower(c.Side) {
		case "buy", "sell":
		default:
			return fmt.Errorf("side must be one of: buy, sell")
		}
	}
	if c.Mode == ModeTrackingLimit {
		if c.IntervalSecs <= 0 {
			return fmt.Errorf("interval_secs must be > 0 for tracking_limit mode")
		}
		if c.TimeoutSecs <= 0 {
			return fmt.Errorf("timeout_secs must be > 0 for tracking_limit mode")
		}
	}
	if len(c.SymbolMap) == 0 {
		return fmt.Errorf("symbol_map must contain at least one entry")
	}
	if c.Risk.MaxPosition < 0 {
		return fmt.Errorf("risk.max_position must be >= 0")
	}
	if c.Risk.MaxNotional < 0 {
		return fmt.Errorf("risk.max_notional must be >= 0")
	}
	return nil
}

// IsAsk translates the configured side into the engine's is_ask boolean.
func (c *Config) IsAsk() bool {
	return strings.EqualFold(c.Side, "sell")
}
