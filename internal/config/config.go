// Package config defines the top-level configuration for kalshibot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by KBOT_* environment variables.
type Config struct {
	Run       RunConfig       `toml:"run"`
	Kalshi    KalshiConfig    `toml:"kalshi"`
	Selector  SelectorConfig  `toml:"selector"`
	Watcher   WatcherConfig   `toml:"watcher"`
	Snapshots SnapshotsConfig `toml:"snapshots"`
	Collector CollectorConfig `toml:"collector"`
	Logs      LogsConfig      `toml:"logs"`
	Notify    NotifyConfig    `toml:"notify"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
	LogFormat string          `toml:"log_format"`
}

// RunConfig holds single-pass pipeline parameters.
type RunConfig struct {
	MarketIndex int     `toml:"market_index"`
	SkipWatcher bool    `toml:"skip_watcher"`
	BetAmount   float64 `toml:"bet_amount"`
	MarketLimit int     `toml:"market_limit"`
	Series      string  `toml:"series"`
	Category    string  `toml:"category"`
}

// KalshiConfig holds Kalshi exchange API credentials and endpoints.
type KalshiConfig struct {
	BaseURL          string   `toml:"base_url"`
	WSURL            string   `toml:"ws_url"`
	AccessKeyID      string   `toml:"access_key_id"`
	PrivateKeyPath   string   `toml:"private_key_path"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	Timeout          duration `toml:"timeout"`
	RateLimitRPS     float64  `toml:"rate_limit_rps"`
}

// SelectorConfig holds tool-selector (LLM) parameters.
type SelectorConfig struct {
	Provider    string  `toml:"provider"`
	ModelID     string  `toml:"model_id"`
	Region      string  `toml:"region"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// WatcherConfig holds watch-loop parameters.
type WatcherConfig struct {
	PollInterval duration `toml:"poll_interval"`
	Timeout      duration `toml:"timeout"`
	MaxTicks     int      `toml:"max_ticks"`
	Direction    string   `toml:"direction"`
	FailureLimit int      `toml:"failure_limit"`
}

// SnapshotsConfig holds snapshot store parameters.
type SnapshotsConfig struct {
	Path          string `toml:"path"`
	WindowMinutes int    `toml:"window_minutes"`
}

// CollectorConfig holds snapshot collector parameters.
type CollectorConfig struct {
	Interval   duration `toml:"interval"`
	Duration   duration `toml:"duration"`
	MaxMarkets int      `toml:"max_markets"`
	Source     string   `toml:"source"`
}

// LogsConfig holds append-only log file locations.
type LogsConfig struct {
	Dir           string `toml:"dir"`
	BetFile       string `toml:"bet_file"`
	RunFile       string `toml:"run_file"`
	ExecutionFile string `toml:"execution_file"`
	StaleCheck    bool   `toml:"stale_check"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	Enabled           bool     `toml:"enabled"`
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// S3Config holds S3-compatible object storage parameters for log archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	Prefix         string `toml:"prefix"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	ArchiveCron    string `toml:"archive_cron"`
}

// ServerConfig holds the collect-mode status server parameters.
type ServerConfig struct {
	Enabled         bool `toml:"enabled"`
	Port            int  `toml:"port"`
	RateLimitPerMin int  `toml:"rate_limit_per_min"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Run: RunConfig{
			MarketIndex: 0,
			SkipWatcher: false,
			BetAmount:   10.0,
			MarketLimit: 10,
			Series:      "NBA",
			Category:    "basketball",
		},
		Kalshi: KalshiConfig{
			BaseURL:      "https://api.elections.kalshi.com/trade-api/v2",
			WSURL:        "wss://api.elections.kalshi.com/trade-api/ws/v2",
			Timeout:      duration{10 * time.Second},
			RateLimitRPS: 10,
		},
		Selector: SelectorConfig{
			Provider:    "fallback",
			ModelID:     "anthropic.claude-sonnet-4-5-20250929-v1:0",
			Region:      "us-east-1",
			Temperature: 0.0,
			MaxTokens:   1024,
		},
		Watcher: WatcherConfig{
			PollInterval: duration{30 * time.Second},
			Timeout:      duration{5 * time.Minute},
			MaxTicks:     3,
			Direction:    "above",
			FailureLimit: 3,
		},
		Snapshots: SnapshotsConfig{
			Path:          "outputs/market_snapshots.jsonl",
			WindowMinutes: 120,
		},
		Collector: CollectorConfig{
			Interval:   duration{60 * time.Second},
			Duration:   duration{6 * time.Minute},
			MaxMarkets: 50,
			Source:     "rest",
		},
		Logs: LogsConfig{
			Dir:           "outputs",
			BetFile:       "paper_bets.jsonl",
			RunFile:       "run_log.jsonl",
			ExecutionFile: "execution_log.jsonl",
			StaleCheck:    true,
		},
		Notify: NotifyConfig{
			Enabled: false,
			Events:  []string{"run_completed", "bet_placed", "watch_hit", "stale_data"},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "kalshibot-logs",
			Prefix:         "archive",
			UseSSL:         false,
			ForcePathStyle: true,
			ArchiveCron:    "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:         false,
			Port:            8000,
			RateLimitPerMin: 120,
		},
		Mode:      "run",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":         true,
	"collect":     true,
	"archive":     true,
	"encrypt-key": true,
	"tools":       true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, collect, archive, encrypt-key, tools)", c.Mode))
	}

	// LogLevel / LogFormat
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if f := strings.ToLower(c.LogFormat); f != "json" && f != "text" {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: json, text)", c.LogFormat))
	}

	// Run
	if c.Run.MarketIndex < 0 {
		errs = append(errs, "run: market_index must be >= 0")
	}
	if c.Run.BetAmount <= 0 {
		errs = append(errs, "run: bet_amount must be > 0")
	}
	if c.Run.MarketLimit < 1 || c.Run.MarketLimit > 100 {
		errs = append(errs, fmt.Sprintf("run: market_limit must be 1-100, got %d", c.Run.MarketLimit))
	}

	// Kalshi
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.EncryptedKeyPath != "" && c.Kalshi.KeyPassword == "" {
		errs = append(errs, "kalshi: key_password is required when encrypted_key_path is set")
	}
	if c.Kalshi.Timeout.Duration <= 0 {
		errs = append(errs, "kalshi: timeout must be > 0")
	}
	if c.Kalshi.RateLimitRPS <= 0 {
		errs = append(errs, "kalshi: rate_limit_rps must be > 0")
	}

	// Selector
	switch strings.ToLower(c.Selector.Provider) {
	case "bedrock":
		if c.Selector.ModelID == "" {
			errs = append(errs, "selector: model_id is required for provider bedrock")
		}
		if c.Selector.Region == "" {
			errs = append(errs, "selector: region is required for provider bedrock")
		}
	case "fallback":
		// No credentials needed.
	default:
		errs = append(errs, fmt.Sprintf("selector: unknown provider %q (valid: bedrock, fallback)", c.Selector.Provider))
	}
	if c.Selector.Temperature < 0 || c.Selector.Temperature > 1 {
		errs = append(errs, fmt.Sprintf("selector: temperature must be 0-1, got %g", c.Selector.Temperature))
	}
	if c.Selector.MaxTokens < 1 {
		errs = append(errs, "selector: max_tokens must be >= 1")
	}

	// Watcher
	if c.Watcher.PollInterval.Duration <= 0 {
		errs = append(errs, "watcher: poll_interval must be > 0")
	}
	if c.Watcher.Timeout.Duration <= 0 {
		errs = append(errs, "watcher: timeout must be > 0")
	}
	if c.Watcher.MaxTicks < 0 {
		errs = append(errs, "watcher: max_ticks must be >= 0")
	}
	if d := strings.ToLower(c.Watcher.Direction); d != "above" && d != "below" {
		errs = append(errs, fmt.Sprintf("watcher: unknown direction %q (valid: above, below)", c.Watcher.Direction))
	}
	if c.Watcher.FailureLimit < 1 {
		errs = append(errs, "watcher: failure_limit must be >= 1")
	}

	// Snapshots
	if c.Snapshots.Path == "" {
		errs = append(errs, "snapshots: path must not be empty")
	}
	if c.Snapshots.WindowMinutes < 1 {
		errs = append(errs, "snapshots: window_minutes must be >= 1")
	}

	// Collector
	if c.Collector.Interval.Duration <= 0 {
		errs = append(errs, "collector: interval must be > 0")
	}
	if c.Collector.Duration.Duration <= 0 {
		errs = append(errs, "collector: duration must be > 0")
	}
	if c.Collector.MaxMarkets < 1 || c.Collector.MaxMarkets > 1000 {
		errs = append(errs, fmt.Sprintf("collector: max_markets must be 1-1000, got %d", c.Collector.MaxMarkets))
	}
	if s := strings.ToLower(c.Collector.Source); s != "rest" && s != "ws" {
		errs = append(errs, fmt.Sprintf("collector: unknown source %q (valid: rest, ws)", c.Collector.Source))
	}

	// Logs
	if c.Logs.Dir == "" {
		errs = append(errs, "logs: dir must not be empty")
	}
	if c.Logs.BetFile == "" || c.Logs.RunFile == "" || c.Logs.ExecutionFile == "" {
		errs = append(errs, "logs: bet_file, run_file, and execution_file must not be empty")
	}

	// Notify — token and chat id must be set together, or both empty.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.Enabled && !tt && c.Notify.DiscordWebhookURL == "" {
		errs = append(errs, "notify: enabled requires telegram or discord credentials")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}
	if c.Mode == "archive" && !c.S3.Enabled {
		errs = append(errs, "s3: must be enabled for archive mode")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 1 {
			errs = append(errs, "server: rate_limit_per_min must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
