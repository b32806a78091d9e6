package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies KBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file layer and uses the
// defaults. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known KBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Run ──
	setInt(&cfg.Run.MarketIndex, "KBOT_RUN_MARKET_INDEX")
	setBool(&cfg.Run.SkipWatcher, "KBOT_RUN_SKIP_WATCHER")
	setFloat64(&cfg.Run.BetAmount, "KBOT_RUN_BET_AMOUNT")
	setInt(&cfg.Run.MarketLimit, "KBOT_RUN_MARKET_LIMIT")
	setStr(&cfg.Run.Series, "KBOT_RUN_SERIES")
	setStr(&cfg.Run.Category, "KBOT_RUN_CATEGORY")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.BaseURL, "KBOT_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WSURL, "KBOT_KALSHI_WS_URL")
	setStr(&cfg.Kalshi.AccessKeyID, "KBOT_KALSHI_ACCESS_KEY_ID")
	setStr(&cfg.Kalshi.PrivateKeyPath, "KBOT_KALSHI_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EncryptedKeyPath, "KBOT_KALSHI_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Kalshi.KeyPassword, "KBOT_KALSHI_KEY_PASSWORD")
	setDuration(&cfg.Kalshi.Timeout, "KBOT_KALSHI_TIMEOUT")
	setFloat64(&cfg.Kalshi.RateLimitRPS, "KBOT_KALSHI_RATE_LIMIT_RPS")

	// ── Selector ──
	setStr(&cfg.Selector.Provider, "KBOT_SELECTOR_PROVIDER")
	setStr(&cfg.Selector.ModelID, "KBOT_SELECTOR_MODEL_ID")
	setStr(&cfg.Selector.Region, "KBOT_SELECTOR_REGION")
	setFloat64(&cfg.Selector.Temperature, "KBOT_SELECTOR_TEMPERATURE")
	setInt(&cfg.Selector.MaxTokens, "KBOT_SELECTOR_MAX_TOKENS")

	// ── Watcher ──
	setDuration(&cfg.Watcher.PollInterval, "KBOT_WATCHER_POLL_INTERVAL")
	setDuration(&cfg.Watcher.Timeout, "KBOT_WATCHER_TIMEOUT")
	setInt(&cfg.Watcher.MaxTicks, "KBOT_WATCHER_MAX_TICKS")
	setStr(&cfg.Watcher.Direction, "KBOT_WATCHER_DIRECTION")
	setInt(&cfg.Watcher.FailureLimit, "KBOT_WATCHER_FAILURE_LIMIT")

	// ── Snapshots ──
	setStr(&cfg.Snapshots.Path, "KBOT_SNAPSHOTS_PATH")
	setInt(&cfg.Snapshots.WindowMinutes, "KBOT_SNAPSHOTS_WINDOW_MINUTES")

	// ── Collector ──
	setDuration(&cfg.Collector.Interval, "KBOT_COLLECTOR_INTERVAL")
	setDuration(&cfg.Collector.Duration, "KBOT_COLLECTOR_DURATION")
	setInt(&cfg.Collector.MaxMarkets, "KBOT_COLLECTOR_MAX_MARKETS")
	setStr(&cfg.Collector.Source, "KBOT_COLLECTOR_SOURCE")

	// ── Logs ──
	setStr(&cfg.Logs.Dir, "KBOT_LOGS_DIR")
	setStr(&cfg.Logs.BetFile, "KBOT_LOGS_BET_FILE")
	setStr(&cfg.Logs.RunFile, "KBOT_LOGS_RUN_FILE")
	setStr(&cfg.Logs.ExecutionFile, "KBOT_LOGS_EXECUTION_FILE")
	setBool(&cfg.Logs.StaleCheck, "KBOT_LOGS_STALE_CHECK")

	// ── Notify ──
	setBool(&cfg.Notify.Enabled, "KBOT_NOTIFY_ENABLED")
	setStr(&cfg.Notify.TelegramToken, "KBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "KBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "KBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "KBOT_NOTIFY_EVENTS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "KBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "KBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "KBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "KBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "KBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "KBOT_S3_SECRET_KEY")
	setStr(&cfg.S3.Prefix, "KBOT_S3_PREFIX")
	setBool(&cfg.S3.UseSSL, "KBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "KBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.ArchiveCron, "KBOT_S3_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "KBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "KBOT_SERVER_PORT")
	setInt(&cfg.Server.RateLimitPerMin, "KBOT_SERVER_RATE_LIMIT_PER_MIN")

	// ── Top-level ──
	setStr(&cfg.Mode, "KBOT_MODE")
	setStr(&cfg.LogLevel, "KBOT_LOG_LEVEL")
	setStr(&cfg.LogFormat, "KBOT_LOG_FORMAT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
