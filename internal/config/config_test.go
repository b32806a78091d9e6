package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// --- Defaults ---

func TestDefaults_ValidateClean(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestDefaults_Values(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "run", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	assert.Equal(t, 10.0, cfg.Run.BetAmount)
	assert.Equal(t, 10, cfg.Run.MarketLimit)
	assert.Equal(t, "NBA", cfg.Run.Series)

	assert.Equal(t, "https://api.elections.kalshi.com/trade-api/v2", cfg.Kalshi.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Kalshi.Timeout.Duration)
	assert.Equal(t, 10.0, cfg.Kalshi.RateLimitRPS)

	assert.Equal(t, "fallback", cfg.Selector.Provider)

	assert.Equal(t, 30*time.Second, cfg.Watcher.PollInterval.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Watcher.Timeout.Duration)
	assert.Equal(t, 3, cfg.Watcher.MaxTicks)
	assert.Equal(t, "above", cfg.Watcher.Direction)

	assert.Equal(t, 120, cfg.Snapshots.WindowMinutes)
	assert.Equal(t, "rest", cfg.Collector.Source)
	assert.True(t, cfg.Logs.StaleCheck)
	assert.False(t, cfg.Notify.Enabled)
	assert.False(t, cfg.S3.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.S3.ArchiveCron)
	assert.Equal(t, 8000, cfg.Server.Port)
}

// --- Load ---

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_TOMLMergesOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "collect"

[run]
bet_amount = 25.0
series = "KXNBAGAME"

[kalshi]
timeout = "30s"

[watcher]
poll_interval = "5s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "collect", cfg.Mode)
	assert.Equal(t, 25.0, cfg.Run.BetAmount)
	assert.Equal(t, "KXNBAGAME", cfg.Run.Series)
	assert.Equal(t, 30*time.Second, cfg.Kalshi.Timeout.Duration)
	assert.Equal(t, 5*time.Second, cfg.Watcher.PollInterval.Duration)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Run.MarketLimit)
	assert.Equal(t, "fallback", cfg.Selector.Provider)
}

func TestLoad_BadTOML(t *testing.T) {
	path := writeTOML(t, `mode = "run`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadDurationString(t *testing.T) {
	path := writeTOML(t, `
[kalshi]
timeout = "not-a-duration"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

// --- Environment overrides ---

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("KBOT_MODE", "archive")
	t.Setenv("KBOT_RUN_BET_AMOUNT", "50.5")
	t.Setenv("KBOT_RUN_SKIP_WATCHER", "true")
	t.Setenv("KBOT_KALSHI_TIMEOUT", "45s")
	t.Setenv("KBOT_SERVER_PORT", "9090")
	t.Setenv("KBOT_NOTIFY_EVENTS", "bet_placed, watch_hit")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "archive", cfg.Mode)
	assert.Equal(t, 50.5, cfg.Run.BetAmount)
	assert.True(t, cfg.Run.SkipWatcher)
	assert.Equal(t, 45*time.Second, cfg.Kalshi.Timeout.Duration)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"bet_placed", "watch_hit"}, cfg.Notify.Events)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := writeTOML(t, `mode = "collect"`)
	t.Setenv("KBOT_MODE", "tools")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tools", cfg.Mode)
}

func TestLoad_UnparseableEnvValuesIgnored(t *testing.T) {
	t.Setenv("KBOT_RUN_MARKET_LIMIT", "plenty")
	t.Setenv("KBOT_KALSHI_TIMEOUT", "soon")
	t.Setenv("KBOT_NOTIFY_ENABLED", "yep")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Run.MarketLimit)
	assert.Equal(t, 10*time.Second, cfg.Kalshi.Timeout.Duration)
	assert.False(t, cfg.Notify.Enabled)
}

// --- Validate ---

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "warp"
	cfg.Run.BetAmount = 0
	cfg.Run.MarketLimit = 0
	cfg.Watcher.Direction = "sideways"
	cfg.Collector.Source = "carrier-pigeon"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "warp"`)
	assert.Contains(t, msg, "bet_amount must be > 0")
	assert.Contains(t, msg, "market_limit must be 1-100")
	assert.Contains(t, msg, `unknown direction "sideways"`)
	assert.Contains(t, msg, `unknown source "carrier-pigeon"`)
}

func TestValidate_BedrockProviderNeedsModelAndRegion(t *testing.T) {
	cfg := Defaults()
	cfg.Selector.Provider = "bedrock"
	cfg.Selector.ModelID = ""
	cfg.Selector.Region = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_id is required")
	assert.Contains(t, err.Error(), "region is required")
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Selector.Provider = "openai"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "openai"`)
}

func TestValidate_EncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Kalshi.EncryptedKeyPath = "keys/kalshi.enc"
	cfg.Kalshi.KeyPassword = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidate_TelegramFieldsPaired(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "123:abc"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestValidate_NotifyEnabledNeedsChannel(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires telegram or discord")

	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ArchiveModeNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be enabled for archive mode")

	cfg.S3.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ServerCheckedOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	assert.NoError(t, cfg.Validate())

	cfg.Server.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port must be 1-65535")
}

// --- Redaction ---

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Kalshi.AccessKeyID = "key-id"
	cfg.Kalshi.KeyPassword = "hunter2"
	cfg.S3.AccessKey = "minioadmin"
	cfg.S3.SecretKey = "miniosecret"
	cfg.Notify.TelegramToken = "123:abc"
	cfg.Notify.DiscordWebhookURL = "https://discord.com/api/webhooks/1/x"

	red := Redacted(&cfg)

	assert.Equal(t, "***", red.Kalshi.AccessKeyID)
	assert.Equal(t, "***", red.Kalshi.KeyPassword)
	assert.Equal(t, "***", red.S3.AccessKey)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Notify.DiscordWebhookURL)

	// Empty secrets stay empty rather than gaining a placeholder.
	assert.Empty(t, red.Kalshi.PrivateKeyPath)

	// Originals are untouched.
	assert.Equal(t, "hunter2", cfg.Kalshi.KeyPassword)

	// The events slice is a copy.
	red.Notify.Events[0] = "mutated"
	assert.Equal(t, "run_completed", cfg.Notify.Events[0])
}

// --- duration ---

func TestDuration_TextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("5m")))
	assert.Equal(t, 5*time.Minute, d.Duration)

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5m0s", string(out))
}
