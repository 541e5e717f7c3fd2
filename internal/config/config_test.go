package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsilvagit/go-airdrop/internal/filter"
	"github.com/rsilvagit/go-airdrop/internal/model"
	"github.com/rsilvagit/go-airdrop/internal/scraper"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.False(t, cfg.FromFile)
	assert.Equal(t, "0 9 * * *", cfg.Schedule.Scan)
	assert.Equal(t, "30 10 * * *", cfg.Schedule.Reminder)
	assert.Equal(t, "0 20 * * 0", cfg.Schedule.Report)
	assert.False(t, cfg.AutoClaim)
	assert.Equal(t, model.DedupNormalized, cfg.DedupMode)
	assert.Equal(t, filter.DefaultBlocklist, cfg.Blocklist)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Len(t, cfg.Sources, len(scraper.DefaultSources()))
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "wallet_address": "0xabc0000000000000000000000000000000000001",
  "email": "me@example.com",
  "twitter_username": "@me",
  "scan_interval_hours": 6,
  "auto_claim": true,
  "telegram_bot_token": "123:secret",
  "telegram_chat_id": "99",
  "fetch": {"timeout": "3s", "max_retries": 2},
  "dedup_mode": "exact"
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.FromFile)
	assert.Equal(t, "@me", cfg.TwitterUsername)
	assert.True(t, cfg.AutoClaim)
	assert.Equal(t, "0 */6 * * *", cfg.Schedule.Scan)
	assert.Equal(t, 3*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 2, cfg.Fetch.MaxRetries)
	assert.Equal(t, model.DedupExact, cfg.DedupMode)
	assert.True(t, cfg.TelegramEnabled())
	// unset sections keep defaults
	assert.Equal(t, "30 10 * * *", cfg.Schedule.Reminder)
}

func TestLoadNormalizesEnumCase(t *testing.T) {
	path := writeFile(t, "config.json", `{"dedup_mode": "Exact", "log_level": " WARN "}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.DedupExact, cfg.DedupMode)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := writeFile(t, "config.json", `{"log_level": "verbose"}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoadYAMLSources(t *testing.T) {
	path := writeFile(t, "config.yaml", `
scan_interval_hours: 24
schedule:
  scan: "@hourly"
  backfill_missed: true
blocklist: ["rug"]
reminder_tasks: ["claim faucet"]
sources:
  - name: Only Feed
    kind: feed
    url: https://example.com/feed
    limit: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "@hourly", cfg.Schedule.Scan)
	assert.True(t, cfg.Schedule.BackfillMissed)
	assert.Equal(t, []string{"rug"}, cfg.Blocklist)
	assert.Equal(t, []string{"claim faucet"}, cfg.ReminderTasks)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, scraper.KindFeed, cfg.Sources[0].Kind)
	assert.Equal(t, 5, cfg.Sources[0].Limit)
}

func TestLoadParseError(t *testing.T) {
	path := writeFile(t, "config.json", `{"scan_interval_hours": "soon"`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AIRDROP_TELEGRAM_TOKEN", "env-token")
	t.Setenv("AIRDROP_TELEGRAM_CHAT_ID", "7")
	t.Setenv("AIRDROP_SCAN_INTERVAL_HOURS", "12")
	t.Setenv("AIRDROP_PRETTY_LOG", "true")
	t.Setenv("AIRDROP_FETCH_TIMEOUT", "2s")
	t.Setenv("AIRDROP_DEDUP_MODE", "EXACT")

	path := writeFile(t, "config.json", `{"telegram_bot_token": "file-token"}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.TelegramBotToken)
	assert.Equal(t, "7", cfg.TelegramChatID)
	assert.Equal(t, "0 */12 * * *", cfg.Schedule.Scan)
	assert.True(t, cfg.PrettyLog)
	assert.Equal(t, 2*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, model.DedupExact, cfg.DedupMode)
}

func TestEnvOverrideBadValue(t *testing.T) {
	t.Setenv("AIRDROP_PRETTY_LOG", "maybe")
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AIRDROP_PRETTY_LOG")
}

func TestEnvFile(t *testing.T) {
	const key = "AIRDROP_TWITTER_USERNAME"
	envPath := writeFile(t, "test.env", key+"=@from_env_file\n")
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { os.Unsetenv(key) })

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "@from_env_file", cfg.TwitterUsername)
}

func TestScanIntervalMapping(t *testing.T) {
	tests := []struct {
		hours int
		want  string
	}{
		{0, "0 9 * * *"},
		{1, "0 */1 * * *"},
		{23, "0 */23 * * *"},
		{24, "0 9 * * *"},
		{48, "0 9 * * *"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.ScanIntervalHours = tt.hours
		cfg.applyScanInterval()
		assert.Equal(t, tt.want, cfg.Schedule.Scan, "hours=%d", tt.hours)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"dedup mode", func(c *Config) { c.DedupMode = "fuzzy" }, "dedup_mode"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, ""},
		{"bad cron", func(c *Config) { c.Schedule.Reminder = "every day" }, "schedule.reminder"},
		{"negative interval", func(c *Config) { c.ScanIntervalHours = -1 }, "scan_interval_hours"},
		{"delays", func(c *Config) { c.Fetch.MinDelay, c.Fetch.MaxDelay = 2*time.Second, time.Second }, "min_delay"},
		{"no sources", func(c *Config) { c.Sources = nil }, "no sources"},
		{"source without url", func(c *Config) { c.Sources[0].URL = "" }, "sources[0]"},
		{"unknown kind", func(c *Config) { c.Sources[1].Kind = "api" }, "sources[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.WalletAddress = "0x1234567890abcdef"
	cfg.Email = "a@b.io"
	cfg.TelegramBotToken = "123456:ABCDEF"
	cfg.TwitterUsername = "@me"

	r := cfg.Redacted()
	assert.Equal(t, "0x12****", r.WalletAddress)
	assert.Equal(t, "****", r.Email)
	assert.Equal(t, "1234****", r.TelegramBotToken)
	assert.Equal(t, "", r.DiscordWebhookURL)
	assert.Equal(t, "@me", r.TwitterUsername)
	// receiver is not modified
	assert.Equal(t, "123456:ABCDEF", cfg.TelegramBotToken)
}
