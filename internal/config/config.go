// Package config loads the program settings from a YAML or JSON file,
// .env files and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rsilvagit/go-airdrop/internal/filter"
	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/model"
	"github.com/rsilvagit/go-airdrop/internal/scheduler"
	"github.com/rsilvagit/go-airdrop/internal/scraper"
)

// DefaultPath is where Load looks when no -config flag is given.
const DefaultPath = "config.json"

type Config struct {
	WalletAddress     string `yaml:"wallet_address"`
	Email             string `yaml:"email"`
	TwitterUsername   string `yaml:"twitter_username"`
	DiscordUsername   string `yaml:"discord_username"`
	ScanIntervalHours int    `yaml:"scan_interval_hours"`
	AutoClaim         bool   `yaml:"auto_claim"`

	TelegramBotToken  string `yaml:"telegram_bot_token"`
	TelegramChatID    string `yaml:"telegram_chat_id"`
	DiscordWebhookURL string `yaml:"discord_webhook_url"`

	LogLevel     string `yaml:"log_level"`
	PrettyLog    bool   `yaml:"pretty_log"`
	RedisURL     string `yaml:"redis_url"`
	SnapshotFile string `yaml:"snapshot_file"`
	HTTPAddr     string `yaml:"http_addr"`

	Fetch     Fetch           `yaml:"fetch"`
	DedupMode model.DedupMode `yaml:"dedup_mode"`
	Blocklist []string        `yaml:"blocklist"`
	Schedule  Schedule        `yaml:"schedule"`

	ReminderTasks []string       `yaml:"reminder_tasks"`
	Sources       []scraper.Spec `yaml:"sources"`

	// FromFile is false when the config file did not exist and every value
	// came from defaults and the environment.
	FromFile bool `yaml:"-"`
}

type Fetch struct {
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	ProxyURL   string        `yaml:"proxy_url"`
	MinDelay   time.Duration `yaml:"min_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	MaxRetries int           `yaml:"max_retries"`
	MaxBody    int64         `yaml:"max_body_bytes"`
}

type Schedule struct {
	Scan           string `yaml:"scan"`
	Reminder       string `yaml:"reminder"`
	Report         string `yaml:"report"`
	BackfillMissed bool   `yaml:"backfill_missed"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		ScanIntervalHours: 24,
		LogLevel:          "info",
		SnapshotFile:      "scan_results.json",
		Fetch: Fetch{
			Timeout:    10 * time.Second,
			MaxRetries: 1,
		},
		DedupMode: model.DedupNormalized,
		Blocklist: append([]string(nil), filter.DefaultBlocklist...),
		Schedule: Schedule{
			Scan:     "0 9 * * *",
			Reminder: "30 10 * * *",
			Report:   "0 20 * * 0",
		},
		ReminderTasks: []string{
			"PrismaX: daily login at app.prismax.ai",
			"T-Rex: check quests at trex.xyz",
			"Hotstuff: testnet activity",
		},
		Sources: scraper.DefaultSources(),
	}
}

// Load reads path on top of Default, then applies .env files and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.FromFile = true
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.normalize()
	cfg.applyScanInterval()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadEnvFiles loads .env.local then .env. godotenv never overrides a
// variable that is already set, so .env.local wins over .env and the real
// environment wins over both.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"AIRDROP_WALLET_ADDRESS":    &c.WalletAddress,
		"AIRDROP_EMAIL":             &c.Email,
		"AIRDROP_TWITTER_USERNAME":  &c.TwitterUsername,
		"AIRDROP_DISCORD_USERNAME":  &c.DiscordUsername,
		"AIRDROP_TELEGRAM_TOKEN":    &c.TelegramBotToken,
		"AIRDROP_TELEGRAM_CHAT_ID":  &c.TelegramChatID,
		"AIRDROP_DISCORD_WEBHOOK":   &c.DiscordWebhookURL,
		"AIRDROP_LOG_LEVEL":         &c.LogLevel,
		"AIRDROP_REDIS_URL":         &c.RedisURL,
		"AIRDROP_SNAPSHOT_FILE":     &c.SnapshotFile,
		"AIRDROP_HTTP_ADDR":         &c.HTTPAddr,
		"AIRDROP_PROXY_URL":         &c.Fetch.ProxyURL,
		"AIRDROP_USER_AGENT":        &c.Fetch.UserAgent,
		"AIRDROP_SCHEDULE_SCAN":     &c.Schedule.Scan,
		"AIRDROP_SCHEDULE_REMINDER": &c.Schedule.Reminder,
		"AIRDROP_SCHEDULE_REPORT":   &c.Schedule.Report,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("AIRDROP_PRETTY_LOG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: AIRDROP_PRETTY_LOG: %w", err)
		}
		c.PrettyLog = b
	}
	if v, ok := lookup("AIRDROP_SCAN_INTERVAL_HOURS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AIRDROP_SCAN_INTERVAL_HOURS: %w", err)
		}
		c.ScanIntervalHours = n
	}
	if v, ok := lookup("AIRDROP_FETCH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: AIRDROP_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v, ok := lookup("AIRDROP_DEDUP_MODE"); ok && v != "" {
		c.DedupMode = model.DedupMode(v)
	}
	return nil
}

// normalize folds the case of enum-like settings, whichever layer set them.
func (c *Config) normalize() {
	c.DedupMode = model.DedupMode(strings.ToLower(strings.TrimSpace(string(c.DedupMode))))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// applyScanInterval turns a sub-daily scan_interval_hours into an every-N-hours
// scan schedule.
func (c *Config) applyScanInterval() {
	if c.ScanIntervalHours >= 1 && c.ScanIntervalHours <= 23 {
		c.Schedule.Scan = fmt.Sprintf("0 */%d * * *", c.ScanIntervalHours)
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.DedupMode {
	case model.DedupExact, model.DedupNormalized:
	default:
		return fmt.Errorf("config: unknown dedup_mode %q", c.DedupMode)
	}
	if c.LogLevel != "" && !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("config: unknown log_level %q, want debug, info, warn or error", c.LogLevel)
	}
	if c.ScanIntervalHours < 0 {
		return fmt.Errorf("config: scan_interval_hours must not be negative, got %d", c.ScanIntervalHours)
	}
	for name, spec := range map[string]string{
		"scan":     c.Schedule.Scan,
		"reminder": c.Schedule.Reminder,
		"report":   c.Schedule.Report,
	} {
		if _, err := scheduler.ParseSpec(spec); err != nil {
			return fmt.Errorf("config: schedule.%s %q: %w", name, spec, err)
		}
	}
	if c.Fetch.MinDelay > c.Fetch.MaxDelay && c.Fetch.MaxDelay != 0 {
		return fmt.Errorf("config: fetch.min_delay %s exceeds max_delay %s", c.Fetch.MinDelay, c.Fetch.MaxDelay)
	}
	if len(c.Sources) == 0 {
		return errors.New("config: no sources configured")
	}
	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("config: sources[%d]: %w", i, err)
		}
	}
	return nil
}

// TelegramEnabled reports whether both bot token and chat id are present.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Redacted returns a copy safe to log: secrets and personal details are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.WalletAddress = mask(c.WalletAddress)
	out.Email = mask(c.Email)
	out.TelegramBotToken = mask(c.TelegramBotToken)
	out.DiscordWebhookURL = mask(c.DiscordWebhookURL)
	out.RedisURL = mask(c.RedisURL)
	return out
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "****"
	}
}
