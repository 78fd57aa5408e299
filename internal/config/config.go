// Package config provides configuration management for Ornabot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Ornabot server.
type Config struct {
	// TelegramBotToken is the token from @BotFather. Required.
	TelegramBotToken string

	// AdminIDs is the set of Telegram user IDs with admin access.
	// Parsed once from ORNABOT_ADMIN_IDS (comma-separated); role
	// resolution is a pure lookup against this set.
	AdminIDs map[int64]bool

	// DataDir is the directory for persistent data (SQLite DB, etc.).
	DataDir string

	// DatabasePath is the full path to the SQLite database file.
	DatabasePath string

	// ServerAddr is the address the ops HTTP API listens on.
	ServerAddr string

	// WebsiteURL is the storefront to scrape and monitor.
	WebsiteURL string

	// ScrapingEnabled toggles the site-content section of the AI context.
	ScrapingEnabled bool

	// ScrapeTimeout bounds a single content fetch.
	ScrapeTimeout time.Duration

	// CacheTTL is how long an assembled context stays fresh.
	CacheTTL time.Duration

	// Cooldown is the minimum gap between accepted AI requests per user.
	Cooldown time.Duration

	// HistoryLimit bounds the per-user conversation history.
	HistoryLimit int

	// ModelTimeout bounds a single model attempt.
	ModelTimeout time.Duration

	// Model identifiers per tier. Each tier's primary is tried first.
	BusinessModel string
	ReportModel   string
	SalesModel    string

	// Provider API keys.
	GeminiAPIKey string
	OpenAIAPIKey string

	// Scheduler settings.
	MonitorInterval time.Duration
	OrderPollEvery  time.Duration
	ReportHour      int

	// Slack admin-alert channel (optional).
	SlackToken   string
	SlackChannel string
}

// Load creates a Config from environment variables with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := envOr("ORNABOT_DATA_DIR", defaultDataDir())
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminIDs:         parseAdminIDs(os.Getenv("ORNABOT_ADMIN_IDS")),
		DataDir:          dataDir,
		DatabasePath:     filepath.Join(dataDir, "ornabot.db"),
		ServerAddr:       envOr("ORNABOT_ADDR", ":7270"),
		WebsiteURL:       envOr("ORNABOT_WEBSITE_URL", "https://orna-bd.vercel.app"),
		ScrapingEnabled:  envOrBool("ORNABOT_SCRAPING", true),
		ScrapeTimeout:    envOrDuration("ORNABOT_SCRAPE_TIMEOUT", 10*time.Second),
		CacheTTL:         envOrDuration("ORNABOT_CACHE_TTL", 5*time.Minute),
		Cooldown:         envOrDuration("ORNABOT_COOLDOWN", 5*time.Second),
		HistoryLimit:     envOrInt("ORNABOT_HISTORY_LIMIT", 10),
		ModelTimeout:     envOrDuration("ORNABOT_MODEL_TIMEOUT", 30*time.Second),
		BusinessModel:    envOr("ORNABOT_BUSINESS_MODEL", "gemini-1.5-pro"),
		ReportModel:      envOr("ORNABOT_REPORT_MODEL", "gemini-1.5-pro"),
		SalesModel:       envOr("ORNABOT_SALES_MODEL", "gemini-1.5-flash"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		MonitorInterval:  envOrDuration("ORNABOT_MONITOR_INTERVAL", 5*time.Minute),
		OrderPollEvery:   envOrDuration("ORNABOT_ORDER_POLL", time.Minute),
		ReportHour:       envOrInt("ORNABOT_REPORT_HOUR", 21),
		SlackToken:       os.Getenv("SLACK_BOT_TOKEN"),
		SlackChannel:     os.Getenv("SLACK_ALERT_CHANNEL"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ORNABOT_ADMIN_IDS is required (comma-separated Telegram user IDs)")
	}
	if c.ReportHour < 0 || c.ReportHour > 23 {
		return fmt.Errorf("ORNABOT_REPORT_HOUR must be 0-23, got %d", c.ReportHour)
	}
	return nil
}

// IsAdmin reports whether a user ID belongs to the admin set.
func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminIDs[userID]
}

// SlackEnabled returns true if the Slack alert channel is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackToken != "" && c.SlackChannel != ""
}

// AdminIDList returns the admin IDs as a slice for alert fan-out.
func (c *Config) AdminIDList() []int64 {
	ids := make([]int64, 0, len(c.AdminIDs))
	for id := range c.AdminIDs {
		ids = append(ids, id)
	}
	return ids
}

func parseAdminIDs(s string) map[int64]bool {
	ids := make(map[int64]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids[id] = true
		}
	}
	return ids
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ornabot"
	}
	return filepath.Join(home, ".ornabot")
}
