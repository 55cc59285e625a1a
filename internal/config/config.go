package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DBSqlite   = "sqlite"
	DBPostgres = "postgres"

	SessionDB    = "db"
	SessionRedis = "redis"
)

// Config holds application configuration.
type Config struct {
	ShopName string
	Addr     string
	LogLevel string

	BotToken      string
	WebhookURL    string
	WebhookSecret string

	DBType         string
	DatabaseURL    string
	DBMaxOpenConns int
	AutoMigrate    bool

	PointsThreshold int
	Timezone        string
	ReaperSchedule  string

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	AdminIDs []string

	// malformed values seen by Load, reported by Validate
	loadErrs []error
}

// Load reads configuration from the environment and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	var errs []error
	cfg := Config{
		ShopName: getenv("SHOP_NAME", "Сюда"),
		Addr:     getenv("ADDR", ":8080"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		BotToken:      strings.TrimSpace(getenv("TG_BOT_TOKEN", "")),
		WebhookURL:    strings.TrimSpace(getenv("TG_WEBHOOK_URL", "")),
		WebhookSecret: strings.TrimSpace(getenv("TG_WEBHOOK_SECRET", "")),

		DBType:         strings.ToLower(getenv("DATABASE_TYPE", DBSqlite)),
		DatabaseURL:    getenv("DATABASE_URL", "punchcard.db"),
		DBMaxOpenConns: getenvInt("DB_MAX_OPEN_CONNS", 0, &errs),
		AutoMigrate:    getenvBool("AUTO_MIGRATE", true),

		PointsThreshold: getenvInt("POINTS_THRESHOLD", 7, &errs),
		Timezone:        getenv("TIMEZONE", "Europe/Moscow"),
		ReaperSchedule:  getenv("REAPER_SCHEDULE", "0 0 * * *"),

		SessionBackend: strings.ToLower(getenv("SESSION_BACKEND", SessionDB)),
		SessionTTL:     getenvDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
		RedisDB:        getenvInt("REDIS_DB", 0, &errs),

		AdminIDs: splitList(os.Getenv("ADMIN_TELEGRAM_IDS")),
	}
	cfg.loadErrs = errs
	return cfg
}

// Validate reports the first configuration problem that would prevent startup.
func (c Config) Validate() error {
	if len(c.loadErrs) > 0 {
		return c.loadErrs[0]
	}
	if c.BotToken == "" {
		return errors.New("TG_BOT_TOKEN is required")
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return errors.New("TG_WEBHOOK_SECRET is required when TG_WEBHOOK_URL is set")
	}
	if c.PointsThreshold < 2 {
		return fmt.Errorf("POINTS_THRESHOLD must be at least 2, got %d", c.PointsThreshold)
	}
	switch c.DBType {
	case DBSqlite, DBPostgres:
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q", c.DBType)
	}
	switch c.SessionBackend {
	case SessionDB, SessionRedis:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the shop timezone used for calendar-day comparisons.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer, got %q", key, value))
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
