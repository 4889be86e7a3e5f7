package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	TelegramToken  string
	TelegramAPIURL string
	WebhookSecret  string
	PublicURL      string // where Telegram reaches this server; empty skips setWebhook
	SiteURL        string
	AdminIDs       []int64
	AdminAPIKey    string

	DBDriver         string // postgres or sqlite
	DBHost           string
	DBPort           string
	DBUser           string
	DBPassword       string
	DBName           string
	DBSSLMode        string
	DBPath           string
	DBConnectTimeout time.Duration
	DBQueryTimeout   time.Duration
	DBMaxOpenConns   int

	RequestTimeout  time.Duration
	TierCacheSize   int
	TierCacheTTL    time.Duration
	BroadcastDelay  time.Duration
	VideoExtensions []string

	LogLevel  slog.Level
	LogFormat string
}

var defaultVideoExtensions = ".mp4,.mkv,.webm,.ts,.mov,.avi,.flv,.wmv,.m4v,.mpeg,.mpg,.3gp,.3g2"

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded", slog.String("error", err.Error()))
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
		TelegramAPIURL: getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
		PublicURL:      strings.TrimRight(getEnv("PUBLIC_URL", ""), "/"),
		SiteURL:        strings.TrimRight(getEnv("SITE_URL", "http://localhost:8000"), "/"),
		AdminAPIKey:    getEnv("ADMIN_API_KEY", ""),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("PGHOST", "localhost"),
		DBPort:     getEnv("PGPORT", "5432"),
		DBUser:     getEnv("PGUSER", "postgres"),
		DBPassword: getEnv("PGPASSWORD", ""),
		DBName:     getEnv("PGDATABASE", "mediabot"),
		DBSSLMode:  getEnv("PGSSLMODE", "disable"),
		DBPath:     getEnv("DB_PATH", "./mediabot.db"),

		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.AdminIDs, err = getEnvInt64List("ADMIN_IDS"); err != nil {
		return nil, err
	}
	if cfg.DBConnectTimeout, err = getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DBQueryTimeout, err = getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TierCacheSize, err = getEnvInt("TIER_CACHE_SIZE", 10000); err != nil {
		return nil, err
	}
	if cfg.TierCacheTTL, err = getEnvDuration("TIER_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BroadcastDelay, err = getEnvDuration("BROADCAST_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.VideoExtensions = splitList(getEnv("VIDEO_EXTENSIONS", defaultVideoExtensions))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER: unsupported driver %q (postgres, sqlite)", c.DBDriver)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT: unsupported format %q (json, text)", c.LogFormat)
	}
	if c.TierCacheSize <= 0 {
		return fmt.Errorf("TIER_CACHE_SIZE: must be > 0")
	}
	return nil
}

// IsAdmin reports whether userID may ingest media and run admin commands.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PostgresDSN builds the pgx keyword/value DSN. The connect timeout and a
// server-side statement timeout are part of the DSN.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s connect_timeout=%d statement_timeout=%d",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
		int(c.DBConnectTimeout.Seconds()), c.DBQueryTimeout.Milliseconds())
}

// SetupLogger installs the default slog logger according to the config.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, val)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (use 30s, 1m, ...)", key, val)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func getEnvInt64List(key string) ([]int64, error) {
	var ids []int64
	for _, s := range splitList(os.Getenv(key)) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid user id %q", key, s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported level %q (debug, info, warn, error)", level)
	}
}
